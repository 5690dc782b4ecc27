package model

import "time"

// FusedResult is the confidence fusion engine's output for one document.
type FusedResult struct {
	PolicyData           map[string]string   `json:"policyData"`
	OverallConfidence    float64             `json:"overallConfidence"`
	FieldConfidences     []FieldConfidence   `json:"fieldConfidences"`
	IterationCount       int                 `json:"iterationCount"`
	CrossValidationScore float64             `json:"crossValidationScore"`
	QualityGate          QualityGate         `json:"qualityGate"`
	ProcessingMethod     Method              `json:"processingMethod"`
	Attempts             []ExtractionAttempt `json:"attempts,omitempty"`
	CarrierID            string              `json:"carrierId,omitempty"`
}

// DocumentResult is the orchestrator's per-document envelope. A failed
// document still yields one of these, with Error set and confidence 0.
type DocumentResult struct {
	DocumentID      string                `json:"documentId"`
	Filename        string                `json:"filename"`
	Classification  *ClassificationResult `json:"classification,omitempty"`
	Identifiers     *IdentifierResult     `json:"identifiers,omitempty"`
	Extraction      *FusedResult          `json:"extraction,omitempty"`
	QualityScore    float64               `json:"qualityScore"`
	ProcessingNotes []string              `json:"processingNotes,omitempty"`
	CostUSD         float64               `json:"costUsd"`
	Duration        time.Duration         `json:"durationMs"`
	Error           string                `json:"error,omitempty"`
}

// Failed reports whether this document produced a degraded error result.
func (r *DocumentResult) Failed() bool { return r.Error != "" }

// WorkflowStage is the inferred position of a claim in its lifecycle, derived
// from which document types are present in a batch.
type WorkflowStage string

const (
	StageClaimInitiation      WorkflowStage = "claim_initiation"
	StageInformationGathering WorkflowStage = "information_gathering"
	StageUnderReview          WorkflowStage = "under_review"
	StageSettlement           WorkflowStage = "settlement"
	StageDisputed             WorkflowStage = "disputed"
)

// ConsolidatedClaimContext aggregates identifiers and key data across every
// document in a batch. Built fresh per batch; never persisted.
type ConsolidatedClaimContext struct {
	ClaimNumbers      []string      `json:"claimNumbers"`
	PolicyNumbers     []string      `json:"policyNumbers"`
	InsuredNames      []string      `json:"insuredNames"`
	PropertyAddresses []string      `json:"propertyAddresses"`
	KeyDates          []string      `json:"keyDates"`
	DocumentTypes     []string      `json:"documentTypes"`
	FinancialFigures  []string      `json:"financialFigures"`
	WorkflowStage     WorkflowStage `json:"workflowStage"`
}

// BatchResult is the multi-document entry point's output.
type BatchResult struct {
	Documents        []DocumentResult         `json:"documents"`
	WorkflowStage    WorkflowStage            `json:"workflowStage"`
	ConsolidatedData ConsolidatedClaimContext `json:"consolidatedData"`
	Recommendations  []string                 `json:"recommendations"`
	TotalCostUSD     float64                  `json:"totalCostUsd"`
	TotalTime        time.Duration            `json:"totalTimeMs"`
}

// RunStatus tracks a persisted processing run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the audit record for one document's trip through the pipeline.
type Run struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Status    RunStatus       `json:"status"`
	Result    *DocumentResult `json:"result,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
