package model

import "time"

// FieldPattern is a learned signature for where and how one field appears
// in a carrier's documents. Patterns and context phrases grow monotonically;
// successful learning never removes an entry.
type FieldPattern struct {
	Field           string    `json:"field"`
	Patterns        []string  `json:"patterns"`
	ContextPhrases  []string  `json:"contextPhrases"`
	SuccessRate     float64   `json:"successRate"`
	Confidence      float64   `json:"confidence"`
	ExtractionCount int       `json:"extractionCount"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// CarrierTemplate is the per-carrier learned state. Exclusively owned by the
// pattern store; every other component reads snapshots.
type CarrierTemplate struct {
	CarrierID             string                  `json:"carrierId"`
	CarrierName           string                  `json:"carrierName"`
	FieldPatterns         map[string]FieldPattern `json:"fieldPatterns"`
	LayoutSignatures      []string                `json:"layoutSignatures"`
	DocumentsProcessed    int                     `json:"documentsProcessed"`
	SuccessfulExtractions int                     `json:"successfulExtractions"`
	UserCorrections       int                     `json:"userCorrections"`
	AverageConfidence     float64                 `json:"averageConfidence"`
	CreatedAt             time.Time               `json:"createdAt"`
	UpdatedAt             time.Time               `json:"updatedAt"`
}

// ExtractionHints is the read-side snapshot handed to the fusion engine for
// a (carrier, document type) pair.
type ExtractionHints struct {
	CarrierID      string              `json:"carrierId"`
	CarrierName    string              `json:"carrierName"`
	FieldPatterns  map[string][]string `json:"fieldPatterns"`
	ContextPhrases map[string][]string `json:"contextPhrases"`
	Confidence     float64             `json:"confidence"`
}

// CorrectionFeedback is a user-supplied fix for one extracted field. Treated
// as the highest-trust learning signal.
type CorrectionFeedback struct {
	DocumentID     string    `json:"documentId"`
	CarrierID      string    `json:"carrierId"`
	DocumentType   string    `json:"documentType"`
	Field          string    `json:"field"`
	CorrectedValue string    `json:"correctedValue"`
	OriginalValue  string    `json:"originalValue,omitempty"`
	Context        string    `json:"context,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// CarrierPerformance summarizes one carrier for the statistics surface.
type CarrierPerformance struct {
	CarrierID          string  `json:"carrierId"`
	CarrierName        string  `json:"carrierName"`
	DocumentsProcessed int     `json:"documentsProcessed"`
	AverageConfidence  float64 `json:"averageConfidence"`
	FieldsLearned      int     `json:"fieldsLearned"`
}

// LearningStats aggregates pattern-store state across all carriers.
type LearningStats struct {
	CarriersLearned         int                  `json:"carriersLearned"`
	TotalDocumentsProcessed int                  `json:"totalDocumentsProcessed"`
	TotalCorrections        int                  `json:"totalCorrections"`
	TopPerformers           []CarrierPerformance `json:"topPerformers"`
}
