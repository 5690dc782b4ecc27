package model

import "time"

// Method identifies a text acquisition engine.
type Method string

const (
	MethodNativeText  Method = "native-text"
	MethodOCR         Method = "ocr"
	MethodCloudVision Method = "cloud-vision"
	MethodFallback    Method = "fallback"
)

// Document is an uploaded file handed to the pipeline. Immutable; the
// pipeline does not retain it after processing completes.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Bytes    []byte `json:"-"`
}

// ExtractionAttempt records one engine invocation. Attempt lists are
// append-only for the lifetime of a document's processing.
type ExtractionAttempt struct {
	Method     Method        `json:"method"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	CostUSD    float64       `json:"costUsd"`
	Latency    time.Duration `json:"latencyMs"`
	Timestamp  time.Time     `json:"timestamp"`
	// Fields holds the structured field map parsed from Text.
	Fields map[string]string `json:"fields,omitempty"`
}

// FieldCandidate is one observed value for a field, derived from a single
// extraction attempt.
type FieldCandidate struct {
	Field  string  `json:"field"`
	Value  string  `json:"value"`
	Source Method  `json:"source"`
	Weight float64 `json:"weight"`
}

// FieldConfidence is the fused, authoritative record for one field.
// Immutable once finalized.
type FieldConfidence struct {
	Field           string   `json:"field"`
	Value           string   `json:"value"`
	Confidence      float64  `json:"confidence"`
	Sources         []Method `json:"sources"`
	ValidationScore float64  `json:"validationScore"`
}

// QualityGate classifies how trustworthy a fused result is.
type QualityGate string

const (
	GatePassed  QualityGate = "passed"
	GateWarning QualityGate = "warning"
	GateFailed  QualityGate = "failed"
)

// CriticalFields are weighted 3x in overall confidence. Order matters only
// for display.
var CriticalFields = []string{
	"policyNumber",
	"insuredName",
	"propertyAddress",
	"effectiveDate",
	"expirationDate",
	"insurerName",
}

// IsCriticalField reports whether field carries the elevated fusion weight.
func IsCriticalField(field string) bool {
	for _, f := range CriticalFields {
		if f == field {
			return true
		}
	}
	return false
}
