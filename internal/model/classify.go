package model

// Category groups document types by their role in a claim's life.
type Category string

const (
	CategoryPolicy        Category = "policy"
	CategoryCommunication Category = "communication"
	CategoryProcessing    Category = "processing"
	CategoryAssessment    Category = "assessment"
)

// Well-known document types. The classifier may be extended with more via
// its template registry; these cover the claim workflow ladder.
const (
	DocTypePolicy          = "policy"
	DocTypeClaim           = "claim"
	DocTypeAcknowledgement = "acknowledgement_letter"
	DocTypeReservation     = "reservation_of_rights"
	DocTypeRequestForInfo  = "request_for_information"
	DocTypeSettlement      = "settlement_letter"
	DocTypeRejection       = "rejection_letter"
	DocTypeStatusUpdate    = "status_update"
	DocTypeEstimate        = "estimate"
	DocTypeInvoice         = "invoice"
	DocTypeCorrespondence  = "correspondence"
	DocTypeUnknown         = "unknown"
)

// ClassificationResult is the classifier's verdict for one document.
type ClassificationResult struct {
	DocumentType     string   `json:"documentType"`
	Confidence       float64  `json:"confidence"`
	Category         Category `json:"category"`
	ExpectedFields   []string `json:"expectedFields,omitempty"`
	ProhibitedFields []string `json:"prohibitedFields,omitempty"`
	MatchedPatterns  int      `json:"matchedPatterns"`
	Notes            []string `json:"notes,omitempty"`
}
