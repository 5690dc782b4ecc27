package model

// RelationshipStatus describes whether the identifiers found in a document
// are consistent with its classified type.
type RelationshipStatus string

const (
	RelationshipValid       RelationshipStatus = "valid"
	RelationshipConflicting RelationshipStatus = "conflicting"
	RelationshipMissing     RelationshipStatus = "missing"
	RelationshipUnverified  RelationshipStatus = "unverified"
)

// IdentifierResult holds every identifier extracted from one document plus
// the relationship verdict. RelationshipStatus is derived, never cached
// across identifier or classification changes.
type IdentifierResult struct {
	PolicyNumber       string             `json:"policyNumber,omitempty"`
	ClaimNumber        string             `json:"claimNumber,omitempty"`
	FileNumber         string             `json:"fileNumber,omitempty"`
	CarrierClaimNumber string             `json:"carrierClaimNumber,omitempty"`
	DocumentType       string             `json:"documentType"`
	PrimaryIdentifier  string             `json:"primaryIdentifier,omitempty"`
	RelationshipStatus RelationshipStatus `json:"relationshipStatus"`
	Confidences        map[string]float64 `json:"confidences,omitempty"`
	Messages           []string           `json:"messages,omitempty"`
	Suggestions        []string           `json:"suggestions,omitempty"`
}
