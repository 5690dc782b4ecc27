package classify

import (
	"strings"

	"github.com/claimstack/docpipe/internal/model"
)

// WorkflowAnalysis summarizes where a claim sits in its lifecycle based on
// which document types are present in a batch.
type WorkflowAnalysis struct {
	Stage            model.WorkflowStage
	MissingDocuments []string
	Recommendations  []string
}

// AnalyzeWorkflow infers the claim workflow stage from a batch's
// classifications via a fixed rule ladder. Order-insensitive: only set
// membership matters, so any document completion order produces the same
// analysis.
func AnalyzeWorkflow(classifications []model.ClassificationResult) WorkflowAnalysis {
	var hasPolicy, hasAcknowledgement, hasRFI, hasSettlement, hasRejection bool
	for _, c := range classifications {
		if c.Category == model.CategoryPolicy {
			hasPolicy = true
		}
		switch c.DocumentType {
		case model.DocTypeAcknowledgement:
			hasAcknowledgement = true
		case model.DocTypeRequestForInfo:
			hasRFI = true
		case model.DocTypeSettlement:
			hasSettlement = true
		}
		if c.Category == model.CategoryProcessing && strings.Contains(c.DocumentType, "rejection") {
			hasRejection = true
		}
	}

	out := WorkflowAnalysis{}

	// First matching rung wins.
	switch {
	case !hasPolicy:
		out.Stage = model.StageClaimInitiation
		out.MissingDocuments = append(out.MissingDocuments, "Insurance Policy")
		out.Recommendations = append(out.Recommendations, "Upload insurance policy document for coverage verification")
	case hasPolicy && !hasAcknowledgement:
		out.Stage = model.StageClaimInitiation
		out.Recommendations = append(out.Recommendations, "Claim appears to be in early stages - expect acknowledgement letter soon")
	case hasAcknowledgement && hasRFI:
		out.Stage = model.StageInformationGathering
		out.Recommendations = append(out.Recommendations, "Additional documentation requested - review RFI requirements")
	case hasSettlement:
		out.Stage = model.StageSettlement
		out.Recommendations = append(out.Recommendations, "Settlement reached - review terms and payment details")
	case hasRejection:
		out.Stage = model.StageDisputed
		out.Recommendations = append(out.Recommendations, "Claim has issues - review rejection reasons and appeal options")
	default:
		out.Stage = model.StageUnderReview
		out.Recommendations = append(out.Recommendations, "Claim appears to be under active review")
	}

	return out
}
