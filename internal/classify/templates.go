package classify

import (
	"regexp"

	"github.com/claimstack/docpipe/internal/model"
)

// Template describes one document type: its identifying patterns, how many
// must match to qualify, and a type weight for scoring.
type Template struct {
	Type             string
	Category         model.Category
	Patterns         []*regexp.Regexp
	RequiredPatterns int
	Weight           float64
	ExtractionFields []string
	ProhibitedFields []string
}

// DefaultTemplates returns the built-in registry. Order matters: when two
// templates tie on score, the earlier one wins.
func DefaultTemplates() []Template {
	return []Template{
		{
			Type:     model.DocTypePolicy,
			Category: model.CategoryPolicy,
			Patterns: compile(
				`policy\s*number`,
				`coverage\s*[a-d]`,
				`deductible`,
				`effective\s*date`,
				`expiration\s*date`,
				`dwelling\s*protection`,
				`liability\s*protection`,
				`homeowners?\s*policy`,
				`property\s*insurance`,
			),
			RequiredPatterns: 2,
			Weight:           1.0,
			ExtractionFields: []string{
				"policyNumber", "insuredName", "propertyAddress", "effectiveDate",
				"expirationDate", "coverageA", "coverageB", "coverageC", "coverageD",
				"deductible", "insurerName", "agentName",
			},
		},
		{
			Type:     "certified_policy",
			Category: model.CategoryPolicy,
			Patterns: compile(
				`certified\s*copy`,
				`certified\s*policy`,
				`official\s*copy`,
				`policy\s*certification`,
				`true\s*copy`,
			),
			RequiredPatterns: 1,
			Weight:           1.2,
			ExtractionFields: []string{
				"policyNumber", "insuredName", "propertyAddress", "effectiveDate",
				"certificationDate", "certifyingAuthority",
			},
		},
		{
			Type:     model.DocTypeReservation,
			Category: model.CategoryCommunication,
			Patterns: compile(
				`reservation\s*of\s*rights`,
				`reserves?\s*its?\s*rights?`,
				`under\s*investigation`,
				`coverage\s*determination`,
				`full\s*reservation`,
				`deny\s*all\s*or\s*part`,
			),
			RequiredPatterns: 2,
			Weight:           1.0,
			ExtractionFields: []string{
				"claimNumber", "insuredName", "dateOfLoss", "investigationStatus",
				"rightsReserved", "nextSteps", "adjusterInfo", "documentDate",
			},
		},
		{
			Type:     model.DocTypeRequestForInfo,
			Category: model.CategoryCommunication,
			Patterns: compile(
				`request\s*for\s*information`,
				`additional\s*documentation`,
				`within\s*\d+\s*days`,
				`following\s*information`,
				`needed\s*to\s*evaluate`,
				`submit\s*the\s*following`,
			),
			RequiredPatterns: 2,
			Weight:           1.0,
			ExtractionFields: []string{
				"claimNumber", "requestedItems", "deadline", "contactInfo",
				"documentDate", "referenceNumbers", "submissionInstructions",
			},
		},
		{
			Type:     model.DocTypeAcknowledgement,
			Category: model.CategoryCommunication,
			Patterns: compile(
				`acknowledge?ment`,
				`acknowledge`,
				`claim\s*received`,
				`thank\s*you\s*for\s*reporting`,
				`claim\s*number\s*assigned`,
				`started\s*working\s*on`,
			),
			RequiredPatterns: 2,
			Weight:           1.0,
			ExtractionFields: []string{
				"claimNumber", "acknowledgeDate", "nextSteps", "contactInfo",
				"assignedAdjuster", "expectedTimeline",
			},
		},
		{
			Type:     model.DocTypeStatusUpdate,
			Category: model.CategoryCommunication,
			Patterns: compile(
				`claim\s*update`,
				`status\s*update`,
				`may\s*provide\s*coverage`,
				`under\s*review`,
				`investigation\s*continues`,
				`remediation`,
				`mold.*fungus`,
			),
			RequiredPatterns: 2,
			Weight:           1.0,
			ExtractionFields: []string{
				"claimNumber", "currentStatus", "investigationFindings",
				"coverageDecision", "nextSteps", "contactInfo",
			},
		},
		{
			Type:     model.DocTypeSettlement,
			Category: model.CategoryProcessing,
			Patterns: compile(
				`settlement`,
				`payment\s*authorization`,
				`settlement\s*amount`,
				`agreed\s*to\s*settle`,
				`payment\s*will\s*be\s*issued`,
				`final\s*settlement`,
			),
			RequiredPatterns: 2,
			Weight:           1.1,
			ExtractionFields: []string{
				"claimNumber", "settlementAmount", "paymentTerms", "releaseConditions",
				"paymentMethod", "paymentDate", "contactInfo",
			},
		},
		{
			Type:     model.DocTypeRejection,
			Category: model.CategoryProcessing,
			Patterns: compile(
				`unable\s*to\s*accept`,
				`rejection`,
				`denied`,
				`not\s*covered`,
				`claim\s*is\s*denied`,
				`cannot\s*provide\s*coverage`,
				`policy\s*does\s*not\s*cover`,
			),
			RequiredPatterns: 2,
			Weight:           1.1,
			ExtractionFields: []string{
				"claimNumber", "rejectionReason", "specificDeficiencies",
				"appealProcess", "appealDeadline", "contactInfo",
			},
		},
		{
			Type:     "proof_of_loss_rejection",
			Category: model.CategoryProcessing,
			Patterns: compile(
				`proof\s*of\s*loss`,
				`unable\s*to\s*accept.*estimate`,
				`estimate.*proof\s*of\s*loss`,
				`supplement.*reviewed`,
				`inspection.*engineer`,
			),
			RequiredPatterns: 2,
			Weight:           1.2,
			ExtractionFields: []string{
				"claimNumber", "rejectedAmount", "rejectionReason",
				"inspectionFindings", "requiredDocumentation", "resubmissionRequirements",
			},
		},
		{
			Type:     "damage_assessment",
			Category: model.CategoryAssessment,
			Patterns: compile(
				`damage\s*assessment`,
				`estimate`,
				`repair\s*costs?`,
				`replacement\s*cost`,
				`depreciation`,
				`scope\s*of\s*work`,
			),
			RequiredPatterns: 2,
			Weight:           1.0,
			ExtractionFields: []string{
				"claimNumber", "damageDescription", "estimatedCost",
				"replacementCost", "depreciation", "scopeOfWork",
			},
		},
		{
			Type:     "inspection_report",
			Category: model.CategoryAssessment,
			Patterns: compile(
				`inspection\s*report`,
				`site\s*inspection`,
				`field\s*inspection`,
				`adjuster\s*notes`,
				`inspection\s*findings`,
			),
			RequiredPatterns: 2,
			Weight:           1.0,
			ExtractionFields: []string{
				"claimNumber", "inspectionDate", "inspectorName",
				"findings", "recommendations", "photoReferences",
			},
		},
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}
