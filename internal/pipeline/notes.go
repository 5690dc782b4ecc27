package pipeline

import (
	"regexp"
	"strings"

	"github.com/claimstack/docpipe/internal/model"
)

// typeEnrichments holds per-document-type extractors applied after fusion.
// Each pulls a field only that document type carries; fused values are never
// overwritten.
var typeEnrichments = map[string][]struct {
	field  string
	re     *regexp.Regexp
	prefix string
}{
	model.DocTypeSettlement: {
		{"settlementAmount", regexp.MustCompile(`(?i)settlement\s+(?:amount|offer|payment)[:. ]*\$?([0-9][0-9,.]{2,14})`), "$"},
		{"paymentDate", regexp.MustCompile(`(?i)payment\s+(?:date|issued)[:. ]*(\d{1,2}/\d{1,2}/\d{2,4})`), ""},
	},
	model.DocTypeRequestForInfo: {
		{"responseDeadline", regexp.MustCompile(`(?i)(?:respond|reply|response\s+due|deadline)\s*(?:by|date)?[:. ]*(\d{1,2}/\d{1,2}/\d{2,4})`), ""},
	},
	model.DocTypeAcknowledgement: {
		{"adjusterName", regexp.MustCompile(`(?i)(?:adjuster|claim\s+representative)[:. ]*([A-Za-z][A-Za-z .]{2,40})`), ""},
		{"adjusterPhone", regexp.MustCompile(`(?i)(?:adjuster|representative)[\s\S]{0,80}?(\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4})`), ""},
	},
	model.DocTypeRejection: {
		{"rejectionReason", regexp.MustCompile(`(?i)(?:denied|rejected)\s+(?:because|due\s+to)[:. ]*([^\n]{5,120})`), ""},
	},
	model.DocTypeEstimate: {
		{"estimateTotal", regexp.MustCompile(`(?i)(?:total\s+estimate|estimate\s+total|grand\s+total)[:. ]*\$?([0-9][0-9,.]{2,14})`), "$"},
	},
}

// enrichByType applies document-type-specific extraction to a fused result.
// Additions land in PolicyData only when the field is not already present.
func enrichByType(docType, text string, fused *model.FusedResult) {
	if fused.PolicyData == nil {
		fused.PolicyData = map[string]string{}
	}
	if docType == model.DocTypeReservation {
		fused.PolicyData["rightsReserved"] = "true"
	}

	for _, ex := range typeEnrichments[docType] {
		if fused.PolicyData[ex.field] != "" {
			continue
		}
		m := ex.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			fused.PolicyData[ex.field] = ex.prefix + v
		}
	}
}
