package fusion

import (
	"regexp"
	"strings"
)

// fieldParsers is the baseline regex extractor, one labelled pattern per
// policy field. It is the floor every document gets even when OCR, carrier
// hints, and LLM enhancement all have nothing to add.
var fieldParsers = []struct {
	field  string
	re     *regexp.Regexp
	prefix string
}{
	{"policyNumber", regexp.MustCompile(`(?i)policy\s*(?:number|#|no)?[:. ]*([A-Z0-9\-]{3,20})`), ""},
	{"insuredName", regexp.MustCompile(`(?i)(?:named\s+insured|insured)[:. ]*([A-Za-z][A-Za-z ,&]{2,49})`), ""},
	{"effectiveDate", regexp.MustCompile(`(?i)effective(?:\s+date)?[:. ]*([A-Za-z0-9,/ ]{3,20})`), ""},
	{"expirationDate", regexp.MustCompile(`(?i)(?:expiration\s+date|expiry|expiration)[:. ]*([A-Za-z0-9,/ ]{3,20})`), ""},
	{"insurerName", regexp.MustCompile(`(?i)(?:insurance\s+company|insurer|carrier)[:. ]*([A-Za-z][A-Za-z &,.]{2,59})`), ""},
	{"propertyAddress", regexp.MustCompile(`(?i)(?:property\s+address|premises|location)[:. ]*([0-9][A-Za-z0-9 ,.#\-]{4,99})`), ""},
	{"coverageAmount", regexp.MustCompile(`(?i)(?:coverage\s*a|dwelling|building)(?:\s*-\s*[A-Za-z ]+)?[:. ]*\$?([0-9][0-9,.]{2,19})`), "$"},
	{"deductible", regexp.MustCompile(`(?i)deductible[:. ]*\$?([0-9][0-9,.]{2,9})`), "$"},
	{"premium", regexp.MustCompile(`(?i)(?:total\s+premium|annual\s+premium|premium)[:. ]*\$?([0-9][0-9,.]{2,9})`), "$"},
	{"agentName", regexp.MustCompile(`(?i)(?:agent|broker)[:. ]*([A-Za-z][A-Za-z &]{2,49})`), ""},
	{"mortgagee", regexp.MustCompile(`(?i)(?:mortgagee|lender|mortgage\s+holder)[:. ]*([A-Za-z][A-Za-z &,.]{2,49})`), ""},
	{"loanNumber", regexp.MustCompile(`(?i)loan\s*(?:number|#)?[:. ]*([A-Z0-9\-]{5,20})`), ""},
}

// ParseFields runs the baseline extractor over raw text. Deterministic; one
// value per field, first labelled occurrence wins.
func ParseFields(text string) map[string]string {
	out := map[string]string{}
	for _, p := range fieldParsers {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(m[1])
		if v == "" {
			continue
		}
		out[p.field] = p.prefix + v
	}
	return out
}

// validationRules scores extracted values against each field's expected
// shape. Fields without a rule get a neutral score.
var validationRules = map[string]*regexp.Regexp{
	"policyNumber":    regexp.MustCompile(`^[A-Z0-9\-]{5,25}$`),
	"claimNumber":     regexp.MustCompile(`^[A-Z0-9\-]{5,25}$`),
	"insuredName":     regexp.MustCompile(`^[A-Za-z\s,&.'\-]{2,50}$`),
	"propertyAddress": regexp.MustCompile(`\d+.*[A-Za-z]`),
	"effectiveDate":   regexp.MustCompile(`^\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}$`),
	"expirationDate":  regexp.MustCompile(`^\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}$`),
	"insurerName":     regexp.MustCompile(`^[A-Za-z\s&.,'\-]{2,60}$`),
	"coverageAmount":  regexp.MustCompile(`^\$?[\d,]+$`),
	"deductible":      regexp.MustCompile(`^\$?[\d,]+$`),
}

// validateField scores one value between 0 and 1 for shape plausibility.
func validateField(field, value string) float64 {
	value = strings.TrimSpace(value)
	if len(value) < 2 {
		return 0
	}
	rule, ok := validationRules[field]
	if !ok {
		return 0.7
	}
	if rule.MatchString(value) {
		return 1.0
	}
	return 0.3
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// normalizeValue reduces a value to its comparable core so formatting noise
// between extraction tiers does not break consensus.
func normalizeValue(value string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(value), "")
}
