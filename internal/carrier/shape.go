package carrier

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	policyShapeRe  = regexp.MustCompile(`^[A-Z]{2,4}\d{6,12}$`)
	leadLettersRe  = regexp.MustCompile(`^[A-Z]+`)
	usDateRe       = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	currencyRe     = regexp.MustCompile(`^\$[\d,]+$`)
	properNameRe   = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+`)
	genericValueRe = regexp.MustCompile(`^[A-Z0-9\-]+$`)
	contextLabelRe = regexp.MustCompile(`([A-Za-z][A-Za-z \t]*?):?[ \t]*$`)
)

// InferValuePattern generalizes a concrete field value into a reusable regex
// string. Pure function: the same value always yields the same pattern. The
// second return is false when the value has no generalizable shape.
func InferValuePattern(value string) (string, bool) {
	switch {
	case policyShapeRe.MatchString(value):
		letters := len(leadLettersRe.FindString(value))
		return fmt.Sprintf(`[A-Z]{%d}\d{%d}`, letters, len(value)-letters), true
	case usDateRe.MatchString(value):
		return `\d{1,2}/\d{1,2}/\d{4}`, true
	case currencyRe.MatchString(value):
		return `\$[\d,]+`, true
	case properNameRe.MatchString(value):
		return `[A-Z][a-z]+ [A-Z][a-z]+(?:\s[A-Z][a-z]+)*`, true
	case genericValueRe.MatchString(value) && len(value) > 5:
		return fmt.Sprintf(`[A-Z0-9\-]{%d,%d}`, len(value)-2, len(value)+2), true
	}
	return "", false
}

// ExtractContext finds the label text immediately before a value's first
// occurrence, up to 50 characters back. Returns "" when the value is absent
// or no label-like text precedes it.
func ExtractContext(text, value string) string {
	idx := strings.Index(text, value)
	if idx < 0 {
		return ""
	}

	start := idx - 50
	if start < 0 {
		start = 0
	}
	before := text[start:idx]

	m := contextLabelRe.FindStringSubmatch(before)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
