package identifier

import "regexp"

// policyPatterns are tried in order; all matches from all patterns are
// collected as candidates before scoring.
var policyPatterns = []*regexp.Regexp{
	// Labelled policy numbers.
	regexp.MustCompile(`(?i)policy\s*(?:number|#|no|num)?\s*[:.]?\s*([A-Z]{2,4}[\d\-]{6,20})`),
	regexp.MustCompile(`(?i)policy\s*:\s*([A-Z0-9\-]{6,25})`),
	regexp.MustCompile(`(?i)pol\s*(?:#|no|num)\s*[:.]?\s*([A-Z0-9\-]{5,25})`),

	// Common carrier formats.
	regexp.MustCompile(`\b([A-Z]{2,3}\d{7,15})\b`),
	regexp.MustCompile(`\b(\d{2}-[A-Z]{2}-\d{6})\b`),
	regexp.MustCompile(`\b([A-Z]{3,4}-\d{8,12})\b`),

	// Generic alphanumeric, last resort.
	regexp.MustCompile(`\b([A-Z0-9]{8,20})\b`),
}

var claimPatterns = []*regexp.Regexp{
	// Labelled claim/file/reference numbers.
	regexp.MustCompile(`(?i)claim\s*(?:number|#|no|num)?\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
	regexp.MustCompile(`(?i)file\s*(?:number|#|no)?\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
	regexp.MustCompile(`(?i)reference\s*(?:number|#|no)?\s*[:.]?\s*([A-Z0-9\-]{5,25})`),

	// Common claim formats.
	regexp.MustCompile(`(?i)\b(CLM\d{6,15})\b`),
	regexp.MustCompile(`\b(\d{4}-\d{6,10})\b`),
	regexp.MustCompile(`\b([A-Z]{2,3}\d{8,15})\b`),

	// Alternative phrasings.
	regexp.MustCompile(`(?i)your\s+(?:claim|file)\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
	regexp.MustCompile(`(?i)re\s*:\s*claim\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
}

var fileNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)file\s*(?:number|#|no)?\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
	regexp.MustCompile(`(?i)our\s*(?:file|ref)\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
}

var carrierClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)carrier\s*(?:claim|file)\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
	regexp.MustCompile(`(?i)insurance\s*company\s*(?:claim|file)\s*[:.]?\s*([A-Z0-9\-]{5,25})`),
}

// excludePatterns reject values that look like identifiers but are bare
// years or short numerics.
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}$`),
	regexp.MustCompile(`^(19|20)\d{2}$`),
	regexp.MustCompile(`^[A-Z]{1,2}$`),
	regexp.MustCompile(`^\d{1,4}$`),
}

var (
	letterPrefixRe = regexp.MustCompile(`^[A-Z]{2,4}\d+`)
	yearLikeRe     = regexp.MustCompile(`\d{4}`)
	policyShapeRe  = regexp.MustCompile(`^[A-Z]{2,4}\d{6,15}$`)
	claimShapeRe   = regexp.MustCompile(`(?i)^(CLM|CLAIM)\d+$`)
	digitRe        = regexp.MustCompile(`\d`)
)

// validFormat applies the shared length and composition rules for policy
// and claim numbers. All-letter values are rejected; every real identifier
// format carries at least one digit.
func validFormat(v string) bool {
	if len(v) < 5 || len(v) > 25 {
		return false
	}
	if !digitRe.MatchString(v) {
		return false
	}
	for _, p := range excludePatterns {
		if p.MatchString(v) {
			return false
		}
	}
	return true
}
