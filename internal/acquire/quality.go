package acquire

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/claimstack/docpipe/internal/config"
)

// domainKeywords are the insurance terms whose presence signals that
// extracted text is real document content rather than OCR noise.
var domainKeywords = []string{
	"policy", "coverage", "deductible", "premium", "insured", "insurer",
	"claim", "carrier", "effective", "expiration", "endorsement", "liability",
	"property", "dwelling", "settlement", "adjuster", "loss", "peril",
	"exclusion", "declaration",
}

var (
	currencyRe   = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`)
	addressRe    = regexp.MustCompile(`(?i)\d+\s+\w+(?:\s+\w+)?\s+(?:street|st|avenue|ave|road|rd|drive|dr|lane|ln|boulevard|blvd|court|ct|way|circle|cir)\.?\b`)
	dateRe       = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`)
	properNounRe = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
)

// Evaluator scores raw extracted text for usability. Pure and deterministic:
// the same input always yields the same score.
type Evaluator struct {
	cfg config.QualityConfig
}

// NewEvaluator creates an Evaluator with the given point splits.
func NewEvaluator(cfg config.QualityConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate returns a score in [0,100] combining length, domain keyword
// presence, structural signals, and character readability.
func (e *Evaluator) Evaluate(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	score := e.lengthScore(trimmed) +
		e.keywordScore(trimmed) +
		e.structureScore(trimmed) +
		e.readabilityScore(trimmed)

	if score > 100 {
		score = 100
	}
	return score
}

// Accept reports whether the score clears the accept gate for the current tier.
func (e *Evaluator) Accept(score float64) bool { return score >= e.cfg.AcceptScore }

// Mediocre reports whether the score is usable but flagged for review.
func (e *Evaluator) Mediocre(score float64) bool {
	return score >= e.cfg.EscalateScore && score < e.cfg.AcceptScore
}

// ShouldEscalate reports whether the score is too low to use this tier's text.
func (e *Evaluator) ShouldEscalate(score float64) bool { return score < e.cfg.EscalateScore }

// lengthScore rewards longer text up to a cap; very short extractions are
// almost always failed text layers.
func (e *Evaluator) lengthScore(text string) float64 {
	const fullLength = 2000
	n := len(text)
	if n < 50 {
		return 0
	}
	ratio := float64(n) / fullLength
	if ratio > 1 {
		ratio = 1
	}
	return ratio * e.cfg.LengthPoints
}

// keywordScore counts distinct domain keywords, saturating at ten.
func (e *Evaluator) keywordScore(text string) float64 {
	lower := strings.ToLower(text)
	found := 0
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			found++
		}
	}
	const saturation = 10
	ratio := float64(found) / saturation
	if ratio > 1 {
		ratio = 1
	}
	return ratio * e.cfg.KeywordPoints
}

// structureScore looks for currency amounts, street addresses, dates, and
// proper-noun density — signals of a coherent document layout.
func (e *Evaluator) structureScore(text string) float64 {
	signals := 0.0
	if currencyRe.MatchString(text) {
		signals++
	}
	if addressRe.MatchString(text) {
		signals++
	}
	if dateRe.MatchString(text) {
		signals++
	}

	words := strings.Fields(text)
	if len(words) > 0 {
		properNouns := len(properNounRe.FindAllString(text, -1))
		if float64(properNouns)/float64(len(words)) >= 0.05 {
			signals++
		}
	}

	return (signals / 4) * e.cfg.StructurePoints
}

// readabilityScore measures the fraction of characters that are letters,
// digits, spaces, or common punctuation. Garbled OCR output scores low.
func (e *Evaluator) readabilityScore(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	readable := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
			strings.ContainsRune(`.,:;!?$%()-'"/#&@`, r) {
			readable++
		}
	}
	ratio := float64(readable) / float64(total)
	return ratio * e.cfg.ReadabilityPoints
}
