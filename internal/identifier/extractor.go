package identifier

import (
	"regexp"
	"sort"
	"strings"

	"github.com/claimstack/docpipe/internal/model"
)

// Extract pulls policy and claim identifiers from document text, infers the
// document type from content keywords and filename hints, and validates that
// the identifiers found are consistent with that type. Pure and
// deterministic: the same text and filename always produce the same result.
func Extract(text, filename string) model.IdentifierResult {
	docType := inferDocumentType(text, filename)

	policy := bestCandidate(text, policyPatterns, "policy")
	claim := bestCandidate(text, claimPatterns, "claim")

	// A value matched by both passes belongs to one side only; keeping it in
	// both would let a single token validate itself. Nearby label keywords
	// decide first, then the document type.
	if policy != nil && claim != nil && policy.value == claim.value {
		nearPolicy := nearKeyword(text, policy.value, "policy")
		nearClaim := nearKeyword(text, claim.value, "claim")
		switch {
		case nearPolicy && !nearClaim:
			claim = nil
		case nearClaim && !nearPolicy:
			policy = nil
		case docType == "policy":
			claim = nil
		default:
			policy = nil
		}
	}

	res := model.IdentifierResult{
		DocumentType: docType,
		Confidences:  map[string]float64{},
	}
	if policy != nil {
		res.PolicyNumber = policy.value
		res.Confidences["policyNumber"] = confidence(text, policy, "policy")
	}
	if claim != nil {
		res.ClaimNumber = claim.value
		res.Confidences["claimNumber"] = confidence(text, claim, "claim")
	}
	if v := firstMatch(text, fileNumberPatterns); v != "" && v != res.ClaimNumber {
		res.FileNumber = v
	}
	if v := firstMatch(text, carrierClaimPatterns); v != "" {
		res.CarrierClaimNumber = v
	}

	validateRelationship(&res)
	res.PrimaryIdentifier = primaryIdentifier(res)
	return res
}

// candidate is one potential identifier value with its evidence.
type candidate struct {
	value    string
	mentions int
}

// bestCandidate collects every match of the pattern set, filters by format,
// and returns the highest-scoring value. Candidates are kept in first-seen
// order so equal scores resolve the same way on every run.
func bestCandidate(text string, patterns []*regexp.Regexp, kind string) *candidate {
	var ordered []*candidate
	seen := map[string]*candidate{}

	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			v := strings.ToUpper(strings.TrimSpace(m[1]))
			if !validFormat(v) {
				continue
			}
			if c, ok := seen[v]; ok {
				c.mentions++
				continue
			}
			c := &candidate{value: v, mentions: 1}
			seen[v] = c
			ordered = append(ordered, c)
		}
	}
	if len(ordered) == 0 {
		return nil
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return scoreCandidate(ordered[i], kind) > scoreCandidate(ordered[j], kind)
	})
	return ordered[0]
}

func scoreCandidate(c *candidate, kind string) int {
	score := 0
	n := len(c.value)

	switch kind {
	case "policy":
		if n >= 8 && n <= 15 {
			score += 3
		}
	case "claim":
		if n >= 6 && n <= 18 {
			score += 3
		}
	}

	if letterPrefixRe.MatchString(c.value) {
		score += 2
	}
	if yearLikeRe.MatchString(c.value) {
		score++
	}
	if strings.Contains(c.value, "-") {
		score++
	}
	if c.mentions > 1 {
		score += c.mentions
	}
	return score
}

// confidence rates a chosen candidate between 0.5 and 1.0 based on how well
// its shape and surrounding context match the identifier kind.
func confidence(text string, c *candidate, kind string) float64 {
	conf := 0.5

	switch kind {
	case "policy":
		if policyShapeRe.MatchString(c.value) {
			conf += 0.3
		}
	case "claim":
		if claimShapeRe.MatchString(c.value) {
			conf += 0.3
		}
	}

	if nearKeyword(text, c.value, kind) {
		conf += 0.2
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// nearKeyword reports whether the kind's keyword appears within 100
// characters before the value, which is how labelled identifiers read.
func nearKeyword(text, value, keyword string) bool {
	lower := strings.ToLower(text)
	target := strings.ToLower(value)

	idx := 0
	for {
		i := strings.Index(lower[idx:], target)
		if i < 0 {
			return false
		}
		pos := idx + i
		start := pos - 100
		if start < 0 {
			start = 0
		}
		if strings.Contains(lower[start:pos], keyword) {
			return true
		}
		idx = pos + len(target)
	}
}

func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			v := strings.ToUpper(strings.TrimSpace(m[1]))
			if validFormat(v) {
				return v
			}
		}
	}
	return ""
}

// documentTypeOrder fixes the voting order so ties resolve the same way on
// every run.
var documentTypeOrder = []string{"policy", "claim", "communication", "settlement"}

// documentTypeIndicators maps an inferred type to the content keywords that
// vote for it.
var documentTypeIndicators = map[string][]string{
	"policy":        {"policy", "coverage", "premium", "deductible", "declarations", "insured"},
	"claim":         {"claim", "loss", "damage", "adjuster", "incident"},
	"communication": {"acknowledge", "correspondence", "request", "information", "letter"},
	"settlement":    {"settlement", "release", "payment", "agreed"},
}

// inferDocumentType votes on a document type from keyword occurrences, with
// filename hints weighing in. Returns "unclassified" when nothing scores.
func inferDocumentType(text, filename string) string {
	lower := strings.ToLower(text)
	name := strings.ToLower(filename)

	scores := map[string]int{}
	for docType, keywords := range documentTypeIndicators {
		for _, kw := range keywords {
			scores[docType] += strings.Count(lower, kw)
		}
	}

	// Filename hints are strong signals even when the text is noisy.
	switch {
	case strings.Contains(name, "policy"):
		scores["policy"] += 3
	case strings.Contains(name, "settlement"):
		scores["settlement"] += 3
	case strings.Contains(name, "claim"):
		scores["claim"] += 3
	case strings.Contains(name, "ror"), strings.Contains(name, "rfi"):
		scores["communication"] += 2
	}

	best, bestScore := "unclassified", 0
	for _, docType := range documentTypeOrder {
		if scores[docType] > bestScore {
			best, bestScore = docType, scores[docType]
		}
	}
	return best
}

// validateRelationship applies the consistency rules between the inferred
// document type and the identifiers found, setting status, messages, and
// suggestions on the result.
func validateRelationship(res *model.IdentifierResult) {
	switch res.DocumentType {
	case "policy":
		if res.PolicyNumber == "" {
			res.RelationshipStatus = model.RelationshipMissing
			res.Messages = append(res.Messages, "Policy document missing policy number")
		} else {
			res.RelationshipStatus = model.RelationshipValid
		}
		// A claim number on a policy document is advisory, never an error.
		if res.ClaimNumber != "" {
			res.Suggestions = append(res.Suggestions, "Policy document contains claim reference - may be claim-related correspondence")
		}

	case "claim", "communication", "settlement":
		switch {
		case res.ClaimNumber == "":
			res.RelationshipStatus = model.RelationshipMissing
			res.Messages = append(res.Messages, "Claim document missing claim number")
		case res.PolicyNumber == "":
			res.RelationshipStatus = model.RelationshipMissing
			res.Messages = append(res.Messages, "Claim document missing policy number reference")
		default:
			res.RelationshipStatus = model.RelationshipValid
		}

	default:
		res.RelationshipStatus = model.RelationshipUnverified
		res.Messages = append(res.Messages, "Unable to verify identifier relationship")
		res.Suggestions = append(res.Suggestions, "Manual verification recommended")
	}
}

// primaryIdentifier picks the identifier downstream consumers key on: the
// one matching the document type when both exist, otherwise whichever is
// present, breaking remaining ties by confidence.
func primaryIdentifier(res model.IdentifierResult) string {
	switch {
	case res.PolicyNumber == "" && res.ClaimNumber == "":
		return ""
	case res.ClaimNumber == "":
		return res.PolicyNumber
	case res.PolicyNumber == "":
		return res.ClaimNumber
	}

	switch res.DocumentType {
	case "policy":
		return res.PolicyNumber
	case "claim", "communication", "settlement":
		return res.ClaimNumber
	}
	if res.Confidences["claimNumber"] > res.Confidences["policyNumber"] {
		return res.ClaimNumber
	}
	return res.PolicyNumber
}
