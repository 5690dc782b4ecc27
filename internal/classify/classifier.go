package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
)

// Classifier assigns a document type from content patterns. Deterministic:
// the same text always yields the same result.
type Classifier struct {
	templates []Template
	cap       float64
}

// New creates a Classifier over the given templates. The confidence cap
// keeps pattern matching from ever claiming certainty.
func New(templates []Template, cfg config.ClassifierConfig) *Classifier {
	cap := cfg.ConfidenceCap
	if cap <= 0 {
		cap = 0.95
	}
	return &Classifier{templates: templates, cap: cap}
}

// Classify scores the text against every template. A template qualifies
// only when its match count reaches its required minimum; the qualifying
// template with the highest weighted score wins. Ties break by registration
// order: sort.SliceStable keeps the first-registered template in front.
func (c *Classifier) Classify(text string) model.ClassificationResult {
	type scored struct {
		tpl     Template
		score   float64
		matches int
	}

	var qualifying []scored
	for _, tpl := range c.templates {
		matches := 0
		for _, p := range tpl.Patterns {
			if p.MatchString(text) {
				matches++
			}
		}
		if matches < tpl.RequiredPatterns {
			continue
		}
		ratio := float64(matches) / float64(len(tpl.Patterns))
		qualifying = append(qualifying, scored{
			tpl:     tpl,
			score:   ratio * tpl.Weight,
			matches: matches,
		})
	}

	if len(qualifying) == 0 {
		return model.ClassificationResult{
			DocumentType: model.DocTypeUnknown,
			Confidence:   0,
			Category:     model.CategoryProcessing,
			Notes: []string{
				"Document type could not be determined",
				"Manual classification recommended",
			},
		}
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].score > qualifying[j].score
	})

	best := qualifying[0]
	confidence := best.score
	if confidence > c.cap {
		confidence = c.cap
	}

	return model.ClassificationResult{
		DocumentType:     best.tpl.Type,
		Confidence:       confidence,
		Category:         best.tpl.Category,
		ExpectedFields:   best.tpl.ExtractionFields,
		ProhibitedFields: best.tpl.ProhibitedFields,
		MatchedPatterns:  best.matches,
		Notes:            processingNotes(best.tpl.Type, confidence, best.matches),
	}
}

func processingNotes(docType string, confidence float64, matches int) []string {
	var notes []string

	switch {
	case confidence > 0.8:
		notes = append(notes, "High confidence classification - document type clearly identified")
	case confidence > 0.6:
		notes = append(notes, "Moderate confidence - review extracted data carefully")
	default:
		notes = append(notes, "Low confidence classification - manual verification recommended")
	}

	if strings.Contains(docType, "rejection") {
		notes = append(notes, "ATTENTION: This appears to be a rejection/denial - review reasons carefully")
	}
	if strings.Contains(docType, "request") {
		notes = append(notes, "ACTION REQUIRED: Additional documentation may be needed")
	}
	if strings.Contains(docType, "settlement") {
		notes = append(notes, "SETTLEMENT: Review payment terms and conditions")
	}

	notes = append(notes, fmt.Sprintf("Matched %d identification patterns", matches))
	return notes
}
