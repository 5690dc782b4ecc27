package carrier

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
)

// Persistence is the storage surface the pattern store writes through. A nil
// Persistence keeps all learning in memory, which is what tests use.
type Persistence interface {
	PutCarrierTemplate(ctx context.Context, tpl *model.CarrierTemplate) error
	ListCarrierTemplates(ctx context.Context) ([]*model.CarrierTemplate, error)
}

// Store owns all per-carrier learned state. Learning is additive: patterns,
// context phrases, and layout signatures are only ever appended. Updates to
// one carrier never block reads or writes for another.
type Store struct {
	cfg     config.CarrierConfig
	persist Persistence
	now     func() time.Time

	mu        sync.RWMutex
	templates map[string]*model.CarrierTemplate
	locks     map[string]*sync.Mutex
}

// NewStore builds a pattern store, loading any previously learned templates
// from persistence.
func NewStore(ctx context.Context, cfg config.CarrierConfig, persist Persistence) (*Store, error) {
	s := &Store{
		cfg:       cfg,
		persist:   persist,
		now:       time.Now,
		templates: map[string]*model.CarrierTemplate{},
		locks:     map[string]*sync.Mutex{},
	}

	if persist != nil {
		templates, err := persist.ListCarrierTemplates(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "carrier: load templates")
		}
		for _, tpl := range templates {
			s.templates[tpl.CarrierID] = tpl
		}
		zap.L().Info("carrier templates loaded", zap.Int("count", len(templates)))
	}
	return s, nil
}

// WithNow overrides the store's clock. Test hook.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// Identify resolves the carrier for a document. The static registry is
// consulted first; learned layout signatures are the fallback and must clear
// the signature threshold to count.
func (s *Store) Identify(text string) (string, bool) {
	if id, ok := detectStatic(text); ok {
		return id, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(text)
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		score := 0.0
		for _, sig := range s.templates[id].LayoutSignatures {
			if strings.Contains(lower, strings.ToLower(sig)) {
				score += 0.3
			}
		}
		if score > s.cfg.SignatureThreshold {
			zap.L().Debug("carrier identified via learned signatures",
				zap.String("carrier_id", id), zap.Float64("score", score))
			return id, true
		}
	}
	return "", false
}

// Hints returns the extraction hints for a carrier, or nil when the carrier
// is unknown or not yet trusted. Only fields above the field hint threshold
// are included. The returned snapshot is detached from store state.
func (s *Store) Hints(carrierID string) *model.ExtractionHints {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[carrierID]
	if !ok || tpl.AverageConfidence < s.cfg.HintConfidenceMin {
		return nil
	}

	hints := &model.ExtractionHints{
		CarrierID:      tpl.CarrierID,
		CarrierName:    tpl.CarrierName,
		FieldPatterns:  map[string][]string{},
		ContextPhrases: map[string][]string{},
		Confidence:     tpl.AverageConfidence,
	}
	for field, fp := range tpl.FieldPatterns {
		if fp.Confidence <= s.cfg.FieldHintMin {
			continue
		}
		hints.FieldPatterns[field] = append([]string(nil), fp.Patterns...)
		hints.ContextPhrases[field] = append([]string(nil), fp.ContextPhrases...)
	}
	if len(hints.FieldPatterns) == 0 {
		return nil
	}
	return hints
}

// LearnFromExtraction records a successful extraction for a carrier. Every
// non-empty field contributes its inferred value shape and surrounding
// context to the carrier's template.
func (s *Store) LearnFromExtraction(ctx context.Context, carrierID string, fields map[string]string, text string) error {
	lock := s.lockFor(carrierID)
	lock.Lock()
	defer lock.Unlock()

	tpl := s.cloneTemplate(carrierID)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := strings.TrimSpace(fields[name])
		if value == "" {
			continue
		}
		s.learnField(tpl, name, value, text, 1.0)
	}

	if sig := headerSignature(text); sig != "" && !contains(tpl.LayoutSignatures, sig) {
		tpl.LayoutSignatures = append(tpl.LayoutSignatures, sig)
	}

	tpl.DocumentsProcessed++
	tpl.SuccessfulExtractions++
	tpl.UpdatedAt = s.now()
	tpl.AverageConfidence = templateConfidence(tpl)

	zap.L().Debug("carrier template updated",
		zap.String("carrier_id", carrierID),
		zap.Int("documents", tpl.DocumentsProcessed),
		zap.Float64("confidence", tpl.AverageConfidence))

	s.publish(tpl)
	return s.flush(ctx, tpl)
}

// ApplyCorrection folds a user correction into the carrier's template.
// Corrections carry near-full trust, and a wrong original value costs the
// field some of its success rate.
func (s *Store) ApplyCorrection(ctx context.Context, fb model.CorrectionFeedback) error {
	lock := s.lockFor(fb.CarrierID)
	lock.Lock()
	defer lock.Unlock()

	tpl := s.cloneTemplate(fb.CarrierID)

	if fb.OriginalValue != "" && fb.OriginalValue != fb.CorrectedValue {
		if fp, ok := tpl.FieldPatterns[fb.Field]; ok {
			fp.SuccessRate -= 0.1
			if fp.SuccessRate < 0 {
				fp.SuccessRate = 0
			}
			tpl.FieldPatterns[fb.Field] = fp
		}
	}

	source := fb.Context
	if source == "" {
		source = fb.CorrectedValue
	}
	s.learnField(tpl, fb.Field, fb.CorrectedValue, source, s.cfg.CorrectionTrust)

	tpl.UserCorrections++
	tpl.UpdatedAt = s.now()
	tpl.AverageConfidence = templateConfidence(tpl)

	zap.L().Info("carrier correction applied",
		zap.String("carrier_id", fb.CarrierID),
		zap.String("field", fb.Field))

	s.publish(tpl)
	return s.flush(ctx, tpl)
}

// Stats aggregates learning state across all carriers. Top performers are
// ordered by confidence, carrier ID breaking ties.
func (s *Store) Stats() model.LearningStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.LearningStats{CarriersLearned: len(s.templates)}

	perf := make([]model.CarrierPerformance, 0, len(s.templates))
	for _, tpl := range s.templates {
		stats.TotalDocumentsProcessed += tpl.DocumentsProcessed
		stats.TotalCorrections += tpl.UserCorrections
		perf = append(perf, model.CarrierPerformance{
			CarrierID:          tpl.CarrierID,
			CarrierName:        tpl.CarrierName,
			DocumentsProcessed: tpl.DocumentsProcessed,
			AverageConfidence:  tpl.AverageConfidence,
			FieldsLearned:      len(tpl.FieldPatterns),
		})
	}

	sort.Slice(perf, func(i, j int) bool {
		if perf[i].AverageConfidence != perf[j].AverageConfidence {
			return perf[i].AverageConfidence > perf[j].AverageConfidence
		}
		return perf[i].CarrierID < perf[j].CarrierID
	})
	if len(perf) > 5 {
		perf = perf[:5]
	}
	stats.TopPerformers = perf
	return stats
}

// ExtractWithHints applies a carrier's learned patterns to raw text. Value
// patterns are tried first, then context phrases with a label-value scan.
// Fields are processed in sorted order so results are deterministic.
func ExtractWithHints(text string, hints *model.ExtractionHints) map[string]string {
	if hints == nil {
		return nil
	}

	fields := make([]string, 0, len(hints.FieldPatterns))
	for field := range hints.FieldPatterns {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := map[string]string{}
	for _, field := range fields {
		if v := extractField(text, hints.FieldPatterns[field], hints.ContextPhrases[field]); v != "" {
			out[field] = v
		}
	}
	return out
}

var hintValueRe = regexp.MustCompile(`^[\s:\-]*([^\n]+)`)

func extractField(text string, patterns, contexts []string) string {
	for _, src := range patterns {
		re, err := regexp.Compile(`(?i)` + src)
		if err != nil {
			zap.L().Warn("invalid learned pattern", zap.String("pattern", src))
			continue
		}
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}

	lower := strings.ToLower(text)
	for _, phrase := range contexts {
		idx := strings.Index(lower, strings.ToLower(phrase))
		if idx < 0 {
			continue
		}
		after := text[idx+len(phrase):]
		if m := hintValueRe.FindStringSubmatch(after); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

// cloneTemplate returns a deep copy of a carrier's template for mutation,
// creating an empty one on first sight. Published templates are never
// mutated in place; mutators work on the clone and publish it when done.
// Caller must hold the carrier's lock.
func (s *Store) cloneTemplate(carrierID string) *model.CarrierTemplate {
	s.mu.RLock()
	tpl, ok := s.templates[carrierID]
	s.mu.RUnlock()

	if !ok {
		return &model.CarrierTemplate{
			CarrierID:     carrierID,
			CarrierName:   DisplayName(carrierID),
			FieldPatterns: map[string]model.FieldPattern{},
			CreatedAt:     s.now(),
			UpdatedAt:     s.now(),
		}
	}

	clone := *tpl
	clone.LayoutSignatures = append([]string(nil), tpl.LayoutSignatures...)
	clone.FieldPatterns = make(map[string]model.FieldPattern, len(tpl.FieldPatterns))
	for field, fp := range tpl.FieldPatterns {
		fp.Patterns = append([]string(nil), fp.Patterns...)
		fp.ContextPhrases = append([]string(nil), fp.ContextPhrases...)
		clone.FieldPatterns[field] = fp
	}
	return &clone
}

func (s *Store) publish(tpl *model.CarrierTemplate) {
	s.mu.Lock()
	s.templates[tpl.CarrierID] = tpl
	s.mu.Unlock()
}

func (s *Store) lockFor(carrierID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.locks[carrierID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[carrierID] = lock
	return lock
}

func (s *Store) learnField(tpl *model.CarrierTemplate, field, value, text string, trust float64) {
	fp, ok := tpl.FieldPatterns[field]
	if !ok {
		fp = model.FieldPattern{Field: field}
	}

	fp.ExtractionCount++
	n := float64(fp.ExtractionCount)
	fp.SuccessRate = (fp.SuccessRate*(n-1) + trust) / n

	if pattern, ok := InferValuePattern(value); ok && !contains(fp.Patterns, pattern) {
		fp.Patterns = append(fp.Patterns, pattern)
	}
	if phrase := ExtractContext(text, value); phrase != "" && !contains(fp.ContextPhrases, phrase) {
		fp.ContextPhrases = append(fp.ContextPhrases, phrase)
	}

	fp.Confidence = fieldConfidence(fp)
	fp.LastUpdated = s.now()
	tpl.FieldPatterns[field] = fp
}

func (s *Store) flush(ctx context.Context, tpl *model.CarrierTemplate) error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.PutCarrierTemplate(ctx, tpl); err != nil {
		return eris.Wrapf(err, "carrier: persist template %s", tpl.CarrierID)
	}
	return nil
}

// fieldConfidence blends a field's success rate with the breadth of evidence
// behind it. Capped at 1.
func fieldConfidence(fp model.FieldPattern) float64 {
	patternStrength := minf(float64(len(fp.Patterns))/3, 1)
	contextStrength := minf(float64(len(fp.ContextPhrases))/2, 1)
	experience := minf(float64(fp.ExtractionCount)/10, 0.2)

	return minf(fp.SuccessRate*0.5+patternStrength*0.3+contextStrength*0.2+experience, 1)
}

// templateConfidence rates how much the store trusts a carrier's template
// overall. Zero until at least one field has been learned.
func templateConfidence(tpl *model.CarrierTemplate) float64 {
	if len(tpl.FieldPatterns) == 0 {
		return 0
	}

	sum := 0.0
	for _, fp := range tpl.FieldPatterns {
		sum += fp.Confidence
	}
	avg := sum / float64(len(tpl.FieldPatterns))

	successRate := 0.0
	if tpl.DocumentsProcessed > 0 {
		successRate = float64(tpl.SuccessfulExtractions) / float64(tpl.DocumentsProcessed)
	}
	experience := minf(float64(tpl.DocumentsProcessed)/20, 0.3)

	return minf(avg*0.5+successRate*0.3+experience, 1)
}

// headerSignature takes the first substantial line of a document as a layout
// signature candidate.
func headerSignature(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 8 {
			return line
		}
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
