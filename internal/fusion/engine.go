package fusion

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/claimstack/docpipe/internal/carrier"
	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
)

// Acquirer re-runs a single acquisition tier during adaptive retry. The
// cascade satisfies this; tests substitute a stub.
type Acquirer interface {
	Acquire(ctx context.Context, doc model.Document, method model.Method) (model.ExtractionAttempt, error)
	HighestTier() model.Method
}

// Engine fuses the attempts from every acquisition tier into one result with
// per-field confidence. Stateless; safe for concurrent use.
type Engine struct {
	cfg      config.FusionConfig
	acquirer Acquirer
}

func New(cfg config.FusionConfig, acquirer Acquirer) *Engine {
	return &Engine{cfg: cfg, acquirer: acquirer}
}

// Fuse runs consensus fusion over the attempts, then retries the strongest
// tier while the overall confidence sits below the retry threshold and a
// critical field is still entirely missing. Weak fields alone do not justify
// another paid acquisition call. A retry result is kept only when it strictly
// improves overall confidence, so the returned confidence never decreases
// across iterations.
func (e *Engine) Fuse(ctx context.Context, doc model.Document, attempts []model.ExtractionAttempt, hints *model.ExtractionHints) *model.FusedResult {
	attempts = e.withFields(attempts, hints)
	fused := e.fuseOnce(attempts, hints)
	fused.IterationCount = 1

	for e.acquirer != nil &&
		fused.OverallConfidence < e.cfg.RetryThreshold &&
		fused.IterationCount < e.cfg.MaxIterations &&
		ctx.Err() == nil {

		missing := missingCriticalFields(fused.PolicyData)
		if len(missing) == 0 {
			break
		}
		zap.L().Debug("fusion: adaptive retry",
			zap.String("document", doc.Filename),
			zap.Strings("weak_fields", weakFieldNames(fused.FieldConfidences, e.cfg.WeakFieldThreshold)),
			zap.Strings("missing_critical", missing),
		)

		retry, err := e.acquirer.Acquire(ctx, doc, e.acquirer.HighestTier())
		if err != nil {
			zap.L().Warn("fusion: retry acquisition failed",
				zap.String("document", doc.Filename),
				zap.Error(err))
			break
		}
		retry.Confidence = clamp01(retry.Confidence + e.cfg.RetryBoost)

		candidate := append(append([]model.ExtractionAttempt(nil), attempts...), retry)
		candidate = e.withFields(candidate, hints)

		refused := e.fuseOnce(candidate, hints)
		refused.IterationCount = fused.IterationCount + 1
		if refused.OverallConfidence <= fused.OverallConfidence {
			fused.IterationCount++
			break
		}
		attempts = candidate
		fused = refused
	}

	fused.Attempts = attempts
	if hints != nil {
		fused.CarrierID = hints.CarrierID
	}
	return fused
}

// withFields ensures every attempt carries a parsed field map. Attempts that
// arrive with fields already set keep them; the rest get the baseline regex
// parse, topped up with carrier-learned patterns for fields the baseline
// missed.
func (e *Engine) withFields(attempts []model.ExtractionAttempt, hints *model.ExtractionHints) []model.ExtractionAttempt {
	out := make([]model.ExtractionAttempt, len(attempts))
	copy(out, attempts)
	for i := range out {
		if out[i].Fields != nil {
			continue
		}
		fields := ParseFields(out[i].Text)
		for field, value := range carrier.ExtractWithHints(out[i].Text, hints) {
			if fields[field] == "" {
				fields[field] = value
			}
		}
		out[i].Fields = fields
	}
	return out
}

// tierCandidate is one attempt's vote for a field value.
type tierCandidate struct {
	value      string
	confidence float64
	weight     float64
	method     model.Method
}

func (e *Engine) fuseOnce(attempts []model.ExtractionAttempt, hints *model.ExtractionHints) *model.FusedResult {
	byField := map[string][]tierCandidate{}
	var fieldOrder []string
	for _, a := range attempts {
		w := e.tierWeight(a.Method)
		for _, field := range sortedKeys(a.Fields) {
			value := a.Fields[field]
			if value == "" {
				continue
			}
			if _, seen := byField[field]; !seen {
				fieldOrder = append(fieldOrder, field)
			}
			byField[field] = append(byField[field], tierCandidate{
				value:      value,
				confidence: a.Confidence,
				weight:     w,
				method:     a.Method,
			})
		}
	}
	sort.Strings(fieldOrder)

	result := &model.FusedResult{
		PolicyData:       map[string]string{},
		ProcessingMethod: bestMethod(attempts, e.tierWeight),
	}

	for _, field := range fieldOrder {
		cands := byField[field]
		value := consensusValue(cands)
		coverage := float64(len(cands)) / float64(max(len(attempts), 1))
		consensus := consensusRatio(cands)
		validation := validateField(field, value)

		conf := clamp01(coverage*e.cfg.CoverageWeight +
			consensus*e.cfg.ConsensusWeight +
			validation*e.cfg.ValidationWeight)

		result.PolicyData[field] = value
		result.FieldConfidences = append(result.FieldConfidences, model.FieldConfidence{
			Field:           field,
			Value:           value,
			Confidence:      conf,
			Sources:         candidateSources(cands),
			ValidationScore: validation,
		})
	}

	sort.SliceStable(result.FieldConfidences, func(i, j int) bool {
		a, b := result.FieldConfidences[i], result.FieldConfidences[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Field < b.Field
	})

	overall := e.overallConfidence(result.FieldConfidences)
	overall = clamp01(overall + e.intelligenceBoost(hints, result.PolicyData))
	result.OverallConfidence = overall
	result.CrossValidationScore = crossValidationScore(attempts)

	switch {
	case overall >= e.cfg.PassedThreshold:
		result.QualityGate = model.GatePassed
	case overall >= e.cfg.WarningThreshold:
		result.QualityGate = model.GateWarning
	default:
		result.QualityGate = model.GateFailed
	}
	return result
}

// consensusValue groups candidates by normalized value and returns the
// representative of the group with the highest summed confidence*weight.
// Group order follows first appearance, so ties resolve deterministically in
// favor of the earlier tier.
func consensusValue(cands []tierCandidate) string {
	type group struct {
		score float64
		best  tierCandidate
	}
	groups := map[string]*group{}
	var order []string
	for _, c := range cands {
		key := normalizeValue(c.value)
		g, ok := groups[key]
		if !ok {
			g = &group{best: c}
			groups[key] = g
			order = append(order, key)
		}
		score := c.confidence * c.weight
		g.score += score
		if score > g.best.confidence*g.best.weight {
			g.best = c
		}
	}

	var winner *group
	for _, key := range order {
		g := groups[key]
		if winner == nil || g.score > winner.score {
			winner = g
		}
	}
	if winner == nil {
		return ""
	}
	return winner.best.value
}

// consensusRatio measures agreement across candidates. A single candidate is
// full agreement; total disagreement floors at 0.1.
func consensusRatio(cands []tierCandidate) float64 {
	if len(cands) <= 1 {
		return 1.0
	}
	unique := map[string]struct{}{}
	for _, c := range cands {
		unique[normalizeValue(c.value)] = struct{}{}
	}
	ratio := 1.0 - float64(len(unique)-1)/float64(len(cands))
	if ratio < 0.1 {
		return 0.1
	}
	return ratio
}

func candidateSources(cands []tierCandidate) []model.Method {
	var sources []model.Method
	seen := map[model.Method]bool{}
	for _, c := range cands {
		if !seen[c.method] {
			seen[c.method] = true
			sources = append(sources, c.method)
		}
	}
	return sources
}

// overallConfidence is the weighted mean of field confidences, with critical
// fields counted several times over.
func (e *Engine) overallConfidence(fields []model.FieldConfidence) float64 {
	if len(fields) == 0 {
		return 0
	}
	var sum, weight float64
	for _, fc := range fields {
		w := 1.0
		if model.IsCriticalField(fc.Field) {
			w = e.cfg.CriticalFieldWeight
		}
		sum += fc.Confidence * w
		weight += w
	}
	return sum / weight
}

// intelligenceBoost adjusts overall confidence using carrier-learned context.
// A well-known carrier with learned patterns raises trust; missing critical
// fields lower it.
func (e *Engine) intelligenceBoost(hints *model.ExtractionHints, policyData map[string]string) float64 {
	boost := 0.0
	if hints != nil {
		if hints.Confidence > 0.8 {
			boost += 0.1
		}
		patternBoost := float64(len(hints.FieldPatterns)) * 0.05
		if patternBoost > 0.2 {
			patternBoost = 0.2
		}
		boost += patternBoost
	}

	missing := len(missingCriticalFields(policyData))
	if missing == 0 {
		boost += 0.1
	} else {
		boost -= float64(missing) * 0.05
	}
	return boost
}

// missingCriticalFields lists critical fields with no extracted value, in the
// model's declaration order.
func missingCriticalFields(policyData map[string]string) []string {
	var missing []string
	for _, field := range model.CriticalFields {
		if policyData[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// weakFieldNames lists fields whose confidence sits below the weak-field
// threshold, the candidates a retry is expected to improve.
func weakFieldNames(fields []model.FieldConfidence, threshold float64) []string {
	var weak []string
	for _, fc := range fields {
		if fc.Confidence < threshold {
			weak = append(weak, fc.Field)
		}
	}
	sort.Strings(weak)
	return weak
}

// crossValidationScore is the agreement ratio over fields observed by at
// least two tiers. With fewer than two attempts there is nothing to cross
// check and the score is neutral.
func crossValidationScore(attempts []model.ExtractionAttempt) float64 {
	if len(attempts) < 2 {
		return 0.5
	}

	values := map[string][]string{}
	for _, a := range attempts {
		for _, field := range sortedKeys(a.Fields) {
			if v := a.Fields[field]; v != "" {
				values[field] = append(values[field], v)
			}
		}
	}

	comparisons, agreements := 0, 0
	for _, field := range sortedKeys(values) {
		vs := values[field]
		if len(vs) < 2 {
			continue
		}
		comparisons++
		agreed := true
		for _, v := range vs[1:] {
			if normalizeValue(v) != normalizeValue(vs[0]) {
				agreed = false
				break
			}
		}
		if agreed {
			agreements++
		}
	}
	if comparisons == 0 {
		return 0.5
	}
	return float64(agreements) / float64(comparisons)
}

func (e *Engine) tierWeight(m model.Method) float64 {
	switch m {
	case model.MethodNativeText:
		return e.cfg.NativeTierWeight
	case model.MethodOCR:
		return e.cfg.OCRTierWeight
	case model.MethodCloudVision:
		return e.cfg.VisionTierWeight
	default:
		return 0.2
	}
}

// bestMethod picks the attempt with the highest confidence*weight product.
// Strict comparison keeps the earlier attempt on ties.
func bestMethod(attempts []model.ExtractionAttempt, weight func(model.Method) float64) model.Method {
	if len(attempts) == 0 {
		return model.MethodFallback
	}
	best := attempts[0]
	bestScore := best.Confidence * weight(best.Method)
	for _, a := range attempts[1:] {
		if score := a.Confidence * weight(a.Method); score > bestScore {
			best, bestScore = a, score
		}
	}
	return best.Method
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
