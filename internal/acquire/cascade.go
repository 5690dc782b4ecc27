package acquire

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/claimstack/docpipe/internal/cost"
	"github.com/claimstack/docpipe/internal/engine"
	"github.com/claimstack/docpipe/internal/model"
)

// fallbackConfidence is the ceiling for a synthesized attempt when every
// tier has failed.
const fallbackConfidence = 0.1

// Result is the cascade's output for one document. Failure is non-nil only
// when every tier was exhausted; the attempt list still carries the
// synthesized fallback so downstream stages stay uniform.
type Result struct {
	Attempts     []model.ExtractionAttempt
	QualityScore float64
	Mediocre     bool
	Exhausted    bool
	Failures     []AcquisitionFailure
	Failure      *NoUsableText
}

// Best returns the attempt with the highest confidence.
func (r *Result) Best() model.ExtractionAttempt {
	best := r.Attempts[0]
	for _, a := range r.Attempts[1:] {
		if a.Confidence > best.Confidence {
			best = a
		}
	}
	return best
}

// Cascade runs acquisition engines in ascending cost order, escalating while
// text quality stays below the escalation gate. The tier table is the
// ordered engine slice; each threshold is independently configurable.
type Cascade struct {
	engines []engine.Engine
	eval    *Evaluator
	calc    *cost.Calculator
	now     func() time.Time
}

// NewCascade creates a Cascade over the given engines (tier order preserved).
func NewCascade(engines []engine.Engine, eval *Evaluator, calc *cost.Calculator) *Cascade {
	return &Cascade{
		engines: engines,
		eval:    eval,
		calc:    calc,
		now:     time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (c *Cascade) WithNow(now func() time.Time) *Cascade {
	c.now = now
	return c
}

// HighestTier returns the most accurate (most expensive) engine's method.
func (c *Cascade) HighestTier() model.Method {
	return c.engines[len(c.engines)-1].Name()
}

// Acquire runs a single engine by method name. A typed AcquisitionFailure is
// returned on engine error so the caller can escalate.
func (c *Cascade) Acquire(ctx context.Context, doc model.Document, method model.Method) (model.ExtractionAttempt, error) {
	for _, eng := range c.engines {
		if eng.Name() == method {
			return c.run(ctx, eng, doc)
		}
	}
	return model.ExtractionAttempt{}, &AcquisitionFailure{
		Method: string(method),
		Err:    errUnknownMethod(method),
	}
}

// Run walks the tier table. Each tier's output is scored; scores below the
// escalation gate trigger the next tier, anything above is accepted
// (mediocre when below the accept gate). A cancelled context stops new tiers
// from starting but never interrupts one mid-flight. If every tier fails, a
// minimal-confidence fallback attempt is synthesized so downstream stages
// always receive a well-formed attempt list.
func (c *Cascade) Run(ctx context.Context, doc model.Document) *Result {
	res := &Result{}

	for _, eng := range c.engines {
		if ctx.Err() != nil {
			break
		}

		attempt, err := c.run(ctx, eng, doc)
		if err != nil {
			var af *AcquisitionFailure
			if f, ok := err.(*AcquisitionFailure); ok {
				af = f
			} else {
				af = &AcquisitionFailure{Method: string(eng.Name()), Err: err}
			}
			res.Failures = append(res.Failures, *af)
			zap.L().Warn("acquisition tier failed",
				zap.String("document", doc.Filename),
				zap.String("method", string(eng.Name())),
				zap.Error(err),
			)
			continue
		}

		score := c.eval.Evaluate(attempt.Text)
		if attempt.Confidence == 0 {
			attempt.Confidence = score / 100
		}
		res.Attempts = append(res.Attempts, attempt)

		if score > res.QualityScore {
			res.QualityScore = score
		}

		if !c.eval.ShouldEscalate(score) {
			res.Mediocre = c.eval.Mediocre(score)
			return res
		}
	}

	if len(res.Attempts) == 0 {
		res.Exhausted = true
		res.Failure = &NoUsableText{Filename: doc.Filename, Failures: res.Failures}
		res.Attempts = append(res.Attempts, c.synthesizeFallback(doc))
		zap.L().Error("all acquisition tiers exhausted",
			zap.String("document", doc.Filename),
			zap.Error(res.Failure),
		)
	}
	return res
}

func (c *Cascade) run(ctx context.Context, eng engine.Engine, doc model.Document) (model.ExtractionAttempt, error) {
	start := c.now()
	// A tier already in flight is paid for; let it finish even if the caller
	// cancels. New tiers are blocked by the ctx check in Run, and the engine
	// clients enforce their own request timeouts.
	out, err := eng.Extract(context.WithoutCancel(ctx), doc)
	if err != nil {
		return model.ExtractionAttempt{}, &AcquisitionFailure{Method: string(eng.Name()), Err: err}
	}

	attempt := model.ExtractionAttempt{
		Method:     eng.Name(),
		Text:       out.Text,
		Confidence: out.Confidence,
		Latency:    c.now().Sub(start),
		Timestamp:  start,
	}

	switch eng.Name() {
	case model.MethodOCR:
		attempt.CostUSD = c.calc.OCRPages(out.Pages)
	case model.MethodCloudVision:
		attempt.CostUSD = c.calc.VisionPages(out.Pages)
	}

	return attempt, nil
}

// synthesizeFallback builds the degraded attempt returned when no tier
// produced text.
func (c *Cascade) synthesizeFallback(doc model.Document) model.ExtractionAttempt {
	return model.ExtractionAttempt{
		Method:     model.MethodFallback,
		Text:       "",
		Confidence: fallbackConfidence,
		Timestamp:  c.now(),
	}
}

type errUnknownMethod model.Method

func (e errUnknownMethod) Error() string {
	return "no engine registered for method " + string(e)
}
