package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/claimstack/docpipe/internal/acquire"
	"github.com/claimstack/docpipe/internal/carrier"
	"github.com/claimstack/docpipe/internal/classify"
	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/fusion"
	"github.com/claimstack/docpipe/internal/identifier"
	"github.com/claimstack/docpipe/internal/model"
	"github.com/claimstack/docpipe/internal/store"
)

// Acquirer runs the text acquisition cascade for one document.
type Acquirer interface {
	Run(ctx context.Context, doc model.Document) *acquire.Result
}

// Fuser merges tiered extraction attempts into one fused result.
type Fuser interface {
	Fuse(ctx context.Context, doc model.Document, attempts []model.ExtractionAttempt, hints *model.ExtractionHints) *model.FusedResult
}

// Enhancer fills extraction gaps with an LLM pass. Optional; the regex
// extraction is the fallback whenever it is absent or errors.
type Enhancer interface {
	Enhance(ctx context.Context, text string) (map[string]string, float64, error)
}

// Deps bundles the pipeline's collaborators. Store may be nil to skip run
// auditing; Enhancer may be nil to disable LLM enhancement.
type Deps struct {
	Acquirer   Acquirer
	Classifier *classify.Classifier
	Carriers   *carrier.Store
	Fuser      Fuser
	Enhancer   Enhancer
	Store      store.Store
}

// Pipeline orchestrates acquisition, classification, identifier extraction,
// fusion, and carrier learning for documents and batches.
type Pipeline struct {
	cfg  *config.Config
	deps Deps
	now  func() time.Time
}

func New(cfg *config.Config, deps Deps) *Pipeline {
	return &Pipeline{cfg: cfg, deps: deps, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (p *Pipeline) WithNow(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// ProcessDocument runs one document through the full pipeline. It always
// returns a well-formed result: an exhausted cascade degrades to the
// minimal-confidence fallback attempt, and only cancellation before any work
// produces an error result.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc model.Document) model.DocumentResult {
	start := p.now()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	result := model.DocumentResult{DocumentID: doc.ID, Filename: doc.Filename}

	if ctx.Err() != nil {
		result.Error = "processing cancelled before acquisition started"
		return result
	}

	run := p.beginRun(ctx, doc)

	acq := p.deps.Acquirer.Run(ctx, doc)
	best := acq.Best()
	text := best.Text
	result.QualityScore = acq.QualityScore

	classification := p.deps.Classifier.Classify(text)
	ids := identifier.Extract(text, doc.Filename)

	carrierID, carrierKnown := p.deps.Carriers.Identify(text)
	var hints *model.ExtractionHints
	if carrierKnown {
		hints = p.deps.Carriers.Hints(carrierID)
	}

	attempts, llmCost := p.enhanceAttempts(ctx, acq.Attempts, best)

	fused := p.deps.Fuser.Fuse(ctx, doc, attempts, hints)
	if carrierKnown {
		fused.CarrierID = carrierID
	}
	enrichByType(classification.DocumentType, text, fused)

	if carrierKnown && fused.OverallConfidence > p.cfg.Carrier.LearnThreshold {
		if err := p.deps.Carriers.LearnFromExtraction(ctx, carrierID, fused.PolicyData, text); err != nil {
			zap.L().Warn("pipeline: carrier learning failed",
				zap.String("carrier", carrierID),
				zap.Error(err))
		}
	}

	result.Classification = &classification
	result.Identifiers = &ids
	result.Extraction = fused
	result.CostUSD = totalCost(attempts) + llmCost
	result.ProcessingNotes = buildNotes(acq, classification, ids, fused, carrierID, carrierKnown)
	result.Duration = p.now().Sub(start)

	p.finishRun(ctx, run, &result)

	zap.L().Info("pipeline: document processed",
		zap.String("filename", doc.Filename),
		zap.String("documentType", classification.DocumentType),
		zap.Float64("confidence", fused.OverallConfidence),
		zap.String("gate", string(fused.QualityGate)),
		zap.Float64("costUsd", result.CostUSD))

	return result
}

// SubmitCorrection records a user's field correction and feeds it back into
// carrier learning at elevated trust.
func (p *Pipeline) SubmitCorrection(ctx context.Context, fb model.CorrectionFeedback) error {
	if fb.CarrierID == "" || fb.Field == "" || fb.CorrectedValue == "" {
		return eris.New("pipeline: correction requires carrier, field, and corrected value")
	}
	if fb.SubmittedAt.IsZero() {
		fb.SubmittedAt = p.now().UTC()
	}

	if p.deps.Store != nil {
		if err := p.deps.Store.RecordCorrection(ctx, fb); err != nil {
			return eris.Wrap(err, "pipeline: record correction")
		}
	}
	return p.deps.Carriers.ApplyCorrection(ctx, fb)
}

// enhanceAttempts attaches field maps to the attempt list. The best attempt
// gets the regex parse merged with the LLM enhancement; the fusion engine
// parses the rest. On any LLM failure the regex fields stand alone.
func (p *Pipeline) enhanceAttempts(ctx context.Context, attempts []model.ExtractionAttempt, best model.ExtractionAttempt) ([]model.ExtractionAttempt, float64) {
	if p.deps.Enhancer == nil || best.Text == "" {
		return attempts, 0
	}

	fields := fusion.ParseFields(best.Text)
	extra, llmCost, err := p.deps.Enhancer.Enhance(ctx, best.Text)
	if err != nil {
		zap.L().Warn("pipeline: llm enhancement failed, regex extraction stands", zap.Error(err))
	} else {
		fields = fusion.MergeFields(fields, extra)
	}

	out := make([]model.ExtractionAttempt, len(attempts))
	copy(out, attempts)
	for i := range out {
		if out[i].Method == best.Method && out[i].Fields == nil {
			out[i].Fields = fields
		}
	}
	return out, llmCost
}

func (p *Pipeline) beginRun(ctx context.Context, doc model.Document) *model.Run {
	if p.deps.Store == nil {
		return nil
	}
	run, err := p.deps.Store.CreateRun(ctx, doc.Filename)
	if err != nil {
		zap.L().Warn("pipeline: create run failed", zap.Error(err))
		return nil
	}
	if err := p.deps.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		zap.L().Warn("pipeline: update run status failed", zap.Error(err))
	}
	return run
}

func (p *Pipeline) finishRun(ctx context.Context, run *model.Run, result *model.DocumentResult) {
	if p.deps.Store == nil || run == nil {
		return
	}
	if err := p.deps.Store.CompleteRun(ctx, run.ID, result); err != nil {
		zap.L().Warn("pipeline: complete run failed", zap.Error(err))
	}
}

func totalCost(attempts []model.ExtractionAttempt) float64 {
	var sum float64
	for _, a := range attempts {
		sum += a.CostUSD
	}
	return sum
}

func buildNotes(acq *acquire.Result, classification model.ClassificationResult, ids model.IdentifierResult, fused *model.FusedResult, carrierID string, carrierKnown bool) []string {
	var notes []string

	notes = append(notes, fmt.Sprintf("Classified as %s (%.0f%% confidence)",
		classification.DocumentType, classification.Confidence*100))

	if carrierKnown {
		notes = append(notes, "Carrier identified: "+carrier.DisplayName(carrierID))
	}
	if ids.PrimaryIdentifier != "" {
		notes = append(notes, "Primary identifier: "+ids.PrimaryIdentifier)
	}
	notes = append(notes, ids.Messages...)

	if acq.Exhausted {
		notes = append(notes, "All acquisition tiers failed; result built from minimal-confidence fallback")
	} else if acq.Mediocre {
		notes = append(notes, fmt.Sprintf("Text quality mediocre (score %.0f); consider a higher-quality scan", acq.QualityScore))
	}

	if fused.QualityGate == model.GateFailed {
		notes = append(notes, "Extraction confidence below acceptance gate; manual review recommended")
	}
	if fused.IterationCount > 1 {
		notes = append(notes, fmt.Sprintf("Adaptive retry ran %d iterations", fused.IterationCount))
	}

	return notes
}
