// Package engine implements the pluggable text acquisition engines: native
// text layer, OCR, and cloud vision. Engines are ordered by ascending cost;
// the acquire package decides when to escalate between them.
package engine

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
	"github.com/claimstack/docpipe/internal/resilience"
)

// Extraction is the raw output of one engine call. Confidence is the
// engine's self-report; zero means the engine does not self-report and the
// quality evaluator substitutes a score.
type Extraction struct {
	Text       string
	Confidence float64
	Pages      int
}

// Engine extracts text from a document. Implementations must be safe for
// concurrent use; batch processing calls them from multiple goroutines.
type Engine interface {
	Name() model.Method
	Extract(ctx context.Context, doc model.Document) (*Extraction, error)
}

// NewEngines builds the acquisition engines in tier order (cheapest first).
// At least one engine must be configured or the pipeline cannot run.
func NewEngines(cfg *config.Config, breakers *resilience.EngineBreakers) ([]Engine, error) {
	var engines []Engine

	engines = append(engines, NewNativeText(cfg.OCR.PdfToTextPath))

	if cfg.OCR.Key != "" {
		engines = append(engines, NewOCRClient(cfg.OCR, breakers.Get(string(model.MethodOCR))))
	}
	if cfg.Vision.Key != "" {
		engines = append(engines, NewVisionClient(cfg.Vision, breakers.Get(string(model.MethodCloudVision))))
	}

	if len(engines) == 0 {
		return nil, eris.New("engine: no acquisition engines configured")
	}
	return engines, nil
}
