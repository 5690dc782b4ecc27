package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	Filename string          `json:"filename,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the extraction pipeline:
// learned carrier templates, run audit records, and the correction log.
type Store interface {
	// Carrier templates
	PutCarrierTemplate(ctx context.Context, tpl *model.CarrierTemplate) error
	GetCarrierTemplate(ctx context.Context, carrierID string) (*model.CarrierTemplate, error)
	ListCarrierTemplates(ctx context.Context) ([]*model.CarrierTemplate, error)

	// Runs
	CreateRun(ctx context.Context, filename string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.DocumentResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Corrections
	RecordCorrection(ctx context.Context, fb model.CorrectionFeedback) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a Store from configuration. SQLite is the default driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
