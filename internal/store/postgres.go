package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/claimstack/docpipe/internal/db"
	"github.com/claimstack/docpipe/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"put_carrier_template": `INSERT INTO carrier_templates (carrier_id, data, updated_at) VALUES ($1, $2, $3) ON CONFLICT (carrier_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
	"get_carrier_template": `SELECT data FROM carrier_templates WHERE carrier_id = $1`,
	"insert_run":           `INSERT INTO runs (id, filename, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_run_status":    `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"complete_run":         `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":              `SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE id = $1`,
	"insert_correction":    `INSERT INTO corrections (id, carrier_id, field, data, submitted_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS carrier_templates (
	carrier_id TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS corrections (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	carrier_id   TEXT NOT NULL,
	field        TEXT NOT NULL,
	data         JSONB NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_filename ON runs(filename);
CREATE INDEX IF NOT EXISTS idx_corrections_carrier_id ON corrections(carrier_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) PutCarrierTemplate(ctx context.Context, tpl *model.CarrierTemplate) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal carrier template")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO carrier_templates (carrier_id, data, updated_at) VALUES ($1, $2, $3) ON CONFLICT (carrier_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		tpl.CarrierID, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put carrier template %s", tpl.CarrierID)
}

func (s *PostgresStore) GetCarrierTemplate(ctx context.Context, carrierID string) (*model.CarrierTemplate, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM carrier_templates WHERE carrier_id = $1`,
		carrierID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get carrier template %s", carrierID)
	}

	var tpl model.CarrierTemplate
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal carrier template")
	}
	return &tpl, nil
}

func (s *PostgresStore) ListCarrierTemplates(ctx context.Context) ([]*model.CarrierTemplate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM carrier_templates ORDER BY carrier_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list carrier templates")
	}
	defer rows.Close()

	var templates []*model.CarrierTemplate
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan carrier template")
		}
		var tpl model.CarrierTemplate
		if err := json.Unmarshal(data, &tpl); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal carrier template")
		}
		templates = append(templates, &tpl)
	}
	return templates, eris.Wrap(rows.Err(), "postgres: list carrier templates iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, filename string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, filename, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, filename, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Filename:  filename,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.DocumentResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(runStatusFor(result)), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)

	var r model.Run
	var resultJSON []byte
	if err := row.Scan(&r.ID, &r.Filename, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if resultJSON != nil {
		r.Result = &model.DocumentResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Filename != "" {
		query += fmt.Sprintf(` AND filename = $%d`, argIdx)
		args = append(args, filter.Filename)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var resultJSON []byte

		if err := rows.Scan(&r.ID, &r.Filename, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if resultJSON != nil {
			r.Result = &model.DocumentResult{}
			if err := json.Unmarshal(resultJSON, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) RecordCorrection(ctx context.Context, fb model.CorrectionFeedback) error {
	data, err := json.Marshal(fb)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal correction")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO corrections (id, carrier_id, field, data, submitted_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), fb.CarrierID, fb.Field, data, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: record correction")
}
