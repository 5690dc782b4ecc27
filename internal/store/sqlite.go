package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/claimstack/docpipe/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS carrier_templates (
	carrier_id TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS corrections (
	id           TEXT PRIMARY KEY,
	carrier_id   TEXT NOT NULL,
	field        TEXT NOT NULL,
	data         TEXT NOT NULL,
	submitted_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_filename ON runs(filename);
CREATE INDEX IF NOT EXISTS idx_corrections_carrier_id ON corrections(carrier_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutCarrierTemplate(ctx context.Context, tpl *model.CarrierTemplate) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal carrier template")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO carrier_templates (carrier_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(carrier_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		tpl.CarrierID, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put carrier template %s", tpl.CarrierID)
}

func (s *SQLiteStore) GetCarrierTemplate(ctx context.Context, carrierID string) (*model.CarrierTemplate, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM carrier_templates WHERE carrier_id = ?`,
		carrierID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get carrier template %s", carrierID)
	}

	var tpl model.CarrierTemplate
	if err := json.Unmarshal([]byte(data), &tpl); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal carrier template")
	}
	return &tpl, nil
}

func (s *SQLiteStore) ListCarrierTemplates(ctx context.Context) ([]*model.CarrierTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM carrier_templates ORDER BY carrier_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list carrier templates")
	}
	defer rows.Close()

	var templates []*model.CarrierTemplate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan carrier template")
		}
		var tpl model.CarrierTemplate
		if err := json.Unmarshal([]byte(data), &tpl); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal carrier template")
		}
		templates = append(templates, &tpl)
	}
	return templates, eris.Wrap(rows.Err(), "sqlite: list carrier templates iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, filename string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, filename, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, filename, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Filename:  filename,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.DocumentResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(runStatusFor(result)), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, filename, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Filename != "" {
		query += ` AND filename = ?`
		args = append(args, filter.Filename)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RecordCorrection(ctx context.Context, fb model.CorrectionFeedback) error {
	data, err := json.Marshal(fb)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal correction")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO corrections (id, carrier_id, field, data, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), fb.CarrierID, fb.Field, string(data), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: record correction")
}

// helpers

func runStatusFor(result *model.DocumentResult) model.RunStatus {
	if result != nil && result.Failed() {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Filename, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result = &model.DocumentResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
