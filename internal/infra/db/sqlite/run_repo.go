package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	domain "github.com/bryanwahyu/trustbrief/internal/domain/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessment_runs (
  id            TEXT    PRIMARY KEY,
  cache_key     TEXT    NOT NULL,
  input         TEXT    NOT NULL,
  product       TEXT    NOT NULL DEFAULT '',
  status        TEXT    NOT NULL,
  failed_stage  TEXT    NOT NULL DEFAULT '',
  error_message TEXT    NOT NULL DEFAULT '',
  force_refresh INTEGER NOT NULL DEFAULT 0,
  duration_ms   INTEGER NOT NULL DEFAULT 0,
  created_at    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessment_runs_created ON assessment_runs (created_at);`

// Open opens (creating if needed) a SQLite database file for run history.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)
	return db, nil
}

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

func (r *RunRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO assessment_runs
(id, cache_key, input, product, status, failed_stage, error_message, force_refresh, duration_ms, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT (id) DO UPDATE SET
 status = excluded.status,
 failed_stage = excluded.failed_stage,
 error_message = excluded.error_message,
 duration_ms = excluded.duration_ms`

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, run.CacheKey, run.Input, run.Product, string(run.Status), run.FailedStage,
		run.Error, run.ForceRefresh, run.DurationMS, created.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (r *RunRepository) Latest(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, cache_key, input, product, status, failed_stage, error_message, force_refresh, duration_ms, created_at
FROM assessment_runs
ORDER BY created_at DESC, id DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Run{}
	for rows.Next() {
		var (
			run     domain.Run
			status  string
			created string
		)
		if err := rows.Scan(&run.ID, &run.CacheKey, &run.Input, &run.Product, &status, &run.FailedStage,
			&run.Error, &run.ForceRefresh, &run.DurationMS, &created); err != nil {
			return nil, err
		}
		run.Status = domain.Status(status)
		if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}
