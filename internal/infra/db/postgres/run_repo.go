package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/trustbrief/internal/domain/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS assessment_runs (
  id            UUID         PRIMARY KEY,
  cache_key     VARCHAR(64)  NOT NULL,
  input         VARCHAR(512) NOT NULL,
  product       VARCHAR(255) NOT NULL DEFAULT '',
  status        VARCHAR(16)  NOT NULL,
  failed_stage  VARCHAR(16)  NOT NULL DEFAULT '',
  error_message TEXT         NOT NULL DEFAULT '',
  force_refresh BOOLEAN      NOT NULL DEFAULT FALSE,
  duration_ms   BIGINT       NOT NULL DEFAULT 0,
  created_at    TIMESTAMPTZ  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessment_runs_created ON assessment_runs (created_at DESC);`

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

// Migrate creates the runs table when missing.
func (r *RunRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save insert/update Run record
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO assessment_runs
(id, cache_key, input, product, status, failed_stage, error_message, force_refresh, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 failed_stage = EXCLUDED.failed_stage,
 error_message = EXCLUDED.error_message,
 duration_ms = EXCLUDED.duration_ms;`

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		run.ID, stringOrDash(run.CacheKey), stringOrDash(run.Input), run.Product,
		string(run.Status), run.FailedStage, run.Error, run.ForceRefresh, run.DurationMS, created,
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
LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Run{}
	for rows.Next() {
		var run domain.Run
		var status string
		if err := rows.Scan(&run.ID, &run.CacheKey, &run.Input, &run.Product, &status, &run.FailedStage,
			&run.Error, &run.ForceRefresh, &run.DurationMS, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Status = domain.Status(status)
		run.CreatedAt = run.CreatedAt.UTC()
		out = append(out, &run)
	}
	return out, rows.Err()
}
