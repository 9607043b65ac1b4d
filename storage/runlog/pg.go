package runlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists run history in Postgres so a fleet of bots can share
// reconciliation results and working orderings.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects and initializes the schema.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PGStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS orchestrator_runs (
  id BIGSERIAL PRIMARY KEY,
  workflow TEXT NOT NULL,
  api_job_id BIGINT,
  bounty_id BIGINT,
  effective_job_id BIGINT,
  submission_id BIGINT,
  ordering TEXT,
  outcome TEXT NOT NULL,
  tx_hash TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orchestrator_runs_job_idx
  ON orchestrator_runs (effective_job_id, created_at DESC);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init run log schema: %w", err)
	}
	return nil
}

func (s *PGStore) SaveRun(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO orchestrator_runs
  (workflow, api_job_id, bounty_id, effective_job_id, submission_id, ordering, outcome, tx_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Workflow, rec.APIJobID, rec.BountyID, rec.EffectiveJobID,
		rec.SubmissionID, rec.Ordering, rec.Outcome, rec.TxHash, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *PGStore) LastOrdering(ctx context.Context, jobID uint64) (string, error) {
	row := s.pool.QueryRow(ctx, `
SELECT ordering FROM orchestrator_runs
WHERE ordering <> '' AND (effective_job_id = $1 OR api_job_id = $1 OR bounty_id = $1)
ORDER BY created_at DESC LIMIT 1`, jobID)
	var ordering string
	if err := row.Scan(&ordering); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No prior run is not an error for the caller.
			return "", nil
		}
		return "", fmt.Errorf("query last ordering: %w", err)
	}
	return ordering, nil
}

func (s *PGStore) RunsForJob(ctx context.Context, jobID uint64) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT workflow, api_job_id, bounty_id, effective_job_id, submission_id, ordering, outcome, tx_hash, created_at
FROM orchestrator_runs
WHERE effective_job_id = $1 OR api_job_id = $1 OR bounty_id = $1
ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Workflow, &r.APIJobID, &r.BountyID, &r.EffectiveJobID,
			&r.SubmissionID, &r.Ordering, &r.Outcome, &r.TxHash, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) Close() {
	s.pool.Close()
}
