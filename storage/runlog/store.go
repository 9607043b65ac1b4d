package runlog

import (
	"context"
	"os"
	"strings"
	"time"
)

// Record is one workflow run. EffectiveJobID is the id the API answers to
// after reconciliation; Ordering is the submit strategy that worked
// ("documented", "confirm-first", "skip-confirm").
type Record struct {
	Workflow       string    `json:"workflow"`
	APIJobID       uint64    `json:"apiJobId,omitempty"`
	BountyID       uint64    `json:"bountyId,omitempty"`
	EffectiveJobID uint64    `json:"effectiveJobId,omitempty"`
	SubmissionID   uint64    `json:"submissionId,omitempty"`
	Ordering       string    `json:"ordering,omitempty"`
	Outcome        string    `json:"outcome"`
	TxHash         string    `json:"txHash,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store persists run history. Bot fleets can point this at a shared
// Postgres; a single process defaults to memory.
type Store interface {
	SaveRun(ctx context.Context, rec Record) error
	LastOrdering(ctx context.Context, jobID uint64) (string, error)
	RunsForJob(ctx context.Context, jobID uint64) ([]Record, error)
	Close()
}

// NewFromEnv returns a Postgres store when RUNLOG_DATABASE_URL is set, the
// in-memory store otherwise.
func NewFromEnv(ctx context.Context) (Store, error) {
	dsn := strings.TrimSpace(os.Getenv("RUNLOG_DATABASE_URL"))
	if dsn == "" {
		return NewMemoryStore(), nil
	}
	return NewPGStore(ctx, dsn)
}
