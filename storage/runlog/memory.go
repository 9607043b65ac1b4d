package runlog

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps run history for the lifetime of one process.
type MemoryStore struct {
	mu   sync.Mutex
	runs []Record
}

// NewMemoryStore returns an empty in-memory run log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveRun(_ context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.runs = append(s.runs, rec)
	s.mu.Unlock()
	return nil
}

// LastOrdering returns the ordering of the most recent submit run for a job,
// or empty when none is recorded.
func (s *MemoryStore) LastOrdering(_ context.Context, jobID uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.runs) - 1; i >= 0; i-- {
		r := s.runs[i]
		if r.Ordering != "" && (r.EffectiveJobID == jobID || r.APIJobID == jobID || r.BountyID == jobID) {
			return r.Ordering, nil
		}
	}
	return "", nil
}

func (s *MemoryStore) RunsForJob(_ context.Context, jobID uint64) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.runs {
		if r.EffectiveJobID == jobID || r.APIJobID == jobID || r.BountyID == jobID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() {}
