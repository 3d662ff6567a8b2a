package apiusage

import (
	"context"
	"sync"
	"time"
)

// Recorder appends entries to the usage ledger. Implementations must treat
// the ledger as append-only.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// MemoryStore is an in-memory Recorder used when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	nextID  int64
}

// NewMemoryStore constructs an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Record appends rec to the ledger.
func (s *MemoryStore) Record(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of all ledger entries, for tests and dev tooling.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

var _ Recorder = (*MemoryStore)(nil)
