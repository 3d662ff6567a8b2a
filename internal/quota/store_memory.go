package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps usage counters in memory for dev environments.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*Usage
	Now   func() time.Time
}

// NewMemoryStore constructs an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*Usage), Now: time.Now}
}

// GetUsage returns userID's usage, creating and rolling over as needed.
func (s *MemoryStore) GetUsage(ctx context.Context, userID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.ensure(userID), nil
}

// Increment bumps userID's monthly counter.
func (s *MemoryStore) Increment(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(userID).ReportsGenerated++
	return nil
}

// SetTier overrides a user's tier, for tests and dev tooling.
func (s *MemoryStore) SetTier(userID, tier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(userID).Tier = tier
}

// ensure creates or rolls over the row. Caller holds the lock.
func (s *MemoryStore) ensure(userID string) *Usage {
	now := s.now()
	u, ok := s.users[userID]
	if !ok {
		u = &Usage{Tier: TierStarter, LastReset: now}
		s.users[userID] = u
		return u
	}
	if u.LastReset.Before(MonthStart(now)) {
		u.ReportsGenerated = 0
		u.LastReset = now
	}
	return u
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var _ Store = (*MemoryStore)(nil)
