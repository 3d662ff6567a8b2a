package quota

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubStore struct {
	usage Usage
	err   error
	incs  int
}

func (s *stubStore) GetUsage(ctx context.Context, userID string) (Usage, error) {
	return s.usage, s.err
}

func (s *stubStore) Increment(ctx context.Context, userID string) error {
	s.incs++
	return nil
}

func TestCheckAnonymousAllowed(t *testing.T) {
	svc := NewService(&stubStore{}, DefaultLimits())
	d := svc.Check(context.Background(), "")
	if !d.Allowed || d.Reason != "anonymous" {
		t.Fatalf("decision = %+v, want anonymous allow", d)
	}
}

func TestCheckBelowLimitAllowed(t *testing.T) {
	svc := NewService(&stubStore{usage: Usage{Tier: TierStarter, ReportsGenerated: 2}}, DefaultLimits())
	d := svc.Check(context.Background(), "user-1")
	if !d.Allowed {
		t.Fatalf("decision = %+v, want allowed", d)
	}
	if d.Limit != 3 || d.Used != 2 {
		t.Fatalf("decision = %+v, want used=2 limit=3", d)
	}
}

func TestCheckAtLimitDenied(t *testing.T) {
	svc := NewService(&stubStore{usage: Usage{Tier: TierStarter, ReportsGenerated: 3}}, DefaultLimits())
	d := svc.Check(context.Background(), "user-1")
	if d.Allowed {
		t.Fatalf("decision = %+v, want denied", d)
	}
	if d.Reason != "monthly_limit_reached" {
		t.Fatalf("reason = %q", d.Reason)
	}
}

func TestCheckTierLimits(t *testing.T) {
	tests := []struct {
		tier  string
		used  int
		allow bool
	}{
		{TierStarter, 2, true},
		{TierStarter, 3, false},
		{TierPlus, 49, true},
		{TierPlus, 50, false},
		{TierPlusUltra, 499, true},
		{TierPlusUltra, 500, false},
		{"unknown-tier", 3, false}, // unknown tiers get starter limits
	}
	for _, tt := range tests {
		svc := NewService(&stubStore{usage: Usage{Tier: tt.tier, ReportsGenerated: tt.used}}, DefaultLimits())
		d := svc.Check(context.Background(), "user-1")
		if d.Allowed != tt.allow {
			t.Fatalf("tier %s used %d: allowed = %v, want %v", tt.tier, tt.used, d.Allowed, tt.allow)
		}
	}
}

func TestCheckFailOpen(t *testing.T) {
	svc := NewService(&stubStore{err: errors.New("db down")}, DefaultLimits())
	d := svc.Check(context.Background(), "user-1")
	if !d.Allowed || d.Reason != "fail_open" {
		t.Fatalf("decision = %+v, want fail-open allow", d)
	}
}

func TestIncrementSkipsAnonymous(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, DefaultLimits())
	if err := svc.Increment(context.Background(), ""); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if store.incs != 0 {
		t.Fatal("anonymous increment should not reach the store")
	}
	if err := svc.Increment(context.Background(), "user-1"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if store.incs != 1 {
		t.Fatalf("incs = %d, want 1", store.incs)
	}
}

func TestMemoryStoreMonthRollover(t *testing.T) {
	current := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Increment(ctx, "user-1"); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	u, err := store.GetUsage(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if u.ReportsGenerated != 3 {
		t.Fatalf("reports = %d, want 3", u.ReportsGenerated)
	}

	// New calendar month resets the counter.
	current = time.Date(2025, 6, 1, 0, 0, 1, 0, time.UTC)
	u, err = store.GetUsage(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if u.ReportsGenerated != 0 {
		t.Fatalf("reports after rollover = %d, want 0", u.ReportsGenerated)
	}
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2025, 6, 17, 23, 45, 0, 0, time.UTC))
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("MonthStart = %v, want %v", got, want)
	}
}
