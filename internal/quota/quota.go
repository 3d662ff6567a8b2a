package quota

import (
	"context"
	"strings"
	"time"

	"plusfolio-backend/internal/shared/telemetry"
)

// Subscription tiers.
const (
	TierStarter   = "starter"
	TierPlus      = "plus"
	TierPlusUltra = "plus-ultra"
)

// Limits holds per-tier monthly report allowances.
type Limits struct {
	Starter   int
	Plus      int
	PlusUltra int
}

// DefaultLimits returns the production tier allowances.
func DefaultLimits() Limits {
	return Limits{Starter: 3, Plus: 50, PlusUltra: 500}
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	Reason  string
	Used    int
	Limit   int
}

// Guard decides whether a user may start another analysis this month.
// Implementations must allow anonymous users and fail open when usage
// cannot be read.
type Guard interface {
	Check(ctx context.Context, userID string) Decision
	Increment(ctx context.Context, userID string) error
}

// Usage is a user's current monthly consumption.
type Usage struct {
	Tier             string
	ReportsGenerated int
	LastReset        time.Time
}

// Store reads and mutates per-user usage counters. GetUsage must apply the
// calendar-month rollover before returning.
type Store interface {
	GetUsage(ctx context.Context, userID string) (Usage, error)
	Increment(ctx context.Context, userID string) error
}

// Service is the standard Guard over a Store.
type Service struct {
	Store  Store
	Limits Limits
}

// NewService builds a Guard with the given store and limits.
func NewService(store Store, limits Limits) *Service {
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	return &Service{Store: store, Limits: limits}
}

// Check returns whether userID can generate another report this month.
// Anonymous callers pass. A store failure also passes: blocking paying
// users on a read error is worse than occasionally exceeding a quota.
func (s *Service) Check(ctx context.Context, userID string) Decision {
	if strings.TrimSpace(userID) == "" {
		return Decision{Allowed: true, Reason: "anonymous"}
	}

	usage, err := s.Store.GetUsage(ctx, userID)
	if err != nil {
		telemetry.Warn("quota.fail_open", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return Decision{Allowed: true, Reason: "fail_open"}
	}

	limit := s.limitFor(usage.Tier)
	if usage.ReportsGenerated >= limit {
		return Decision{
			Allowed: false,
			Reason:  "monthly_limit_reached",
			Used:    usage.ReportsGenerated,
			Limit:   limit,
		}
	}
	return Decision{Allowed: true, Used: usage.ReportsGenerated, Limit: limit}
}

// Increment bumps userID's monthly counter. No-op for anonymous callers.
func (s *Service) Increment(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	return s.Store.Increment(ctx, userID)
}

func (s *Service) limitFor(tier string) int {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case TierPlusUltra:
		return s.Limits.PlusUltra
	case TierPlus:
		return s.Limits.Plus
	default:
		return s.Limits.Starter
	}
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

var _ Guard = (*Service)(nil)
