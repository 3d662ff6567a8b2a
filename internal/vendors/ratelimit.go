package vendors

import (
	"sync"
	"time"
)

// RateLimiter guards outbound vendor calls. CanMakeRequest reports whether
// another call fits in the service's window; RecordRequest marks one made.
type RateLimiter interface {
	CanMakeRequest(service string) bool
	RecordRequest(service string)
}

// Window is a sliding-window rule: at most Limit requests per Interval.
type Window struct {
	Limit    int
	Interval time.Duration
}

// DefaultWindows mirrors the published limits of each upstream vendor.
func DefaultWindows() map[string]Window {
	return map[string]Window{
		ServiceFirecrawl:  {Limit: 50, Interval: time.Hour},
		ServiceCaptureKit: {Limit: 100, Interval: time.Hour},
		ServiceGemini:     {Limit: 60, Interval: time.Minute},
		ServiceGitHub:     {Limit: 5000, Interval: time.Hour},
	}
}

// SlidingLimiter tracks request timestamps per service and prunes entries
// older than the window on each check.
type SlidingLimiter struct {
	mu       sync.Mutex
	windows  map[string]Window
	requests map[string][]time.Time
	now      func() time.Time
}

// NewSlidingLimiter builds a limiter over the given windows. now is
// injectable for tests.
func NewSlidingLimiter(windows map[string]Window, now func() time.Time) *SlidingLimiter {
	if windows == nil {
		windows = DefaultWindows()
	}
	if now == nil {
		now = time.Now
	}
	return &SlidingLimiter{
		windows:  windows,
		requests: make(map[string][]time.Time),
		now:      now,
	}
}

// CanMakeRequest reports whether service has window budget remaining.
// Unknown services are never limited.
func (l *SlidingLimiter) CanMakeRequest(service string) bool {
	window, ok := l.windows[service]
	if !ok || window.Limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(service, window)
	return len(l.requests[service]) < window.Limit
}

// RecordRequest appends a request timestamp for service.
func (l *SlidingLimiter) RecordRequest(service string) {
	if _, ok := l.windows[service]; !ok {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests[service] = append(l.requests[service], l.now())
}

// prune drops timestamps older than the window. Caller holds the lock.
func (l *SlidingLimiter) prune(service string, window Window) {
	cutoff := l.now().Add(-window.Interval)
	kept := l.requests[service][:0]
	for _, ts := range l.requests[service] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.requests[service] = kept
}

var _ RateLimiter = (*SlidingLimiter)(nil)
