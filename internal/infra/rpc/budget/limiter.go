// Package budget bounds provider calls over a rolling window.
//
// The RateLimiter is the single call budget of the watcher: every provider query
// (head lookups and per-kind log queries, every retry attempt included) consumes
// one unit through BudgetedProvider. When the budget for
// the current window is spent, TryAcquire refuses without blocking and callers
// defer their work to a later cycle.
package budget

import (
	"sync"
	"time"
)

// DefaultWindow is the rolling window of a daily provider quota.
const DefaultWindow = 24 * time.Hour

// UsageStats holds quota usage statistics.
type UsageStats struct {
	TotalCalls      int       `json:"total_calls"`
	Limit           int       `json:"limit"`
	RemainingCalls  int       `json:"remaining_calls"`
	UsagePercentage float64   `json:"usage_percentage"`
	WindowStart     time.Time `json:"window_start"`
	NextResetAt     time.Time `json:"next_reset_at"`
	Denied          int       `json:"denied"`
}

// RateLimiter counts calls within a rolling window and refuses calls over the limit.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int
	denied      int
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing limit calls per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 0 {
		limit = 0
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{
		limit:       limit,
		window:      window,
		windowStart: time.Now(),
		now:         time.Now,
	}
}

// WithClock replaces the time source and restarts the window at its current time.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	l.windowStart = now()
	return l
}

// TryAcquire consumes one unit of budget. It returns false, leaving the
// count untouched, when the current window is exhausted.
func (l *RateLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollUnsafe()

	if l.count >= l.limit {
		l.denied++
		return false
	}
	l.count++
	return true
}

// Usage returns a snapshot of the current window.
func (l *RateLimiter) Usage() UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollUnsafe()

	remaining := l.limit - l.count
	if remaining < 0 {
		remaining = 0
	}

	usagePercentage := 0.0
	if l.limit > 0 {
		usagePercentage = float64(l.count) / float64(l.limit) * 100
	}

	return UsageStats{
		TotalCalls:      l.count,
		Limit:           l.limit,
		RemainingCalls:  remaining,
		UsagePercentage: usagePercentage,
		WindowStart:     l.windowStart,
		NextResetAt:     l.windowStart.Add(l.window),
		Denied:          l.denied,
	}
}

func (l *RateLimiter) rollUnsafe() {
	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.resetUnsafe(now)
	}
}

func (l *RateLimiter) resetUnsafe(now time.Time) {
	l.windowStart = now
	l.count = 0
	l.denied = 0
}
