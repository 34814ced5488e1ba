package matcher

import (
	"sync"
	"time"
)

// TimeoutGuard tracks the wall-clock budget of a single run. Phases poll it
// between units of work; once the deadline has passed the guard stays
// expired for the remainder of the run.
//
// The guard is safe for concurrent use so a parallelized phase can share it.
type TimeoutGuard struct {
	mu       sync.Mutex
	started  time.Time
	deadline time.Time
	expired  bool
}

// NewTimeoutGuard starts tracking a budget from now. A zero or negative
// budget disables the deadline entirely.
func NewTimeoutGuard(budget time.Duration) *TimeoutGuard {
	now := time.Now()
	tg := &TimeoutGuard{started: now}
	if budget > 0 {
		tg.deadline = now.Add(budget)
	}
	return tg
}

// Expired reports whether the budget has elapsed. Once true it never
// un-trips, even if the clock were to move backwards.
func (tg *TimeoutGuard) Expired() bool {
	tg.mu.Lock()
	defer tg.mu.Unlock()

	if tg.expired {
		return true
	}
	if tg.deadline.IsZero() {
		return false
	}
	if time.Now().After(tg.deadline) {
		tg.expired = true
	}
	return tg.expired
}

// Elapsed returns the time since the guard was created
func (tg *TimeoutGuard) Elapsed() time.Duration {
	return time.Since(tg.started)
}

// Remaining returns the time left in the budget, zero once expired and a
// negative value when no deadline is set.
func (tg *TimeoutGuard) Remaining() time.Duration {
	tg.mu.Lock()
	defer tg.mu.Unlock()

	if tg.deadline.IsZero() {
		return -1
	}
	remaining := time.Until(tg.deadline)
	if remaining < 0 || tg.expired {
		return 0
	}
	return remaining
}
