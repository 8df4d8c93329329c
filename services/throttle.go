// services/throttle.go
package services

import (
	"sync"
	"time"
)

// ThrottleResult is the outcome of one limiter check.
type ThrottleResult struct {
	Allowed    bool
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration // zero when allowed
}

type rateWindow struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window request limiter keyed by caller
// identity. Windows are created lazily and synchronized per key, so
// distinct identifiers never contend. State is process-local; a
// multi-instance deployment needs an external shared store instead.
type RateLimiter struct {
	windows sync.Map // identifier -> *rateWindow
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now}
}

// Check counts one request against the identifier's window. The window
// resets lazily once it has elapsed.
func (l *RateLimiter) Check(identifier string, window time.Duration, maxRequests int) ThrottleResult {
	v, _ := l.windows.LoadOrStore(identifier, &rateWindow{})
	w := v.(*rateWindow)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(window)
	}
	w.count++

	allowed := w.count <= maxRequests
	remaining := maxRequests - w.count
	if remaining < 0 {
		remaining = 0
	}

	result := ThrottleResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetTime: w.resetAt,
	}
	if !allowed {
		result.RetryAfter = w.resetAt.Sub(now)
	}
	return result
}

// Sweep reclaims windows that have been expired for a while; run
// periodically from the scheduler. Returns the number removed.
func (l *RateLimiter) Sweep() int {
	now := l.now()
	removed := 0
	l.windows.Range(func(key, v interface{}) bool {
		w := v.(*rateWindow)
		w.mu.Lock()
		expired := now.Sub(w.resetAt) > time.Minute
		w.mu.Unlock()
		if expired {
			l.windows.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
