package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter()
	l.now = func() time.Time { return now }

	for i := 1; i <= 5; i++ {
		r := l.Check("user-1", time.Minute, 5)
		assert.True(t, r.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 5-i, r.Remaining)
		assert.Zero(t, r.RetryAfter)
	}

	r := l.Check("user-1", time.Minute, 5)
	assert.False(t, r.Allowed, "6th request must be rejected")
	assert.Equal(t, 0, r.Remaining)
	assert.Greater(t, r.RetryAfter, time.Duration(0))
	assert.Equal(t, now.Add(time.Minute), r.ResetTime)
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 6; i++ {
		l.Check("user-1", time.Minute, 5)
	}
	require.False(t, l.Check("user-1", time.Minute, 5).Allowed)

	now = now.Add(time.Minute + time.Second)
	r := l.Check("user-1", time.Minute, 5)
	assert.True(t, r.Allowed, "counter resets once the window elapses")
	assert.Equal(t, 4, r.Remaining)
}

func TestRateLimiterIndependentIdentifiers(t *testing.T) {
	l := NewRateLimiter()

	for i := 0; i < 5; i++ {
		l.Check("user-1", time.Minute, 5)
	}
	assert.False(t, l.Check("user-1", time.Minute, 5).Allowed)
	assert.True(t, l.Check("user-2", time.Minute, 5).Allowed, "a saturated identifier does not affect others")
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	l := NewRateLimiter()

	var wg sync.WaitGroup
	allowed := make([]int, 10)
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", g%2)
			for i := 0; i < 50; i++ {
				if l.Check(id, time.Minute, 100).Allowed {
					allowed[g]++
				}
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, n := range allowed {
		total += n
	}
	// 2 identifiers, 250 requests each, 100 allowed per window
	assert.Equal(t, 200, total)
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter()
	l.now = func() time.Time { return now }

	l.Check("stale", time.Minute, 5)
	l.Check("fresh", time.Minute, 5)
	assert.Equal(t, 0, l.Sweep(), "live windows are kept")

	now = now.Add(3 * time.Minute)
	assert.Equal(t, 2, l.Sweep(), "expired windows are reclaimed")

	r := l.Check("stale", time.Minute, 5)
	assert.True(t, r.Allowed, "a swept identifier starts a fresh window")
	assert.Equal(t, 4, r.Remaining)
}
