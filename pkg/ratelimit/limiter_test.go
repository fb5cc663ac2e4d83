package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestTokenBucket_Allow(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(5, 1.0, clock.Now)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, tb.Allow(), "6th request should be denied")

	clock.Advance(2 * time.Second)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucket_TakeReportsWait(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(1, 0.5, clock.Now)

	ok, wait := tb.Take()
	require.True(t, ok)
	assert.Zero(t, wait)

	ok, wait = tb.Take()
	require.False(t, ok)
	assert.Equal(t, 2*time.Second, wait)

	clock.Advance(time.Second)
	ok, wait = tb.Take()
	require.False(t, ok)
	assert.Equal(t, time.Second, wait)
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(3, 1.0, clock.Now)

	clock.Advance(time.Hour)
	assert.Equal(t, 3.0, tb.Tokens())
}

func TestTokenBucket_Reset(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(3, 1.0, clock.Now)

	for i := 0; i < 3; i++ {
		tb.Allow()
	}
	require.False(t, tb.Allow())

	tb.Reset()
	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d should be allowed after reset", i+1)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiterWithClock(2, 1.0, 0, clock.Now)

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))

	assert.True(t, rl.Allow("bob"))
	assert.Equal(t, 2, rl.Len())

	rl.Reset("alice")
	assert.True(t, rl.Allow("alice"))
}

func TestRateLimiter_Prune(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiterWithClock(2, 1.0, time.Minute, clock.Now)

	rl.Allow("idle")
	clock.Advance(30 * time.Second)
	rl.Allow("active")

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, rl.Prune())
	assert.Equal(t, 1, rl.Len())

	// A pruned key starts with a full bucket.
	assert.True(t, rl.Allow("idle"))
	assert.True(t, rl.Allow("idle"))
}

func TestRateLimiter_PruneWithoutTTL(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiterWithClock(1, 1.0, 0, clock.Now)

	rl.Allow("k")
	clock.Advance(24 * time.Hour)
	assert.Zero(t, rl.Prune())
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiterWithClock(100, 1.0, 0, clock.Now)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if rl.Allow("shared") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed.Load())
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(1000000, 1000000, 0)
	keys := make([]string, 100)
	for i := range keys {
		keys[i] = fmt.Sprintf("user:%d", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.Allow(keys[i%len(keys)])
	}
}
