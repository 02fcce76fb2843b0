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
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCheckMinuteScenario(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 60; i++ {
		d := l.Check("1.2.3.4:minute", 60, time.Minute)
		require.True(t, d.Allowed, "call %d should be admitted", i+1)
		assert.Equal(t, 59-i, d.Remaining)
	}

	d := l.Check("1.2.3.4:minute", 60, time.Minute)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestCheckWindowSlides(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	require.True(t, l.Check("k", 3, time.Minute).Allowed)
	clock.Advance(10 * time.Second)
	require.True(t, l.Check("k", 3, time.Minute).Allowed)
	require.True(t, l.Check("k", 3, time.Minute).Allowed)
	require.False(t, l.Check("k", 3, time.Minute).Allowed)

	// Oldest stamp sits exactly on the boundary: not strictly newer, so it is dropped.
	clock.Advance(50 * time.Second)
	d := l.Check("k", 3, time.Minute)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	assert.False(t, l.Check("k", 3, time.Minute).Allowed)
}

func TestRejectionsDoNotConsumeQuota(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		require.True(t, l.Check("k", 5, time.Minute).Allowed)
	}
	for i := 0; i < 20; i++ {
		clock.Advance(time.Second)
		require.False(t, l.Check("k", 5, time.Minute).Allowed)
	}

	clock.Advance(time.Minute)
	admitted := 0
	for i := 0; i < 10; i++ {
		if l.Check("k", 5, time.Minute).Allowed {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted)
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()

	require.True(t, l.Check("a:minute", 1, time.Minute).Allowed)
	require.False(t, l.Check("a:minute", 1, time.Minute).Allowed)

	assert.True(t, l.Check("b:minute", 1, time.Minute).Allowed)
	assert.True(t, l.Check("a:hour", 1, time.Hour).Allowed)
	assert.Equal(t, 3, l.Keys())
}

func TestNonPositiveLimitRejects(t *testing.T) {
	l := New()
	d := l.Check("k", 0, time.Minute)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, l.Keys())
}

func TestCheckConcurrentSameKey(t *testing.T) {
	l := New()

	const (
		limit   = 100
		workers = 16
		perWork = 50
	)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				if l.Check("shared", limit, time.Hour).Allowed {
					admitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
}

func TestCheckConcurrentDistinctKeys(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("client-%d", w)
			for i := 0; i < 10; i++ {
				assert.True(t, l.Check(key, 10, time.Minute).Allowed)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 8, l.Keys())
}

func TestRemainingDoesNotRecord(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	assert.Equal(t, 5, l.Remaining("k:hour", 5, time.Hour))
	assert.Equal(t, 0, l.Keys())

	l.Check("k:hour", 5, time.Hour)
	l.Check("k:hour", 5, time.Hour)
	assert.Equal(t, 3, l.Remaining("k:hour", 5, time.Hour))
	assert.Equal(t, 3, l.Remaining("k:hour", 5, time.Hour))

	clock.Advance(time.Hour)
	assert.Equal(t, 5, l.Remaining("k:hour", 5, time.Hour))
}

func TestReleaseWithdrawsAdmission(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	first := l.Check("k:minute", 2, time.Minute)
	clock.Advance(time.Second)
	second := l.Check("k:minute", 2, time.Minute)
	require.True(t, second.Allowed)
	assert.False(t, l.Check("k:minute", 2, time.Minute).Allowed)

	assert.True(t, l.Release("k:minute", second.At))
	assert.Equal(t, 1, l.Remaining("k:minute", 2, time.Minute))
	assert.False(t, l.Release("k:minute", second.At))

	// Releasing the older stamp keeps later ones in order.
	third := l.Check("k:minute", 2, time.Minute)
	require.True(t, third.Allowed)
	assert.True(t, l.Release("k:minute", first.At))
	assert.Equal(t, 1, l.Remaining("k:minute", 2, time.Minute))

	assert.False(t, l.Release("unknown", third.At))
	assert.False(t, l.Release("k:minute", time.Time{}))
	assert.Equal(t, 1, l.Keys())
}
