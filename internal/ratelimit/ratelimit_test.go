package ratelimit

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter deterministically: sleeping advances the
// clock instead of blocking, and each Acquire records the time its slot
// started.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

func newFakeLimiter(interval time.Duration) (*IntervalLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := NewIntervalLimiter(interval)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestPerMinuteInterval(t *testing.T) {
	assert.Equal(t, time.Second, PerMinute(60).Interval())
	assert.Equal(t, 50*time.Millisecond, PerMinute(1200).Interval())
	assert.Equal(t, time.Minute, PerMinute(0).Interval())
}

func TestAcquire_FirstCallImmediate(t *testing.T) {
	l, clock := newFakeLimiter(time.Second)
	start := clock.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.Equal(t, start, clock.Now())
}

func TestAcquire_SequentialSpacing(t *testing.T) {
	l, clock := newFakeLimiter(100 * time.Millisecond)
	start := clock.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	// Four waits of 100ms follow the immediate first admission.
	assert.Equal(t, 400*time.Millisecond, clock.Now().Sub(start))
}

// TestAcquire_ConcurrentSpacing hammers a real-clock limiter from many
// goroutines and asserts every pair of consecutive admitted call-starts is
// at least the interval apart.
func TestAcquire_ConcurrentSpacing(t *testing.T) {
	const (
		callers  = 8
		interval = 5 * time.Millisecond
	)
	l := NewIntervalLimiter(interval)

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, starts, callers)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// Allow a small scheduling tolerance below the nominal interval.
		assert.GreaterOrEqual(t, gap, interval-2*time.Millisecond,
			"admissions %d and %d too close: %v", i-1, i, gap)
	}
}

func TestAcquire_CancelledContext(t *testing.T) {
	l := NewIntervalLimiter(time.Hour)
	ctx := context.Background()

	// First admission is immediate even with a huge interval.
	require.NoError(t, l.Acquire(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err := l.Acquire(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
