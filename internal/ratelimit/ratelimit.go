// Package ratelimit provides a global minimum-interval limiter for calls to
// the external classification service.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// IntervalLimiter spaces call-starts so that no two admitted calls begin
// less than the configured interval apart, measured globally across all
// concurrent callers.
//
// Acquire reserves the caller's slot inside a mutex-guarded critical
// section before sleeping. A naive read-then-sleep-then-write would let two
// callers read the same stale last-call timestamp and both proceed
// immediately; reserving first makes the check-and-update atomic, so
// concurrent callers queue behind monotonically increasing slots.
type IntervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time // earliest start time of the next admitted call

	now   func() time.Time           // injectable for tests
	sleep func(context.Context, time.Duration) error
}

// PerMinute returns a limiter admitting at most rpm call-starts per minute.
// rpm values below 1 are treated as 1.
func PerMinute(rpm int) *IntervalLimiter {
	if rpm < 1 {
		rpm = 1
	}
	return NewIntervalLimiter(time.Minute / time.Duration(rpm))
}

// NewIntervalLimiter returns a limiter with a fixed minimum spacing between
// admitted call-starts.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Interval returns the configured minimum spacing.
func (l *IntervalLimiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until the caller may start the next external call, then
// returns with that slot reserved. Returns the context's error if it is
// cancelled while waiting; the reserved slot is not released in that case,
// which only delays later callers by one interval.
func (l *IntervalLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	if wait := slot.Sub(now); wait > 0 {
		return l.sleep(ctx, wait)
	}
	return ctx.Err()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
