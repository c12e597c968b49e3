// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package throttle provides the two process-local admission controls used
// by the harvester: a Limiter that spaces outbound requests and caps open
// connections, and a Gate that caps concurrent download workers.
package throttle

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting gate sized to the maximum number of parallel
// outbound connections. Every guarded call sleeps the configured interval
// while holding its slot, then runs. A nil *Limiter runs calls unguarded.
type Limiter struct {
	sem      *semaphore.Weighted
	interval time.Duration
	sleep    func(context.Context, time.Duration) error
}

// NewLimiter returns a Limiter with maxConns slots (at least one) and the
// given inter-request interval.
func NewLimiter(maxConns int, interval time.Duration) *Limiter {
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(max(maxConns, 1))),
		interval: interval,
		sleep:    sleepCtx,
	}
}

// Interval returns the configured delay.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Do acquires a slot, sleeps the interval, and calls fn. The slot is
// released when fn returns or panics. Errors from acquisition or from the
// sleep (context cancellation) are returned without calling fn.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	if l.interval > 0 {
		if err := l.sleep(ctx, l.interval); err != nil {
			return err
		}
	}
	return fn(ctx)
}

// Gate caps how many guarded operations run at once.
type Gate struct {
	sem  *semaphore.Weighted
	size int
}

// NewGate returns a Gate with n slots (at least one).
func NewGate(n int) *Gate {
	n = max(n, 1)
	return &Gate{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size returns the number of slots.
func (g *Gate) Size() int { return g.size }

// Acquire blocks until a slot is free or ctx is done. It fails once ctx is
// done even when a slot is free. The returned release func must be called;
// calling it more than once is a no-op.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		g.sem.Release(1)
		return nil, err
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.sem.Release(1)
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
