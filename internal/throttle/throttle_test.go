// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package throttle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peakTracker records the highest number of concurrent holders.
type peakTracker struct {
	cur, peak int32
}

func (p *peakTracker) enter() {
	n := atomic.AddInt32(&p.cur, 1)
	for {
		old := atomic.LoadInt32(&p.peak)
		if n <= old || atomic.CompareAndSwapInt32(&p.peak, old, n) {
			return
		}
	}
}

func (p *peakTracker) leave() { atomic.AddInt32(&p.cur, -1) }

func TestGate_CapsConcurrency(t *testing.T) {
	const ceiling = 3
	g := NewGate(ceiling)
	var tr peakTracker
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			tr.enter()
			time.Sleep(5 * time.Millisecond)
			tr.leave()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&tr.peak), int32(ceiling))
	assert.Equal(t, int32(0), atomic.LoadInt32(&tr.cur))
}

func TestGate_AcquireHonorsContext(t *testing.T) {
	g := NewGate(1)
	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	r2, err := g.Acquire(context.Background())
	require.NoError(t, err)
	r2()
}

func TestNewGate_MinimumOne(t *testing.T) {
	assert.Equal(t, 1, NewGate(0).Size())
	assert.Equal(t, 4, NewGate(4).Size())
}

func TestLimiter_SleepsWhileHoldingSlot(t *testing.T) {
	l := NewLimiter(2, 10*time.Millisecond)
	var slept int32
	l.sleep = func(context.Context, time.Duration) error {
		atomic.AddInt32(&slept, 1)
		return nil
	}

	var tr peakTracker
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(context.Background(), func(context.Context) error {
				tr.enter()
				time.Sleep(2 * time.Millisecond)
				tr.leave()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), atomic.LoadInt32(&slept))
	assert.LessOrEqual(t, atomic.LoadInt32(&tr.peak), int32(2))
}

func TestLimiter_RealDelay(t *testing.T) {
	l := NewLimiter(1, 15*time.Millisecond)
	start := time.Now()
	for i := 0; i < 2; i++ {
		require.NoError(t, l.Do(context.Background(), func(context.Context) error { return nil }))
	}
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestLimiter_ReleasesOnError(t *testing.T) {
	l := NewLimiter(1, 0)
	boom := errors.New("boom")
	assert.Equal(t, boom, l.Do(context.Background(), func(context.Context) error { return boom }))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, l.Do(ctx, func(context.Context) error { return nil }))
}

func TestLimiter_CancelledDuringSleep(t *testing.T) {
	l := NewLimiter(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := l.Do(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLimiter_NilRunsUnguarded(t *testing.T) {
	var l *Limiter
	called := false
	require.NoError(t, l.Do(context.Background(), func(context.Context) error { called = true; return nil }))
	assert.True(t, called)
	assert.Equal(t, time.Duration(0), l.Interval())
}
