package gate_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teei/docgate/internal/domain/gate"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
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

func TestIdempotencyCache_ComputesExactlyOnceUnderConcurrency(t *testing.T) {
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{})
	ctx := context.Background()

	var calls int32
	fn := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "result", nil
	}

	var wg sync.WaitGroup
	var mismatches int32
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
			if err != nil || v != "result" {
				atomic.AddInt32(&mismatches, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "duplicate submissions re-executed the job body")
	assert.Zero(t, atomic.LoadInt32(&mismatches))
}

func TestIdempotencyCache_ReturnsCachedResult(t *testing.T) {
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{})
	ctx := context.Background()

	var calls int32
	fn := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	}

	v, cached, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 42, v)

	v, cached, err = cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyCache_ExpiredEntryRecomputes(t *testing.T) {
	clock := newFakeClock()
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{
		TTL: 100 * time.Millisecond,
		Now: clock.Now,
	})
	ctx := context.Background()

	var calls int32
	fn := func(context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	v, _, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	clock.Advance(101 * time.Millisecond)

	v, cached, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), v, "key should be reusable after the window lapses")
}

func TestIdempotencyCache_ErrorsAreNotCached(t *testing.T) {
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{})
	ctx := context.Background()

	var calls int32
	fn := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("transient coordination failure")
	}

	_, _, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.Error(t, err)
	_, _, err = cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.Error(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "a failed flight must not poison the key")
	assert.Zero(t, cache.Len())
}

func TestIdempotencyCache_WaiterDeadlineYieldsComputeTimeout(t *testing.T) {
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{})

	var calls int32
	started := make(chan struct{})
	fn := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		time.Sleep(150 * time.Millisecond)
		return "late", nil
	}

	patientDone := make(chan struct{})
	go func() {
		defer close(patientDone)
		v, _, err := cache.Do(context.Background(), gate.ComputeRequest{Key: "req-1", Fn: fn})
		assert.NoError(t, err)
		assert.Equal(t, "late", v)
	}()
	<-started

	hurried, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := cache.Do(hurried, gate.ComputeRequest{Key: "req-1", Fn: func(context.Context) (any, error) {
		t.Error("second caller must join the in-flight computation")
		return nil, errors.New("unexpected second flight")
	}})
	require.Error(t, err)
	assert.Equal(t, gate.FailureComputeTimeout, gate.KindOf(err))

	// The shared computation was not cancelled by the hurried caller.
	<-patientDone
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyCache_Evict(t *testing.T) {
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{})
	ctx := context.Background()

	var calls int32
	fn := func(context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	_, _, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.NoError(t, err)

	assert.True(t, cache.Evict("req-1"))
	assert.False(t, cache.Evict("req-1"))

	v, cached, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), v)
}

func TestIdempotencyCache_SweepDropsOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{
		TTL: time.Minute,
		Now: clock.Now,
	})
	ctx := context.Background()

	fn := func(context.Context) (any, error) { return "v", nil }
	_, _, err := cache.Do(ctx, gate.ComputeRequest{Key: "old", Fn: fn})
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	_, _, err = cache.Do(ctx, gate.ComputeRequest{Key: "fresh", Fn: fn})
	require.NoError(t, err)

	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, cache.Sweep())
	assert.Equal(t, 1, cache.Len())
}

func TestIdempotencyCache_PerRequestTTLOverride(t *testing.T) {
	clock := newFakeClock()
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{
		TTL: time.Hour,
		Now: clock.Now,
	})
	ctx := context.Background()

	var calls int32
	fn := func(context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	_, _, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", TTL: time.Second, Fn: fn})
	require.NoError(t, err)

	clock.Advance(2 * time.Second)

	v, cached, err := cache.Do(ctx, gate.ComputeRequest{Key: "req-1", Fn: fn})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), v)
}
