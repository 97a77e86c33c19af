package gate_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teei/docgate/internal/domain/gate"
)

func newLockManager() *gate.LockManager {
	return gate.NewLockManager(gate.LockManagerConfig{})
}

func TestLockManager_MutualExclusion(t *testing.T) {
	lm := newLockManager()
	ctx := context.Background()

	var active int32
	var violations int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1"})
			if err != nil {
				atomic.AddInt32(&violations, 1)
				return
			}
			if atomic.AddInt32(&active, 1) != 1 {
				atomic.AddInt32(&violations, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			lm.Release(ticket)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&violations), "two holders observed the lock simultaneously")
	assert.Zero(t, lm.QueueDepth())
}

func TestLockManager_FIFOFairness(t *testing.T) {
	lm := newLockManager()
	ctx := context.Background()

	holder, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "holder"})
	require.NoError(t, err)

	var mu sync.Mutex
	var grantOrder []int
	var wg sync.WaitGroup

	// Enqueue waiters one at a time so arrival order is deterministic.
	for i := 0; i < 5; i++ {
		before := lm.QueueDepth()
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, acquireErr := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1"})
			require.NoError(t, acquireErr)
			mu.Lock()
			grantOrder = append(grantOrder, i)
			mu.Unlock()
			// Slow waiters must not lose their turn to fast later arrivals.
			time.Sleep(time.Duration(5-i) * time.Millisecond)
			lm.Release(ticket)
		}()
		require.Eventually(t, func() bool { return lm.QueueDepth() == before+1 },
			time.Second, time.Millisecond)
	}

	lm.Release(holder)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, grantOrder)
}

func TestLockManager_MaxWaitTimesOut(t *testing.T) {
	lm := newLockManager()
	ctx := context.Background()

	holder, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "holder"})
	require.NoError(t, err)
	defer lm.Release(holder)

	ticket, err := lm.Acquire(ctx, gate.AcquireRequest{
		ResourceID: "doc-1",
		WaiterID:   "late",
		MaxWait:    30 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Nil(t, ticket)
	assert.Equal(t, gate.FailureLockTimeout, gate.KindOf(err))
	// The timed-out waiter must be gone from the queue.
	assert.Zero(t, lm.QueueDepth())
}

func TestLockManager_ReleaseIsIdempotent(t *testing.T) {
	lm := newLockManager()
	ctx := context.Background()

	first, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "a"})
	require.NoError(t, err)

	done := make(chan *gate.Ticket, 1)
	go func() {
		second, acquireErr := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "b"})
		require.NoError(t, acquireErr)
		done <- second
	}()
	require.Eventually(t, func() bool { return lm.QueueDepth() == 1 }, time.Second, time.Millisecond)

	lm.Release(first)
	// A second release of the same ticket must not steal the lock from "b".
	lm.Release(first)

	second := <-done
	owner, held := lm.Holder("doc-1")
	assert.True(t, held)
	assert.Equal(t, "b", owner)
	lm.Release(second)

	_, held = lm.Holder("doc-1")
	assert.False(t, held)
}

func TestLockManager_HandoffIsAtomic(t *testing.T) {
	lm := newLockManager()
	ctx := context.Background()

	first, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "a"})
	require.NoError(t, err)

	granted := make(chan struct{})
	go func() {
		ticket, acquireErr := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "b"})
		require.NoError(t, acquireErr)
		close(granted)
		lm.Release(ticket)
	}()
	require.Eventually(t, func() bool { return lm.QueueDepth() == 1 }, time.Second, time.Millisecond)

	lm.Release(first)
	<-granted

	// The lock was handed directly to "b"; it was never observably free
	// while a waiter was queued.
	owner, held := lm.Holder("doc-1")
	if held {
		assert.Equal(t, "b", owner)
	}
}

func TestLockManager_CancellationRemovesWaiter(t *testing.T) {
	lm := newLockManager()
	ctx := context.Background()

	holder, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "holder"})
	require.NoError(t, err)

	waitCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		_, acquireErr := lm.Acquire(waitCtx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "quitter"})
		errCh <- acquireErr
	}()
	require.Eventually(t, func() bool { return lm.QueueDepth() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.Zero(t, lm.QueueDepth(), "cancelled waiter left an orphan in the queue")

	lm.Release(holder)
	_, held := lm.Holder("doc-1")
	assert.False(t, held, "idle lock should be garbage-collected")
}

func TestLockManager_IndependentResourcesDoNotContend(t *testing.T) {
	lm := newLockManager()
	ctx := context.Background()

	a, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "a"})
	require.NoError(t, err)
	defer lm.Release(a)

	b, err := lm.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-2", WaiterID: "b", MaxWait: 10 * time.Millisecond})
	require.NoError(t, err, "a busy doc-1 must not block doc-2")
	lm.Release(b)
}
