package gate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// LockManager grants exclusive, queued access to named resources. Waiters on
// the same resource are served strictly in arrival order; releasing hands the
// lock to the next waiter without an observable free window. Each resource is
// synchronized independently; unrelated resources never contend.
type LockManager struct {
	mu    sync.Mutex
	table map[string]*lockState
	now   func() time.Time
}

// LockManagerConfig groups constructor options.
type LockManagerConfig struct {
	Now func() time.Time
}

// NewLockManager creates an empty lock table.
func NewLockManager(cfg LockManagerConfig) *LockManager {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &LockManager{
		table: make(map[string]*lockState),
		now:   nowFn,
	}
}

type lockState struct {
	mu      sync.Mutex
	held    bool
	owner   string
	heldAt  time.Time
	waiters []*lockWaiter
	// dead marks a state removed from the table; acquirers that raced the
	// removal retry against a fresh entry.
	dead bool
}

type lockWaiter struct {
	id      string
	ready   chan struct{}
	granted bool
}

// Ticket proves ownership of a resource lock. Release is idempotent.
type Ticket struct {
	resourceID string
	ownerID    string
	acquiredAt time.Time
	released   atomic.Bool
}

// ResourceID returns the locked resource's identifier.
func (t *Ticket) ResourceID() string { return t.resourceID }

// OwnerID returns the waiter the lock was granted to.
func (t *Ticket) OwnerID() string { return t.ownerID }

// AcquiredAt returns the grant time.
func (t *Ticket) AcquiredAt() time.Time { return t.acquiredAt }

// AcquireRequest groups the parameters for Acquire.
type AcquireRequest struct {
	ResourceID string
	WaiterID   string
	// MaxWait bounds the queue wait. Zero means the caller only gives up when
	// its context does.
	MaxWait time.Duration
}

// Acquire obtains the exclusive lock for the requested resource, queuing
// behind earlier waiters. Exceeding MaxWait yields a lock_timeout failure;
// caller cancellation removes the waiter from the queue cleanly.
func (m *LockManager) Acquire(ctx context.Context, req AcquireRequest) (*Ticket, error) {
	if req.ResourceID == "" {
		return nil, errors.New("resource id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for {
		st := m.state(req.ResourceID)
		st.mu.Lock()
		if st.dead {
			st.mu.Unlock()
			// The entry was garbage-collected between lookup and lock; retry
			// against the fresh table entry.
			runtime.Gosched()
			continue
		}
		if !st.held && len(st.waiters) == 0 {
			st.held = true
			st.owner = req.WaiterID
			st.heldAt = m.now()
			st.mu.Unlock()
			return m.newTicket(req), nil
		}
		w := &lockWaiter{id: req.WaiterID, ready: make(chan struct{})}
		st.waiters = append(st.waiters, w)
		st.mu.Unlock()
		return m.wait(ctx, req, st, w)
	}
}

func (m *LockManager) wait(ctx context.Context, req AcquireRequest, st *lockState, w *lockWaiter) (*Ticket, error) {
	waitCtx := ctx
	cancel := func() {}
	if req.MaxWait > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, req.MaxWait)
	}
	defer cancel()

	select {
	case <-w.ready:
		return m.newTicket(req), nil
	case <-waitCtx.Done():
	}

	st.mu.Lock()
	granted := w.granted
	if !granted {
		for i, cand := range st.waiters {
			if cand == w {
				st.waiters = append(st.waiters[:i], st.waiters[i+1:]...)
				break
			}
		}
	}
	st.mu.Unlock()

	if granted {
		// The grant raced our timeout; hand the lock straight to the next
		// waiter so nobody starves behind an abandoned ticket.
		m.Release(m.newTicket(req))
	}

	err := waitCtx.Err()
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, NewFailure(FailureLockTimeout,
			fmt.Errorf("resource %s still busy after %s", req.ResourceID, req.MaxWait))
	}
	return nil, err
}

// Release returns the lock, granting it atomically to the next queued waiter.
// Releasing an already-released ticket is a no-op.
func (m *LockManager) Release(t *Ticket) {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	st, ok := m.table[t.resourceID]
	m.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	if len(st.waiters) > 0 {
		next := st.waiters[0]
		st.waiters = st.waiters[1:]
		next.granted = true
		st.owner = next.id
		st.heldAt = m.now()
		close(next.ready)
		st.mu.Unlock()
		return
	}
	st.held = false
	st.owner = ""
	st.dead = true
	st.mu.Unlock()

	m.mu.Lock()
	if cur, live := m.table[t.resourceID]; live && cur == st {
		delete(m.table, t.resourceID)
	}
	m.mu.Unlock()
}

// QueueDepth returns the number of waiters currently queued across all
// resources. Serves the metrics aggregator's live gauge.
func (m *LockManager) QueueDepth() int {
	m.mu.Lock()
	states := make([]*lockState, 0, len(m.table))
	for _, st := range m.table {
		states = append(states, st)
	}
	m.mu.Unlock()

	depth := 0
	for _, st := range states {
		st.mu.Lock()
		depth += len(st.waiters)
		st.mu.Unlock()
	}
	return depth
}

// Holder reports the current owner of a resource lock, if any.
func (m *LockManager) Holder(resourceID string) (string, bool) {
	m.mu.Lock()
	st, ok := m.table[resourceID]
	m.mu.Unlock()
	if !ok {
		return "", false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.held {
		return "", false
	}
	return st.owner, true
}

func (m *LockManager) state(resourceID string) *lockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.table[resourceID]
	if !ok {
		st = &lockState{}
		m.table[resourceID] = st
	}
	return st
}

func (m *LockManager) newTicket(req AcquireRequest) *Ticket {
	return &Ticket{
		resourceID: req.ResourceID,
		ownerID:    req.WaiterID,
		acquiredAt: m.now(),
	}
}
