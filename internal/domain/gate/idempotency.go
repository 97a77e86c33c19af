package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultIdempotencyTTL = 5 * time.Minute
	defaultSweepInterval  = time.Minute
)

// IdempotencyCache maps a caller-supplied request key to a previously computed
// result for a bounded window, so retried or duplicate submissions never
// re-execute side effects. Concurrent callers sharing a key block on one
// in-flight computation instead of double-executing.
type IdempotencyCache struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*idemEntry
	ttl     time.Duration
	sweep   time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type idemEntry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// IdempotencyCacheConfig groups constructor options.
type IdempotencyCacheConfig struct {
	// TTL is the default entry lifetime. Zero means 5 minutes.
	TTL time.Duration
	// SweepInterval controls the background expiry sweep cadence.
	SweepInterval time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewIdempotencyCache creates an empty cache with the given config.
func NewIdempotencyCache(cfg IdempotencyCacheConfig) *IdempotencyCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCache{
		entries: make(map[string]*idemEntry),
		ttl:     ttl,
		sweep:   sweep,
		now:     nowFn,
		logger:  logger,
	}
}

// ComputeRequest groups the parameters for Do.
type ComputeRequest struct {
	Key string
	// TTL overrides the cache default for this entry. Zero uses the default.
	TTL time.Duration
	Fn  func(ctx context.Context) (any, error)
}

// Do returns the stored result for Key when a live entry exists. Otherwise it
// runs Fn exactly once across all concurrent callers sharing the key and
// stores the result on success. The second return reports whether the result
// came from the cache.
//
// A caller whose deadline expires while waiting receives a compute_timeout
// failure; the shared computation keeps running for the remaining callers.
// Errors from Fn propagate to every waiter of that flight but are never
// stored, so a later submission retries the work.
func (c *IdempotencyCache) Do(ctx context.Context, req ComputeRequest) (any, bool, error) {
	if req.Key == "" {
		return nil, false, errors.New("request key is required")
	}
	if req.Fn == nil {
		return nil, false, errors.New("compute function is required")
	}

	if v, ok := c.lookup(req.Key); ok {
		return v, true, nil
	}

	ch := c.group.DoChan(req.Key, func() (any, error) {
		// The computation is shared between callers; detach it from any single
		// caller's cancellation.
		v, err := req.Fn(context.WithoutCancel(ctx))
		if err == nil {
			c.store(req.Key, v, req.TTL)
		}
		return v, err
	})

	select {
	case res := <-ch:
		return res.Val, false, res.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, false, NewFailure(FailureComputeTimeout,
				fmt.Errorf("computation for key %s outlived caller deadline: %w", req.Key, ctx.Err()))
		}
		return nil, false, ctx.Err()
	}
}

// Evict removes the entry for key, allowing the key to be reused immediately.
func (c *IdempotencyCache) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *IdempotencyCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live plus not-yet-swept entries.
func (c *IdempotencyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RunSweeper periodically sweeps expired entries until ctx is done. Intended
// to run as a background goroutine owned by the service runtime.
func (c *IdempotencyCache) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.DebugContext(ctx, "idempotency cache swept", "evicted", n)
			}
		}
	}
}

// lookup returns a live entry, lazily dropping it when expired.
func (c *IdempotencyCache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *IdempotencyCache) store(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &idemEntry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}
