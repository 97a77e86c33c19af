package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// BackoffStrategy names how retry delays grow between attempts.
type BackoffStrategy string

const (
	// BackoffFixed waits the same base delay before every retry.
	BackoffFixed BackoffStrategy = "fixed"
	// BackoffExponential doubles the delay each retry, capped at BackoffCap.
	BackoffExponential BackoffStrategy = "exponential"
)

// DefaultPolicyKind is the policy applied to unknown operation kinds.
const DefaultPolicyKind = "default"

// OperationPolicy is the immutable timeout/retry configuration for one
// operation kind.
type OperationPolicy struct {
	Kind        string
	Timeout     time.Duration
	MaxRetries  int
	Backoff     BackoffStrategy
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// sanitize fills zero values with workable defaults.
func (p OperationPolicy) sanitize() OperationPolicy {
	if p.Timeout <= 0 {
		p.Timeout = 15 * time.Second
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff != BackoffExponential {
		p.Backoff = BackoffFixed
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = 250 * time.Millisecond
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = 5 * time.Second
	}
	return p
}

// PolicyEngine executes operations under per-kind timeout and retry budgets.
// Retries apply only to failures the job explicitly marked Retryable;
// timeouts and validation failures are never auto-retried.
type PolicyEngine struct {
	policies map[string]OperationPolicy
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// PolicyEngineOptions groups constructor dependencies.
type PolicyEngineOptions struct {
	Policies []OperationPolicy
	// Sleep is injectable for tests; nil uses a context-aware timer.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// NewPolicyEngine builds an engine from the given policies, guaranteeing a
// usable default policy exists.
func NewPolicyEngine(opts PolicyEngineOptions) *PolicyEngine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	policies := make(map[string]OperationPolicy, len(opts.Policies)+1)
	for _, p := range opts.Policies {
		if p.Kind == "" {
			continue
		}
		policies[p.Kind] = p.sanitize()
	}
	if _, ok := policies[DefaultPolicyKind]; !ok {
		policies[DefaultPolicyKind] = OperationPolicy{Kind: DefaultPolicyKind}.sanitize()
	}

	return &PolicyEngine{
		policies: policies,
		sleep:    sleep,
		logger:   logger,
	}
}

// Lookup returns the policy for kind, falling back to the default policy.
func (e *PolicyEngine) Lookup(kind string) OperationPolicy {
	if p, ok := e.policies[kind]; ok {
		return p
	}
	return e.policies[DefaultPolicyKind]
}

// Run executes op under the policy for kind. Each attempt gets a hard
// wall-clock timeout; exceeding it cancels the attempt and surfaces a
// compute_timeout failure that is never retried. When the retry budget runs
// out, the last underlying failure is returned, not a synthesized wrapper.
func (e *PolicyEngine) Run(ctx context.Context, kind string, op func(context.Context) error) error {
	if op == nil {
		return errors.New("operation is required")
	}
	pol := e.Lookup(kind)
	attempts := pol.MaxRetries + 1

	var lastErr error
	for attempt := range attempts {
		err := e.attempt(ctx, pol, op)
		if err == nil {
			return nil
		}
		lastErr = err

		if KindOf(err) == FailureComputeTimeout {
			return err
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := backoffDelay(pol, attempt)
		e.logger.DebugContext(ctx, "retrying operation",
			"kind", pol.Kind,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

func (e *PolicyEngine) attempt(ctx context.Context, pol OperationPolicy, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, pol.Timeout)
	defer cancel()

	err := op(attemptCtx)
	if err == nil {
		return nil
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return NewFailure(FailureComputeTimeout,
			fmt.Errorf("%s attempt exceeded %s: %w", pol.Kind, pol.Timeout, err))
	}
	return err
}

// backoffDelay is monotonically non-decreasing in attempt.
func backoffDelay(pol OperationPolicy, attempt int) time.Duration {
	if pol.Backoff != BackoffExponential {
		return pol.BackoffBase
	}
	delay := pol.BackoffBase
	for range attempt {
		delay *= 2
		if delay >= pol.BackoffCap {
			return pol.BackoffCap
		}
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
