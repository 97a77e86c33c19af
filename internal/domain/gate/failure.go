package gate

import (
	"errors"
	"fmt"
)

// FailureKind tags the distinct ways a gated request can fail. Callers branch
// on the kind, never on error strings.
type FailureKind string

const (
	// FailureLockTimeout indicates the target resource stayed busy beyond the
	// caller's wait budget. The job body was never executed.
	FailureLockTimeout FailureKind = "lock_timeout"
	// FailureComputeTimeout indicates the shared idempotent computation (the
	// job body under its operation policy) exceeded its deadline.
	FailureComputeTimeout FailureKind = "compute_timeout"
	// FailureTierTimeout indicates a validation tier call exceeded its
	// deadline. Recorded on tier results; it only surfaces at request level
	// when every tier of a dimension is down and configuration says so.
	FailureTierTimeout FailureKind = "tier_timeout"
	// FailureExecution indicates the backend executor returned a terminal
	// error after the retry budget was exhausted.
	FailureExecution FailureKind = "execution_failed"
	// FailureHardFail indicates a hard-fail rule forced the fail verdict.
	FailureHardFail FailureKind = "hard_fail"
	// FailureThreshold indicates the composite score fell below the
	// caller-supplied threshold with no hard failure triggered.
	FailureThreshold FailureKind = "threshold_fail"
)

// Failure is an error carrying a FailureKind. It wraps the root cause so
// errors.Is/As keep working through it.
type Failure struct {
	Kind  FailureKind
	Cause error
}

// NewFailure builds a Failure of the given kind wrapping cause.
func NewFailure(kind FailureKind, cause error) *Failure {
	return &Failure{Kind: kind, Cause: cause}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
	}
	return string(f.Kind)
}

// Unwrap returns the root cause.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// KindOf extracts the FailureKind from err, or "" when err carries none.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// retryableError marks an error as safe to retry under an operation policy.
type retryableError struct {
	err error
}

func (r *retryableError) Error() string { return r.err.Error() }
func (r *retryableError) Unwrap() error { return r.err }

// Retryable marks err as a transient failure the policy engine may retry.
// Only the job body decides what is transient; the engine never guesses.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}
