// Package gate implements the job execution and validation gate for the
// docgate document generation platform: exclusive queued access to a target
// document, request deduplication, timeout/retry policy around the publishing
// backend, and a tiered quality-validation pipeline that renders a single
// pass/fail scorecard.
package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ArtifactRef identifies an artifact produced by the publishing backend.
// The gate never opens the artifact itself; tier analyzers do.
type ArtifactRef struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Format string `json:"format,omitempty"`
}

// ValidationSpec describes how a produced artifact should be validated.
type ValidationSpec struct {
	// Dimensions lists the quality axes to score, e.g. "structure",
	// "appearance", "layout-semantics".
	Dimensions []Dimension `json:"dimensions"`
	// Weights assigns a relative weight per dimension. When empty, dimensions
	// are weighted equally. Weights are renormalized over the scored subset
	// before the composite score is computed.
	Weights map[Dimension]float64 `json:"weights,omitempty"`
	// HardFailRules are absolute per-dimension conditions that force a fail
	// verdict regardless of the composite score.
	HardFailRules []HardFailRule `json:"hard_fail_rules,omitempty"`
}

// Request is a single logical generation request submitted to the gate.
type Request struct {
	// RequestKey deduplicates logically identical submissions: a resubmission
	// within the idempotency window returns the stored outcome without
	// re-executing the job body.
	RequestKey string `json:"request_key"`
	// ResourceID names the document the job needs exclusive access to.
	ResourceID string `json:"resource_id"`
	// OperationKind selects the timeout/retry policy, e.g. "create", "export".
	// Unknown kinds fall back to the default policy.
	OperationKind string `json:"operation_kind"`
	// JobBody is the opaque payload handed to the backend executor.
	JobBody json.RawMessage `json:"job_body"`
	// Validation configures the tiered validation run on the artifact.
	Validation ValidationSpec `json:"validation"`
	// Threshold is the minimum composite score for a pass verdict.
	Threshold float64 `json:"threshold"`
	// MaxLockWait optionally overrides the service-wide lock wait budget.
	MaxLockWait time.Duration `json:"-"`
}

// Validate checks the request invariants before submission.
func (r *Request) Validate() error {
	if r.RequestKey == "" {
		return errors.New("request_key is required")
	}
	if r.ResourceID == "" {
		return errors.New("resource_id is required")
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return errors.New("threshold must be between 0 and 1")
	}
	if len(r.Validation.Dimensions) == 0 {
		return errors.New("validation dimensions are required")
	}
	seen := make(map[Dimension]struct{}, len(r.Validation.Dimensions))
	for _, dim := range r.Validation.Dimensions {
		if dim == "" {
			return errors.New("validation dimensions must not be empty")
		}
		if _, dup := seen[dim]; dup {
			return fmt.Errorf("duplicate validation dimension %q", dim)
		}
		seen[dim] = struct{}{}
	}
	for dim, w := range r.Validation.Weights {
		if w < 0 {
			return fmt.Errorf("weight for dimension %q must not be negative", dim)
		}
	}
	for _, rule := range r.Validation.HardFailRules {
		if rule.Dimension == "" {
			return errors.New("hard-fail rules require a dimension")
		}
		if rule.Below < 0 || rule.Below > 1 {
			return fmt.Errorf("hard-fail floor for dimension %q must be between 0 and 1", rule.Dimension)
		}
	}
	return nil
}

// Outcome is the caller-visible result of a submission. A fail verdict or a
// coordination failure is reported through Verdict/FailureKind, never as a
// bare error string.
type Outcome struct {
	JobID         string       `json:"job_id,omitempty"`
	RequestKey    string       `json:"request_key"`
	ResourceID    string       `json:"resource_id"`
	Verdict       Verdict      `json:"verdict,omitempty"`
	Scorecard     *Scorecard   `json:"scorecard,omitempty"`
	Artifact      *ArtifactRef `json:"artifact,omitempty"`
	TimingMS      int64        `json:"timing_ms"`
	FailureKind   FailureKind  `json:"failure_kind,omitempty"`
	FailureDetail string       `json:"failure_detail,omitempty"`
}

// Failed reports whether the outcome carries any failure kind.
func (o *Outcome) Failed() bool {
	return o != nil && o.FailureKind != ""
}
