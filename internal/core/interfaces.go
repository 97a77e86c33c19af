package core

import (
	"context"
	"errors"
	"time"

	"github.com/teei/docgate/internal/domain/gate"
)

// This file contains the gate's outbound interface definitions (ports in
// hexagonal architecture). The service layer depends on these contracts, not
// on concrete adapters.

// ErrOutcomeNotFound is returned by OutcomeStore.Get when no outcome is
// recorded for the request key.
var ErrOutcomeNotFound = errors.New("outcome not found")

// BackendExecutor runs one job body against the document publishing backend
// and reports the artifact it produced. Implementations mark transient
// failures with gate.Retryable; anything else is treated as terminal.
type BackendExecutor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*gate.ArtifactRef, error)
}

// ExecuteRequest groups the parameters for BackendExecutor.Execute.
type ExecuteRequest struct {
	JobID         string
	ResourceID    string
	OperationKind string
	JobBody       []byte
}

// SaveOutcomeParams groups the parameters for OutcomeStore.Save.
type SaveOutcomeParams struct {
	Key     string
	Outcome *gate.Outcome
	TTL     time.Duration
}

// OutcomeStore persists finished outcomes keyed by request key so duplicate
// submissions survive a process restart. It backs the in-memory idempotency
// cache; a store miss simply means the job runs.
type OutcomeStore interface {
	Save(ctx context.Context, params SaveOutcomeParams) error
	// Get returns ErrOutcomeNotFound when the key has no live outcome.
	Get(ctx context.Context, key string) (*gate.Outcome, error)
}

// ScorecardArchiver records finished scorecards for audit and reporting.
// Archiving is best effort; failures never change the gate verdict.
type ScorecardArchiver interface {
	Archive(ctx context.Context, card *gate.Scorecard) error
	GetByJobID(ctx context.Context, jobID string) (*gate.Scorecard, error)
	ListRecent(ctx context.Context, limit int) ([]*gate.Scorecard, error)
}

// FailureNotifier delivers failed-outcome notifications to an external
// channel, e.g. a webhook. Delivery is best effort.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, outcome *gate.Outcome) error
}
