package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/domain/gate"
	apperrors "github.com/teei/docgate/internal/errors"
	"github.com/teei/docgate/internal/observability/metrics"
)

const (
	defaultMaxLockWait = 2 * time.Second
	defaultOutcomeTTL  = 5 * time.Minute
)

// GateService orchestrates one submission end to end: idempotency lookup,
// exclusive resource locking, policy-bounded backend execution, tiered
// validation and the final gate decision. It is the only place the individual
// gate mechanisms are wired together.
type GateService struct {
	locks    *gate.LockManager
	cache    *gate.IdempotencyCache
	policies *gate.PolicyEngine
	pipeline *gate.Pipeline
	executor core.BackendExecutor

	outcomes core.OutcomeStore
	archiver core.ScorecardArchiver
	notifier core.FailureNotifier
	recorder *metrics.Recorder

	maxLockWait time.Duration
	outcomeTTL  time.Duration
	newID       func() string
	now         func() time.Time
	logger      *slog.Logger
}

// GateServiceOptions groups constructor dependencies. Locks, Cache, Policies,
// Pipeline and Executor are required; the rest are optional integrations.
type GateServiceOptions struct {
	Locks    *gate.LockManager
	Cache    *gate.IdempotencyCache
	Policies *gate.PolicyEngine
	Pipeline *gate.Pipeline
	Executor core.BackendExecutor

	// Outcomes persists finished outcomes across restarts. Optional.
	Outcomes core.OutcomeStore
	// Archiver records scorecards for audit. Optional, best effort.
	Archiver core.ScorecardArchiver
	// Notifier delivers failed outcomes to an external channel. Optional.
	Notifier core.FailureNotifier
	// Recorder aggregates latency and failure statistics. Optional.
	Recorder *metrics.Recorder

	// MaxLockWait is the wait budget applied when a request does not carry
	// its own. Zero means 2 seconds.
	MaxLockWait time.Duration
	// OutcomeTTL bounds how long stored outcomes deduplicate resubmissions.
	// Zero means 5 minutes.
	OutcomeTTL time.Duration
	NewID      func() string
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewGateService constructs the gate orchestrator.
func NewGateService(opts GateServiceOptions) (*GateService, error) {
	switch {
	case opts.Locks == nil:
		return nil, apperrors.Validation("lock manager is required")
	case opts.Cache == nil:
		return nil, apperrors.Validation("idempotency cache is required")
	case opts.Policies == nil:
		return nil, apperrors.Validation("policy engine is required")
	case opts.Pipeline == nil:
		return nil, apperrors.Validation("validation pipeline is required")
	case opts.Executor == nil:
		return nil, apperrors.Validation("backend executor is required")
	}

	maxLockWait := opts.MaxLockWait
	if maxLockWait <= 0 {
		maxLockWait = defaultMaxLockWait
	}
	outcomeTTL := opts.OutcomeTTL
	if outcomeTTL <= 0 {
		outcomeTTL = defaultOutcomeTTL
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GateService{
		locks:       opts.Locks,
		cache:       opts.Cache,
		policies:    opts.Policies,
		pipeline:    opts.Pipeline,
		executor:    opts.Executor,
		outcomes:    opts.Outcomes,
		archiver:    opts.Archiver,
		notifier:    opts.Notifier,
		recorder:    opts.Recorder,
		maxLockWait: maxLockWait,
		outcomeTTL:  outcomeTTL,
		newID:       newID,
		now:         nowFn,
		logger:      logger,
	}, nil
}

// Submit runs one generation request through the gate and returns its
// outcome. Failures of the job itself, terminal execution errors and fail
// verdicts included, are reported inside the Outcome; the error return is
// reserved for invalid requests and caller cancellation.
func (s *GateService) Submit(ctx context.Context, req *gate.Request) (*gate.Outcome, error) {
	if req == nil {
		return nil, apperrors.Validation("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid gate request")
	}

	start := s.now()

	if stored := s.storedOutcome(ctx, req.RequestKey); stored != nil {
		s.record(req.OperationKind, s.now().Sub(start), "dedup", false)
		return stored, nil
	}

	v, cached, err := s.cache.Do(ctx, gate.ComputeRequest{
		Key: req.RequestKey,
		TTL: s.outcomeTTL,
		Fn: func(runCtx context.Context) (any, error) {
			return s.run(runCtx, req)
		},
	})
	elapsed := s.now().Sub(start)

	if err != nil {
		if kind := gate.KindOf(err); kind != "" {
			outcome := &gate.Outcome{
				RequestKey:    req.RequestKey,
				ResourceID:    req.ResourceID,
				Verdict:       gate.VerdictFail,
				TimingMS:      elapsed.Milliseconds(),
				FailureKind:   kind,
				FailureDetail: err.Error(),
			}
			s.record(req.OperationKind, elapsed, string(kind), true)
			s.notifyFailure(ctx, outcome)
			return outcome, nil
		}
		return nil, err
	}

	outcome, ok := v.(*gate.Outcome)
	if !ok {
		return nil, apperrors.Internalf("unexpected cached value for key %s", req.RequestKey)
	}

	if cached {
		s.record(req.OperationKind, elapsed, "dedup", false)
		return outcome, nil
	}

	s.record(req.OperationKind, elapsed, outcomeLabel(outcome), outcome.Failed())
	s.saveOutcome(ctx, req.RequestKey, outcome)
	if outcome.Failed() {
		s.notifyFailure(ctx, outcome)
	}
	return outcome, nil
}

// run executes the job body under the resource lock and validates the
// produced artifact. Coordination failures return as errors so they are never
// cached; terminal results return as outcomes.
func (s *GateService) run(ctx context.Context, req *gate.Request) (*gate.Outcome, error) {
	jobID := s.newID()
	start := s.now()

	maxWait := req.MaxLockWait
	if maxWait <= 0 {
		maxWait = s.maxLockWait
	}

	ticket, err := s.locks.Acquire(ctx, gate.AcquireRequest{
		ResourceID: req.ResourceID,
		WaiterID:   jobID,
		MaxWait:    maxWait,
	})
	if err != nil {
		return nil, err
	}
	defer s.locks.Release(ticket)

	var artifact *gate.ArtifactRef
	execErr := s.policies.Run(ctx, req.OperationKind, func(attemptCtx context.Context) error {
		produced, execErr := s.executor.Execute(attemptCtx, core.ExecuteRequest{
			JobID:         jobID,
			ResourceID:    req.ResourceID,
			OperationKind: req.OperationKind,
			JobBody:       req.JobBody,
		})
		if execErr != nil {
			return execErr
		}
		artifact = produced
		return nil
	})
	if execErr != nil {
		if gate.KindOf(execErr) == gate.FailureComputeTimeout || ctx.Err() != nil {
			return nil, execErr
		}
		s.logger.WarnContext(ctx, "backend execution failed terminally",
			"job_id", jobID,
			"resource_id", req.ResourceID,
			"operation_kind", req.OperationKind,
			"error", execErr)
		return &gate.Outcome{
			JobID:         jobID,
			RequestKey:    req.RequestKey,
			ResourceID:    req.ResourceID,
			Verdict:       gate.VerdictFail,
			TimingMS:      s.now().Sub(start).Milliseconds(),
			FailureKind:   gate.FailureExecution,
			FailureDetail: execErr.Error(),
		}, nil
	}
	if artifact == nil {
		artifact = &gate.ArtifactRef{ID: jobID}
	}

	dimOutcomes := s.pipeline.Run(ctx, *artifact, req.Validation.Dimensions)
	card := gate.Decide(gate.DecideParams{
		JobID:         jobID,
		Outcomes:      dimOutcomes,
		Weights:       req.Validation.Weights,
		HardFailRules: req.Validation.HardFailRules,
		Threshold:     req.Threshold,
	})
	s.archiveScorecard(ctx, card)

	outcome := &gate.Outcome{
		JobID:      jobID,
		RequestKey: req.RequestKey,
		ResourceID: req.ResourceID,
		Verdict:    card.Verdict,
		Scorecard:  card,
		Artifact:   artifact,
		TimingMS:   s.now().Sub(start).Milliseconds(),
	}
	if card.Verdict == gate.VerdictFail {
		if len(card.HardFailures) > 0 {
			outcome.FailureKind = gate.FailureHardFail
			outcome.FailureDetail = card.HardFailures[0].Reason
		} else {
			outcome.FailureKind = gate.FailureThreshold
			outcome.FailureDetail = fmt.Sprintf("score %.4f below threshold %.4f",
				card.NormalizedScore, card.Threshold)
		}
	}
	return outcome, nil
}

// storedOutcome consults the durable outcome store. Misses and store errors
// both mean the job runs.
func (s *GateService) storedOutcome(ctx context.Context, key string) *gate.Outcome {
	if s.outcomes == nil {
		return nil
	}
	outcome, err := s.outcomes.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, core.ErrOutcomeNotFound) {
			s.logger.WarnContext(ctx, "outcome store lookup failed", "request_key", key, "error", err)
		}
		return nil
	}
	return outcome
}

func (s *GateService) saveOutcome(ctx context.Context, key string, outcome *gate.Outcome) {
	if s.outcomes == nil {
		return
	}
	err := s.outcomes.Save(ctx, core.SaveOutcomeParams{
		Key:     key,
		Outcome: outcome,
		TTL:     s.outcomeTTL,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "outcome store save failed", "request_key", key, "error", err)
	}
}

func (s *GateService) archiveScorecard(ctx context.Context, card *gate.Scorecard) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, card); err != nil {
		s.logger.WarnContext(ctx, "scorecard archive failed", "job_id", card.JobID, "error", err)
	}
}

func (s *GateService) notifyFailure(ctx context.Context, outcome *gate.Outcome) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyFailure(ctx, outcome); err != nil {
		s.logger.WarnContext(ctx, "failure notification failed",
			"request_key", outcome.RequestKey, "error", err)
	}
}

func (s *GateService) record(operation string, elapsed time.Duration, label string, failed bool) {
	if s.recorder == nil {
		return
	}
	s.recorder.Observe(metrics.Observation{
		Operation: operation,
		Duration:  elapsed,
		Outcome:   label,
		Failed:    failed,
	})
	s.recorder.PublishQueueDepth()
}

// RunSweeper runs the idempotency cache's background expiry sweep until ctx
// is done.
func (s *GateService) RunSweeper(ctx context.Context) {
	s.cache.RunSweeper(ctx)
}

// QueueDepth exposes the live lock queue depth.
func (s *GateService) QueueDepth() int {
	return s.locks.QueueDepth()
}

func outcomeLabel(outcome *gate.Outcome) string {
	if outcome.Failed() {
		return string(outcome.FailureKind)
	}
	return "pass"
}
