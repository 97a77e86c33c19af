package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/domain/gate"
	"github.com/teei/docgate/internal/observability/metrics"
)

type stubExecutor struct {
	calls   int32
	execute func(ctx context.Context, req core.ExecuteRequest) (*gate.ArtifactRef, error)
}

func (e *stubExecutor) Execute(ctx context.Context, req core.ExecuteRequest) (*gate.ArtifactRef, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.execute != nil {
		return e.execute(ctx, req)
	}
	return &gate.ArtifactRef{ID: req.JobID, URI: "file:///out/" + req.JobID + ".pdf", Format: "pdf"}, nil
}

func (e *stubExecutor) callCount() int32 { return atomic.LoadInt32(&e.calls) }

type memoryOutcomeStore struct {
	mu       sync.Mutex
	outcomes map[string]*gate.Outcome
	saves    int
}

func newMemoryOutcomeStore() *memoryOutcomeStore {
	return &memoryOutcomeStore{outcomes: make(map[string]*gate.Outcome)}
}

func (s *memoryOutcomeStore) Save(_ context.Context, params core.SaveOutcomeParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[params.Key] = params.Outcome
	s.saves++
	return nil
}

func (s *memoryOutcomeStore) Get(_ context.Context, key string) (*gate.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if outcome, ok := s.outcomes[key]; ok {
		return outcome, nil
	}
	return nil, core.ErrOutcomeNotFound
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []*gate.Outcome
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, outcome *gate.Outcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
	return nil
}

func (n *recordingNotifier) notified() []*gate.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*gate.Outcome(nil), n.outcomes...)
}

type memoryArchiver struct {
	mu    sync.Mutex
	cards []*gate.Scorecard
}

func (a *memoryArchiver) Archive(_ context.Context, card *gate.Scorecard) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cards = append(a.cards, card)
	return nil
}

func (a *memoryArchiver) GetByJobID(context.Context, string) (*gate.Scorecard, error) {
	return nil, core.ErrOutcomeNotFound
}

func (a *memoryArchiver) ListRecent(context.Context, int) ([]*gate.Scorecard, error) {
	return nil, nil
}

// gateHarness wires a GateService with in-memory collaborators.
type gateHarness struct {
	service  *GateService
	locks    *gate.LockManager
	executor *stubExecutor
	notifier *recordingNotifier
	archiver *memoryArchiver
	recorder *metrics.Recorder
}

type harnessConfig struct {
	registry  *gate.TierRegistry
	executor  *stubExecutor
	policies  []gate.OperationPolicy
	outcomes  core.OutcomeStore
	lockWait  time.Duration
	callLimit time.Duration
}

func defaultRegistry(t *testing.T) *gate.TierRegistry {
	t.Helper()
	reg := gate.NewTierRegistry()
	scores := map[gate.Dimension]float64{
		"structure":        0.90,
		"appearance":       0.95,
		"layout-semantics": 0.80,
	}
	for dim, score := range scores {
		require.NoError(t, reg.Register(gate.RegisterTierParams{
			Dimension: dim,
			Tier:      "semantic",
			Analyzer: gate.AnalyzerFunc(func(context.Context, gate.ArtifactRef) (float64, error) {
				return score, nil
			}),
		}))
	}
	return reg
}

func newHarness(t *testing.T, cfg harnessConfig) *gateHarness {
	t.Helper()
	if cfg.registry == nil {
		cfg.registry = defaultRegistry(t)
	}
	if cfg.executor == nil {
		cfg.executor = &stubExecutor{}
	}

	locks := gate.NewLockManager(gate.LockManagerConfig{})
	notifier := &recordingNotifier{}
	archiver := &memoryArchiver{}
	recorder := metrics.NewRecorder(metrics.RecorderOptions{Queue: locks})

	svc, err := NewGateService(GateServiceOptions{
		Locks:       locks,
		Cache:       gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{}),
		Policies:    gate.NewPolicyEngine(gate.PolicyEngineOptions{Policies: cfg.policies}),
		Pipeline:    gate.NewPipeline(gate.PipelineOptions{Registry: cfg.registry, CallTimeout: cfg.callLimit}),
		Executor:    cfg.executor,
		Outcomes:    cfg.outcomes,
		Archiver:    archiver,
		Notifier:    notifier,
		Recorder:    recorder,
		MaxLockWait: cfg.lockWait,
	})
	require.NoError(t, err)

	return &gateHarness{
		service:  svc,
		locks:    locks,
		executor: cfg.executor,
		notifier: notifier,
		archiver: archiver,
		recorder: recorder,
	}
}

func submitRequest() *gate.Request {
	return &gate.Request{
		RequestKey:    "req-1",
		ResourceID:    "doc-1",
		OperationKind: "create",
		JobBody:       json.RawMessage(`{"template":"brochure"}`),
		Validation: gate.ValidationSpec{
			Dimensions: []gate.Dimension{"structure", "appearance", "layout-semantics"},
		},
		Threshold: 0.85,
	}
}

func TestGateService_HappyPathPasses(t *testing.T) {
	h := newHarness(t, harnessConfig{})

	outcome, err := h.service.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	assert.Equal(t, gate.VerdictPass, outcome.Verdict)
	assert.False(t, outcome.Failed())
	require.NotNil(t, outcome.Scorecard)
	assert.InDelta(t, 0.8833, outcome.Scorecard.NormalizedScore, 0.0001)
	require.NotNil(t, outcome.Artifact)
	assert.Equal(t, outcome.JobID, outcome.Artifact.ID)
	assert.Equal(t, int32(1), h.executor.callCount())
	assert.Empty(t, h.notifier.notified())
	require.Len(t, h.archiver.cards, 1)

	_, held := h.locks.Holder("doc-1")
	assert.False(t, held, "lock must be released after the run")
}

func TestGateService_DuplicateSubmissionExecutesOnce(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	ctx := context.Background()

	first, err := h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)

	second, err := h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)

	assert.Equal(t, first.JobID, second.JobID)
	assert.Equal(t, int32(1), h.executor.callCount(), "duplicate submission must not re-run the job body")
}

func TestGateService_ConcurrentDuplicatesShareOneRun(t *testing.T) {
	slow := &stubExecutor{execute: func(ctx context.Context, req core.ExecuteRequest) (*gate.ArtifactRef, error) {
		time.Sleep(30 * time.Millisecond)
		return &gate.ArtifactRef{ID: req.JobID}, nil
	}}
	h := newHarness(t, harnessConfig{executor: slow})

	var wg sync.WaitGroup
	results := make([]*gate.Outcome, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := h.service.Submit(context.Background(), submitRequest())
			require.NoError(t, err)
			results[i] = outcome
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), h.executor.callCount())
	for _, outcome := range results {
		assert.Equal(t, results[0].JobID, outcome.JobID)
	}
}

func TestGateService_LockTimeoutFailsWithoutExecuting(t *testing.T) {
	h := newHarness(t, harnessConfig{lockWait: 30 * time.Millisecond})

	holder, err := h.locks.Acquire(context.Background(), gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "other-job"})
	require.NoError(t, err)
	defer h.locks.Release(holder)

	outcome, err := h.service.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	assert.Equal(t, gate.FailureLockTimeout, outcome.FailureKind)
	assert.Equal(t, gate.VerdictFail, outcome.Verdict)
	assert.Zero(t, h.executor.callCount(), "job body must not run without the lock")
	require.Len(t, h.notifier.notified(), 1)
}

func TestGateService_LockTimeoutIsNotCached(t *testing.T) {
	h := newHarness(t, harnessConfig{lockWait: 30 * time.Millisecond})
	ctx := context.Background()

	holder, err := h.locks.Acquire(ctx, gate.AcquireRequest{ResourceID: "doc-1", WaiterID: "other-job"})
	require.NoError(t, err)

	outcome, err := h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	require.Equal(t, gate.FailureLockTimeout, outcome.FailureKind)

	// Resource frees up; the same key must be allowed to run now.
	h.locks.Release(holder)

	outcome, err = h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, gate.VerdictPass, outcome.Verdict)
	assert.Equal(t, int32(1), h.executor.callCount())
}

func TestGateService_TerminalExecutionFailureIsCached(t *testing.T) {
	failing := &stubExecutor{execute: func(context.Context, core.ExecuteRequest) (*gate.ArtifactRef, error) {
		return nil, errors.New("template references a missing font")
	}}
	h := newHarness(t, harnessConfig{executor: failing})
	ctx := context.Background()

	outcome, err := h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, gate.FailureExecution, outcome.FailureKind)
	assert.Contains(t, outcome.FailureDetail, "missing font")
	assert.Nil(t, outcome.Scorecard, "no validation runs when execution fails")

	// The terminal failure deduplicates like any finished outcome.
	again, err := h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, gate.FailureExecution, again.FailureKind)
	assert.Equal(t, int32(1), failing.callCount())
	require.Len(t, h.notifier.notified(), 1)
}

func TestGateService_RetryableFailureRetriesThenPasses(t *testing.T) {
	var attempts int32
	flaky := &stubExecutor{execute: func(_ context.Context, req core.ExecuteRequest) (*gate.ArtifactRef, error) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return nil, gate.Retryable(errors.New("backend briefly unavailable"))
		}
		return &gate.ArtifactRef{ID: req.JobID}, nil
	}}
	h := newHarness(t, harnessConfig{
		executor: flaky,
		policies: []gate.OperationPolicy{{
			Kind:        "create",
			Timeout:     time.Second,
			MaxRetries:  3,
			BackoffBase: time.Millisecond,
		}},
	})

	outcome, err := h.service.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.Equal(t, gate.VerdictPass, outcome.Verdict)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGateService_ComputeTimeoutIsNotCached(t *testing.T) {
	var calls int32
	slow := &stubExecutor{execute: func(ctx context.Context, req core.ExecuteRequest) (*gate.ArtifactRef, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}
		return &gate.ArtifactRef{ID: req.JobID}, nil
	}}
	h := newHarness(t, harnessConfig{
		executor: slow,
		policies: []gate.OperationPolicy{{Kind: "create", Timeout: 30 * time.Millisecond, MaxRetries: 2}},
	})
	ctx := context.Background()

	outcome, err := h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, gate.FailureComputeTimeout, outcome.FailureKind)

	// Timeouts are coordination failures; a resubmission runs the job again.
	outcome, err = h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, gate.VerdictPass, outcome.Verdict)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "the timed-out attempt must not be retried or cached")
}

func TestGateService_TierFallbackStillScores(t *testing.T) {
	reg := gate.NewTierRegistry()
	require.NoError(t, reg.Register(gate.RegisterTierParams{
		Dimension: "structure",
		Tier:      "extraction",
		Analyzer: gate.AnalyzerFunc(func(context.Context, gate.ArtifactRef) (float64, error) {
			return 0.78, nil
		}),
	}))
	require.NoError(t, reg.Register(gate.RegisterTierParams{
		Dimension: "structure",
		Tier:      "semantic",
		Analyzer: gate.AnalyzerFunc(func(context.Context, gate.ArtifactRef) (float64, error) {
			return 0, gate.ErrTierUnavailable
		}),
	}))
	h := newHarness(t, harnessConfig{registry: reg})

	req := submitRequest()
	req.Validation.Dimensions = []gate.Dimension{"structure"}
	req.Threshold = 0.70

	outcome, err := h.service.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, gate.VerdictPass, outcome.Verdict)
	require.NotNil(t, outcome.Scorecard)
	assert.Equal(t, gate.TierID("extraction"), outcome.Scorecard.TierUsed["structure"])
	require.Len(t, outcome.Scorecard.Attempts, 2)
	assert.Equal(t, gate.TierFallback, outcome.Scorecard.Attempts[0].Status)
}

func TestGateService_HardFailBeatsPassingScore(t *testing.T) {
	reg := gate.NewTierRegistry()
	scores := map[gate.Dimension]float64{"structure": 0.98, "appearance": 0.30}
	for dim, score := range scores {
		require.NoError(t, reg.Register(gate.RegisterTierParams{
			Dimension: dim,
			Tier:      "semantic",
			Analyzer: gate.AnalyzerFunc(func(context.Context, gate.ArtifactRef) (float64, error) {
				return score, nil
			}),
		}))
	}
	h := newHarness(t, harnessConfig{registry: reg})

	req := submitRequest()
	req.Validation.Dimensions = []gate.Dimension{"structure", "appearance"}
	req.Validation.HardFailRules = []gate.HardFailRule{{Dimension: "appearance", Below: 0.5}}
	req.Threshold = 0.60

	outcome, err := h.service.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, gate.VerdictFail, outcome.Verdict)
	assert.Equal(t, gate.FailureHardFail, outcome.FailureKind)
	require.NotNil(t, outcome.Scorecard)
	assert.GreaterOrEqual(t, outcome.Scorecard.NormalizedScore, 0.60)
	require.Len(t, h.notifier.notified(), 1)
}

func TestGateService_ThresholdFailure(t *testing.T) {
	reg := gate.NewTierRegistry()
	require.NoError(t, reg.Register(gate.RegisterTierParams{
		Dimension: "structure",
		Tier:      "semantic",
		Analyzer: gate.AnalyzerFunc(func(context.Context, gate.ArtifactRef) (float64, error) {
			return 0.75, nil
		}),
	}))
	h := newHarness(t, harnessConfig{registry: reg})

	req := submitRequest()
	req.Validation.Dimensions = []gate.Dimension{"structure"}

	outcome, err := h.service.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, gate.FailureThreshold, outcome.FailureKind)
	assert.Contains(t, outcome.FailureDetail, "below threshold")
}

func TestGateService_OutcomeStoreDeduplicates(t *testing.T) {
	store := newMemoryOutcomeStore()
	h := newHarness(t, harnessConfig{outcomes: store})
	ctx := context.Background()

	first, err := h.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	// Evict the in-memory entry to prove the durable store alone answers.
	h2 := newHarness(t, harnessConfig{outcomes: store, executor: h.executor})
	second, err := h2.service.Submit(ctx, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Equal(t, int32(1), h.executor.callCount())
}

func TestGateService_InvalidRequestRejected(t *testing.T) {
	h := newHarness(t, harnessConfig{})

	req := submitRequest()
	req.Threshold = 2

	_, err := h.service.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Zero(t, h.executor.callCount())
}

func TestGateService_MetricsRecorded(t *testing.T) {
	h := newHarness(t, harnessConfig{})

	_, err := h.service.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	snap := h.recorder.Snapshot("create")
	assert.Equal(t, 1, snap.SampleCount)
	assert.Zero(t, snap.ErrorRate)
}

func TestNewGateService_RequiresCoreDependencies(t *testing.T) {
	_, err := NewGateService(GateServiceOptions{})
	require.Error(t, err)
}
