package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dimension is an independently scored quality axis, e.g. "structure" or
// "appearance".
type Dimension string

// TierID names one analysis strategy for a dimension, ordered by cost.
type TierID string

// TierStatus records how a single tier attempt ended.
type TierStatus string

const (
	// TierOK means the tier produced a usable score.
	TierOK TierStatus = "ok"
	// TierFallback means the tier was down or errored and the pipeline moved
	// on to the next cheaper tier. The original cause stays in Detail.
	TierFallback TierStatus = "fallback"
	// TierUnavailable means the tier could not run and no cheaper tier
	// remained to fall back to.
	TierUnavailable TierStatus = "unavailable"
	// TierError means the tier errored on this input and no cheaper tier
	// remained to fall back to.
	TierError TierStatus = "error"
)

// ErrTierUnavailable is returned by analyzers whose capability is missing or
// down, as opposed to erroring on this specific input.
var ErrTierUnavailable = errors.New("tier analyzer unavailable")

// Analyzer scores one artifact on one dimension. Scores are normalized to
// [0,1]; the gate treats the scoring internals as opaque.
type Analyzer interface {
	Analyze(ctx context.Context, artifact ArtifactRef) (float64, error)
}

// AnalyzerFunc adapts an ordinary function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, artifact ArtifactRef) (float64, error)

// Analyze calls f(ctx, artifact).
func (f AnalyzerFunc) Analyze(ctx context.Context, artifact ArtifactRef) (float64, error) {
	if f == nil {
		return 0, ErrTierUnavailable
	}
	return f(ctx, artifact)
}

// TierResult is the immutable record of one tier attempt for one dimension.
type TierResult struct {
	Tier      TierID     `json:"tier"`
	Dimension Dimension  `json:"dimension"`
	Score     *float64   `json:"score"`
	Status    TierStatus `json:"status"`
	Detail    string     `json:"detail,omitempty"`
}

// TierRegistry resolves the fixed, startup-time execution order of tiers per
// dimension. Runtime availability is a per-call outcome, not a structural
// change to the registry.
type TierRegistry struct {
	order     map[Dimension][]TierID
	analyzers map[Dimension]map[TierID]Analyzer
	disabled  map[TierID]bool
}

// NewTierRegistry creates an empty registry.
func NewTierRegistry() *TierRegistry {
	return &TierRegistry{
		order:     make(map[Dimension][]TierID),
		analyzers: make(map[Dimension]map[TierID]Analyzer),
		disabled:  make(map[TierID]bool),
	}
}

// RegisterTierParams groups the parameters for Register.
type RegisterTierParams struct {
	Dimension Dimension
	Tier      TierID
	Analyzer  Analyzer
}

// Register appends a tier for a dimension. Registration order is cost order:
// cheapest first, most expensive last. The pipeline walks it backwards.
func (r *TierRegistry) Register(params RegisterTierParams) error {
	if params.Dimension == "" {
		return errors.New("dimension is required")
	}
	if params.Tier == "" {
		return errors.New("tier id is required")
	}
	byTier, ok := r.analyzers[params.Dimension]
	if !ok {
		byTier = make(map[TierID]Analyzer)
		r.analyzers[params.Dimension] = byTier
	}
	if _, dup := byTier[params.Tier]; dup {
		return fmt.Errorf("tier %s already registered for dimension %s", params.Tier, params.Dimension)
	}
	byTier[params.Tier] = params.Analyzer
	r.order[params.Dimension] = append(r.order[params.Dimension], params.Tier)
	return nil
}

// Disable globally disables a tier across all dimensions.
func (r *TierRegistry) Disable(tier TierID) {
	r.disabled[tier] = true
}

// Disabled reports whether a tier is disabled by configuration.
func (r *TierRegistry) Disabled(tier TierID) bool {
	return r.disabled[tier]
}

// Dimensions returns the registered dimensions in sorted order.
func (r *TierRegistry) Dimensions() []Dimension {
	dims := make([]Dimension, 0, len(r.order))
	for dim := range r.order {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}

// TiersFor returns the configured cost order for a dimension, cheapest first.
func (r *TierRegistry) TiersFor(dim Dimension) []TierID {
	return r.order[dim]
}

func (r *TierRegistry) analyzer(dim Dimension, tier TierID) Analyzer {
	byTier, ok := r.analyzers[dim]
	if !ok {
		return nil
	}
	return byTier[tier]
}

// DimensionOutcome aggregates the tier attempts for one dimension. A nil
// Score means every tier failed and the dimension is excluded from weighted
// scoring.
type DimensionOutcome struct {
	Dimension Dimension    `json:"dimension"`
	Score     *float64     `json:"score"`
	TierUsed  TierID       `json:"tier_used,omitempty"`
	Attempts  []TierResult `json:"attempts"`
}

// PipelineOptions configure the tiered validation pipeline.
type PipelineOptions struct {
	Registry *TierRegistry
	// CallTimeout bounds each individual analyzer call. Zero disables the
	// bound (the caller's context still applies).
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Pipeline runs tiered validation for an artifact: per dimension it walks the
// configured tiers from most expensive to cheapest, falling back on
// unavailability or error, and never aborts the whole run because one tier is
// down. Independent dimensions run concurrently.
type Pipeline struct {
	registry    *TierRegistry
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewPipeline constructs a Pipeline from the supplied options.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewTierRegistry()
	}
	return &Pipeline{
		registry:    registry,
		callTimeout: opts.CallTimeout,
		logger:      logger,
	}
}

// Run validates the artifact on the requested dimensions and returns one
// outcome per dimension. Dimension completion order is unspecified; the
// result is order-independent.
func (p *Pipeline) Run(ctx context.Context, artifact ArtifactRef, dims []Dimension) map[Dimension]DimensionOutcome {
	results := make([]DimensionOutcome, len(dims))

	g, gctx := errgroup.WithContext(ctx)
	for i, dim := range dims {
		g.Go(func() error {
			results[i] = p.runDimension(gctx, artifact, dim)
			return nil
		})
	}
	// Dimension walks record failures in their attempts; they never error.
	_ = g.Wait()

	out := make(map[Dimension]DimensionOutcome, len(results))
	for _, res := range results {
		out[res.Dimension] = res
	}
	return out
}

type tierAttemptParams struct {
	artifact ArtifactRef
	dim      Dimension
	tier     TierID
}

func (p *Pipeline) runDimension(ctx context.Context, artifact ArtifactRef, dim Dimension) DimensionOutcome {
	out := DimensionOutcome{Dimension: dim}
	tiers := p.registry.TiersFor(dim)

	for i := len(tiers) - 1; i >= 0; i-- {
		tier := tiers[i]
		res := p.attemptTier(ctx, tierAttemptParams{artifact: artifact, dim: dim, tier: tier})
		if res.Status == TierOK {
			out.Attempts = append(out.Attempts, res)
			out.Score = res.Score
			out.TierUsed = tier
			return out
		}
		if i > 0 {
			p.logger.WarnContext(ctx, "validation tier fell back",
				"dimension", dim,
				"tier", tier,
				"cause", res.Status,
				"detail", res.Detail)
			res.Status = TierFallback
		}
		out.Attempts = append(out.Attempts, res)
	}

	if out.Score == nil && len(tiers) > 0 {
		p.logger.WarnContext(ctx, "every validation tier failed for dimension", "dimension", dim)
	}
	return out
}

func (p *Pipeline) attemptTier(ctx context.Context, params tierAttemptParams) TierResult {
	res := TierResult{Tier: params.tier, Dimension: params.dim}

	if p.registry.Disabled(params.tier) {
		res.Status = TierUnavailable
		res.Detail = "tier disabled by configuration"
		return res
	}
	analyzer := p.registry.analyzer(params.dim, params.tier)
	if analyzer == nil {
		res.Status = TierUnavailable
		res.Detail = "no analyzer registered"
		return res
	}

	callCtx := ctx
	cancel := func() {}
	if p.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, p.callTimeout)
	}
	defer cancel()

	score, err := analyzer.Analyze(callCtx, params.artifact)
	switch {
	case err == nil:
		score = clamp01(score)
		res.Score = &score
		res.Status = TierOK
	case errors.Is(err, ErrTierUnavailable):
		res.Status = TierUnavailable
		res.Detail = err.Error()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Status = TierError
		res.Detail = fmt.Sprintf("%s: analysis exceeded %s", FailureTierTimeout, p.callTimeout)
	default:
		res.Status = TierError
		res.Detail = err.Error()
	}
	return res
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
