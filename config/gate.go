package config

import (
	"strings"
	"time"

	"github.com/teei/docgate/internal/domain/gate"
)

// GateConfig groups lock, idempotency, policy, validation, and scoring
// configuration for the execution gate.
type GateConfig struct {
	Lock        LockConfig        `envPrefix:"GATE_LOCK_"`
	Idempotency IdempotencyConfig `envPrefix:"GATE_IDEMPOTENCY_"`
	Policies    PoliciesConfig
	Validation  ValidationConfig `envPrefix:"GATE_VALIDATION_"`
	Scoring     ScoringConfig    `envPrefix:"GATE_SCORING_"`
}

// Sanitize applies guardrails to gate configuration values.
func (g *GateConfig) Sanitize() {
	g.Lock.Sanitize()
	g.Idempotency.Sanitize()
	g.Policies.Sanitize()
	g.Validation.Sanitize()
	g.Scoring.Sanitize()
}

// LockConfig controls the per-resource lock manager.
type LockConfig struct {
	// MaxWait is the default bound on how long a job may queue for its
	// resource lock before failing with lock_timeout.
	MaxWait time.Duration `env:"MAX_WAIT" envDefault:"2s"`
}

// Sanitize applies guardrails to lock configuration values.
func (l *LockConfig) Sanitize() {
	if l.MaxWait <= 0 {
		l.MaxWait = 2 * time.Second
	}
}

// IdempotencyConfig controls the request dedup cache.
type IdempotencyConfig struct {
	// TTL is how long a completed outcome stays replayable.
	TTL time.Duration `env:"TTL" envDefault:"5m"`

	// SweepInterval is the cadence of the background expiry sweeper.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to idempotency configuration values.
func (i *IdempotencyConfig) Sanitize() {
	if i.TTL <= 0 {
		i.TTL = 5 * time.Minute
	}
	if i.SweepInterval <= 0 {
		i.SweepInterval = time.Minute
	}
}

// PolicyConfig is the env-facing shape of one operation policy.
type PolicyConfig struct {
	Timeout     time.Duration `env:"TIMEOUT"      envDefault:"0"`
	MaxRetries  int           `env:"MAX_RETRIES"  envDefault:"0"`
	Backoff     string        `env:"BACKOFF"      envDefault:"fixed"`
	BackoffBase time.Duration `env:"BACKOFF_BASE" envDefault:"250ms"`
	BackoffCap  time.Duration `env:"BACKOFF_CAP"  envDefault:"5s"`
}

func (p PolicyConfig) toPolicy(kind string) gate.OperationPolicy {
	backoff := gate.BackoffFixed
	if strings.EqualFold(strings.TrimSpace(p.Backoff), string(gate.BackoffExponential)) {
		backoff = gate.BackoffExponential
	}
	return gate.OperationPolicy{
		Kind:        kind,
		Timeout:     p.Timeout,
		MaxRetries:  p.MaxRetries,
		Backoff:     backoff,
		BackoffBase: p.BackoffBase,
		BackoffCap:  p.BackoffCap,
	}
}

// PoliciesConfig holds per-operation-kind timeout and retry policies.
// Document creation tolerates retries; updates hold locks longer and get a
// tighter budget by default.
type PoliciesConfig struct {
	Default PolicyConfig `envPrefix:"GATE_POLICY_DEFAULT_"`
	Create  PolicyConfig `envPrefix:"GATE_POLICY_CREATE_"`
	Update  PolicyConfig `envPrefix:"GATE_POLICY_UPDATE_"`
}

// Sanitize applies guardrails to policy configuration values.
func (p *PoliciesConfig) Sanitize() {
	if p.Create.Timeout <= 0 {
		p.Create.Timeout = 60 * time.Second
	}
	if p.Create.MaxRetries <= 0 {
		p.Create.MaxRetries = 2
	}
	if p.Update.Timeout <= 0 {
		p.Update.Timeout = 30 * time.Second
	}
	if p.Update.MaxRetries < 0 {
		p.Update.MaxRetries = 0
	}
}

// OperationPolicies converts the configured policies into the domain form.
func (p *PoliciesConfig) OperationPolicies() []gate.OperationPolicy {
	return []gate.OperationPolicy{
		p.Default.toPolicy(gate.DefaultPolicyKind),
		p.Create.toPolicy("create"),
		p.Update.toPolicy("update"),
	}
}

// ValidationConfig controls the tiered validation pipeline.
type ValidationConfig struct {
	// CallTimeout bounds a single tier invocation. Exceeding it records a
	// tier_timeout and falls back to the next cheaper tier.
	CallTimeout time.Duration `env:"CALL_TIMEOUT" envDefault:"10s"`

	// DisabledTiers lists tier IDs to skip across all dimensions
	// (e.g. "semantic,extraction").
	DisabledTiers []string `env:"DISABLED_TIERS" envSeparator:","`
}

// Sanitize applies guardrails to validation configuration values.
func (v *ValidationConfig) Sanitize() {
	if v.CallTimeout <= 0 {
		v.CallTimeout = 10 * time.Second
	}
	cleaned := v.DisabledTiers[:0]
	for _, raw := range v.DisabledTiers {
		if s := strings.TrimSpace(raw); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	v.DisabledTiers = cleaned
}

// ScoringConfig controls the composite gate decision.
type ScoringConfig struct {
	// Threshold is the default minimum composite score for a pass verdict.
	Threshold float64 `env:"THRESHOLD" envDefault:"0.85"`
}

// Sanitize applies guardrails to scoring configuration values.
func (s *ScoringConfig) Sanitize() {
	if s.Threshold < 0 {
		s.Threshold = 0
	}
	if s.Threshold > 1 {
		s.Threshold = 1
	}
}

// BackendConfig describes the document publishing backend.
type BackendConfig struct {
	BaseURL string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8013"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT"  envDefault:"60s"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.BaseURL = strings.TrimSpace(b.BaseURL)
	if b.Timeout <= 0 {
		b.Timeout = 60 * time.Second
	}
}

// AnalyzerConfig describes the validation analyzer service.
type AnalyzerConfig struct {
	BaseURL string        `env:"ANALYZER_BASE_URL" envDefault:""`
	Timeout time.Duration `env:"ANALYZER_TIMEOUT"  envDefault:"15s"`
}

// Sanitize applies guardrails to analyzer configuration values.
func (a *AnalyzerConfig) Sanitize() {
	a.BaseURL = strings.TrimSpace(a.BaseURL)
	if a.Timeout <= 0 {
		a.Timeout = 15 * time.Second
	}
}
