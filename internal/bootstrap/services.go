package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/teei/docgate/config"
	"github.com/teei/docgate/internal/adapters/analyzer"
	"github.com/teei/docgate/internal/adapters/backend"
	redisadapter "github.com/teei/docgate/internal/adapters/redis"
	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/data"
	"github.com/teei/docgate/internal/domain/gate"
	"github.com/teei/docgate/internal/observability/metrics"
	"github.com/teei/docgate/internal/observability/notify/webhook"
	"github.com/teei/docgate/internal/observability/statsd"
	"github.com/teei/docgate/internal/service"
)

// gateDimensions are the quality axes the analyzer service scores.
var gateDimensions = []gate.Dimension{"structure", "appearance", "layout-semantics"}

// gateTiers is the fixed tier cost order, cheapest first.
var gateTiers = []gate.TierID{"heuristic", "extraction", "semantic"}

// ServiceContainer holds initialized services and shared observability.
type ServiceContainer struct {
	Gate     *service.GateService
	Recorder *metrics.Recorder

	MetricsSink *statsd.Client
	Archiver    core.ScorecardArchiver
	Outcomes    core.OutcomeStore
	Notifier    core.FailureNotifier
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the gate service from configuration and infrastructure.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locks := gate.NewLockManager(gate.LockManagerConfig{})
	cache := gate.NewIdempotencyCache(gate.IdempotencyCacheConfig{
		TTL:           cfg.Gate.Idempotency.TTL,
		SweepInterval: cfg.Gate.Idempotency.SweepInterval,
		Logger:        logger,
	})
	policies := gate.NewPolicyEngine(gate.PolicyEngineOptions{
		Policies: cfg.Gate.Policies.OperationPolicies(),
		Logger:   logger,
	})

	registry, err := buildTierRegistry(cfg, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	pipeline := gate.NewPipeline(gate.PipelineOptions{
		Registry:    registry,
		CallTimeout: cfg.Gate.Validation.CallTimeout,
		Logger:      logger,
	})

	executor, err := backend.NewExecutor(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build backend executor: %w", err)
	}

	metricsSink := buildMetricsSink(cfg.Observability.Metrics, logger)
	recorder := metrics.NewRecorder(metrics.RecorderOptions{
		MaxSamples: cfg.Observability.Window.MaxSamples,
		MaxAge:     cfg.Observability.Window.MaxAge,
		Queue:      locks,
		Sink:       metricsSink,
	})

	notifier, err := buildNotifier(cfg.Observability.Notifications)
	if err != nil {
		return ServiceContainer{}, err
	}

	var outcomes core.OutcomeStore
	if deps.RedisClient != nil {
		outcomes = redisadapter.NewOutcomeStore(deps.RedisClient)
	}

	var archiver core.ScorecardArchiver
	if deps.DB != nil {
		archiver = data.NewScorecardRepo(deps.DB)
	}

	gateSvc, err := service.NewGateService(service.GateServiceOptions{
		Locks:       locks,
		Cache:       cache,
		Policies:    policies,
		Pipeline:    pipeline,
		Executor:    executor,
		Outcomes:    outcomes,
		Archiver:    archiver,
		Notifier:    notifier,
		Recorder:    recorder,
		MaxLockWait: cfg.Gate.Lock.MaxWait,
		OutcomeTTL:  cfg.Gate.Idempotency.TTL,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build gate service: %w", err)
	}

	return ServiceContainer{
		Gate:        gateSvc,
		Recorder:    recorder,
		MetricsSink: metricsSink,
		Archiver:    archiver,
		Outcomes:    outcomes,
		Notifier:    notifier,
	}, nil
}

// buildTierRegistry registers analyzer-backed tiers for every dimension in
// cost order. Without an analyzer base URL the registry stays empty and every
// dimension scores nil.
func buildTierRegistry(cfg *config.AppConfig, logger *slog.Logger) (*gate.TierRegistry, error) {
	registry := gate.NewTierRegistry()

	if cfg.Analyzer.BaseURL == "" {
		logger.Warn("no analyzer base url configured; validation dimensions will be unscored")
		return registry, nil
	}

	client, err := analyzer.NewClient(analyzer.Config{
		BaseURL: cfg.Analyzer.BaseURL,
		Timeout: cfg.Analyzer.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build analyzer client: %w", err)
	}

	for _, dim := range gateDimensions {
		for _, tier := range gateTiers {
			if err := registry.Register(gate.RegisterTierParams{
				Dimension: dim,
				Tier:      tier,
				Analyzer:  client.Analyzer(dim, tier),
			}); err != nil {
				return nil, fmt.Errorf("register tier %s/%s: %w", dim, tier, err)
			}
		}
	}

	for _, tier := range cfg.Gate.Validation.DisabledTiers {
		registry.Disable(gate.TierID(tier))
		logger.Info("validation tier disabled", "tier", tier)
	}

	return registry, nil
}

func buildMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

func buildNotifier(cfg config.ObservabilityNotificationsConfig) (core.FailureNotifier, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	client, err := webhook.NewClient(webhook.Config{
		URL:             cfg.WebhookURL,
		Timeout:         cfg.Timeout,
		RetryLimit:      cfg.RetryLimit,
		PayloadSelector: cfg.PayloadSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("build webhook notifier: %w", err)
	}
	return client, nil
}
