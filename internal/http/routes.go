// Package httpx exposes the gate over a small JSON API.
package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/teei/docgate/internal/core"
	"github.com/teei/docgate/internal/domain/gate"
	"github.com/teei/docgate/internal/observability/metrics"
)

// JobSubmitter runs generation requests through the gate.
type JobSubmitter interface {
	Submit(ctx context.Context, req *gate.Request) (*gate.Outcome, error)
	QueueDepth() int
}

// MetricsSource exposes rolling latency and error-rate snapshots.
type MetricsSource interface {
	SnapshotAll() []metrics.Snapshot
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Gate JobSubmitter
	// Optional: metrics snapshots for GET /api/metrics.
	Metrics MetricsSource
	// Optional: scorecard archive for GET /api/scorecards.
	Scorecards core.ScorecardArchiver
	Logger     *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Gate: services.Gate, Logger: logger}
	mux.HandleFunc("POST /api/jobs", jobHandlers.Submit)
	mux.HandleFunc("GET /api/jobs/queue-depth", jobHandlers.QueueDepth)

	metricsHandlers := &MetricsHandlers{Source: services.Metrics}
	mux.HandleFunc("GET /api/metrics", metricsHandlers.Snapshot)

	if services.Scorecards != nil {
		scorecardHandlers := &ScorecardHandlers{Archive: services.Scorecards, Logger: logger}
		mux.HandleFunc("GET /api/scorecards", scorecardHandlers.ListRecent)
		mux.HandleFunc("GET /api/scorecards/{jobID}", scorecardHandlers.GetByJobID)
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}
