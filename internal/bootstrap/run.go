package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/teei/docgate/config"
	"golang.org/x/sync/errgroup"
)

// ServiceOrchestrationConfig contains dependencies for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		server := StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), cfg.Config.HTTP.ShutdownTimeout)
			defer cancel()
			return ShutdownHTTPServer(shutdownCtx, server, logger)
		})
	}

	if enabled[config.ServiceModeSweeper] {
		group.Go(func() error {
			logger.Info("starting idempotency sweeper",
				"interval", cfg.Config.Gate.Idempotency.SweepInterval)
			cfg.Services.Gate.RunSweeper(groupCtx)
			logger.Info("idempotency sweeper stopped")
			return nil
		})
	}

	// Flush the queue depth gauge on a fixed cadence while running.
	if cfg.Services.Recorder != nil {
		group.Go(func() error {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					cfg.Services.Recorder.PublishQueueDepth()
				}
			}
		})
	}

	<-ctx.Done()
	logger.Info("shutting down services...")
	stop()

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
