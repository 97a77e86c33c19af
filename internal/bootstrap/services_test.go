package bootstrap

import (
	"log/slog"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teei/docgate/config"
)

func defaultConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	var cfg config.AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	return &cfg
}

func TestNewServices_DefaultConfig(t *testing.T) {
	container, err := NewServices(&ServiceDeps{
		Config: defaultConfig(t),
		Logger: slog.Default(),
	})
	require.NoError(t, err)

	assert.NotNil(t, container.Gate)
	assert.NotNil(t, container.Recorder)
	assert.Nil(t, container.MetricsSink)
	assert.Nil(t, container.Archiver)
	assert.Nil(t, container.Outcomes)
	assert.Nil(t, container.Notifier)
}

func TestNewServices_BadWebhookSelector(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Observability.Notifications.Enabled = true
	cfg.Observability.Notifications.WebhookURL = "http://localhost:9999/hook"
	cfg.Observability.Notifications.PayloadSelector = "][broken"

	_, err := NewServices(&ServiceDeps{Config: cfg, Logger: slog.Default()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
}

func TestNewServices_MissingBackendURL(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Backend.BaseURL = ""

	_, err := NewServices(&ServiceDeps{Config: cfg, Logger: slog.Default()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))

	cfg := defaultConfig(t)
	require.NoError(t, ValidateServiceConfig(cfg))

	cfg.Services = "reaper"
	require.Error(t, ValidateServiceConfig(cfg))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))

	cfg := defaultConfig(t)
	cfg.Services = "http"
	assert.Equal(t, []string{"http"}, GetEnabledServices(cfg))
}
