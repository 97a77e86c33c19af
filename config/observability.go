package config

import (
	"strings"
	"time"
)

// ObservabilityConfig groups configuration that controls metrics emission and
// failure notification fan-out.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Window        MetricsWindowConfig
	Notifications ObservabilityNotificationsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Window.Sanitize()
	c.Notifications.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	StatsdPrefix  string `env:"OBSERVABILITY_METRICS_STATSD_PREFIX"  envDefault:"docgate"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.StatsdPrefix = strings.TrimSpace(c.StatsdPrefix)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// MetricsWindowConfig controls the in-process rolling latency window.
type MetricsWindowConfig struct {
	MaxSamples int           `env:"OBSERVABILITY_WINDOW_MAX_SAMPLES" envDefault:"1024"`
	MaxAge     time.Duration `env:"OBSERVABILITY_WINDOW_MAX_AGE"     envDefault:"5m"`
}

// Sanitize applies guardrails to window configuration values.
func (c *MetricsWindowConfig) Sanitize() {
	if c.MaxSamples < 1 {
		c.MaxSamples = 1024
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 5 * time.Minute
	}
}

// ObservabilityNotificationsConfig controls outbound gate failure notifications.
type ObservabilityNotificationsConfig struct {
	Enabled    bool          `env:"OBSERVABILITY_NOTIFICATIONS_ENABLED"     envDefault:"false"`
	Timeout    time.Duration `env:"OBSERVABILITY_NOTIFICATIONS_TIMEOUT"     envDefault:"5s"`
	RetryLimit int           `env:"OBSERVABILITY_NOTIFICATIONS_RETRY_LIMIT" envDefault:"3"`

	// WebhookURL receives a JSON payload for every failed outcome.
	WebhookURL string `env:"OBSERVABILITY_NOTIFICATIONS_WEBHOOK_URL"`

	// PayloadSelector is an optional JMESPath expression applied to the
	// payload before delivery, for receivers that expect a custom shape.
	PayloadSelector string `env:"OBSERVABILITY_NOTIFICATIONS_PAYLOAD_SELECTOR"`
}

// Sanitize normalises notification configuration values.
func (c *ObservabilityNotificationsConfig) Sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.PayloadSelector = strings.TrimSpace(c.PayloadSelector)
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.WebhookURL == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when webhook delivery is active after sanitisation.
func (c *ObservabilityNotificationsConfig) IsEnabled() bool {
	return c.Enabled && c.WebhookURL != ""
}
