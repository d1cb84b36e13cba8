package config

import (
	"time"

	"github.com/readmegen/readmegen/internal/ailink"
)

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	Throttle   ThrottleConfig `mapstructure:"throttle"`
	GitHub     GitHubConfig   `mapstructure:"github"`
	Completion ailink.Config  `mapstructure:"completion"`
	Prompt     PromptConfig   `mapstructure:"prompt"`
	Logging    LoggingConfig  `mapstructure:"logging"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
	Health     HealthConfig   `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`

	// AdminToken enables the /admin/signal endpoint when set.
	AdminToken string `mapstructure:"admin_token"`
}

// ThrottleConfig controls the per-client admission window.
type ThrottleConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window"`
}

// GitHubConfig configures repository metadata lookups.
type GitHubConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// PromptConfig selects the prompt template. An empty path uses the
// embedded template.
type PromptConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Valid values: simple, structured
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated exporter port; /metrics on the main port proxies it.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
