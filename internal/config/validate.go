package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/readmegen/readmegen/internal/observability"
)

// Requirements selects which optional checks Validate applies.
type Requirements struct {
	// Completion requires provider credentials (serve, generate).
	Completion bool
}

// Validate reports every configuration problem found, joined.
func (c *Config) Validate(req Requirements) error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if c.Throttle.Enabled && c.Throttle.Window <= 0 {
		errs = append(errs, fmt.Errorf("throttle.window must be positive, got %s", c.Throttle.Window))
	}
	if c.GitHub.Timeout < 0 {
		errs = append(errs, fmt.Errorf("github.timeout must not be negative, got %s", c.GitHub.Timeout))
	}
	if c.Completion.Timeout < 0 {
		errs = append(errs, fmt.Errorf("completion.timeout must not be negative, got %s", c.Completion.Timeout))
	}
	if !observability.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of trace, debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Profile)) {
	case "", "simple", "structured":
	default:
		errs = append(errs, fmt.Errorf("logging.profile %q is not one of simple, structured", c.Logging.Profile))
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}

	if req.Completion {
		switch strings.ToLower(strings.TrimSpace(c.Completion.Provider)) {
		case "", "openai", "openai-compatible":
		default:
			errs = append(errs, fmt.Errorf("completion.provider %q is not supported", c.Completion.Provider))
		}
		if strings.TrimSpace(c.Completion.APIKey) == "" {
			errs = append(errs, errors.New("completion.api_key is required (set READMEGEN_COMPLETION_API_KEY or OPENAI_API_KEY)"))
		}
	}

	return errors.Join(errs...)
}
