// Package observability holds the process-wide loggers and telemetry system.
package observability

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger is used for CLI commands (SIMPLE profile)
	CLILogger *logging.Logger

	// ServerLogger is used for the HTTP service and the generation pipeline
	ServerLogger *logging.Logger
)

// LoggerOptions configures the server logger.
type LoggerOptions struct {
	Service     string
	Level       string
	Profile     string // structured (JSON) or simple (console)
	Environment string
	Namespace   string
}

// InitCLILogger initializes the CLI logger with SIMPLE profile.
func InitCLILogger(serviceName string, verbose bool) error {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		return fmt.Errorf("initialize CLI logger: %w", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
	return nil
}

// InitServerLogger initializes the server logger. The structured profile
// writes JSON to stderr with the correlation middleware enabled.
func InitServerLogger(opts LoggerOptions) error {
	logger, err := logging.New(serverLoggerConfig(opts))
	if err != nil {
		return fmt.Errorf("initialize server logger: %w", err)
	}
	ServerLogger = logger
	return nil
}

func serverLoggerConfig(opts LoggerOptions) *logging.LoggerConfig {
	staticFields := make(map[string]any)
	if opts.Namespace != "" {
		staticFields["namespace"] = opts.Namespace
	}

	environment := opts.Environment
	if environment == "" {
		environment = "production"
	}

	if strings.EqualFold(strings.TrimSpace(opts.Profile), "simple") {
		return &logging.LoggerConfig{
			Profile:      logging.ProfileSimple,
			DefaultLevel: ParseLevel(opts.Level),
			Service:      opts.Service,
			Environment:  environment,
			StaticFields: staticFields,
			Sinks: []logging.SinkConfig{
				{
					Type:    "console",
					Format:  "console",
					Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
				},
			},
		}
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: ParseLevel(opts.Level),
		Service:      opts.Service,
		Environment:  environment,
		StaticFields: staticFields,
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// ParseLevel converts a config log level to a logging severity string.
// Unknown values fall back to INFO.
func ParseLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// ValidLevel reports whether level is a recognised log level name.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
