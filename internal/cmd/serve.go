package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/config"
	errwrap "github.com/readmegen/readmegen/internal/errors"
	"github.com/readmegen/readmegen/internal/metrics"
	"github.com/readmegen/readmegen/internal/observability"
)

var serveFlagKeys = map[string]string{
	"host":            "server.host",
	"port":            "server.port",
	"throttle-window": "throttle.window",
	"metrics-port":    "metrics.port",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API with graceful shutdown support.

Routes:
  GET  /                  acknowledgment
  POST /generate-readme   {"repoUrl": "..."} -> {"readme": "..."}
  GET  /health[/live|/ready|/startup], /version, /metrics

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload config (throttle window applies immediately)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "server host")
	serveCmd.Flags().IntP("port", "p", 3001, "server port")
	serveCmd.Flags().Duration("throttle-window", 15*time.Second, "minimum spacing between admitted requests per client")
	serveCmd.Flags().Int("metrics-port", 9090, "prometheus exporter port")
}

func runServe(cmd *cobra.Command, args []string) error {
	overrides := changedOverrides(cmd, serveFlagKeys)
	cfg, err := loadConfig(overrides, config.Requirements{Completion: true})
	if err != nil {
		return err
	}

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()
	if namespace == "" {
		namespace = identity.BinaryName
	}

	if err := observability.InitServerLogger(observability.LoggerOptions{
		Service:   identity.BinaryName,
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: namespace,
	}); err != nil {
		return withExitCode(exitConfig, "failed to initialize server logger", err)
	}
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}
	}

	c, err := buildComponents(cfg, true)
	if err != nil {
		return err
	}
	srv := newServer(cfg, identity, c)

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("addr", srv.Addr()),
		zap.Bool("throttle_enabled", c.Guard != nil),
		zap.Duration("throttle_window", cfg.Throttle.Window),
		zap.String("completion_provider", c.Completer.Driver.Name()),
		zap.String("completion_model", c.Completer.Model),
		zap.Bool("github_token", cfg.GitHub.Token != ""),
		zap.Int("metrics_port", observability.GetMetricsPort()))

	// Shutdown handlers run LIFO: HTTP server, then exporter, then logger flush.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	if cfg.Metrics.Enabled {
		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.ShutdownMetrics(); err != nil {
				logger.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
			return nil
		})
	}

	signals.OnShutdown(func(ctx context.Context) error {
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading configuration")
		next, err := loadConfig(overrides, config.Requirements{Completion: true})
		if err != nil {
			logger.Error("Config reload failed; keeping current configuration", zap.Error(err))
			return err
		}
		applyReload(cfg, next, c)
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	metrics.SetServerStartTime(time.Now().Unix())

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(cmd.Context(), err, "server error")
	}
	return nil
}

// applyReload applies settings that can change at runtime and logs the ones
// that need a restart.
func applyReload(current, next *config.Config, c *components) {
	logger := observability.ServerLogger

	if c.Guard != nil && next.Throttle.Window != current.Throttle.Window {
		c.Guard.SetWindow(next.Throttle.Window)
		if logger != nil {
			logger.Info("Throttle window updated",
				zap.Duration("previous", current.Throttle.Window),
				zap.Duration("current", next.Throttle.Window))
		}
		current.Throttle.Window = next.Throttle.Window
	}

	if logger == nil {
		return
	}
	restart := map[string]bool{
		"server":     next.Server.Host != current.Server.Host || next.Server.Port != current.Server.Port,
		"completion": next.Completion != current.Completion,
		"github":     next.GitHub != current.GitHub,
		"prompt":     next.Prompt != current.Prompt,
		"logging":    next.Logging != current.Logging,
		"metrics":    next.Metrics != current.Metrics,
	}
	for section, changed := range restart {
		if changed {
			logger.Warn("Config section changed; restart required to apply", zap.String("section", section))
		}
	}
}
