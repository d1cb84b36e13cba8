package cmd

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	"github.com/readmegen/readmegen/internal/ailink"
	"github.com/readmegen/readmegen/internal/ailink/prompt"
	"github.com/readmegen/readmegen/internal/config"
	"github.com/readmegen/readmegen/internal/observability"
	"github.com/readmegen/readmegen/internal/readme"
	"github.com/readmegen/readmegen/internal/repoinfo"
	"github.com/readmegen/readmegen/internal/server"
	"github.com/readmegen/readmegen/internal/server/handlers"
	"github.com/readmegen/readmegen/internal/throttle"
)

// components are the pipeline parts built from configuration.
type components struct {
	Guard     *throttle.Guard
	Fetcher   *repoinfo.Fetcher
	Composer  *prompt.Composer
	Completer *ailink.Completer
	Pipeline  *readme.Pipeline
}

// buildComponents wires fetcher, composer and completer from cfg. The guard
// is only attached when throttled is set and throttling is enabled.
func buildComponents(cfg *config.Config, throttled bool) (*components, error) {
	composer, err := newComposer(cfg)
	if err != nil {
		return nil, err
	}
	fetcher := newFetcher(cfg)

	completer, err := ailink.NewCompleterFromConfig(cfg.Completion, composer.SystemInstruction(), &http.Client{})
	if err != nil {
		return nil, withExitCode(exitConfig, "failed to configure completion provider", err)
	}

	c := &components{
		Fetcher:   fetcher,
		Composer:  composer,
		Completer: completer,
		Pipeline: &readme.Pipeline{
			Fetcher:   fetcher,
			Composer:  composer,
			Generator: completer,
		},
	}

	if throttled && cfg.Throttle.Enabled {
		c.Guard = throttle.NewGuard(cfg.Throttle.Window)
		c.Pipeline.Guard = c.Guard
	}
	return c, nil
}

func newComposer(cfg *config.Config) (*prompt.Composer, error) {
	composer, err := prompt.ComposerFromFile(cfg.Prompt.Path)
	if err != nil {
		return nil, withExitCode(exitConfig, "failed to load prompt template", err)
	}
	return composer, nil
}

func newFetcher(cfg *config.Config) *repoinfo.Fetcher {
	return &repoinfo.Fetcher{
		Client:    &http.Client{Timeout: cfg.GitHub.Timeout},
		BaseURL:   cfg.GitHub.BaseURL,
		Token:     cfg.GitHub.Token,
		UserAgent: userAgent(cfg),
		Backoff:   repoinfo.NewBackoff(),
	}
}

func userAgent(cfg *config.Config) string {
	ua := strings.TrimSpace(cfg.GitHub.UserAgent)
	if ua == "" {
		ua = GetAppIdentity().BinaryName
	}
	if versionInfo.Version != "" {
		ua += "/" + versionInfo.Version
	}
	return ua
}

// newHealthManager registers the readiness checks the service depends on.
func newHealthManager(cfg *config.Config, identity *appidentity.Identity, c *components) *handlers.HealthManager {
	hm := handlers.NewHealthManager(identity.BinaryName, versionInfo.Version)

	hm.RegisterLivenessChecker("signal_handlers", handlers.HealthCheckerFunc(func(context.Context) error {
		return nil
	}))
	hm.RegisterChecker("completion_credentials", handlers.CredentialCheck("completion api key", func() string {
		return cfg.Completion.APIKey
	}))
	hm.RegisterChecker("prompt_template", handlers.ReadyCheck("prompt template", func() bool {
		return c != nil && c.Composer != nil
	}))
	hm.RegisterChecker("app_identity", handlers.HealthCheckerFunc(func(context.Context) error {
		switch {
		case identity.BinaryName == "":
			return errors.New("app identity missing binary name")
		case identity.EnvPrefix == "":
			return errors.New("app identity missing env prefix")
		case identity.ConfigName == "":
			return errors.New("app identity missing config name")
		}
		return nil
	}))
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", handlers.ReadyCheck("telemetry system", func() bool {
			return observability.TelemetrySystem != nil && observability.PrometheusExporter != nil
		}))
	}
	return hm
}

// newServer builds the HTTP server for cfg around the pipeline.
func newServer(cfg *config.Config, identity *appidentity.Identity, c *components) *server.Server {
	opts := server.Options{
		ServiceName:        identity.BinaryName,
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.Server.TrustProxyHeaders,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		Pipeline:           c.Pipeline,
		HealthEnabled:      cfg.Health.Enabled,
		Version: &handlers.VersionHandler{
			Identity: identity,
			Build: handlers.BuildInfo{
				Version:   versionInfo.Version,
				Commit:    versionInfo.Commit,
				BuildDate: versionInfo.BuildDate,
			},
			Completion: handlers.CompletionInfo{
				Provider: c.Completer.Driver.Name(),
				Model:    c.Completer.Model,
			},
		},
		AdminToken: cfg.Server.AdminToken,
	}
	if cfg.Health.Enabled {
		opts.Health = newHealthManager(cfg, identity, c)
	}
	return server.New(opts)
}
