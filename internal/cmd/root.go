package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/ailink/driver"
	"github.com/readmegen/readmegen/internal/appid"
	"github.com/readmegen/readmegen/internal/config"
	"github.com/readmegen/readmegen/internal/observability"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	traceFile string

	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}

	stopTracing func()
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initCLI)
func GetAppIdentity() *appidentity.Identity {
	if appIdentity == nil {
		return appid.Default()
	}
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   appid.BinaryName,
	Short: "Generate README drafts for public repositories",
	Long: `readmegen fetches repository metadata from GitHub, composes a prompt and asks
a chat completion model for a README draft.

Run "serve" for the HTTP API or "generate" for a one-shot draft.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initCLI,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopTracing != nil {
			stopTracing()
			stopTracing = nil
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep global telemetry quiet for CLI commands; serve installs its own.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		appIdentity = identity
		if identity.Description != "" {
			rootCmd.Short = identity.Description
		}
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/readmegen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace completion requests/responses to NDJSON file")
}

// initCLI loads identity, the CLI logger and optional tracing before any
// subcommand runs.
func initCLI(cmd *cobra.Command, args []string) error {
	identity, err := appid.Get(cmd.Context())
	if err != nil {
		return withExitCode(exitIdentity, "failed to load app identity", err)
	}
	appIdentity = identity

	if err := observability.InitCLILogger(identity.BinaryName, verbose); err != nil {
		return withExitCode(exitConfig, "failed to initialize logging", err)
	}

	if traceFile != "" {
		cleanup, err := driver.EnableTracing(traceFile)
		if err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			observability.CLILogger.Debug("Completion tracing enabled", zap.String("file", traceFile))
			stopTracing = cleanup
		}
	}
	return nil
}

// loadConfig reads configuration with flag overrides and validates it.
func loadConfig(overrides map[string]any, req config.Requirements) (*config.Config, error) {
	cfg, used, err := config.Load(config.LoadOptions{
		ConfigFile: cfgFile,
		DotEnvFile: envFile,
		Identity:   GetAppIdentity(),
		Overrides:  overrides,
	})
	if err != nil {
		return nil, withExitCode(exitConfig, "failed to load configuration", err)
	}
	if used != "" && observability.CLILogger != nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", used))
	}
	if err := cfg.Validate(req); err != nil {
		return nil, withExitCode(exitConfig, "invalid configuration", err)
	}
	return cfg, nil
}

// changedOverrides maps changed flags to config keys.
func changedOverrides(cmd *cobra.Command, keys map[string]string) map[string]any {
	overrides := make(map[string]any)
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		overrides[key] = f.Value.String()
	}
	if verbose {
		overrides["logging.level"] = "debug"
	}
	return overrides
}

func bannerName(suffix string) string {
	return fmt.Sprintf("%s %s", GetAppIdentity().BinaryName, suffix)
}
