package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/config"
	"github.com/readmegen/readmegen/internal/observability"
)

type checkStatus string

const (
	checkPass checkStatus = "ok"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

type doctorCheck struct {
	Name   string
	Status checkStatus
	Detail string
}

var doctorOnline bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on configuration, credentials and the prompt template.",
	RunE: func(cmd *cobra.Command, args []string) error {
		checks := runDoctorChecks(cmd.Context(), doctorOnline)

		observability.CLILogger.Info("=== " + bannerName("doctor") + " ===")
		fmt.Fprintln(cmd.OutOrStdout(), renderChecks(checks))

		failed := 0
		for _, c := range checks {
			if c.Status == checkFail {
				failed++
			}
		}
		if failed > 0 {
			observability.CLILogger.Warn("Some checks failed. Review the output above for details.", zap.Int("failed", failed))
			return withExitCode(exitConfig, fmt.Sprintf("%d doctor checks failed", failed), nil)
		}
		observability.CLILogger.Info("All checks passed")
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration paths and effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, DotEnvFile: envFile, Identity: GetAppIdentity()})
		if err != nil {
			return withExitCode(exitConfig, "failed to load configuration", err)
		}
		if used == "" {
			used = "(none, defaults and environment)"
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Key", "Value"})
		t.AppendRow(table.Row{"config file", used})
		t.AppendRow(table.Row{"default config path", config.DefaultConfigPath(GetAppIdentity())})
		t.AppendSeparator()
		t.AppendRow(table.Row{"server.addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)})
		t.AppendRow(table.Row{"server.trust_proxy_headers", cfg.Server.TrustProxyHeaders})
		t.AppendRow(table.Row{"server.admin_token", maskSecret(cfg.Server.AdminToken)})
		t.AppendRow(table.Row{"throttle", fmt.Sprintf("enabled=%t window=%s", cfg.Throttle.Enabled, cfg.Throttle.Window)})
		t.AppendRow(table.Row{"github.base_url", cfg.GitHub.BaseURL})
		t.AppendRow(table.Row{"github.token", maskSecret(cfg.GitHub.Token)})
		t.AppendRow(table.Row{"completion.provider", cfg.Completion.Provider})
		t.AppendRow(table.Row{"completion.base_url", cfg.Completion.BaseURL})
		t.AppendRow(table.Row{"completion.model", cfg.Completion.Model})
		t.AppendRow(table.Row{"completion.api_key", maskSecret(cfg.Completion.APIKey)})
		t.AppendRow(table.Row{"prompt.path", valueOr(cfg.Prompt.Path, "(embedded)")})
		t.AppendRow(table.Row{"logging", cfg.Logging.Level + "/" + cfg.Logging.Profile})
		t.AppendRow(table.Row{"metrics", fmt.Sprintf("enabled=%t port=%d", cfg.Metrics.Enabled, cfg.Metrics.Port)})

		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.Flags().BoolVar(&doctorOnline, "online", false, "also check that the GitHub API is reachable")
}

func runDoctorChecks(ctx context.Context, online bool) []doctorCheck {
	checks := []doctorCheck{
		{Name: "go runtime", Status: checkPass, Detail: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)},
	}

	version := crucible.GetVersion()
	if version.Gofulmen == "" || version.Crucible == "" {
		checks = append(checks, doctorCheck{Name: "gofulmen", Status: checkFail, Detail: "embedded crucible metadata unavailable"})
	} else {
		checks = append(checks, doctorCheck{Name: "gofulmen", Status: checkPass, Detail: fmt.Sprintf("gofulmen %s, crucible %s", version.Gofulmen, version.Crucible)})
	}

	if path := config.DefaultConfigPath(GetAppIdentity()); path == "" {
		checks = append(checks, doctorCheck{Name: "config directory", Status: checkWarn, Detail: "cannot resolve XDG config directory"})
	} else {
		checks = append(checks, doctorCheck{Name: "config directory", Status: checkPass, Detail: filepath.Dir(path)})
	}

	cfg, used, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, DotEnvFile: envFile, Identity: GetAppIdentity()})
	if err != nil {
		return append(checks, doctorCheck{Name: "configuration", Status: checkFail, Detail: err.Error()})
	}
	checks = append(checks, doctorCheck{Name: "configuration", Status: checkPass, Detail: valueOr(used, "defaults and environment")})

	if err := cfg.Validate(config.Requirements{Completion: true}); err != nil {
		checks = append(checks, doctorCheck{Name: "validation", Status: checkFail, Detail: strings.ReplaceAll(err.Error(), "\n", "; ")})
	} else {
		checks = append(checks, doctorCheck{Name: "validation", Status: checkPass, Detail: "completion credentials present"})
	}

	if cfg.GitHub.Token == "" {
		checks = append(checks, doctorCheck{Name: "github token", Status: checkWarn, Detail: "unauthenticated (60 requests/hour)"})
	} else {
		checks = append(checks, doctorCheck{Name: "github token", Status: checkPass, Detail: maskSecret(cfg.GitHub.Token)})
	}

	if composer, err := newComposer(cfg); err != nil {
		checks = append(checks, doctorCheck{Name: "prompt template", Status: checkFail, Detail: err.Error()})
	} else {
		checks = append(checks, doctorCheck{Name: "prompt template", Status: checkPass, Detail: composer.Prompt().Source})
	}

	if online {
		checks = append(checks, checkGitHubReachable(ctx, cfg))
	}
	return checks
}

func checkGitHubReachable(ctx context.Context, cfg *config.Config) doctorCheck {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(cfg.GitHub.BaseURL, "/")+"/rate_limit", nil)
	if err != nil {
		return doctorCheck{Name: "github api", Status: checkFail, Detail: err.Error()}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent(cfg))
	if cfg.GitHub.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.GitHub.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return doctorCheck{Name: "github api", Status: checkFail, Detail: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	detail := fmt.Sprintf("HTTP %d, remaining %s", resp.StatusCode, valueOr(resp.Header.Get("X-RateLimit-Remaining"), "?"))
	if resp.StatusCode != http.StatusOK {
		return doctorCheck{Name: "github api", Status: checkWarn, Detail: detail}
	}
	return doctorCheck{Name: "github api", Status: checkPass, Detail: detail}
}

func renderChecks(checks []doctorCheck) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range checks {
		t.AppendRow(table.Row{c.Name, string(c.Status), c.Detail})
	}
	return t.Render()
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "(not set)"
	case len(value) <= 8:
		return "****"
	default:
		return value[:4] + "…" + value[len(value)-2:]
	}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
