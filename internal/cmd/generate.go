package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readmegen/readmegen/internal/config"
	"github.com/readmegen/readmegen/internal/observability"
	"github.com/readmegen/readmegen/internal/output"
)

// cliClientID identifies one-shot CLI runs in logs. CLI runs are not
// throttled.
const cliClientID = "cli"

var generateFlagKeys = map[string]string{
	"model":  "completion.model",
	"prompt": "prompt.path",
}

var generateCmd = &cobra.Command{
	Use:   "generate <repo-url>",
	Short: "Generate a README draft for one repository",
	Long: `Fetch repository metadata, compose the prompt and print the generated README.

Examples:
  readmegen generate https://github.com/acme/widget
  readmegen generate https://github.com/acme/widget --format json
  readmegen generate https://github.com/acme/widget -o README.draft.md`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("format", "f", "markdown", "output format: markdown, json, table")
	generateCmd.Flags().StringP("output", "o", "", "write output to file instead of stdout")
	generateCmd.Flags().String("model", "", "completion model override")
	generateCmd.Flags().String("prompt", "", "prompt template file (markdown with YAML frontmatter)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	repoURL := strings.TrimSpace(args[0])

	formatRaw, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatRaw, output.FormatMarkdown)
	if err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig(changedOverrides(cmd, generateFlagKeys), config.Requirements{Completion: true})
	if err != nil {
		return err
	}

	c, err := buildComponents(cfg, false)
	if err != nil {
		return err
	}

	result, err := c.Pipeline.Run(cmd.Context(), cliClientID, repoURL)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatResult(result)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), outputPath, rendered)
}

func writeOutput(stdout io.Writer, path, rendered string) error {
	if strings.TrimSpace(path) == "" {
		_, err := io.WriteString(stdout, rendered)
		return err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if observability.CLILogger != nil {
		observability.CLILogger.Info("Output written", zap.String("path", path), zap.Int("bytes", len(rendered)))
	}
	return nil
}
