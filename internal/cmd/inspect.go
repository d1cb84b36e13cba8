package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/readmegen/readmegen/internal/config"
	"github.com/readmegen/readmegen/internal/output"
)

var inspectFlagKeys = map[string]string{
	"prompt": "prompt.path",
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <repo-url>",
	Short: "Show the metadata (and prompt) used for a repository",
	Long: `Fetch repository metadata without calling the completion provider.

Use --show-prompt to print the composed prompt exactly as it would be sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringP("format", "f", "table", "output format: table, json, markdown")
	inspectCmd.Flags().Bool("show-prompt", false, "print the system instruction and composed prompt")
	inspectCmd.Flags().String("prompt", "", "prompt template file (markdown with YAML frontmatter)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	repoURL := strings.TrimSpace(args[0])

	formatRaw, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatRaw, output.FormatTable)
	if err != nil {
		return err
	}
	showPrompt, _ := cmd.Flags().GetBool("show-prompt")

	cfg, err := loadConfig(changedOverrides(cmd, inspectFlagKeys), config.Requirements{})
	if err != nil {
		return err
	}

	composer, err := newComposer(cfg)
	if err != nil {
		return err
	}

	info, err := newFetcher(cfg).Fetch(cmd.Context(), repoURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rendered, err := output.NewFormatter(format).FormatInfo(repoURL, info)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, rendered); err != nil {
		return err
	}

	if showPrompt {
		_, err = fmt.Fprintf(out, "\n--- system ---\n%s\n\n--- prompt ---\n%s\n",
			strings.TrimSpace(composer.SystemInstruction()), composer.Build(info))
	}
	return err
}
