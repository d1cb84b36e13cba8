// Package output renders generation results and repository metadata for the
// CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/readmegen/readmegen/internal/readme"
	"github.com/readmegen/readmegen/internal/repoinfo"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders pipeline output.
type Formatter interface {
	FormatResult(result *readme.Result) (string, error)
	FormatInfo(repoURL string, info *repoinfo.Info) (string, error)
}

// ParseFormat validates and normalizes a format string. An empty value
// yields fallback.
func ParseFormat(value string, fallback Format) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "":
		return fallback, nil
	case string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
