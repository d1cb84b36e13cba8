package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/readmegen/readmegen/internal/ailink/prompt"
	"github.com/readmegen/readmegen/internal/readme"
	"github.com/readmegen/readmegen/internal/repoinfo"
)

// TableFormatter renders metadata as an ASCII table. Generated README text
// follows the table unchanged.
type TableFormatter struct{}

// FormatResult renders run details as a table followed by the README.
func (f *TableFormatter) FormatResult(result *readme.Result) (string, error) {
	if result == nil {
		return "", nil
	}

	t := newTable()
	appendInfoRows(t, result.RepoURL, result.Repository)

	if c := result.Completion; c != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Provider", c.Provider})
		t.AppendRow(table.Row{"Model", c.Model})
		if c.FinishReason != "" {
			t.AppendRow(table.Row{"Finish reason", c.FinishReason})
		}
		if c.Usage != nil {
			t.AppendRow(table.Row{"Tokens", fmt.Sprintf("%d prompt + %d completion = %d",
				c.Usage.PromptTokens, c.Usage.CompletionTokens, c.Usage.TotalTokens)})
		}
	}
	t.AppendFooter(table.Row{"Duration", result.Duration.Round(1e6).String()})

	return t.Render() + "\n\n" + ensureTrailingNewline(strings.TrimSpace(result.Readme)), nil
}

// FormatInfo renders repository metadata as a table.
func (f *TableFormatter) FormatInfo(repoURL string, info *repoinfo.Info) (string, error) {
	if info == nil {
		return "", nil
	}
	t := newTable()
	appendInfoRows(t, repoURL, info)
	return t.Render() + "\n", nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	return t
}

func appendInfoRows(t table.Writer, repoURL string, info *repoinfo.Info) {
	if info == nil {
		t.AppendRow(table.Row{"URL", repoURL})
		return
	}
	t.AppendRow(table.Row{"Name", info.Name})
	if info.FullName != "" {
		t.AppendRow(table.Row{"Repository", info.FullName})
	}
	t.AppendRow(table.Row{"URL", urlOr(info, repoURL)})
	t.AppendRow(table.Row{"Description", info.DescriptionOr(prompt.NoDescription)})
	t.AppendRow(table.Row{"Language", info.LanguageOr(prompt.NoLanguage)})
}
