package output

import (
	"fmt"
	"strings"

	"github.com/readmegen/readmegen/internal/ailink/prompt"
	"github.com/readmegen/readmegen/internal/readme"
	"github.com/readmegen/readmegen/internal/repoinfo"
)

// MarkdownFormatter writes the generated README verbatim.
type MarkdownFormatter struct{}

// FormatResult returns the README text unchanged.
func (f *MarkdownFormatter) FormatResult(result *readme.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return ensureTrailingNewline(result.Readme), nil
}

// FormatInfo renders metadata as a short markdown summary.
func (f *MarkdownFormatter) FormatInfo(repoURL string, info *repoinfo.Info) (string, error) {
	if info == nil {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", info.Name)
	if info.FullName != "" {
		fmt.Fprintf(&b, "- Repository: `%s`\n", info.FullName)
	}
	fmt.Fprintf(&b, "- URL: %s\n", urlOr(info, repoURL))
	fmt.Fprintf(&b, "- Description: %s\n", info.DescriptionOr(prompt.NoDescription))
	fmt.Fprintf(&b, "- Language: %s\n", info.LanguageOr(prompt.NoLanguage))
	return b.String(), nil
}

func urlOr(info *repoinfo.Info, fallback string) string {
	if info != nil && info.HTMLURL != "" {
		return info.HTMLURL
	}
	return fallback
}
