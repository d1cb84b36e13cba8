package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readmegen/readmegen/internal/repoinfo"
)

func strPtr(s string) *string { return &s }

func TestComposerBuildSubstitutesMetadata(t *testing.T) {
	composer, err := DefaultComposer()
	require.NoError(t, err)

	out := composer.Build(&repoinfo.Info{
		Name:        "widget",
		Description: strPtr("A tiny widget"),
		Language:    strPtr("TypeScript"),
	})

	require.Contains(t, out, "named 'widget'")
	require.Contains(t, out, "Repository description: A tiny widget")
	require.Contains(t, out, "Main language: TypeScript")
	require.NotContains(t, out, "{{")
}

func TestComposerBuildUsesPlaceholders(t *testing.T) {
	composer, err := DefaultComposer()
	require.NoError(t, err)

	out := composer.Build(&repoinfo.Info{Name: "widget", Description: strPtr("")})
	require.Contains(t, out, "Repository description: "+NoDescription)
	require.Contains(t, out, "Main language: "+NoLanguage)
}

func TestComposerBuildKeepsWhitespaceDescription(t *testing.T) {
	composer, err := DefaultComposer()
	require.NoError(t, err)

	out := composer.Build(&repoinfo.Info{Name: "widget", Description: strPtr("   "), Language: strPtr("Go")})
	require.Contains(t, out, "Repository description:    \n")
	require.NotContains(t, out, NoDescription)
}

func TestComposerBuildIsDeterministic(t *testing.T) {
	composer, err := DefaultComposer()
	require.NoError(t, err)

	info := &repoinfo.Info{Name: "widget", Language: strPtr("Go")}
	first := composer.Build(info)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, composer.Build(info))
	}
}

func TestComposerBuildDoesNotReexpand(t *testing.T) {
	composer, err := NewComposer(&Prompt{Config: Config{
		Slug:           "x",
		SystemTemplate: "sys",
		UserTemplate:   "{{name}}|{{description}}|{{language}}",
	}})
	require.NoError(t, err)

	out := composer.Build(&repoinfo.Info{Name: "{{language}}", Description: strPtr("{{name}}"), Language: strPtr("Go")})
	require.Equal(t, "{{language}}|{{name}}|Go", out)
}

func TestComposerFromFile(t *testing.T) {
	composer, err := ComposerFromFile("")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(composer.SystemInstruction(), "You are a helpful assistant"))

	path := filepath.Join(t.TempDir(), "short.md")
	require.NoError(t, os.WriteFile(path, []byte("---\nslug: short\nsystem_template: terse\n---\nREADME for {{name}} ({{language}})\n"), 0o600))

	composer, err = ComposerFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "terse", composer.SystemInstruction())
	require.Equal(t, "README for widget (Not specified)", composer.Build(&repoinfo.Info{Name: "widget"}))
}

func TestNewComposerRequiresPrompt(t *testing.T) {
	_, err := NewComposer(nil)
	require.Error(t, err)

	_, err = NewComposerFromRegistry(nil, DefaultSlug)
	require.Error(t, err)
}
