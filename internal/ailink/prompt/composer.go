package prompt

import (
	"fmt"
	"strings"

	"github.com/readmegen/readmegen/internal/repoinfo"
)

// Placeholder text used when the provider reports no value.
const (
	NoDescription = "No description available"
	NoLanguage    = "Not specified"
)

const (
	placeholderName        = "{{name}}"
	placeholderDescription = "{{description}}"
	placeholderLanguage    = "{{language}}"
)

// Composer renders repository metadata into the user prompt for a README.
// It holds no mutable state and is safe for concurrent use.
type Composer struct {
	prompt *Prompt
}

// NewComposer wraps a loaded prompt.
func NewComposer(p *Prompt) (*Composer, error) {
	if p == nil {
		return nil, fmt.Errorf("prompt is required")
	}
	if err := validateConfig(p.Config); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", p.Source, err)
	}
	return &Composer{prompt: p}, nil
}

// NewComposerFromRegistry looks up slug in reg.
func NewComposerFromRegistry(reg Registry, slug string) (*Composer, error) {
	if reg == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	p, err := reg.Get(slug)
	if err != nil {
		return nil, err
	}
	return NewComposer(p)
}

// DefaultComposer uses the embedded README prompt.
func DefaultComposer() (*Composer, error) {
	reg, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	return NewComposerFromRegistry(reg, DefaultSlug)
}

// ComposerFromFile loads a custom prompt from path, falling back to the
// embedded prompt when path is empty.
func ComposerFromFile(path string) (*Composer, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultComposer()
	}
	p, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewComposer(p)
}

// Build renders the user prompt for info. Substitution is a single pass, so
// metadata containing placeholder text is never expanded again.
func (c *Composer) Build(info *repoinfo.Info) string {
	var (
		name        string
		description = NoDescription
		language    = NoLanguage
	)
	if info != nil {
		name = info.Name
		description = info.DescriptionOr(NoDescription)
		language = info.LanguageOr(NoLanguage)
	}

	replacer := strings.NewReplacer(
		placeholderName, name,
		placeholderDescription, description,
		placeholderLanguage, language,
	)
	return replacer.Replace(c.prompt.Config.UserTemplate)
}

// SystemInstruction is the fixed system message sent with every prompt.
func (c *Composer) SystemInstruction() string {
	return c.prompt.Config.SystemTemplate
}

// Prompt exposes the underlying definition.
func (c *Composer) Prompt() *Prompt {
	return c.prompt
}
