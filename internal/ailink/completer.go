package ailink

import (
	"context"
	"strings"
	"time"

	"github.com/readmegen/readmegen/internal/ailink/content"
	"github.com/readmegen/readmegen/internal/ailink/driver"
)

// Completion is the text produced for one prompt, plus provider bookkeeping.
type Completion struct {
	Text         string        `json:"text"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        *driver.Usage `json:"usage,omitempty"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Duration     time.Duration `json:"-"`
}

// Completer submits a composed prompt as a single chat completion: a fixed
// system instruction followed by the prompt as the user turn. It never
// retries and never streams.
type Completer struct {
	Driver            driver.Driver
	Model             string
	SystemInstruction string
	Temperature       *float64
	MaxTokens         *int
}

// Generate returns the first choice's text. Every failure is a
// *GenerationError matching ErrGenerationFailed.
func (c *Completer) Generate(ctx context.Context, prompt string) (*Completion, error) {
	if c == nil || c.Driver == nil {
		return nil, &GenerationError{Kind: KindConfig, Message: "completion driver not configured"}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = DefaultModel
	}

	messages := make([]content.Message, 0, 2)
	if system := strings.TrimSpace(c.SystemInstruction); system != "" {
		messages = append(messages, content.Text(content.RoleSystem, system))
	}
	messages = append(messages, content.Text(content.RoleUser, prompt))

	provider := c.Driver.Name()
	start := time.Now()
	resp, err := c.Driver.Complete(ctx, &driver.Request{
		Model:       model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		PromptSlug:  "readme",
	})
	duration := time.Since(start)
	if err != nil {
		return nil, mapProviderError(provider, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, &GenerationError{Kind: KindEmpty, Provider: provider, Message: "provider returned empty text"}
	}

	return &Completion{
		Text:         text,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
		Provider:     provider,
		Model:        model,
		Duration:     duration,
	}, nil
}
