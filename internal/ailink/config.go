package ailink

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/readmegen/readmegen/internal/ailink/driver"
	"github.com/readmegen/readmegen/internal/ailink/driver/openai"
)

// DefaultModel is the pinned chat model used when none is configured.
const DefaultModel = "gpt-3.5-turbo"

// Config selects and parameterizes the completion provider.
type Config struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NewDriver builds the driver named by cfg.Provider. OpenAI-compatible
// endpoints are reached through the openai driver with a custom BaseURL.
func NewDriver(cfg Config, httpClient *http.Client) (driver.Driver, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "openai", "openai-compatible":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, &GenerationError{Kind: KindConfig, Message: "completion api key is not configured"}
		}
		client := openai.NewClient(cfg.BaseURL, cfg.APIKey)
		client.HTTPClient = httpClient
		client.Timeout = cfg.Timeout
		return client, nil
	default:
		return nil, &GenerationError{Kind: KindConfig, Message: fmt.Sprintf("unsupported completion provider %q", cfg.Provider)}
	}
}

// NewCompleterFromConfig wires a Completer for cfg with the given system
// instruction.
func NewCompleterFromConfig(cfg Config, systemInstruction string, httpClient *http.Client) (*Completer, error) {
	drv, err := NewDriver(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Completer{Driver: drv, Model: model, SystemInstruction: systemInstruction}, nil
}
