// Package anthropic provides a completion capability backed by the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mnemosyneos/mnemo/memory"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-sonnet-4-20250514"

// Config configures the Anthropic completer.
type Config struct {
	// APIKey authenticates against the Anthropic API. Required.
	APIKey string

	// Model overrides DefaultModel.
	Model string

	// SystemPrompt is prepended to every generation. Optional.
	SystemPrompt string
}

// Completer generates text via the Anthropic Messages API.
type Completer struct {
	client anthropic.Client
	config Config
}

// New creates a new Anthropic completer.
func New(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Completer{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		config: cfg,
	}, nil
}

// Generate sends a single-turn prompt and returns the text response.
func (c *Completer) Generate(ctx context.Context, prompt string, opts *memory.GenerateOptions) (string, error) {
	if opts == nil {
		opts = &memory.GenerateOptions{}
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.config.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: c.config.SystemPrompt},
		}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(opts.TopP)
	}
	if len(opts.Stop) > 0 {
		params.StopSequences = opts.Stop
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	log.Printf("[ANTHROPIC] generated %d chars with %s", len(text), c.config.Model)
	return text, nil
}
