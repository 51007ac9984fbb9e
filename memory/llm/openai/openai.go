// Package openai provides a completion capability backed by the OpenAI
// chat completions API.
package openai

import (
	"context"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mnemosyneos/mnemo/memory"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config configures the OpenAI completer.
type Config struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// Model overrides DefaultModel.
	Model string
}

// Completer generates text via the OpenAI chat completions API.
type Completer struct {
	client openai.Client
	model  string
}

// New creates a new OpenAI completer.
func New(cfg Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Completer{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
	}, nil
}

// Generate sends a single-turn prompt and returns the text response.
func (c *Completer) Generate(ctx context.Context, prompt string, opts *memory.GenerateOptions) (string, error) {
	if opts == nil {
		opts = &memory.GenerateOptions{}
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: c.model,
	}
	if opts.Temperature != 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP != 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if len(opts.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.Stop,
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai api error: empty choices")
	}

	text := completion.Choices[0].Message.Content
	log.Printf("[OPENAI] generated %d chars with %s", len(text), c.model)
	return text, nil
}
