// Package openai provides an embedder backed by the OpenAI embeddings
// API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel balances cost and quality for memory content.
const DefaultModel = "text-embedding-3-small"

// DefaultDimensions matches the local MiniLM embedder so stores can
// swap providers without reindexing a dimensionality change.
const DefaultDimensions = 384

// Config configures the OpenAI embedder.
type Config struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// Model overrides DefaultModel.
	Model string

	// Dimensions overrides DefaultDimensions.
	Dimensions int
}

// Embedder generates embeddings via the OpenAI API.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// New creates a new OpenAI embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &Embedder{
		client:     openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts texts to embedding vectors, one per input.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:      e.model,
		Dimensions: openai.Int(int64(e.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		out[i] = toFloat32(data.Embedding)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
