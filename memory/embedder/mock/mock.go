package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic embedder for testing. Embeddings are
// generated from a hash of the text, so identical inputs always map to
// identical vectors without any model files.
type MockEmbedder struct {
	dimensions int
}

// New creates a new mock embedder.
func New() *MockEmbedder {
	return &MockEmbedder{
		dimensions: 384, // Match all-MiniLM-L6-v2 dimensions
	}
}

// Embed creates one deterministic embedding per input text.
func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.embedOne(text)
	}
	return out, nil
}

func (m *MockEmbedder) embedOne(text string) []float32 {
	// Hash the text
	h := fnv.New64a()
	h.Write([]byte(text))
	hash := h.Sum64()

	embedding := make([]float32, m.dimensions)

	// Use hash as seed for pseudo-random generation
	seed := hash
	for i := 0; i < m.dimensions; i++ {
		// Simple LCG (Linear Congruential Generator)
		seed = seed*6364136223846793005 + 1442695040888963407
		// Convert to [-1, 1] range
		val := float32(int64(seed)) / float32(math.MaxInt64)
		embedding[i] = val
	}

	return normalize(embedding)
}

// Dimensions returns the embedding size.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// normalize converts embedding to unit vector.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}

	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / norm
	}

	return normalized
}
