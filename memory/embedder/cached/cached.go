// Package cached wraps any embedder with a ristretto cache so repeated
// content (re-embeds on update, recurring queries) skips the provider.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Embedder matches the memory package's batch embedding contract.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Config tunes the cache.
type Config struct {
	// MaxCostBytes bounds total cached vector bytes. Default: 64 MiB.
	MaxCostBytes int64
}

// CachedEmbedder fronts an embedder with an in-process cache keyed by
// exact text. Only cache misses reach the wrapped provider; the batch
// sent downstream preserves input order for the misses.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache.
func New(inner Embedder, cfg Config) (*CachedEmbedder, error) {
	maxCost := cfg.MaxCostBytes
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed serves cached vectors and batches the misses downstream.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			if vec, ok := v.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := c.inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			out[missIdx[j]] = vec
			c.cache.Set(missTexts[j], vec, int64(len(vec)*4))
		}
		c.cache.Wait()
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's vector size.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases cache resources.
func (c *CachedEmbedder) Close() {
	c.cache.Close()
}
