package memory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Capability calls retry on transient failure with bounded exponential
// backoff: three attempts total, ~4s initial interval, 10s cap.
const (
	retryAttempts        = 3
	retryInitialInterval = 4 * time.Second
	retryMaxInterval     = 10 * time.Second
)

func retryPolicy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	return backoff.WithContext(backoff.WithMaxRetries(bo, retryAttempts-1), ctx)
}

// RetryEmbedder wraps an Embedder with the standard retry policy.
// Validation errors and context cancellation pass through immediately;
// everything else is retried and, once exhausted, reported as
// ErrEmbeddingUnavailable.
type RetryEmbedder struct {
	inner Embedder
}

// NewRetryEmbedder wraps e with retries.
func NewRetryEmbedder(e Embedder) *RetryEmbedder {
	return &RetryEmbedder{inner: e}
}

// Embed calls the wrapped embedder with retries.
func (r *RetryEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	attempt := 0
	vecs, err := backoff.RetryWithData(func() ([][]float32, error) {
		attempt++
		out, err := r.inner.Embed(ctx, texts)
		if err != nil {
			if !IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			log.Printf("[RETRY] embed attempt %d failed: %v", attempt, err)
			return nil, err
		}
		return out, nil
	}, retryPolicy(ctx))
	if err != nil {
		if !IsRetryable(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	return vecs, nil
}

// Dimensions returns the wrapped embedder's vector size.
func (r *RetryEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// RetryCompleter wraps a Completer with the standard retry policy.
// Exhausted retries are reported as ErrCompletionUnavailable.
type RetryCompleter struct {
	inner Completer
}

// NewRetryCompleter wraps c with retries.
func NewRetryCompleter(c Completer) *RetryCompleter {
	return &RetryCompleter{inner: c}
}

// Generate calls the wrapped completer with retries.
func (r *RetryCompleter) Generate(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	attempt := 0
	text, err := backoff.RetryWithData(func() (string, error) {
		attempt++
		out, err := r.inner.Generate(ctx, prompt, opts)
		if err != nil {
			if !IsRetryable(err) {
				return "", backoff.Permanent(err)
			}
			log.Printf("[RETRY] completion attempt %d failed: %v", attempt, err)
			return "", err
		}
		return out, nil
	}, retryPolicy(ctx))
	if err != nil {
		if !IsRetryable(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionUnavailable, err)
	}
	return text, nil
}
