package memory

import (
	"context"
	"errors"
)

// Sentinel errors for the capability and storage boundaries. Callers
// classify failures with errors.Is; everything else is wrapped context.
var (
	// ErrValidation marks caller mistakes: empty content, unknown
	// layer, bad parameters. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrEmbeddingUnavailable marks an embedding capability failure
	// after retries were exhausted.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrCompletionUnavailable marks a completion capability failure
	// after retries were exhausted.
	ErrCompletionUnavailable = errors.New("completion provider unavailable")

	// ErrVectorStoreUnavailable marks a backend failure (connection,
	// collection access, corrupt state).
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)

// IsRetryable reports whether an operation that produced err is worth
// another attempt. Validation errors and cancellations are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
