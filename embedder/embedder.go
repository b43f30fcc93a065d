package embedder

import (
	"context"
	"errors"
)

// ErrUnavailable means the remote embedding service kept failing after the
// bounded retry schedule. Callers may surface this as a retryable failure.
var ErrUnavailable = errors.New("embedding service unavailable")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
