package generator

import (
	"context"
	"errors"
)

// ErrUnavailable means the remote completion service failed. Generation is
// billed and not idempotent, so there is no retry loop behind this error.
var ErrUnavailable = errors.New("completion service unavailable")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
