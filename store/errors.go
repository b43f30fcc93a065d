package store

import (
	"errors"
	"fmt"
)

// ErrEmptyStore means the partition holds zero chunks.
var ErrEmptyStore = errors.New("store has no chunks")

// ErrModelMismatch means the partition was built with a different embedding
// model than the one the caller is using. Scores across models are garbage.
var ErrModelMismatch = errors.New("store was built with a different embedding model")

// ErrInvalidId means the partition identifier failed validation.
var ErrInvalidId = errors.New("invalid store id")

// MalformedRecordError marks a persisted row whose embedding field did not
// parse as a flat numeric sequence of the expected length.
type MalformedRecordError struct {
	Row int
	Err error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at row %d: %v", e.Row, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
