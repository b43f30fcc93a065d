package store

import "context"

// Store holds the embedded chunks of one partition and ranks them against a
// query vector. A partition is read-only during query processing; Add writes
// a fresh snapshot. TopK implementations may scan every chunk or sit in
// front of a pre-built index, callers only see this contract.
type Store interface {
	Add(ctx context.Context, chunks ...Chunk) error
	TopK(ctx context.Context, vector []float32, k int) ([]Result, error)
	Count(ctx context.Context) (int, error)
	Model(ctx context.Context) (string, error)
	Close() error
}

// Opener resolves a partition identifier to its Store. Identifiers come from
// outside the process and are validated before they touch any location.
type Opener interface {
	Open(ctx context.Context, id string) (Store, error)
}

type Chunk struct {
	Id        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

type Result struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}
