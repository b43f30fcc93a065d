package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/w-h-a/insight/store"
)

type memoryStore struct {
	options store.Options
	chunks  []store.Chunk
	mtx     sync.RWMutex
}

func (s *memoryStore) Add(ctx context.Context, chunks ...store.Chunk) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, ch := range chunks {
		if len(s.chunks) > 0 && len(ch.Embedding) != len(s.chunks[0].Embedding) {
			return fmt.Errorf("chunk %s: embedding length %d, want %d", ch.Id, len(ch.Embedding), len(s.chunks[0].Embedding))
		}

		cpy := ch
		cpy.Embedding = store.Normalize(ch.Embedding)
		s.chunks = append(s.chunks, cpy)
	}

	return nil
}

func (s *memoryStore) TopK(ctx context.Context, vector []float32, k int) ([]store.Result, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if len(s.chunks) == 0 {
		return nil, store.ErrEmptyStore
	}

	return store.Rank(s.chunks, vector, k), nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return len(s.chunks), nil
}

func (s *memoryStore) Model(ctx context.Context) (string, error) {
	return s.options.Model, nil
}

func (s *memoryStore) Close() error {
	return nil
}

type memoryOpener struct {
	options store.Options
	stores  map[string]*memoryStore
	mtx     sync.Mutex
}

func (o *memoryOpener) Open(ctx context.Context, id string) (store.Store, error) {
	if err := store.ValidateId(id); err != nil {
		return nil, err
	}

	o.mtx.Lock()
	defer o.mtx.Unlock()

	if s, exists := o.stores[id]; exists {
		return s, nil
	}

	s := &memoryStore{
		options: o.options,
	}

	o.stores[id] = s

	return s, nil
}

func NewStore(opts ...store.Option) store.Store {
	options := store.NewOptions(opts...)

	return &memoryStore{
		options: options,
	}
}

func NewOpener(opts ...store.Option) store.Opener {
	options := store.NewOptions(opts...)

	return &memoryOpener{
		options: options,
		stores:  map[string]*memoryStore{},
	}
}
