package cached

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/w-h-a/insight/cache"
	"github.com/w-h-a/insight/embedder"
)

// cachedEmbedder memoizes vectors from the wrapped embedder. The remote
// model is stateless, so identical text under the same model always maps to
// the same vector; keys carry the namespace so partitions never share
// entries.
type cachedEmbedder struct {
	options embedder.Options
	cache   cache.Cache
	next    embedder.Embedder
}

func (e *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ns := e.options.Namespace
	if ctxNs, ok := embedder.NamespaceFrom(ctx); ok {
		ns = ctxNs
	}

	key := cache.Key(ns, e.options.Model, text)

	if bs, ok := e.cache.Get(ctx, key); ok {
		if vec := decode(bs); len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(ctx, key, encode(vec))

	return vec, nil
}

func encode(vec []float32) []byte {
	bs := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(bs[i*4:], math.Float32bits(v))
	}
	return bs
}

func decode(bs []byte) []float32 {
	if len(bs)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(bs)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(bs[i*4 : (i+1)*4]))
	}
	return vec
}

func NewEmbedder(next embedder.Embedder, c cache.Cache, opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if next == nil {
		panic("wrapped embedder is required")
	}

	if c == nil {
		panic("cache is required")
	}

	return &cachedEmbedder{
		options: options,
		cache:   c,
		next:    next,
	}
}
