package cached

import (
	"context"
	"testing"

	"github.com/w-h-a/insight/cache/memory"
	"github.com/w-h-a/insight/embedder"
)

type countingEmbedder struct {
	calls int
	vec   []float32
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.vec, nil
}

func TestCachedEmbedder_SecondLookupIsLocal(t *testing.T) {
	next := &countingEmbedder{vec: []float32{0.25, -1.5, 3}}

	e := NewEmbedder(next, memory.NewCache(),
		embedder.WithModel("text-embedding-ada-002"),
	)

	first, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.calls != 1 {
		t.Fatalf("expected 1 remote call, got %d", next.calls)
	}

	if len(first) != len(second) {
		t.Fatalf("vectors differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d: %f vs %f", i, first[i], second[i])
		}
	}
}

func TestCachedEmbedder_DistinctTextsMiss(t *testing.T) {
	next := &countingEmbedder{vec: []float32{1}}

	e := NewEmbedder(next, memory.NewCache())

	if _, err := e.Embed(context.Background(), "alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Embed(context.Background(), "beta"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.calls != 2 {
		t.Fatalf("expected 2 remote calls, got %d", next.calls)
	}
}

func TestCachedEmbedder_NamespacesDoNotShare(t *testing.T) {
	c := memory.NewCache()

	first := &countingEmbedder{vec: []float32{1}}
	second := &countingEmbedder{vec: []float32{1}}

	a := NewEmbedder(first, c, embedder.WithNamespace("tenant-a"))
	b := NewEmbedder(second, c, embedder.WithNamespace("tenant-b"))

	if _, err := a.Embed(context.Background(), "shared text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Embed(context.Background(), "shared text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.calls != 1 {
		t.Fatalf("expected tenant-b to miss the cache, got %d remote calls", second.calls)
	}
}

func TestCachedEmbedder_ContextNamespaceScopesKeys(t *testing.T) {
	next := &countingEmbedder{vec: []float32{1}}

	e := NewEmbedder(next, memory.NewCache())

	ctxA := embedder.ContextWithNamespace(context.Background(), "store-a")
	ctxB := embedder.ContextWithNamespace(context.Background(), "store-b")

	if _, err := e.Embed(ctxA, "private text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Embed(ctxB, "private text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.calls != 2 {
		t.Fatalf("expected the second partition to miss the cache, got %d remote calls", next.calls)
	}

	if _, err := e.Embed(ctxA, "private text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.calls != 2 {
		t.Fatalf("expected a repeat within one partition to hit the cache, got %d remote calls", next.calls)
	}
}

func TestCachedEmbedder_ContextNamespaceOverridesOption(t *testing.T) {
	next := &countingEmbedder{vec: []float32{1}}

	e := NewEmbedder(next, memory.NewCache(), embedder.WithNamespace("configured"))

	if _, err := e.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := embedder.ContextWithNamespace(context.Background(), "per-request")
	if _, err := e.Embed(ctx, "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.calls != 2 {
		t.Fatalf("expected the request namespace to take precedence, got %d remote calls", next.calls)
	}
}

func TestEncodeDecode(t *testing.T) {
	vec := []float32{0, -0.5, 1.25, 3e7}

	got := decode(encode(vec))

	if len(got) != len(vec) {
		t.Fatalf("expected %d floats, got %d", len(vec), len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("value %d changed: %f vs %f", i, vec[i], got[i])
		}
	}

	if decode([]byte{1, 2, 3}) != nil {
		t.Fatalf("expected nil for a truncated payload")
	}
}
