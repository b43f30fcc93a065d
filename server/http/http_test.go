package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	insight "github.com/w-h-a/insight"
	"github.com/w-h-a/insight/embedder"
	"github.com/w-h-a/insight/generator"
	"github.com/w-h-a/insight/server"
	"github.com/w-h-a/insight/store"
	"github.com/w-h-a/insight/store/memory"
)

type fakeEmbedder struct {
	calls   int
	vectors map[string][]float32
	err     error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0}, nil
}

type fakeGenerator struct {
	completion string
	err        error
}

func (g *fakeGenerator) Generate(ctx context.Context, payload string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.completion, nil
}

func newTestServer(t *testing.T, e embedder.Embedder, g generator.Generator) (*httpServer, store.Opener) {
	t.Helper()

	stores := memory.NewOpener()
	pipeline := insight.New(stores, e, g, nil, "", 3)

	s := &httpServer{
		options:  server.NewOptions(),
		pipeline: pipeline,
		stores:   stores,
		embedder: e,
	}

	return s, stores
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeEmbedder{}, &fakeGenerator{})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/health", nil))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestIngestThenAnswer(t *testing.T) {
	e := &fakeEmbedder{vectors: map[string][]float32{
		"Paris is the capital of France.": {1, 0},
		"What is the capital of France?":  {0.9, 0.1},
	}}
	g := &fakeGenerator{completion: "Paris.\nRef: Paris is the capital of France."}

	s, _ := newTestServer(t, e, g)
	handler := s.routes()

	body, _ := json.Marshal(map[string]any{
		"chunks": []map[string]string{
			{"id": "geo.md", "content": "Paris is the capital of France."},
		},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/v1/stores/docs/chunks", bytes.NewReader(body)))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200 from ingest, got %d: %s", rec.Code, rec.Body.String())
	}

	var ingested map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &ingested); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ingested["chunks_added"] != 1 {
		t.Fatalf("expected 1 chunk added, got %d", ingested["chunks_added"])
	}

	body, _ = json.Marshal(map[string]string{"question": "What is the capital of France?"})

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/v1/stores/docs/answer", bytes.NewReader(body)))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200 from answer, got %d: %s", rec.Code, rec.Body.String())
	}

	var res insight.AnswerResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Answer != "Paris." {
		t.Fatalf("expected Paris., got %q", res.Answer)
	}
	if !res.ShowReference || res.Reference != "Paris is the capital of France." {
		t.Fatalf("expected a visible reference, got %+v", res)
	}
}

func TestAnswer_EmptyStore(t *testing.T) {
	s, _ := newTestServer(t, &fakeEmbedder{}, &fakeGenerator{})
	handler := s.routes()

	body, _ := json.Marshal(map[string]string{"question": "anything?"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/v1/stores/empty/answer", bytes.NewReader(body)))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res insight.AnswerResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Answer != insight.NoAnswerSentinel+"." {
		t.Fatalf("expected the sentinel answer, got %q", res.Answer)
	}
}

func TestAnswer_BlankQuestion(t *testing.T) {
	s, _ := newTestServer(t, &fakeEmbedder{}, &fakeGenerator{})

	body, _ := json.Marshal(map[string]string{"question": "   "})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/v1/stores/docs/answer", bytes.NewReader(body)))

	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIngest_NoChunks(t *testing.T) {
	s, _ := newTestServer(t, &fakeEmbedder{}, &fakeGenerator{})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/v1/stores/docs/chunks", bytes.NewReader([]byte(`{}`))))

	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type recordingStore struct {
	store.Store
	addCalls int
	closed   int
}

func (s *recordingStore) Add(ctx context.Context, chunks ...store.Chunk) error {
	s.addCalls++
	return s.Store.Add(ctx, chunks...)
}

func (s *recordingStore) Close() error {
	s.closed++
	return nil
}

type recordingOpener struct {
	inner store.Opener
	last  *recordingStore
}

func (o *recordingOpener) Open(ctx context.Context, id string) (store.Store, error) {
	st, err := o.inner.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	o.last = &recordingStore{Store: st}
	return o.last, nil
}

func TestIngest_BatchesIntoOneAppend(t *testing.T) {
	opener := &recordingOpener{inner: memory.NewOpener()}

	e := &fakeEmbedder{}
	pipeline := insight.New(opener, e, &fakeGenerator{}, nil, "", 3)

	s := &httpServer{
		options:  server.NewOptions(),
		pipeline: pipeline,
		stores:   opener,
		embedder: e,
	}

	body, _ := json.Marshal(map[string]any{
		"chunks": []map[string]string{
			{"id": "a", "content": "first"},
			{"id": "b", "content": "second"},
			{"id": "c", "content": "third"},
		},
	})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/v1/stores/docs/chunks", bytes.NewReader(body)))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var ingested map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &ingested); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ingested["chunks_added"] != 3 {
		t.Fatalf("expected 3 chunks added, got %d", ingested["chunks_added"])
	}

	if opener.last.addCalls != 1 {
		t.Fatalf("expected the batch to land in one append, got %d", opener.last.addCalls)
	}

	if opener.last.closed != 1 {
		t.Fatalf("expected the store to be closed once, got %d", opener.last.closed)
	}
}

func TestStatusFor(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{store.ErrInvalidId, nethttp.StatusBadRequest},
		{store.ErrModelMismatch, nethttp.StatusConflict},
		{fmt.Errorf("wrapped: %w", embedder.ErrUnavailable), nethttp.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", generator.ErrUnavailable), nethttp.StatusBadGateway},
		{&store.MalformedRecordError{Row: 2, Err: fmt.Errorf("bad float")}, nethttp.StatusInternalServerError},
		{fmt.Errorf("anything else"), nethttp.StatusInternalServerError},
	} {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestStatusCodes_Providers(t *testing.T) {
	e := &fakeEmbedder{err: fmt.Errorf("%w: rate limited", embedder.ErrUnavailable)}

	s, stores := newTestServer(t, e, &fakeGenerator{})

	st, err := stores.Open(context.Background(), "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.Add(context.Background(), store.Chunk{Id: "a", Content: "x", Embedding: []float32{1, 0}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"question": "q?"})

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(nethttp.MethodPost, "/api/v1/stores/docs/answer", bytes.NewReader(body)))

	if rec.Code != nethttp.StatusServiceUnavailable {
		t.Fatalf("expected 503 when embedding is down, got %d", rec.Code)
	}
}
