package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	insight "github.com/w-h-a/insight"
	"github.com/w-h-a/insight/embedder"
	"github.com/w-h-a/insight/generator"
	"github.com/w-h-a/insight/server"
	"github.com/w-h-a/insight/store"
)

// httpServer exposes the answer pipeline plus the ingestion collaborator
// contract: callers hand over (id, content) records and the server embeds
// and appends them to the named partition.
type httpServer struct {
	options  server.Options
	pipeline *insight.Pipeline
	stores   store.Opener
	embedder embedder.Embedder
	server   *http.Server
}

type answerRequest struct {
	Question string `json:"question"`
}

type ingestRequest struct {
	Chunks []ingestChunk `json:"chunks"`
}

type ingestChunk struct {
	Id      string `json:"id"`
	Content string `json:"content"`
}

func (s *httpServer) routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/stores/{store}/answer", s.handleAnswer).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/stores/{store}/chunks", s.handleIngest).Methods(http.MethodPost)

	var handler http.Handler = router
	if ms, ok := MiddlewareFrom(s.options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}
	}

	return handler
}

func (s *httpServer) Run() error {
	s.server = &http.Server{
		Addr:    s.options.Address,
		Handler: s.routes(),
	}

	slog.InfoContext(s.options.Context, "http server listening", "address", s.options.Address)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *httpServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *httpServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

func (s *httpServer) handleAnswer(w http.ResponseWriter, r *http.Request) {
	storeId := mux.Vars(r)["store"]

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(strings.TrimSpace(req.Question)) == 0 {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := s.pipeline.Answer(r.Context(), req.Question, storeId)
	if err != nil {
		status := statusFor(err)
		slog.ErrorContext(r.Context(), "failed to answer", "store", storeId, "error", err)
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *httpServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	storeId := mux.Vars(r)["store"]

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, "chunks are required")
		return
	}

	ctx := embedder.ContextWithNamespace(r.Context(), storeId)

	st, err := s.stores.Open(ctx, storeId)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	defer st.Close()

	chunks := make([]store.Chunk, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		if len(strings.TrimSpace(c.Content)) == 0 {
			continue
		}

		id := c.Id
		if len(id) == 0 {
			id = uuid.New().String()
		}

		vec, err := s.embedder.Embed(ctx, c.Content)
		if err != nil {
			slog.ErrorContext(ctx, "failed to embed chunk", "store", storeId, "chunk", id, "error", err)
			writeError(w, statusFor(err), err.Error())
			return
		}

		chunks = append(chunks, store.Chunk{Id: id, Content: c.Content, Embedding: vec})
	}

	// one append so file-backed stores snapshot once per batch
	if len(chunks) > 0 {
		if err := st.Add(ctx, chunks...); err != nil {
			slog.ErrorContext(ctx, "failed to store chunks", "store", storeId, "error", err)
			writeError(w, statusFor(err), err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"chunks_added": len(chunks)})
}

func statusFor(err error) int {
	var malformed *store.MalformedRecordError

	switch {
	case errors.Is(err, store.ErrInvalidId):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrModelMismatch):
		return http.StatusConflict
	case errors.Is(err, embedder.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, generator.ErrUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &malformed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func NewServer(
	pipeline *insight.Pipeline,
	stores store.Opener,
	e embedder.Embedder,
	opts ...server.Option,
) server.Server {
	options := server.NewOptions(opts...)

	if pipeline == nil {
		panic("pipeline is required")
	}

	if stores == nil {
		panic("store opener is required")
	}

	if e == nil {
		panic("embedder is required")
	}

	return &httpServer{
		options:  options,
		pipeline: pipeline,
		stores:   stores,
		embedder: e,
	}
}
