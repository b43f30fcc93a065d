package insight

import (
	"context"
	"errors"
	"strings"

	"github.com/w-h-a/insight/embedder"
	"github.com/w-h-a/insight/generator"
	"github.com/w-h-a/insight/prompt"
	"github.com/w-h-a/insight/store"
)

const (
	defaultTopK = 3
)

// Pipeline wires the embedding client, store opener, prompt builder, and
// completion client into the single answer flow: embed the question, rank
// chunks, build a bounded prompt, generate, parse. One query costs exactly
// one embedding call, one store scan, and one completion call.
type Pipeline struct {
	stores    store.Opener
	embedder  embedder.Embedder
	generator generator.Generator
	builder   *prompt.Builder
	model     string
	topK      int
}

// Answer responds to a question from the named store partition. Empty
// partitions answer with the no-answer sentinel before any remote call.
// Dependency failures propagate unchanged; there is never a partial answer.
func (p *Pipeline) Answer(ctx context.Context, question string, storeId string) (*AnswerResult, error) {
	if len(strings.TrimSpace(question)) == 0 {
		return nil, errors.New("question is required")
	}

	// cached embedders key on the partition, never across partitions
	ctx = embedder.ContextWithNamespace(ctx, storeId)

	st, err := p.stores.Open(ctx, storeId)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	model, err := st.Model(ctx)
	if err != nil {
		return nil, err
	}
	if len(model) > 0 && len(p.model) > 0 && model != p.model {
		return nil, store.ErrModelMismatch
	}

	n, err := st.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &AnswerResult{Answer: NoAnswerSentinel + "."}, nil
	}

	results, err := p.Retrieve(ctx, question, st)
	if err != nil {
		return nil, err
	}

	payload := p.builder.Build(question, results)

	raw, err := p.generator.Generate(ctx, payload)
	if err != nil {
		return nil, err
	}

	res := Parse(strings.Trim(raw, " \n"))

	for _, r := range results {
		res.Scores = append(res.Scores, r.Score)
		res.Contents = append(res.Contents, r.Chunk.Content)
	}

	return res, nil
}

// Retrieve embeds the question once and ranks the partition's chunks
// against it. Failures come from the embedder or the store alone.
func (p *Pipeline) Retrieve(ctx context.Context, question string, st store.Store) ([]store.Result, error) {
	vec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	return st.TopK(ctx, vec, p.topK)
}

func New(
	stores store.Opener,
	embedder embedder.Embedder,
	generator generator.Generator,
	builder *prompt.Builder,
	model string,
	topK int,
) *Pipeline {
	if stores == nil {
		panic("store opener is required")
	}

	if embedder == nil {
		panic("embedder is required")
	}

	if generator == nil {
		panic("generator is required")
	}

	if builder == nil {
		builder = prompt.NewBuilder()
	}

	if topK <= 0 {
		topK = defaultTopK
	}

	return &Pipeline{
		stores:    stores,
		embedder:  embedder,
		generator: generator,
		builder:   builder,
		model:     model,
		topK:      topK,
	}
}
