package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/insight/embedder"
	genaiopt "google.golang.org/api/option"
	"google.golang.org/api/googleapi"
)

type googleEmbedder struct {
	options embedder.Options
	client  *genai.Client
}

func (e *googleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32

	err := embedder.Do(ctx, e.options.MaxAttempts, e.options.BaseDelay, e.options.MaxDelay, isTransient, func() error {
		model := e.client.EmbeddingModel(e.options.Model)
		rsp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return err
		}

		if rsp == nil || rsp.Embedding == nil || len(rsp.Embedding.Values) == 0 {
			return errors.New("no response from Google")
		}

		vec = rsp.Embedding.Values

		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", embedder.ErrUnavailable, err)
	}

	return vec, nil
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	e := &googleEmbedder{
		options: options,
	}

	client, err := genai.NewClient(
		context.Background(),
		genaiopt.WithAPIKey(options.ApiKey),
	)
	if err != nil {
		panic(err)
	}

	e.client = client

	return e
}
