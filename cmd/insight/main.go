package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	insight "github.com/w-h-a/insight"
	"github.com/w-h-a/insight/cache"
	memorycache "github.com/w-h-a/insight/cache/memory"
	rediscache "github.com/w-h-a/insight/cache/redis"
	"github.com/w-h-a/insight/embedder"
	"github.com/w-h-a/insight/embedder/cached"
	googleembedder "github.com/w-h-a/insight/embedder/google"
	openaiembedder "github.com/w-h-a/insight/embedder/openai"
	"github.com/w-h-a/insight/generator"
	anthropicgenerator "github.com/w-h-a/insight/generator/anthropic"
	googlegenerator "github.com/w-h-a/insight/generator/google"
	openaigenerator "github.com/w-h-a/insight/generator/openai"
	"github.com/w-h-a/insight/internal/config"
	"github.com/w-h-a/insight/prompt"
	"github.com/w-h-a/insight/server"
	httpserver "github.com/w-h-a/insight/server/http"
	"github.com/w-h-a/insight/store"
	csvstore "github.com/w-h-a/insight/store/csv"
	memorystore "github.com/w-h-a/insight/store/memory"
	pgstore "github.com/w-h-a/insight/store/postgres"
	sqlitestore "github.com/w-h-a/insight/store/sqlite"
)

var cli struct {
	Config       string `help:"Path to YAML config file" default:"" env:"INSIGHT_CONFIG"`
	EmbedderKey  string `help:"API key override for the embedder" default:"" env:"EMBEDDER_API_KEY"`
	GeneratorKey string `help:"API key override for the generator" default:"" env:"GENERATOR_API_KEY"`

	Ask   askCmd   `cmd:"" help:"Answer a question against a document store"`
	Serve serveCmd `cmd:"" help:"Run the HTTP API"`
}

type application struct {
	cfg      *config.Config
	stores   store.Opener
	embedder embedder.Embedder
	pipeline *insight.Pipeline
}

type askCmd struct {
	Store    string `arg:"" help:"Store identifier"`
	Question string `arg:"" help:"Question to answer"`
}

func (c *askCmd) Run(app *application) error {
	ctx := context.Background()

	result, err := app.pipeline.Answer(ctx, c.Question, c.Store)
	if err != nil {
		return err
	}

	fmt.Printf("Answer: %s\n", result.Answer)

	if result.ShowReference {
		fmt.Printf("Reference: %s\n", result.Reference)
	}

	for i, score := range result.Scores {
		fmt.Printf("  %d. score=%.4f\n", i+1, score)
	}

	return nil
}

type serveCmd struct {
	Address string `help:"Listen address override" default:""`
}

func (c *serveCmd) Run(app *application) error {
	address := app.cfg.Address
	if len(c.Address) > 0 {
		address = c.Address
	}

	srv := httpserver.NewServer(
		app.pipeline,
		app.stores,
		app.embedder,
		server.WithAddress(address),
		httpserver.WithMiddleware(requestLogger),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	}
}

func requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		slog.InfoContext(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func newOpener(cfg *config.Config) store.Opener {
	opts := []store.Option{
		store.WithLocation(cfg.Store.Location),
		store.WithModel(cfg.Embedder.Model),
		store.WithDimension(cfg.Store.Dimension),
	}

	switch cfg.Store.Provider {
	case "memory":
		return memorystore.NewOpener(opts...)
	case "sqlite":
		return sqlitestore.NewOpener(opts...)
	case "postgres":
		return pgstore.NewOpener(opts...)
	default:
		return csvstore.NewOpener(opts...)
	}
}

func newCache(cfg *config.Config) cache.Cache {
	switch cfg.Cache.Provider {
	case "redis":
		return rediscache.NewCache(
			cache.WithLocation(cfg.Cache.Location),
		)
	case "none":
		return nil
	default:
		return memorycache.NewCache(
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
		)
	}
}

func newEmbedder(cfg *config.Config) embedder.Embedder {
	opts := []embedder.Option{
		embedder.WithApiKey(cfg.Embedder.ApiKey),
		embedder.WithModel(cfg.Embedder.Model),
	}

	var e embedder.Embedder
	switch cfg.Embedder.Provider {
	case "google":
		e = googleembedder.NewEmbedder(opts...)
	default:
		e = openaiembedder.NewEmbedder(opts...)
	}

	if c := newCache(cfg); c != nil {
		e = cached.NewEmbedder(e, c, opts...)
	}

	return e
}

func newGenerator(cfg *config.Config) generator.Generator {
	opts := []generator.Option{
		generator.WithApiKey(cfg.Generator.ApiKey),
		generator.WithModel(cfg.Generator.Model),
		generator.WithTemperature(0.0),
		generator.WithMaxTokens(300),
	}

	switch cfg.Generator.Provider {
	case "anthropic":
		return anthropicgenerator.NewGenerator(opts...)
	case "google":
		return googlegenerator.NewGenerator(opts...)
	default:
		return openaigenerator.NewGenerator(opts...)
	}
}

func main() {
	// local overrides for keys and config path
	_ = godotenv.Load()

	kctx := kong.Parse(&cli)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)

	if len(cli.EmbedderKey) > 0 {
		cfg.Embedder.ApiKey = cli.EmbedderKey
	}

	if len(cli.GeneratorKey) > 0 {
		cfg.Generator.ApiKey = cli.GeneratorKey
	}

	stores := newOpener(cfg)
	e := newEmbedder(cfg)
	g := newGenerator(cfg)

	builder := prompt.NewBuilder(
		prompt.WithMaxSectionLen(cfg.Retrieval.MaxSectionLen),
	)

	pipeline := insight.New(stores, e, g, builder, cfg.Embedder.Model, cfg.Retrieval.TopK)

	app := &application{
		cfg:      cfg,
		stores:   stores,
		embedder: e,
		pipeline: pipeline,
	}

	kctx.FatalIfErrorf(kctx.Run(app))
}
