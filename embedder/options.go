package embedder

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	ApiKey      string
	Model       string
	Namespace   string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Context     context.Context
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithNamespace scopes cached vectors to one partition owner so memoized
// results never leak across store boundaries.
func WithNamespace(ns string) Option {
	return func(o *Options) {
		o.Namespace = ns
	}
}

func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		o.MaxAttempts = n
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(o *Options) {
		o.BaseDelay = d
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(o *Options) {
		o.MaxDelay = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxAttempts: 6,
		BaseDelay:   time.Second,
		MaxDelay:    20 * time.Second,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
