package prompt

import "context"

type Option func(*Options)

type Options struct {
	MaxSectionLen int
	Tokenizer     Tokenizer
	Context       context.Context
}

func WithMaxSectionLen(n int) Option {
	return func(o *Options) {
		o.MaxSectionLen = n
	}
}

func WithTokenizer(t Tokenizer) Option {
	return func(o *Options) {
		o.Tokenizer = t
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxSectionLen: 500,
		Tokenizer:     NewWordTokenizer(),
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
