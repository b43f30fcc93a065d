// Package config loads the YAML configuration for the insight service.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Address   string          `yaml:"address"`
	Store     StoreConfig     `yaml:"store"`
	Embedder  ProviderConfig  `yaml:"embedder"`
	Generator ProviderConfig  `yaml:"generator"`
	Cache     CacheConfig     `yaml:"cache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

type StoreConfig struct {
	// Provider is one of csv, sqlite, postgres, memory.
	Provider string `yaml:"provider"`
	// Location is the namespace root directory for file-backed providers,
	// or the connection string for postgres.
	Location  string `yaml:"location"`
	Dimension int    `yaml:"dimension"`
}

type ProviderConfig struct {
	// Provider is one of openai, anthropic, google.
	Provider string `yaml:"provider"`
	ApiKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

type CacheConfig struct {
	// Provider is one of memory, redis, none.
	Provider   string `yaml:"provider"`
	Location   string `yaml:"location"`
	MaxEntries int    `yaml:"max_entries"`
}

type RetrievalConfig struct {
	TopK          int `yaml:"top_k"`
	MaxSectionLen int `yaml:"max_section_len"`
}

func Default() *Config {
	return &Config{
		Address: ":8080",
		Store: StoreConfig{
			Provider: "csv",
			Location: "stores",
		},
		Embedder: ProviderConfig{
			Provider: "openai",
			Model:    "text-embedding-ada-002",
		},
		Generator: ProviderConfig{
			Provider: "openai",
			Model:    "gpt-3.5-turbo",
		},
		Cache: CacheConfig{
			Provider:   "memory",
			MaxEntries: 1024,
		},
		Retrieval: RetrievalConfig{
			TopK:          3,
			MaxSectionLen: 500,
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()

	if len(path) == 0 {
		return cfg, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(bs, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}

	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}

	if cfg.Retrieval.MaxSectionLen <= 0 {
		cfg.Retrieval.MaxSectionLen = 500
	}

	return cfg, nil
}
