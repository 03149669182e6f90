package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/l0kifs/task-context-mcp/pkg/provider"
	"github.com/l0kifs/task-context-mcp/pkg/provider/cohere"
	"github.com/l0kifs/task-context-mcp/pkg/provider/gemini"
	"github.com/l0kifs/task-context-mcp/pkg/provider/openai"
)

type embedderConfig struct {
	Type string `yaml:"type"`

	URL   string `yaml:"url,omitempty"`
	Token string `yaml:"token,omitempty"`
	Model string `yaml:"model,omitempty"`

	// Limit caps requests per second to the upstream API.
	Limit *int `yaml:"limit,omitempty"`
}

func (c *Config) registerEmbedders(f *configFile) error {
	var configs map[string]embedderConfig

	if err := f.Embedders.Decode(&configs); err != nil {
		if len(f.Embedders.Content) > 0 {
			return fmt.Errorf("failed to decode embedders: %w", err)
		}

		return nil
	}

	for id, cfg := range configs {
		p, err := createEmbedder(cfg)

		if err != nil {
			return fmt.Errorf("embedder %s: %w", id, err)
		}

		if limiter := createLimiter(cfg.Limit); limiter != nil {
			p = provider.WithLimiter(p, limiter)
		}

		c.RegisterEmbedder(id, p)
	}

	return nil
}

func createEmbedder(cfg embedderConfig) (provider.Embedder, error) {
	switch cfg.Type {
	case "openai":
		return openai.New(openai.Config{
			URL:   cfg.URL,
			Token: cfg.Token,
			Model: cfg.Model,
		})

	case "cohere":
		return cohere.New(cohere.Config{
			Token: cfg.Token,
			Model: cfg.Model,
		})

	case "gemini":
		return gemini.New(context.Background(), gemini.Config{
			Token: cfg.Token,
			Model: cfg.Model,
		})

	default:
		return nil, errors.New("invalid embedder type: " + cfg.Type)
	}
}
