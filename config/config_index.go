package config

import (
	"errors"
	"fmt"

	"github.com/l0kifs/task-context-mcp/pkg/index"
	"github.com/l0kifs/task-context-mcp/pkg/index/chroma"
	"github.com/l0kifs/task-context-mcp/pkg/index/memory"
)

type indexConfig struct {
	Type string `yaml:"type"`

	URL        string `yaml:"url,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

func (c *Config) registerIndexes(f *configFile) error {
	var configs map[string]indexConfig

	if err := f.Indexes.Decode(&configs); err != nil {
		if len(f.Indexes.Content) > 0 {
			return fmt.Errorf("failed to decode indexes: %w", err)
		}

		return nil
	}

	for id, cfg := range configs {
		p, err := createIndex(cfg)

		if err != nil {
			return fmt.Errorf("index %s: %w", id, err)
		}

		c.RegisterIndex(id, p)
	}

	return nil
}

func createIndex(cfg indexConfig) (index.Provider, error) {
	switch cfg.Type {
	case "chroma":
		return chroma.New(chroma.Config{
			URL:        cfg.URL,
			Collection: cfg.Collection,
		})

	case "memory":
		return memory.New(), nil

	default:
		return nil, errors.New("invalid index type: " + cfg.Type)
	}
}
