package config

import (
	"fmt"

	"github.com/l0kifs/task-context-mcp/pkg/store"
	"github.com/l0kifs/task-context-mcp/pkg/tool/taskcontext"
)

type storeConfig struct {
	Embedder string `yaml:"embedder"`

	Index string `yaml:"index"`
	// CatalogIndex holds the task type catalog. Defaults to Index.
	CatalogIndex string `yaml:"catalog_index,omitempty"`
}

func (c *Config) registerStore(f *configFile) error {
	var cfg storeConfig

	if err := f.Store.Decode(&cfg); err != nil {
		if len(f.Store.Content) > 0 {
			return fmt.Errorf("failed to decode store: %w", err)
		}

		return nil
	}

	embedder, err := c.Embedder(cfg.Embedder)

	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	idx, err := c.Index(cfg.Index)

	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	catalogIndex := idx

	if cfg.CatalogIndex != "" {
		catalogIndex, err = c.Index(cfg.CatalogIndex)

		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}

	artifacts, err := store.New(store.Config{
		Embedder: embedder,
		Index:    idx,
	})

	if err != nil {
		return err
	}

	catalog, err := store.NewCatalog(catalogIndex)

	if err != nil {
		return err
	}

	tools, err := taskcontext.New(taskcontext.Config{
		Store:   artifacts,
		Catalog: catalog,
	})

	if err != nil {
		return err
	}

	c.Store = artifacts
	c.Catalog = catalog
	c.Tools = tools

	return nil
}
