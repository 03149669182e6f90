package config

import (
	"errors"
	"fmt"

	"github.com/l0kifs/task-context-mcp/server"
	"github.com/l0kifs/task-context-mcp/server/api"
	"github.com/l0kifs/task-context-mcp/server/mcp"
)

type serverConfig struct {
	Type string `yaml:"type"`

	// For the HTTP API server. Defaults to the top-level address.
	Address string `yaml:"address,omitempty"`

	// For the MCP server.
	Name    string `yaml:"name,omitempty"`
	Version string `yaml:"version,omitempty"`
}

func (c *Config) registerServers(f *configFile) error {
	var configs map[string]serverConfig

	if err := f.Servers.Decode(&configs); err != nil {
		if len(f.Servers.Content) > 0 {
			return fmt.Errorf("failed to decode servers: %w", err)
		}

		return nil
	}

	c.servers = configs

	return nil
}

func (c *Config) createService(id string, cfg serverConfig) (server.Service, error) {
	switch cfg.Type {
	case "mcp":
		if c.Tools == nil {
			return nil, errors.New("no store configured")
		}

		return mcp.New(id, mcp.Config{
			Name:    cfg.Name,
			Version: cfg.Version,

			Tools: c.Tools,
		})

	case "api":
		if c.Store == nil || c.Catalog == nil {
			return nil, errors.New("no store configured")
		}

		handler, err := api.New(api.Config{
			Store:   c.Store,
			Catalog: c.Catalog,

			Authorizers: c.Authorizers,
		})

		if err != nil {
			return nil, err
		}

		addr := cfg.Address

		if addr == "" {
			addr = c.Address
		}

		return api.NewServer(id, addr, handler), nil

	default:
		return nil, errors.New("invalid server type: " + cfg.Type)
	}
}
