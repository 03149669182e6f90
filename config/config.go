package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/l0kifs/task-context-mcp/pkg/authorizer"
	"github.com/l0kifs/task-context-mcp/pkg/index"
	"github.com/l0kifs/task-context-mcp/pkg/provider"
	"github.com/l0kifs/task-context-mcp/pkg/store"
	"github.com/l0kifs/task-context-mcp/pkg/tool"
	"github.com/l0kifs/task-context-mcp/server"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Address string

	Authorizers []authorizer.Provider

	embedder map[string]provider.Embedder
	indexes  map[string]index.Provider

	Store   *store.Store
	Catalog *store.Catalog

	Tools tool.Provider

	servers map[string]serverConfig
}

func (c *Config) RegisterEmbedder(id string, p provider.Embedder) {
	if c.embedder == nil {
		c.embedder = make(map[string]provider.Embedder)
	}

	c.embedder[id] = p
}

func (c *Config) Embedder(id string) (provider.Embedder, error) {
	if c.embedder != nil {
		if p, ok := c.embedder[id]; ok {
			return p, nil
		}
	}

	return nil, errors.New("embedder not found: " + id)
}

func (c *Config) RegisterIndex(id string, p index.Provider) {
	if c.indexes == nil {
		c.indexes = make(map[string]index.Provider)
	}

	c.indexes[id] = p
}

func (c *Config) Index(id string) (index.Provider, error) {
	if c.indexes != nil {
		if p, ok := c.indexes[id]; ok {
			return p, nil
		}
	}

	return nil, errors.New("index not found: " + id)
}

// Services builds the configured frontends. Called after the listen address
// is final, since the HTTP server defaults to it.
func (c *Config) Services() (map[string]server.Service, error) {
	services := make(map[string]server.Service, len(c.servers))

	for id, cfg := range c.servers {
		s, err := c.createService(id, cfg)

		if err != nil {
			return nil, fmt.Errorf("server %s: %w", id, err)
		}

		services[id] = s
	}

	return services, nil
}

func Parse(path string) (*Config, error) {
	file, err := parseFile(path)

	if err != nil {
		return nil, err
	}

	c := &Config{
		Address: ":8080",
	}

	if err := c.registerAuthorizers(file); err != nil {
		return nil, err
	}

	if err := c.registerEmbedders(file); err != nil {
		return nil, err
	}

	if err := c.registerIndexes(file); err != nil {
		return nil, err
	}

	if err := c.registerStore(file); err != nil {
		return nil, err
	}

	if err := c.registerServers(file); err != nil {
		return nil, err
	}

	return c, nil
}

type configFile struct {
	Authorizers []authorizerConfig `yaml:"authorizers"`

	Embedders yaml.Node `yaml:"embedders"`
	Indexes   yaml.Node `yaml:"indexes"`

	Store yaml.Node `yaml:"store"`

	Servers yaml.Node `yaml:"servers"`
}

func parseFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	data = []byte(os.ExpandEnv(string(data)))

	var config configFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func createLimiter(limit *int) *rate.Limiter {
	if limit == nil {
		return nil
	}

	return rate.NewLimiter(rate.Limit(*limit), *limit)
}
