package config

import (
	"context"
	"errors"

	"github.com/l0kifs/task-context-mcp/pkg/authorizer"
	"github.com/l0kifs/task-context-mcp/pkg/authorizer/oidc"
)

type authorizerConfig struct {
	Type string `yaml:"type"`

	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

func (c *Config) registerAuthorizers(f *configFile) error {
	for _, cfg := range f.Authorizers {
		a, err := createAuthorizer(cfg)

		if err != nil {
			return err
		}

		c.Authorizers = append(c.Authorizers, a)
	}

	return nil
}

func createAuthorizer(cfg authorizerConfig) (authorizer.Provider, error) {
	switch cfg.Type {
	case "oidc":
		return oidc.New(context.Background(), oidc.Config{
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
		})

	default:
		return nil, errors.New("invalid authorizer type: " + cfg.Type)
	}
}
