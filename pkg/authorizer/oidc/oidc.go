// Package oidc authorizes requests carrying a bearer token issued by an
// OpenID Connect provider.
package oidc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/l0kifs/task-context-mcp/pkg/authorizer"
)

var _ authorizer.Provider = (*Authorizer)(nil)

type Authorizer struct {
	verifier *oidc.IDTokenVerifier
}

type Config struct {
	Issuer string
	// Audience the token must be issued for.
	Audience string
}

func New(ctx context.Context, cfg Config) (*Authorizer, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("oidc authorizer: issuer is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)

	if err != nil {
		return nil, fmt.Errorf("oidc authorizer: %w", err)
	}

	oidcConfig := &oidc.Config{
		ClientID: cfg.Audience,
	}

	if cfg.Audience == "" {
		oidcConfig.SkipClientIDCheck = true
	}

	return &Authorizer{
		verifier: provider.Verifier(oidcConfig),
	}, nil
}

func (a *Authorizer) Authorize(r *http.Request) error {
	header := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")

	if !ok || token == "" {
		return fmt.Errorf("missing bearer token")
	}

	if _, err := a.verifier.Verify(r.Context(), token); err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	return nil
}
