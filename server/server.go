// Package server defines the contract for the long-running frontends that
// expose the store (MCP stdio, HTTP API).
package server

import "context"

// Service is a long-running frontend. Start runs until the context is
// cancelled or an unrecoverable error occurs.
type Service interface {
	Start(ctx context.Context) error

	// ID returns the identifier of this service instance, typically the
	// key used in the configuration.
	ID() string
}
