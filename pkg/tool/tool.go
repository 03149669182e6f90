// Package tool defines the tool contract exposed to agent frontends. A
// provider advertises named tools with JSON-schema parameters and executes
// calls by name.
package tool

import "context"

type Tool struct {
	Name        string
	Description string

	// Parameters is a JSON schema object describing the call arguments.
	Parameters map[string]any
}

type Provider interface {
	Tools(ctx context.Context) ([]Tool, error)
	Execute(ctx context.Context, name string, parameters map[string]any) (any, error)
}
