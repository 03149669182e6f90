// Package mcp serves the tool provider over the Model Context Protocol on
// stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/l0kifs/task-context-mcp/pkg/tool"
	"github.com/l0kifs/task-context-mcp/server"
)

var _ server.Service = (*Server)(nil)

const instructions = `This server manages task types and artifacts for AI agents.

Task types represent reusable CATEGORIES of work (e.g. "CV review for Python
developers"), not individual task instances. Artifacts attached to a task type
(practices, rules, prompts, learned results) are living knowledge: load them
before starting work, reference them during execution, and create or update
them as you learn. Archive artifacts that are superseded instead of deleting
knowledge.`

type Server struct {
	id string

	name    string
	version string

	tools tool.Provider
}

type Config struct {
	Name    string
	Version string

	Tools tool.Provider
}

func New(id string, cfg Config) (*Server, error) {
	if cfg.Tools == nil {
		return nil, fmt.Errorf("mcp server: missing tool provider")
	}

	if cfg.Name == "" {
		cfg.Name = "task-context"
	}

	return &Server{
		id: id,

		name:    cfg.Name,
		version: cfg.Version,

		tools: cfg.Tools,
	}, nil
}

func (s *Server) ID() string {
	return s.id
}

// Start serves MCP on stdio until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	impl := &sdk.Implementation{
		Name:    s.name,
		Version: s.version,
	}

	mcpServer := sdk.NewServer(impl, &sdk.ServerOptions{
		Instructions: instructions,
	})

	tools, err := s.tools.Tools(ctx)

	if err != nil {
		return err
	}

	for _, t := range tools {
		schema, err := toSchema(t.Parameters)

		if err != nil {
			return fmt.Errorf("mcp server: tool %s: %w", t.Name, err)
		}

		name := t.Name

		sdk.AddTool(mcpServer, &sdk.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}, func(ctx context.Context, ss *sdk.ServerSession, params *sdk.CallToolParamsFor[map[string]any]) (*sdk.CallToolResultFor[any], error) {
			result, err := s.tools.Execute(ctx, name, params.Arguments)

			if err != nil {
				return &sdk.CallToolResultFor[any]{
					IsError: true,
					Content: []sdk.Content{
						&sdk.TextContent{Text: err.Error()},
					},
				}, nil
			}

			return &sdk.CallToolResultFor[any]{
				Content: []sdk.Content{
					&sdk.TextContent{Text: renderResult(result)},
				},
			}, nil
		})
	}

	log.Infof("mcp server %s: serving %d tools on stdio", s.id, len(tools))

	return mcpServer.Run(ctx, sdk.NewStdioTransport())
}

func renderResult(result any) string {
	if text, ok := result.(string); ok {
		return text
	}

	data, err := json.Marshal(result)

	if err != nil {
		return fmt.Sprintf("%v", result)
	}

	return string(data)
}

// toSchema converts the generic JSON-schema map into the SDK's schema type
// via a JSON round-trip.
func toSchema(parameters map[string]any) (*jsonschema.Schema, error) {
	if parameters == nil {
		parameters = map[string]any{"type": "object"}
	}

	data, err := json.Marshal(parameters)

	if err != nil {
		return nil, err
	}

	schema := new(jsonschema.Schema)

	if err := json.Unmarshal(data, schema); err != nil {
		return nil, err
	}

	return schema, nil
}
