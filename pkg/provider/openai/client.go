// Package openai implements provider.Embedder against the OpenAI embeddings
// API. Pointing URL at an OpenAI-compatible server (Ollama, vLLM, LocalAI)
// works the same way.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/l0kifs/task-context-mcp/pkg/provider"
)

var _ provider.Embedder = (*Embedder)(nil)

type Embedder struct {
	model  string
	client openai.Client
}

type Config struct {
	// URL overrides the API base URL; empty means api.openai.com.
	URL   string
	Token string
	Model string
}

func New(cfg Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai embedder: model is required")
	}

	var opts []option.RequestOption

	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}

	if cfg.Token != "" {
		opts = append(opts, option.WithAPIKey(cfg.Token))
	}

	return &Embedder{
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),

		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})

	if err != nil {
		return nil, err
	}

	result := &provider.Embedding{}

	for _, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))

		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}

		result.Embeddings = append(result.Embeddings, vector)
	}

	return result, nil
}
