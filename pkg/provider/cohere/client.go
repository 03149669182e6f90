// Package cohere implements provider.Embedder against the Cohere v2 embed
// API.
package cohere

import (
	"context"
	"fmt"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/l0kifs/task-context-mcp/pkg/provider"
)

var _ provider.Embedder = (*Embedder)(nil)

type Embedder struct {
	model  string
	client *cohereclient.Client
}

type Config struct {
	Token string
	Model string
}

func New(cfg Config) (*Embedder, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("cohere embedder: token is required")
	}

	if cfg.Model == "" {
		cfg.Model = "embed-english-v3.0"
	}

	return &Embedder{
		model:  cfg.Model,
		client: cohereclient.NewClient(cohereclient.WithToken(cfg.Token)),
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	resp, err := e.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Model: e.model,
		Texts: texts,

		InputType: cohere.EmbedInputTypeSearchDocument,

		EmbeddingTypes: []cohere.EmbeddingType{
			cohere.EmbeddingTypeFloat,
		},
	})

	if err != nil {
		return nil, err
	}

	result := &provider.Embedding{}

	for _, embedding := range resp.Embeddings.Float {
		vector := make([]float32, len(embedding))

		for i, v := range embedding {
			vector[i] = float32(v)
		}

		result.Embeddings = append(result.Embeddings, vector)
	}

	return result, nil
}
