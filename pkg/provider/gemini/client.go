// Package gemini implements provider.Embedder against the Gemini embedding
// models.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/l0kifs/task-context-mcp/pkg/provider"
)

var _ provider.Embedder = (*Embedder)(nil)

type Embedder struct {
	model  string
	client *genai.Client
}

type Config struct {
	Token string
	Model string
}

func New(ctx context.Context, cfg Config) (*Embedder, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gemini embedder: token is required")
	}

	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Token))

	if err != nil {
		return nil, err
	}

	return &Embedder{
		model:  cfg.Model,
		client: client,
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	model := e.client.EmbeddingModel(e.model)

	batch := model.NewBatch()

	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)

	if err != nil {
		return nil, err
	}

	result := &provider.Embedding{}

	for _, embedding := range resp.Embeddings {
		result.Embeddings = append(result.Embeddings, embedding.Values)
	}

	return result, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
