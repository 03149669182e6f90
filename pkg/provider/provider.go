// Package provider defines the embedding provider contract. Implementations
// live in subpackages; deployments pick one per configuration and its vector
// dimension is fixed for the lifetime of an index.
package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// Embedding is the result of embedding a batch of texts. Embeddings is
// parallel to the input slice.
type Embedding struct {
	Embeddings [][]float32
}

// Embedder turns texts into vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*Embedding, error)
}

type limitedEmbedder struct {
	embedder Embedder
	limiter  *rate.Limiter
}

// WithLimiter wraps an embedder with a rate limiter. A nil limiter returns
// the embedder unchanged.
func WithLimiter(embedder Embedder, limiter *rate.Limiter) Embedder {
	if limiter == nil {
		return embedder
	}

	return &limitedEmbedder{
		embedder: embedder,
		limiter:  limiter,
	}
}

func (l *limitedEmbedder) Embed(ctx context.Context, texts []string) (*Embedding, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return l.embedder.Embed(ctx, texts)
}
