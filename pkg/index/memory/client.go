// Package memory provides an in-process index.Provider used for tests and
// single-binary deployments without an external document store.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/l0kifs/task-context-mcp/pkg/index"
)

var _ index.Provider = (*Client)(nil)

type Client struct {
	mu   sync.RWMutex
	docs map[string]index.Document
}

func New() *Client {
	return &Client{
		docs: make(map[string]index.Document),
	}
}

func (c *Client) Add(ctx context.Context, docs ...index.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("memory index: document without id")
		}

		c.docs[doc.ID] = cloneDocument(doc)
	}

	return nil
}

func (c *Client) Get(ctx context.Context, opts *index.GetOptions) ([]index.Document, error) {
	if opts == nil {
		opts = new(index.GetOptions)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []index.Document

	if len(opts.IDs) > 0 {
		for _, id := range opts.IDs {
			doc, ok := c.docs[id]

			if !ok {
				continue
			}

			if !matches(doc.Metadata, opts.Where) {
				continue
			}

			result = append(result, cloneDocument(doc))
		}

		return result, nil
	}

	for _, doc := range c.docs {
		if !matches(doc.Metadata, opts.Where) {
			continue
		}

		result = append(result, cloneDocument(doc))
	}

	// map iteration order is random; keep output stable
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (c *Client) Update(ctx context.Context, docs ...index.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range docs {
		existing, ok := c.docs[doc.ID]

		if !ok {
			return fmt.Errorf("memory index: document not found: %s", doc.ID)
		}

		if doc.Metadata != nil {
			existing.Metadata = cloneMetadata(doc.Metadata)
		}

		if doc.Content != "" {
			existing.Content = doc.Content
		}

		if doc.Embedding != nil {
			existing.Embedding = append([]float32(nil), doc.Embedding...)
		}

		c.docs[doc.ID] = existing
	}

	return nil
}

func (c *Client) Query(ctx context.Context, embedding []float32, opts *index.QueryOptions) ([]index.Result, error) {
	if opts == nil {
		opts = new(index.QueryOptions)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []index.Result

	for _, doc := range c.docs {
		if !matches(doc.Metadata, opts.Where) {
			continue
		}

		if len(doc.Embedding) == 0 {
			continue
		}

		results = append(results, index.Result{
			Document: cloneDocument(doc),
			Score:    cosine(embedding, doc.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if opts.Limit != nil && len(results) > *opts.Limit {
		results = results[:*opts.Limit]
	}

	return results, nil
}

func matches(metadata, where map[string]any) bool {
	for k, v := range where {
		if !equalValue(metadata[k], v) {
			return false
		}
	}

	return true
}

// equalValue compares scalars loosely so that numeric metadata survives a
// JSON round-trip (int vs float64) without breaking filters.
func equalValue(a, b any) bool {
	if a == b {
		return true
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)

	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	}

	return 0, false
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func cloneDocument(doc index.Document) index.Document {
	doc.Metadata = cloneMetadata(doc.Metadata)
	doc.Embedding = append([]float32(nil), doc.Embedding...)
	return doc
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	clone := make(map[string]any, len(metadata))

	for k, v := range metadata {
		clone[k] = v
	}

	return clone
}
