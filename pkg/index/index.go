// Package index defines the document index contract the artifact store is
// built on: a key-value store with per-document metadata, optional embeddings
// and conjunctive equality filtering.
package index

import "context"

// Document represents a stored/retrieved record.
type Document struct {
	// ID is the storage key. Required for Add and Update.
	ID string
	// Content is the textual payload.
	Content string
	// Metadata contains scalar key/value pairs associated with the document.
	Metadata map[string]any
	// Embedding optionally holds the vector representation of the content.
	Embedding []float32
}

// GetOptions select documents either by exact IDs or by an equality filter.
// Filters are conjunctive equality predicates only; no ranges, no OR.
type GetOptions struct {
	IDs []string
	// Where constrains results by metadata equality. All entries must match.
	Where map[string]any
}

// QueryOptions control similarity retrieval behavior.
type QueryOptions struct {
	// Limit defines the maximum number of results to return.
	Limit *int
	// Where constrains results by metadata equality.
	Where map[string]any
}

// Result represents a single similarity hit.
type Result struct {
	Document
	// Score is optional and can be used by implementations.
	Score float32
}

// Provider abstracts an index capable of storing, fetching and updating
// documents. Update replaces metadata (and content, if set) of existing
// documents in place without touching their embeddings.
type Provider interface {
	// Add stores documents in the index.
	Add(ctx context.Context, docs ...Document) error
	// Get retrieves documents by ID or by equality filter.
	Get(ctx context.Context, opts *GetOptions) ([]Document, error)
	// Update mutates metadata/content of existing documents by ID.
	Update(ctx context.Context, docs ...Document) error
	// Query retrieves documents most similar to the given embedding.
	Query(ctx context.Context, embedding []float32, opts *QueryOptions) ([]Result, error)
}
