// Package chroma implements index.Provider against the Chroma REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/l0kifs/task-context-mcp/pkg/index"
)

var _ index.Provider = (*Client)(nil)

type Client struct {
	url        string
	collection string

	client *http.Client

	mu           sync.Mutex
	collectionID string
}

type Config struct {
	// URL of the Chroma server, e.g. http://localhost:8000.
	URL string
	// Collection name; created on first use if missing.
	Collection string

	Client *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("chroma: url is required")
	}

	if cfg.Collection == "" {
		return nil, fmt.Errorf("chroma: collection is required")
	}

	client := cfg.Client

	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		client:     client,
	}, nil
}

func (c *Client) Add(ctx context.Context, docs ...index.Document) error {
	id, err := c.ensureCollection(ctx)

	if err != nil {
		return err
	}

	req := addRequest{}

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("chroma: document without id")
		}

		req.IDs = append(req.IDs, doc.ID)
		req.Documents = append(req.Documents, doc.Content)
		req.Metadatas = append(req.Metadatas, doc.Metadata)
		req.Embeddings = append(req.Embeddings, doc.Embedding)
	}

	// Chroma requires all-or-nothing embeddings within one call
	for _, e := range req.Embeddings {
		if e == nil {
			req.Embeddings = nil
			break
		}
	}

	return c.post(ctx, fmt.Sprintf("/api/v1/collections/%s/add", id), req, nil)
}

func (c *Client) Get(ctx context.Context, opts *index.GetOptions) ([]index.Document, error) {
	if opts == nil {
		opts = new(index.GetOptions)
	}

	id, err := c.ensureCollection(ctx)

	if err != nil {
		return nil, err
	}

	req := getRequest{
		IDs:     opts.IDs,
		Where:   composeWhere(opts.Where),
		Include: []string{"metadatas", "documents"},
	}

	var resp getResponse

	if err := c.post(ctx, fmt.Sprintf("/api/v1/collections/%s/get", id), req, &resp); err != nil {
		return nil, err
	}

	docs := make([]index.Document, 0, len(resp.IDs))

	for i, docID := range resp.IDs {
		doc := index.Document{
			ID: docID,
		}

		if i < len(resp.Documents) {
			doc.Content = resp.Documents[i]
		}

		if i < len(resp.Metadatas) {
			doc.Metadata = resp.Metadatas[i]
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

func (c *Client) Update(ctx context.Context, docs ...index.Document) error {
	id, err := c.ensureCollection(ctx)

	if err != nil {
		return err
	}

	req := updateRequest{}

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("chroma: document without id")
		}

		req.IDs = append(req.IDs, doc.ID)
		req.Metadatas = append(req.Metadatas, doc.Metadata)

		if doc.Content != "" {
			req.Documents = append(req.Documents, doc.Content)
		}

		if doc.Embedding != nil {
			req.Embeddings = append(req.Embeddings, doc.Embedding)
		}
	}

	if len(req.Documents) > 0 && len(req.Documents) != len(req.IDs) {
		return fmt.Errorf("chroma: partial content updates are not supported in one batch")
	}

	if len(req.Embeddings) > 0 && len(req.Embeddings) != len(req.IDs) {
		return fmt.Errorf("chroma: partial embedding updates are not supported in one batch")
	}

	return c.post(ctx, fmt.Sprintf("/api/v1/collections/%s/update", id), req, nil)
}

func (c *Client) Query(ctx context.Context, embedding []float32, opts *index.QueryOptions) ([]index.Result, error) {
	if opts == nil {
		opts = new(index.QueryOptions)
	}

	id, err := c.ensureCollection(ctx)

	if err != nil {
		return nil, err
	}

	limit := 10

	if opts.Limit != nil {
		limit = *opts.Limit
	}

	req := queryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        limit,
		Where:           composeWhere(opts.Where),
		Include:         []string{"metadatas", "documents", "distances"},
	}

	var resp queryResponse

	if err := c.post(ctx, fmt.Sprintf("/api/v1/collections/%s/query", id), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]index.Result, 0, len(resp.IDs[0]))

	for i, docID := range resp.IDs[0] {
		result := index.Result{
			Document: index.Document{
				ID: docID,
			},
		}

		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			result.Content = resp.Documents[0][i]
		}

		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			result.Metadata = resp.Metadatas[0][i]
		}

		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			// chroma reports distances; smaller is closer
			result.Score = 1 - resp.Distances[0][i]
		}

		results = append(results, result)
	}

	return results, nil
}

// ensureCollection resolves (and caches) the collection id, creating the
// collection on first use.
func (c *Client) ensureCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collectionID != "" {
		return c.collectionID, nil
	}

	req := createCollectionRequest{
		Name:        c.collection,
		GetOrCreate: true,
	}

	var resp collectionResponse

	if err := c.post(ctx, "/api/v1/collections", req, &resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", fmt.Errorf("chroma: collection %q has no id", c.collection)
	}

	log.Debugf("chroma: using collection %s (%s)", c.collection, resp.ID)

	c.collectionID = resp.ID
	return c.collectionID, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)

	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(data))

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)

		var apiErr errorResponse

		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("chroma: %s %s: %s", path, resp.Status, apiErr.Error)
		}

		return fmt.Errorf("chroma: %s %s: %s", path, resp.Status, strings.TrimSpace(string(data)))
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// composeWhere converts a conjunctive equality filter into Chroma's where
// syntax: a bare predicate for one condition, $and for several.
func composeWhere(where map[string]any) map[string]any {
	if len(where) == 0 {
		return nil
	}

	if len(where) == 1 {
		for k, v := range where {
			return map[string]any{k: v}
		}
	}

	var conditions []any

	for k, v := range where {
		conditions = append(conditions, map[string]any{k: v})
	}

	return map[string]any{"$and": conditions}
}
