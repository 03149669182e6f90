package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l0kifs/task-context-mcp/pkg/index"
)

func TestAddGetByID(t *testing.T) {
	ctx := context.Background()
	client := New()

	err := client.Add(ctx,
		index.Document{ID: "a_v1", Content: "first", Metadata: map[string]any{"artifact_id": "a", "version": 1}},
		index.Document{ID: "a_v2", Content: "second", Metadata: map[string]any{"artifact_id": "a", "version": 2}},
	)
	require.NoError(t, err)

	docs, err := client.Get(ctx, &index.GetOptions{IDs: []string{"a_v2"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "second", docs[0].Content)

	docs, err = client.Get(ctx, &index.GetOptions{IDs: []string{"missing"}})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestAddRequiresID(t *testing.T) {
	err := New().Add(context.Background(), index.Document{Content: "nope"})
	assert.Error(t, err)
}

func TestGetByFilter(t *testing.T) {
	ctx := context.Background()
	client := New()

	require.NoError(t, client.Add(ctx,
		index.Document{ID: "a_v1", Metadata: map[string]any{"artifact_id": "a", "status": "active"}},
		index.Document{ID: "b_v1", Metadata: map[string]any{"artifact_id": "b", "status": "archived"}},
		index.Document{ID: "c_v1", Metadata: map[string]any{"artifact_id": "c", "status": "active"}},
	))

	docs, err := client.Get(ctx, &index.GetOptions{Where: map[string]any{"status": "active"}})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a_v1", docs[0].ID)
	assert.Equal(t, "c_v1", docs[1].ID)
}

func TestFilterNumericEquality(t *testing.T) {
	ctx := context.Background()
	client := New()

	require.NoError(t, client.Add(ctx,
		index.Document{ID: "a_v1", Metadata: map[string]any{"version": 1}},
	))

	// filters built from JSON payloads carry float64, stored values carry int
	docs, err := client.Get(ctx, &index.GetOptions{Where: map[string]any{"version": float64(1)}})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestUpdateReplacesMetadataInPlace(t *testing.T) {
	ctx := context.Background()
	client := New()

	require.NoError(t, client.Add(ctx,
		index.Document{ID: "a_v1", Content: "text", Metadata: map[string]any{"status": "active"}},
	))

	err := client.Update(ctx, index.Document{ID: "a_v1", Metadata: map[string]any{"status": "archived"}})
	require.NoError(t, err)

	docs, err := client.Get(ctx, &index.GetOptions{IDs: []string{"a_v1"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "archived", docs[0].Metadata["status"])
	assert.Equal(t, "text", docs[0].Content, "content untouched when not supplied")

	err = client.Update(ctx, index.Document{ID: "missing", Metadata: map[string]any{}})
	assert.Error(t, err)
}

func TestQueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	client := New()

	require.NoError(t, client.Add(ctx,
		index.Document{ID: "x", Content: "x", Embedding: []float32{1, 0}},
		index.Document{ID: "y", Content: "y", Embedding: []float32{0, 1}},
		index.Document{ID: "z", Content: "z", Embedding: []float32{0.9, 0.1}},
	))

	limit := 2

	results, err := client.Query(ctx, []float32{1, 0}, &index.QueryOptions{Limit: &limit})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "x", results[0].ID)
	assert.Equal(t, "z", results[1].ID)
}

func TestGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	client := New()

	require.NoError(t, client.Add(ctx,
		index.Document{ID: "a", Metadata: map[string]any{"k": "v"}},
	))

	docs, err := client.Get(ctx, &index.GetOptions{IDs: []string{"a"}})
	require.NoError(t, err)
	docs[0].Metadata["k"] = "mutated"

	docs, err = client.Get(ctx, &index.GetOptions{IDs: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "v", docs[0].Metadata["k"])
}
