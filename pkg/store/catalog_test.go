package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l0kifs/task-context-mcp/pkg/index/memory"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := NewCatalog(memory.New())
	require.NoError(t, err)

	return c
}

func TestCatalogRegisterAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	entry, err := c.RegisterTaskType(ctx, "cv_review", "Review CVs for Python roles")
	require.NoError(t, err)
	assert.False(t, entry.CreatedAt.IsZero())

	fetched := c.GetTaskType(ctx, "cv_review")
	require.NotNil(t, fetched)
	assert.Equal(t, "Review CVs for Python roles", fetched.Description)

	assert.Nil(t, c.GetTaskType(ctx, "unknown"))
}

func TestCatalogRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	_, err := c.RegisterTaskType(ctx, "cv_review", "first")
	require.NoError(t, err)

	_, err = c.RegisterTaskType(ctx, "cv_review", "second")

	var exists *AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "cv_review", exists.TaskType)
}

func TestCatalogList(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	_, err := c.RegisterTaskType(ctx, "cv_review", "a")
	require.NoError(t, err)

	_, err = c.RegisterTaskType(ctx, "release_notes", "b")
	require.NoError(t, err)

	entries, err := c.ListTaskTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCatalogUpdate(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	created, err := c.RegisterTaskType(ctx, "cv_review", "old")
	require.NoError(t, err)

	updated, err := c.UpdateTaskType(ctx, "cv_review", "new")
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Description)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	fetched := c.GetTaskType(ctx, "cv_review")
	require.NotNil(t, fetched)
	assert.Equal(t, "new", fetched.Description)

	_, err = c.UpdateTaskType(ctx, "ghost", "x")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.TaskType)
}
