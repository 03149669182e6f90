package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l0kifs/task-context-mcp/pkg/index"
	"github.com/l0kifs/task-context-mcp/pkg/index/memory"
	"github.com/l0kifs/task-context-mcp/pkg/provider"
)

// stubEmbedder returns a deterministic vector per text so similarity is
// stable without a model.
type stubEmbedder struct {
	calls int
	fail  bool
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	s.calls++

	if s.fail {
		return nil, fmt.Errorf("embedder down")
	}

	result := &provider.Embedding{}

	for _, text := range texts {
		var sum float32

		for _, r := range text {
			sum += float32(r)
		}

		result.Embeddings = append(result.Embeddings, []float32{sum, float32(len(text)), 1})
	}

	return result, nil
}

// failingIndex errors on every call; used to verify read/write asymmetry.
type failingIndex struct{}

func (failingIndex) Add(ctx context.Context, docs ...index.Document) error {
	return fmt.Errorf("index down")
}

func (failingIndex) Get(ctx context.Context, opts *index.GetOptions) ([]index.Document, error) {
	return nil, fmt.Errorf("index down")
}

func (failingIndex) Update(ctx context.Context, docs ...index.Document) error {
	return fmt.Errorf("index down")
}

func (failingIndex) Query(ctx context.Context, embedding []float32, opts *index.QueryOptions) ([]index.Result, error) {
	return nil, fmt.Errorf("index down")
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(Config{
		Embedder: &stubEmbedder{},
		Index:    memory.New(),
	})
	require.NoError(t, err)

	return s
}

func TestAddArtifactStartsAtVersionOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	artifact, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypePractice,
		Content:  "Check for employment gaps",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, artifact.Version)
	assert.Equal(t, StatusActive, artifact.Status)
	assert.NotEmpty(t, artifact.ArtifactID)
	assert.False(t, artifact.CreatedAt.IsZero())
}

func TestAddArtifactValidatesInput(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.AddArtifact(ctx, AddArtifactRequest{Type: ArtifactTypeRule, Content: "x"})
	assert.Error(t, err)

	_, err = s.AddArtifact(ctx, AddArtifactRequest{TaskType: "cv_review", Type: ArtifactTypeRule})
	assert.Error(t, err)
}

func TestAddArtifactRejectsExistingID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType:   "cv_review",
		Type:       ArtifactTypeRule,
		Content:    "first",
		ArtifactID: "fixed",
	})
	require.NoError(t, err)

	_, err = s.AddArtifact(ctx, AddArtifactRequest{
		TaskType:   "cv_review",
		Type:       ArtifactTypeRule,
		Content:    "second",
		ArtifactID: "fixed",
	})

	var exists *AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "fixed", exists.ArtifactID)
}

func TestMetadataNilValuesAndReservedKeysStripped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	artifact, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypePractice,
		Content:  "content",
		Metadata: map[string]any{
			"source":  "review-2026-08",
			"weight":  3,
			"dropped": nil,
			"version": 99, // reserved, must not leak into custom metadata
		},
	})
	require.NoError(t, err)

	fetched := s.GetArtifact(ctx, artifact.ArtifactID)
	require.NotNil(t, fetched)

	assert.Equal(t, 1, fetched.Version)
	assert.Equal(t, "review-2026-08", fetched.CustomMetadata["source"])
	assert.NotContains(t, fetched.CustomMetadata, "dropped")
	assert.NotContains(t, fetched.CustomMetadata, "version")
}

func TestUpdateCreatesNewVersionAndKeepsOld(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypePractice,
		Content:  "Check for employment gaps",
	})
	require.NoError(t, err)

	updated, err := s.UpdateArtifact(ctx, created.ArtifactID, "Check for gaps; flag any gap over 6 months", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, created.TaskType, updated.TaskType)
	assert.Equal(t, created.Type, updated.Type)
	assert.Equal(t, StatusActive, updated.Status)

	latest := s.GetArtifact(ctx, created.ArtifactID)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "Check for gaps; flag any gap over 6 months", latest.Content)

	v1 := s.GetArtifactVersion(ctx, created.ArtifactID, 1)
	require.NotNil(t, v1)
	assert.Equal(t, "Check for employment gaps", v1.Content)
}

func TestUpdateUnknownArtifact(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpdateArtifact(ctx, "ghost", "content", nil)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.ArtifactID)
}

func TestArchiveMutatesLatestInPlace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypeRule,
		Content:  "content",
	})
	require.NoError(t, err)

	archived, err := s.ArchiveArtifact(ctx, created.ArtifactID, &ArchiveOptions{
		Reason:        "superseded",
		ReplacementID: "other",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, archived.Version, "archival never bumps the version")
	assert.Equal(t, StatusArchived, archived.Status)
	require.NotNil(t, archived.DeprecatedAt)
	assert.Equal(t, "superseded", archived.DeprecatedReason)
	assert.Equal(t, "other", archived.ReplacementID)

	fetched := s.GetArtifact(ctx, created.ArtifactID)
	require.NotNil(t, fetched)
	assert.Equal(t, StatusArchived, fetched.Status)
	assert.Equal(t, "content", fetched.Content, "content survives archival")
}

func TestArchiveUnknownArtifact(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ArchiveArtifact(ctx, "ghost", nil)

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestUpdateRevivesArchivedArtifact(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypeRule,
		Content:  "old",
	})
	require.NoError(t, err)

	_, err = s.ArchiveArtifact(ctx, created.ArtifactID, nil)
	require.NoError(t, err)

	revived, err := s.UpdateArtifact(ctx, created.ArtifactID, "new", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, revived.Version)
	assert.Equal(t, StatusActive, revived.Status)
}

func TestListDeduplicatesStaleVersions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypePractice,
		Content:  "v1",
	})
	require.NoError(t, err)

	// superseded versions keep status active in storage, so the filter
	// matches both records; the list must keep only the latest
	_, err = s.UpdateArtifact(ctx, created.ArtifactID, "v2", nil)
	require.NoError(t, err)

	artifacts, err := s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review"})
	require.NoError(t, err)

	require.Len(t, artifacts, 1)
	assert.Equal(t, 2, artifacts[0].Version)

	seen := map[string]bool{}
	for _, a := range artifacts {
		assert.False(t, seen[a.ArtifactID])
		seen[a.ArtifactID] = true
	}
}

func TestListFiltersByTypeAndStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.AddArtifact(ctx, AddArtifactRequest{TaskType: "cv_review", Type: ArtifactTypePractice, Content: "p"})
	require.NoError(t, err)

	rule, err := s.AddArtifact(ctx, AddArtifactRequest{TaskType: "cv_review", Type: ArtifactTypeRule, Content: "r"})
	require.NoError(t, err)

	_, err = s.AddArtifact(ctx, AddArtifactRequest{TaskType: "other", Type: ArtifactTypeRule, Content: "x"})
	require.NoError(t, err)

	artifacts, err := s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review", Type: ArtifactTypeRule})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, rule.ArtifactID, artifacts[0].ArtifactID)

	_, err = s.ArchiveArtifact(ctx, rule.ArtifactID, nil)
	require.NoError(t, err)

	artifacts, err = s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review", Type: ArtifactTypeRule})
	require.NoError(t, err)
	assert.Empty(t, artifacts, "active listing excludes archived artifacts")
}

func TestListAppliesStatusToLatestVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypePractice,
		Content:  "v1",
	})
	require.NoError(t, err)

	_, err = s.UpdateArtifact(ctx, created.ArtifactID, "v2", nil)
	require.NoError(t, err)

	_, err = s.ArchiveArtifact(ctx, created.ArtifactID, nil)
	require.NoError(t, err)

	// v1 keeps status active in storage, but the artifact's latest version
	// is archived; it must not resurface through the stale record
	artifacts, err := s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review"})
	require.NoError(t, err)
	assert.Empty(t, artifacts)

	artifacts, err = s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review", Status: StatusArchived})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, 2, artifacts[0].Version)
	assert.Equal(t, StatusArchived, artifacts[0].Status)
}

func TestListStatusAnyReturnsLatestRegardlessOfStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	active, err := s.AddArtifact(ctx, AddArtifactRequest{TaskType: "cv_review", Type: ArtifactTypeRule, Content: "a"})
	require.NoError(t, err)

	archived, err := s.AddArtifact(ctx, AddArtifactRequest{TaskType: "cv_review", Type: ArtifactTypeRule, Content: "b"})
	require.NoError(t, err)

	_, err = s.ArchiveArtifact(ctx, archived.ArtifactID, nil)
	require.NoError(t, err)

	artifacts, err := s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review", Status: StatusAny})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	seen := map[string]bool{}
	for _, a := range artifacts {
		seen[a.ArtifactID] = true
	}

	assert.True(t, seen[active.ArtifactID])
	assert.True(t, seen[archived.ArtifactID])
}

func TestSearchArtifacts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypePractice,
		Content:  "Check for employment gaps",
	})
	require.NoError(t, err)

	artifacts, err := s.SearchArtifacts(ctx, "employment gaps", 5)
	require.NoError(t, err)
	require.NotEmpty(t, artifacts)
	assert.Equal(t, created.ArtifactID, artifacts[0].ArtifactID)
}

func TestReadsSwallowIndexErrorsWritesDoNot(t *testing.T) {
	ctx := context.Background()

	s, err := New(Config{
		Embedder: &stubEmbedder{},
		Index:    failingIndex{},
	})
	require.NoError(t, err)

	assert.Nil(t, s.GetArtifact(ctx, "a"), "lookup degrades to nil on index failure")
	assert.Nil(t, s.GetArtifactVersion(ctx, "a", 1))

	_, err = s.AddArtifact(ctx, AddArtifactRequest{TaskType: "t", Type: ArtifactTypeRule, Content: "c"})
	assert.Error(t, err, "write path propagates index failure")

	_, err = s.ListArtifacts(ctx, ListFilter{})
	assert.Error(t, err)
}

func TestEmbedderFailurePropagates(t *testing.T) {
	ctx := context.Background()

	s, err := New(Config{
		Embedder: &stubEmbedder{fail: true},
		Index:    memory.New(),
	})
	require.NoError(t, err)

	_, err = s.AddArtifact(ctx, AddArtifactRequest{TaskType: "t", Type: ArtifactTypeRule, Content: "c"})
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	_, err := New(Config{Index: memory.New()})
	assert.Error(t, err)

	_, err = New(Config{Embedder: &stubEmbedder{}})
	assert.Error(t, err)
}

// TestScenarioWalkthrough follows the canonical lifecycle end to end.
func TestScenarioWalkthrough(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// 1. create
	a, err := s.AddArtifact(ctx, AddArtifactRequest{
		TaskType: "cv_review",
		Type:     ArtifactTypePractice,
		Content:  "Check for employment gaps",
	})
	require.NoError(t, err)
	require.Equal(t, 1, a.Version)

	// 2. update; v1 content unchanged
	_, err = s.UpdateArtifact(ctx, a.ArtifactID, "Check for gaps; flag any gap over 6 months", nil)
	require.NoError(t, err)

	v1 := s.GetArtifactVersion(ctx, a.ArtifactID, 1)
	require.NotNil(t, v1)
	require.Equal(t, "Check for employment gaps", v1.Content)

	// 3. list shows exactly one entry at v2
	listed, err := s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, 2, listed[0].Version)

	// 4. archive keeps the version
	archived, err := s.ArchiveArtifact(ctx, a.ArtifactID, &ArchiveOptions{
		Reason: "superseded by rule-based check",
	})
	require.NoError(t, err)
	require.Equal(t, 2, archived.Version)
	require.Equal(t, StatusArchived, archived.Status)

	// 5. active listing is now empty
	listed, err = s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review"})
	require.NoError(t, err)
	require.Empty(t, listed)

	// 6. archived listing returns it with the reason
	listed, err = s.ListArtifacts(ctx, ListFilter{TaskType: "cv_review", Status: StatusArchived})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, 2, listed[0].Version)
	require.Equal(t, "superseded by rule-based check", listed[0].DeprecatedReason)
}
