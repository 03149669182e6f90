package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/l0kifs/task-context-mcp/pkg/index"
	"github.com/l0kifs/task-context-mcp/pkg/provider"
)

// Store is the versioned artifact store. It owns the mapping from logical
// artifact ids to their version sets; nothing else writes these records.
//
// Update and Archive are read-latest-then-write sequences. They are
// serialized per artifact id within this process; deployments with multiple
// writer processes need an external lock around these calls.
type Store struct {
	embedder provider.Embedder
	index    index.Provider

	locks keyedMutex

	now timeFunc
}

type Config struct {
	Embedder provider.Embedder
	Index    index.Provider
}

func New(cfg Config) (*Store, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("store: missing embedder provider")
	}

	if cfg.Index == nil {
		return nil, fmt.Errorf("store: missing index provider")
	}

	return &Store{
		embedder: cfg.Embedder,
		index:    cfg.Index,

		now: defaultNow,
	}, nil
}

type AddArtifactRequest struct {
	TaskType string
	Type     ArtifactType
	Content  string

	// Metadata carries caller-defined keys; nil values and reserved keys
	// are stripped.
	Metadata map[string]any

	// ArtifactID may be supplied by the caller; a fresh uuid is generated
	// otherwise. Supplying an id that already has versions is rejected.
	ArtifactID string
}

// AddArtifact creates version 1 of a new artifact with status active.
func (s *Store) AddArtifact(ctx context.Context, req AddArtifactRequest) (*ArtifactVersion, error) {
	if req.TaskType == "" {
		return nil, fmt.Errorf("store: task type is required")
	}

	if req.Content == "" {
		return nil, fmt.Errorf("store: content is required")
	}

	artifactID := req.ArtifactID

	if artifactID == "" {
		artifactID = uuid.NewString()
	} else if s.GetArtifact(ctx, artifactID) != nil {
		return nil, &AlreadyExistsError{ArtifactID: artifactID}
	}

	embedding, err := s.embed(ctx, req.Content)

	if err != nil {
		return nil, err
	}

	artifact := &ArtifactVersion{
		ArtifactID: artifactID,
		Version:    1,

		TaskType: req.TaskType,
		Type:     req.Type,

		Content:        req.Content,
		CustomMetadata: stripMetadata(req.Metadata),

		Status:    StatusActive,
		CreatedAt: s.now(),
	}

	if err := s.index.Add(ctx, documentFromVersion(artifact, embedding)); err != nil {
		return nil, err
	}

	log.Infof("store: added artifact %s v1", artifactID)

	return artifact, nil
}

// GetArtifact resolves the latest version of an artifact: the stored record
// with the maximum version number for the given id. It returns nil when no
// versions exist.
//
// Lookups never fail: index errors are logged and reported as a missing
// artifact. Callers that must distinguish infrastructure failure from
// absence cannot do so through this method.
func (s *Store) GetArtifact(ctx context.Context, artifactID string) *ArtifactVersion {
	docs, err := s.index.Get(ctx, &index.GetOptions{
		Where: map[string]any{metaArtifactID: artifactID},
	})

	if err != nil {
		log.Warnf("store: failed to get artifact %s: %v", artifactID, err)
		return nil
	}

	var latest *ArtifactVersion

	for _, doc := range docs {
		artifact, err := versionFromDocument(doc)

		if err != nil {
			log.Warnf("store: skipping malformed record %s: %v", doc.ID, err)
			continue
		}

		if latest == nil || artifact.Version > latest.Version {
			latest = artifact
		}
	}

	return latest
}

// GetArtifactVersion fetches one exact version by its composite key. Same
// nil-on-error contract as GetArtifact.
func (s *Store) GetArtifactVersion(ctx context.Context, artifactID string, version int) *ArtifactVersion {
	docs, err := s.index.Get(ctx, &index.GetOptions{
		IDs: []string{versionKey(artifactID, version)},
	})

	if err != nil {
		log.Warnf("store: failed to get artifact %s v%d: %v", artifactID, version, err)
		return nil
	}

	if len(docs) == 0 {
		return nil
	}

	artifact, err := versionFromDocument(docs[0])

	if err != nil {
		log.Warnf("store: skipping malformed record %s: %v", docs[0].ID, err)
		return nil
	}

	return artifact
}

// UpdateArtifact writes a brand-new version with the given content, one
// number above the current latest. Task type and artifact type are inherited
// from the latest version; status is reset to active, so updating an
// archived artifact revives it. Prior versions remain stored and fetchable
// by explicit version number.
func (s *Store) UpdateArtifact(ctx context.Context, artifactID, content string, metadata map[string]any) (*ArtifactVersion, error) {
	if content == "" {
		return nil, fmt.Errorf("store: content is required")
	}

	unlock := s.locks.lock(artifactID)
	defer unlock()

	latest := s.GetArtifact(ctx, artifactID)

	if latest == nil {
		return nil, &NotFoundError{ArtifactID: artifactID}
	}

	embedding, err := s.embed(ctx, content)

	if err != nil {
		return nil, err
	}

	artifact := &ArtifactVersion{
		ArtifactID: artifactID,
		Version:    latest.Version + 1,

		TaskType: latest.TaskType,
		Type:     latest.Type,

		Content:        content,
		CustomMetadata: stripMetadata(metadata),

		Status:    StatusActive,
		CreatedAt: s.now(),
	}

	if err := s.index.Add(ctx, documentFromVersion(artifact, embedding)); err != nil {
		return nil, err
	}

	log.Infof("store: updated artifact %s to v%d", artifactID, artifact.Version)

	return artifact, nil
}

type ArchiveOptions struct {
	Reason        string
	ReplacementID string
}

// ArchiveArtifact marks the latest version archived, in place. No new
// version is created; this is the one mutation ever applied to a stored
// record, and it only ever touches the version that is latest at call time.
func (s *Store) ArchiveArtifact(ctx context.Context, artifactID string, opts *ArchiveOptions) (*ArtifactVersion, error) {
	if opts == nil {
		opts = new(ArchiveOptions)
	}

	unlock := s.locks.lock(artifactID)
	defer unlock()

	latest := s.GetArtifact(ctx, artifactID)

	if latest == nil {
		return nil, &NotFoundError{ArtifactID: artifactID}
	}

	key := versionKey(artifactID, latest.Version)

	// re-fetch by exact key so the write carries the record's current
	// metadata, not a reconstruction
	docs, err := s.index.Get(ctx, &index.GetOptions{IDs: []string{key}})

	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, &NotFoundError{ArtifactID: artifactID}
	}

	now := s.now()

	metadata := docs[0].Metadata

	if metadata == nil {
		metadata = make(map[string]any)
	}

	metadata[metaStatus] = string(StatusArchived)
	metadata[metaDeprecatedAt] = formatTime(now)

	if opts.Reason != "" {
		metadata[metaDeprecatedReason] = opts.Reason
	}

	if opts.ReplacementID != "" {
		metadata[metaReplacementID] = opts.ReplacementID
	}

	if err := s.index.Update(ctx, index.Document{ID: key, Metadata: metadata}); err != nil {
		return nil, err
	}

	log.Infof("store: archived artifact %s v%d", artifactID, latest.Version)

	latest.Status = StatusArchived
	latest.DeprecatedAt = &now
	latest.DeprecatedReason = opts.Reason
	latest.ReplacementID = opts.ReplacementID

	return latest, nil
}

type ListFilter struct {
	TaskType string
	Type     ArtifactType

	// Status defaults to active; StatusAny disables the predicate.
	Status ArtifactStatus
}

// ListArtifacts returns the latest matching version per artifact. TaskType
// and Type are conjunctive equality predicates pushed down to the index. The
// status predicate is applied afterwards, against the resolved latest
// version of each artifact: superseded versions keep their stored status, so
// filtering records by status directly would let an artifact whose latest
// version is archived resurface through an older, still-active record. The
// result never contains two entries with the same artifact id.
func (s *Store) ListArtifacts(ctx context.Context, filter ListFilter) ([]*ArtifactVersion, error) {
	status := filter.Status

	if status == "" {
		status = StatusActive
	}

	where := map[string]any{}

	if filter.TaskType != "" {
		where[metaTaskType] = filter.TaskType
	}

	if filter.Type != "" {
		where[metaArtifactType] = string(filter.Type)
	}

	docs, err := s.index.Get(ctx, &index.GetOptions{Where: where})

	if err != nil {
		return nil, err
	}

	latest := make(map[string]*ArtifactVersion)

	for _, doc := range docs {
		artifact, err := versionFromDocument(doc)

		if err != nil {
			log.Warnf("store: skipping malformed record %s: %v", doc.ID, err)
			continue
		}

		if current, ok := latest[artifact.ArtifactID]; !ok || artifact.Version > current.Version {
			latest[artifact.ArtifactID] = artifact
		}
	}

	result := make([]*ArtifactVersion, 0, len(latest))

	for _, artifact := range latest {
		if status != StatusAny && artifact.Status != status {
			continue
		}

		result = append(result, artifact)
	}

	sortVersions(result)

	return result, nil
}

// SearchArtifacts retrieves artifact versions semantically similar to the
// query. Ranking is the index's concern.
func (s *Store) SearchArtifacts(ctx context.Context, query string, limit int) ([]*ArtifactVersion, error) {
	if limit <= 0 {
		limit = 10
	}

	embedding, err := s.embed(ctx, query)

	if err != nil {
		return nil, err
	}

	results, err := s.index.Query(ctx, embedding, &index.QueryOptions{Limit: &limit})

	if err != nil {
		return nil, err
	}

	artifacts := make([]*ArtifactVersion, 0, len(results))

	for _, r := range results {
		artifact, err := versionFromDocument(r.Document)

		if err != nil {
			log.Warnf("store: skipping malformed record %s: %v", r.ID, err)
			continue
		}

		artifacts = append(artifacts, artifact)
	}

	return artifacts, nil
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	result, err := s.embedder.Embed(ctx, []string{text})

	if err != nil {
		return nil, fmt.Errorf("store: embedding failed: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("store: embedder returned no vector")
	}

	return result.Embeddings[0], nil
}

// documentFromVersion flattens a version into an index document: reserved
// fields merged over the (already stripped) custom metadata.
func documentFromVersion(artifact *ArtifactVersion, embedding []float32) index.Document {
	metadata := make(map[string]any, len(artifact.CustomMetadata)+8)

	for k, v := range artifact.CustomMetadata {
		metadata[k] = v
	}

	metadata[metaArtifactID] = artifact.ArtifactID
	metadata[metaTaskType] = artifact.TaskType
	metadata[metaArtifactType] = string(artifact.Type)
	metadata[metaVersion] = artifact.Version
	metadata[metaStatus] = string(artifact.Status)
	metadata[metaCreatedAt] = formatTime(artifact.CreatedAt)

	if artifact.DeprecatedAt != nil {
		metadata[metaDeprecatedAt] = formatTime(*artifact.DeprecatedAt)
	}

	if artifact.DeprecatedReason != "" {
		metadata[metaDeprecatedReason] = artifact.DeprecatedReason
	}

	if artifact.ReplacementID != "" {
		metadata[metaReplacementID] = artifact.ReplacementID
	}

	return index.Document{
		ID:        versionKey(artifact.ArtifactID, artifact.Version),
		Content:   artifact.Content,
		Metadata:  metadata,
		Embedding: embedding,
	}
}

// versionFromDocument reconstructs the domain view: reserved fields are
// pulled out, everything else becomes custom metadata.
func versionFromDocument(doc index.Document) (*ArtifactVersion, error) {
	artifactID := metaValue(doc.Metadata, metaArtifactID)

	if artifactID == "" {
		return nil, fmt.Errorf("record %s has no artifact id", doc.ID)
	}

	version, ok := metaInt(doc.Metadata, metaVersion)

	if !ok {
		return nil, fmt.Errorf("record %s has no version", doc.ID)
	}

	artifact := &ArtifactVersion{
		ArtifactID: artifactID,
		Version:    version,

		TaskType: metaValue(doc.Metadata, metaTaskType),
		Type:     ArtifactType(metaValue(doc.Metadata, metaArtifactType)),

		Content: doc.Content,

		Status:    ArtifactStatus(metaValue(doc.Metadata, metaStatus)),
		CreatedAt: parseTime(metaValue(doc.Metadata, metaCreatedAt)),

		DeprecatedReason: metaValue(doc.Metadata, metaDeprecatedReason),
		ReplacementID:    metaValue(doc.Metadata, metaReplacementID),

		CustomMetadata: make(map[string]any),
	}

	if val := metaValue(doc.Metadata, metaDeprecatedAt); val != "" {
		t := parseTime(val)
		artifact.DeprecatedAt = &t
	}

	for k, v := range doc.Metadata {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}

		artifact.CustomMetadata[k] = v
	}

	return artifact, nil
}

func sortVersions(artifacts []*ArtifactVersion) {
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].ArtifactID < artifacts[j].ArtifactID
	})
}
