package store

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/l0kifs/task-context-mcp/pkg/index"
)

// Catalog is the task type registry: plain single-record CRUD keyed directly
// by the task type string. It shares the index abstraction with the artifact
// store but has no versioning and no lifecycle.
type Catalog struct {
	index index.Provider

	now timeFunc
}

func NewCatalog(idx index.Provider) (*Catalog, error) {
	if idx == nil {
		return nil, fmt.Errorf("catalog: missing index provider")
	}

	return &Catalog{
		index: idx,

		now: defaultNow,
	}, nil
}

// RegisterTaskType creates a catalog entry. An already-registered task type
// is rejected.
func (c *Catalog) RegisterTaskType(ctx context.Context, taskType, description string) (*TaskType, error) {
	if taskType == "" {
		return nil, fmt.Errorf("catalog: task type is required")
	}

	if c.GetTaskType(ctx, taskType) != nil {
		return nil, &AlreadyExistsError{TaskType: taskType}
	}

	now := c.now()

	entry := &TaskType{
		TaskType:    taskType,
		Description: description,

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.index.Add(ctx, documentFromTaskType(entry)); err != nil {
		return nil, err
	}

	log.Infof("catalog: registered task type %s", taskType)

	return entry, nil
}

// GetTaskType returns nil when the task type is unknown. Like artifact
// lookups, it never returns an error; index failures are logged.
func (c *Catalog) GetTaskType(ctx context.Context, taskType string) *TaskType {
	docs, err := c.index.Get(ctx, &index.GetOptions{IDs: []string{taskType}})

	if err != nil {
		log.Warnf("catalog: failed to get task type %s: %v", taskType, err)
		return nil
	}

	if len(docs) == 0 {
		return nil
	}

	return taskTypeFromDocument(docs[0])
}

func (c *Catalog) ListTaskTypes(ctx context.Context) ([]*TaskType, error) {
	docs, err := c.index.Get(ctx, nil)

	if err != nil {
		return nil, err
	}

	result := make([]*TaskType, 0, len(docs))

	for _, doc := range docs {
		result = append(result, taskTypeFromDocument(doc))
	}

	return result, nil
}

// UpdateTaskType replaces the description, preserving the creation time.
func (c *Catalog) UpdateTaskType(ctx context.Context, taskType, description string) (*TaskType, error) {
	existing := c.GetTaskType(ctx, taskType)

	if existing == nil {
		return nil, &NotFoundError{TaskType: taskType}
	}

	entry := &TaskType{
		TaskType:    taskType,
		Description: description,

		CreatedAt: existing.CreatedAt,
		UpdatedAt: c.now(),
	}

	if err := c.index.Update(ctx, documentFromTaskType(entry)); err != nil {
		return nil, err
	}

	log.Infof("catalog: updated task type %s", taskType)

	return entry, nil
}

func documentFromTaskType(entry *TaskType) index.Document {
	return index.Document{
		ID:      entry.TaskType,
		Content: entry.Description,
		Metadata: map[string]any{
			metaTaskType:    entry.TaskType,
			metaDescription: entry.Description,
			metaCreatedAt:   formatTime(entry.CreatedAt),
			metaUpdatedAt:   formatTime(entry.UpdatedAt),
		},
	}
}

func taskTypeFromDocument(doc index.Document) *TaskType {
	return &TaskType{
		TaskType:    metaValue(doc.Metadata, metaTaskType),
		Description: metaValue(doc.Metadata, metaDescription),

		CreatedAt: parseTime(metaValue(doc.Metadata, metaCreatedAt)),
		UpdatedAt: parseTime(metaValue(doc.Metadata, metaUpdatedAt)),
	}
}
