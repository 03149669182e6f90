// Package store implements the versioned artifact store and the task catalog
// registry on top of a document index and an embedding provider.
//
// An artifact is a logical unit of reusable knowledge (a practice, rule,
// prompt or learned result) attached to a task type. It is identified by a
// stable artifact id and spans one or more immutable versions; each version
// is stored as one index document under the key "{artifact_id}_v{version}".
// Updates append versions, archival mutates lifecycle fields of the latest
// version in place.
package store

import (
	"fmt"
	"sync"
	"time"
)

// ArtifactType classifies the knowledge an artifact carries.
type ArtifactType string

const (
	ArtifactTypePractice ArtifactType = "practice"
	ArtifactTypeRule     ArtifactType = "rule"
	ArtifactTypePrompt   ArtifactType = "prompt"
	ArtifactTypeResult   ArtifactType = "result"
)

// ParseArtifactType validates a wire value.
func ParseArtifactType(val string) (ArtifactType, error) {
	switch ArtifactType(val) {
	case ArtifactTypePractice, ArtifactTypeRule, ArtifactTypePrompt, ArtifactTypeResult:
		return ArtifactType(val), nil
	}

	return "", fmt.Errorf("unknown artifact type: %q", val)
}

// ArtifactStatus is the lifecycle state of a version.
type ArtifactStatus string

const (
	StatusActive     ArtifactStatus = "active"
	StatusDeprecated ArtifactStatus = "deprecated"
	StatusArchived   ArtifactStatus = "archived"

	// StatusAny disables the status predicate when listing. Never stored.
	StatusAny ArtifactStatus = "any"
)

// ParseArtifactStatus validates a wire value.
func ParseArtifactStatus(val string) (ArtifactStatus, error) {
	switch ArtifactStatus(val) {
	case StatusActive, StatusDeprecated, StatusArchived:
		return ArtifactStatus(val), nil
	}

	return "", fmt.Errorf("unknown artifact status: %q", val)
}

// ArtifactVersion is an immutable snapshot of an artifact. Content never
// changes once written; only Status, DeprecatedAt, DeprecatedReason and
// ReplacementID of the latest version may change after the fact (archival).
type ArtifactVersion struct {
	ArtifactID string
	Version    int

	TaskType string
	Type     ArtifactType

	Content string

	// CustomMetadata holds caller-supplied keys. Reserved keys and nil
	// values are stripped before persistence.
	CustomMetadata map[string]any

	Status    ArtifactStatus
	CreatedAt time.Time

	DeprecatedAt     *time.Time
	DeprecatedReason string
	ReplacementID    string
}

// TaskType is a catalog entry describing a category of recurring work. It is
// keyed directly by its name and carries no versioning.
type TaskType struct {
	TaskType    string
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reserved metadata keys owned by the store.
const (
	metaArtifactID       = "artifact_id"
	metaTaskType         = "task_type"
	metaArtifactType     = "artifact_type"
	metaVersion          = "version"
	metaStatus           = "status"
	metaCreatedAt        = "created_at"
	metaDeprecatedAt     = "deprecated_at"
	metaDeprecatedReason = "deprecated_reason"
	metaReplacementID    = "replacement_id"
	metaDescription      = "description"
	metaUpdatedAt        = "updated_at"
)

var reservedKeys = map[string]struct{}{
	metaArtifactID:       {},
	metaTaskType:         {},
	metaArtifactType:     {},
	metaVersion:          {},
	metaStatus:           {},
	metaCreatedAt:        {},
	metaDeprecatedAt:     {},
	metaDeprecatedReason: {},
	metaReplacementID:    {},
}

// versionKey composes the storage key of one artifact version.
func versionKey(artifactID string, version int) string {
	return fmt.Sprintf("%s_v%d", artifactID, version)
}

// stripMetadata drops nil values and reserved keys from caller-supplied
// metadata.
func stripMetadata(metadata map[string]any) map[string]any {
	result := make(map[string]any, len(metadata))

	for k, v := range metadata {
		if v == nil {
			continue
		}

		if _, reserved := reservedKeys[k]; reserved {
			continue
		}

		result[k] = v
	}

	return result
}

// timeFunc supplies timestamps; tests substitute a fixed clock.
type timeFunc func() time.Time

func defaultNow() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(val string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, val)

	if err != nil {
		return time.Time{}
	}

	return t
}

// metaValue reads a string-valued metadata entry.
func metaValue(metadata map[string]any, key string) string {
	val, _ := metadata[key].(string)
	return val
}

// metaInt reads an int-valued metadata entry, tolerating the numeric types a
// JSON round-trip may produce.
func metaInt(metadata map[string]any, key string) (int, bool) {
	switch val := metadata[key].(type) {
	case int:
		return val, true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case float32:
		return int(val), true
	case float64:
		return int(val), true
	}

	return 0, false
}

// keyedMutex serializes read-modify-write sequences per artifact id. Entries
// are never evicted; the map is bounded by the number of distinct artifacts
// touched by this process.
type keyedMutex struct {
	locks sync.Map
}

func (m *keyedMutex) lock(key string) func() {
	val, _ := m.locks.LoadOrStore(key, new(sync.Mutex))

	mu := val.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}
