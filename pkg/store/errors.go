package store

import "fmt"

// NotFoundError is returned by write operations that require an existing
// target. Read operations report absence as a nil result instead.
type NotFoundError struct {
	ArtifactID string
	TaskType   string
}

func (e *NotFoundError) Error() string {
	if e.TaskType != "" {
		return fmt.Sprintf("task type not found: %s", e.TaskType)
	}

	return fmt.Sprintf("artifact not found: %s", e.ArtifactID)
}

// AlreadyExistsError is returned when creating an artifact under a
// caller-supplied id that already has stored versions.
type AlreadyExistsError struct {
	ArtifactID string
	TaskType   string
}

func (e *AlreadyExistsError) Error() string {
	if e.TaskType != "" {
		return fmt.Sprintf("task type already exists: %s", e.TaskType)
	}

	return fmt.Sprintf("artifact already exists: %s", e.ArtifactID)
}
