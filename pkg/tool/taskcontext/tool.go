// Package taskcontext exposes the artifact store and task catalog as agent
// tools. Results are rendered as plain text; domain failures are reported in
// the tool output instead of failing the call, so agents can react to them.
package taskcontext

import (
	"context"
	"fmt"
	"strings"

	"github.com/l0kifs/task-context-mcp/pkg/store"
	"github.com/l0kifs/task-context-mcp/pkg/tool"
)

var _ tool.Provider = (*Provider)(nil)

type Provider struct {
	store   *store.Store
	catalog *store.Catalog
}

type Config struct {
	Store   *store.Store
	Catalog *store.Catalog
}

func New(cfg Config) (*Provider, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("taskcontext tools: missing store")
	}

	if cfg.Catalog == nil {
		return nil, fmt.Errorf("taskcontext tools: missing catalog")
	}

	return &Provider{
		store:   cfg.Store,
		catalog: cfg.Catalog,
	}, nil
}

func (p *Provider) Tools(ctx context.Context) ([]tool.Tool, error) {
	return []tool.Tool{
		{
			Name:        "list_task_types",
			Description: "List all registered task types. Task types are reusable categories of work (e.g. \"CV review for Python developers\"), not individual task instances. Use this to find whether a matching task type already exists for your current work.",
			Parameters: schema(map[string]any{},
				nil),
		},
		{
			Name:        "register_task_type",
			Description: "Register a new task type. Use this when working on a category of task that does not exist yet.",
			Parameters: schema(map[string]any{
				"task_type":   property("string", "Unique task type identifier"),
				"description": property("string", "What this category of work is about"),
			}, []string{"task_type", "description"}),
		},
		{
			Name:        "get_artifacts_for_task_type",
			Description: "Load the current artifacts (practices, rules, prompts, learned results) for a task type. Call this before and during execution, not only at the start.",
			Parameters: schema(map[string]any{
				"task_type": property("string", "Task type to load artifacts for"),
				"artifact_type": map[string]any{
					"type":        "string",
					"description": "Optional filter: practice, rule, prompt or result",
					"enum":        []string{"practice", "rule", "prompt", "result"},
				},
				"include_archived": property("boolean", "Include archived artifacts"),
			}, []string{"task_type"}),
		},
		{
			Name:        "get_artifact",
			Description: "Fetch one artifact, latest version by default or a specific version if given.",
			Parameters: schema(map[string]any{
				"artifact_id": property("string", "Artifact identifier"),
				"version":     property("integer", "Specific version to fetch (optional)"),
			}, []string{"artifact_id"}),
		},
		{
			Name:        "create_artifact",
			Description: "Create a new artifact (version 1) for a task type. Create artifacts immediately when you discover something useful, not as an afterthought.",
			Parameters: schema(map[string]any{
				"task_type": property("string", "Task type this artifact belongs to"),
				"artifact_type": map[string]any{
					"type":        "string",
					"description": "practice, rule, prompt or result",
					"enum":        []string{"practice", "rule", "prompt", "result"},
				},
				"content":  property("string", "Full content of the artifact"),
				"metadata": property("object", "Optional custom metadata"),
			}, []string{"task_type", "artifact_type", "content"}),
		},
		{
			Name:        "update_artifact",
			Description: "Refine an artifact's content. A new version is created; earlier versions remain available.",
			Parameters: schema(map[string]any{
				"artifact_id": property("string", "Artifact to update"),
				"content":     property("string", "New content"),
				"metadata":    property("object", "Optional custom metadata for the new version"),
			}, []string{"artifact_id", "content"}),
		},
		{
			Name:        "archive_artifact",
			Description: "Archive an artifact that is no longer relevant or has been superseded. Archived artifacts are excluded from active loading but remain available for historical queries.",
			Parameters: schema(map[string]any{
				"artifact_id":    property("string", "Artifact to archive"),
				"reason":         property("string", "Why it is being archived (recommended)"),
				"replacement_id": property("string", "Artifact replacing it, if any"),
			}, []string{"artifact_id"}),
		},
		{
			Name:        "search_artifacts",
			Description: "Semantic search across all artifacts. Useful for finding similar past learnings and practices when starting new work.",
			Parameters: schema(map[string]any{
				"query": property("string", "Search query"),
				"limit": property("integer", "Maximum number of results (default 10)"),
			}, []string{"query"}),
		},
	}, nil
}

func (p *Provider) Execute(ctx context.Context, name string, parameters map[string]any) (any, error) {
	switch name {
	case "list_task_types":
		return p.listTaskTypes(ctx)
	case "register_task_type":
		return p.registerTaskType(ctx, parameters)
	case "get_artifacts_for_task_type":
		return p.getArtifactsForTaskType(ctx, parameters)
	case "get_artifact":
		return p.getArtifact(ctx, parameters)
	case "create_artifact":
		return p.createArtifact(ctx, parameters)
	case "update_artifact":
		return p.updateArtifact(ctx, parameters)
	case "archive_artifact":
		return p.archiveArtifact(ctx, parameters)
	case "search_artifacts":
		return p.searchArtifacts(ctx, parameters)
	}

	return nil, fmt.Errorf("unknown tool: %s", name)
}

func (p *Provider) listTaskTypes(ctx context.Context) (string, error) {
	entries, err := p.catalog.ListTaskTypes(ctx)

	if err != nil {
		return errorText("listing task types", err), nil
	}

	if len(entries) == 0 {
		return "No task types registered.", nil
	}

	var sb strings.Builder
	sb.WriteString("Registered task types:\n\n")

	for _, entry := range entries {
		fmt.Fprintf(&sb, "Task type: %s\n", entry.TaskType)
		fmt.Fprintf(&sb, "Description: %s\n", entry.Description)
		fmt.Fprintf(&sb, "Created: %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
		sb.WriteString("---\n")
	}

	return sb.String(), nil
}

func (p *Provider) registerTaskType(ctx context.Context, parameters map[string]any) (string, error) {
	taskType := stringParam(parameters, "task_type")
	description := stringParam(parameters, "description")

	entry, err := p.catalog.RegisterTaskType(ctx, taskType, description)

	if err != nil {
		return errorText("registering task type", err), nil
	}

	return fmt.Sprintf("Task type registered:\nTask type: %s\nDescription: %s", entry.TaskType, entry.Description), nil
}

func (p *Provider) getArtifactsForTaskType(ctx context.Context, parameters map[string]any) (string, error) {
	taskType := stringParam(parameters, "task_type")

	if taskType == "" {
		return "Error: task_type is required.", nil
	}

	filter := store.ListFilter{
		TaskType: taskType,
	}

	if val := stringParam(parameters, "artifact_type"); val != "" {
		artifactType, err := store.ParseArtifactType(val)

		if err != nil {
			return fmt.Sprintf("Invalid artifact type %q. Must be one of: practice, rule, prompt, result.", val), nil
		}

		filter.Type = artifactType
	}

	// one listing either way: each artifact appears once, at its latest
	// version, active or not
	if boolParam(parameters, "include_archived") {
		filter.Status = store.StatusAny
	}

	artifacts, err := p.store.ListArtifacts(ctx, filter)

	if err != nil {
		return errorText("loading artifacts", err), nil
	}

	if len(artifacts) == 0 {
		return fmt.Sprintf("No artifacts found for task type %s.", taskType), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Artifacts for task type %s:\n\n", taskType)

	for _, artifact := range artifacts {
		sb.WriteString(formatArtifact(artifact))
		sb.WriteString("---\n")
	}

	return sb.String(), nil
}

func (p *Provider) getArtifact(ctx context.Context, parameters map[string]any) (string, error) {
	artifactID := stringParam(parameters, "artifact_id")

	if artifactID == "" {
		return "Error: artifact_id is required.", nil
	}

	var artifact *store.ArtifactVersion

	if version, ok := intParam(parameters, "version"); ok {
		artifact = p.store.GetArtifactVersion(ctx, artifactID, version)
	} else {
		artifact = p.store.GetArtifact(ctx, artifactID)
	}

	if artifact == nil {
		return fmt.Sprintf("Artifact not found: %s", artifactID), nil
	}

	return formatArtifact(artifact), nil
}

func (p *Provider) createArtifact(ctx context.Context, parameters map[string]any) (string, error) {
	artifactType, err := store.ParseArtifactType(stringParam(parameters, "artifact_type"))

	if err != nil {
		return fmt.Sprintf("Invalid artifact type %q. Must be one of: practice, rule, prompt, result.", stringParam(parameters, "artifact_type")), nil
	}

	artifact, err := p.store.AddArtifact(ctx, store.AddArtifactRequest{
		TaskType: stringParam(parameters, "task_type"),
		Type:     artifactType,
		Content:  stringParam(parameters, "content"),
		Metadata: mapParam(parameters, "metadata"),
	})

	if err != nil {
		return errorText("creating artifact", err), nil
	}

	return fmt.Sprintf("Artifact created:\nID: %s\nType: %s\nVersion: %d", artifact.ArtifactID, artifact.Type, artifact.Version), nil
}

func (p *Provider) updateArtifact(ctx context.Context, parameters map[string]any) (string, error) {
	artifact, err := p.store.UpdateArtifact(ctx,
		stringParam(parameters, "artifact_id"),
		stringParam(parameters, "content"),
		mapParam(parameters, "metadata"),
	)

	if err != nil {
		return errorText("updating artifact", err), nil
	}

	return fmt.Sprintf("Artifact updated:\nID: %s\nVersion: %d", artifact.ArtifactID, artifact.Version), nil
}

func (p *Provider) archiveArtifact(ctx context.Context, parameters map[string]any) (string, error) {
	artifact, err := p.store.ArchiveArtifact(ctx, stringParam(parameters, "artifact_id"), &store.ArchiveOptions{
		Reason:        stringParam(parameters, "reason"),
		ReplacementID: stringParam(parameters, "replacement_id"),
	})

	if err != nil {
		return errorText("archiving artifact", err), nil
	}

	result := fmt.Sprintf("Artifact archived:\nID: %s\nVersion: %d", artifact.ArtifactID, artifact.Version)

	if artifact.DeprecatedReason != "" {
		result += fmt.Sprintf("\nReason: %s", artifact.DeprecatedReason)
	}

	return result, nil
}

func (p *Provider) searchArtifacts(ctx context.Context, parameters map[string]any) (string, error) {
	query := stringParam(parameters, "query")

	if query == "" {
		return "Error: query is required.", nil
	}

	limit, _ := intParam(parameters, "limit")

	artifacts, err := p.store.SearchArtifacts(ctx, query, limit)

	if err != nil {
		return errorText("searching artifacts", err), nil
	}

	if len(artifacts) == 0 {
		return "No matching artifacts found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d artifact(s):\n\n", len(artifacts))

	for _, artifact := range artifacts {
		sb.WriteString(formatArtifact(artifact))
		sb.WriteString("---\n")
	}

	return sb.String(), nil
}

func formatArtifact(artifact *store.ArtifactVersion) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ID: %s\n", artifact.ArtifactID)
	fmt.Fprintf(&sb, "Task type: %s\n", artifact.TaskType)
	fmt.Fprintf(&sb, "Type: %s\n", artifact.Type)
	fmt.Fprintf(&sb, "Version: %d\n", artifact.Version)
	fmt.Fprintf(&sb, "Status: %s\n", artifact.Status)
	fmt.Fprintf(&sb, "Content:\n%s\n", artifact.Content)

	if artifact.DeprecatedAt != nil {
		fmt.Fprintf(&sb, "Archived: %s\n", artifact.DeprecatedAt.Format("2006-01-02 15:04:05"))
	}

	if artifact.DeprecatedReason != "" {
		fmt.Fprintf(&sb, "Archive reason: %s\n", artifact.DeprecatedReason)
	}

	if artifact.ReplacementID != "" {
		fmt.Fprintf(&sb, "Replaced by: %s\n", artifact.ReplacementID)
	}

	fmt.Fprintf(&sb, "Created: %s\n", artifact.CreatedAt.Format("2006-01-02 15:04:05"))

	return sb.String()
}

func errorText(action string, err error) string {
	return fmt.Sprintf("Error %s: %v", action, err)
}

func schema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		s["required"] = required
	}

	return s
}

func property(typ, description string) map[string]any {
	return map[string]any{
		"type":        typ,
		"description": description,
	}
}

func stringParam(parameters map[string]any, key string) string {
	val, _ := parameters[key].(string)
	return val
}

func boolParam(parameters map[string]any, key string) bool {
	val, _ := parameters[key].(bool)
	return val
}

func intParam(parameters map[string]any, key string) (int, bool) {
	switch val := parameters[key].(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	}

	return 0, false
}

func mapParam(parameters map[string]any, key string) map[string]any {
	val, _ := parameters[key].(map[string]any)
	return val
}
