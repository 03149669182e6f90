// Package api exposes the artifact store and task catalog as a JSON HTTP
// API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"github.com/l0kifs/task-context-mcp/pkg/authorizer"
	"github.com/l0kifs/task-context-mcp/pkg/store"
)

type Handler struct {
	store   *store.Store
	catalog *store.Catalog

	authorizers []authorizer.Provider
}

type Config struct {
	Store   *store.Store
	Catalog *store.Catalog

	Authorizers []authorizer.Provider
}

func New(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("api: missing store")
	}

	if cfg.Catalog == nil {
		return nil, fmt.Errorf("api: missing catalog")
	}

	return &Handler{
		store:   cfg.Store,
		catalog: cfg.Catalog,

		authorizers: cfg.Authorizers,
	}, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authorize)

		r.Route("/v1/artifacts", func(r chi.Router) {
			r.Post("/", h.createArtifact)
			r.Get("/", h.listArtifacts)
			r.Post("/search", h.searchArtifacts)
			r.Get("/{id}", h.getArtifact)
			r.Put("/{id}", h.updateArtifact)
			r.Delete("/{id}", h.archiveArtifact)
		})

		r.Route("/v1/task-types", func(r chi.Router) {
			r.Post("/", h.registerTaskType)
			r.Get("/", h.listTaskTypes)
			r.Get("/{taskType}", h.getTaskType)
			r.Put("/{taskType}", h.updateTaskType)
		})
	})

	return r
}

func (h *Handler) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(h.authorizers) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		for _, a := range h.authorizers {
			if err := a.Authorize(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		writeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
	})
}

type artifactRequest struct {
	TaskType     string         `json:"task_type"`
	ArtifactType string         `json:"artifact_type"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ArtifactID   string         `json:"artifact_id,omitempty"`
}

type updateRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type archiveRequest struct {
	Reason        string `json:"reason,omitempty"`
	ReplacementID string `json:"replacement_id,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type taskTypeRequest struct {
	TaskType    string `json:"task_type"`
	Description string `json:"description"`
}

type artifactResponse struct {
	ArtifactID string `json:"artifact_id"`
	Version    int    `json:"version"`

	TaskType     string `json:"task_type"`
	ArtifactType string `json:"artifact_type"`

	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	DeprecatedAt     *time.Time `json:"deprecated_at,omitempty"`
	DeprecatedReason string     `json:"deprecated_reason,omitempty"`
	ReplacementID    string     `json:"replacement_id,omitempty"`
}

type taskTypeResponse struct {
	TaskType    string    `json:"task_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) createArtifact(w http.ResponseWriter, r *http.Request) {
	var req artifactRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	artifactType, err := store.ParseArtifactType(req.ArtifactType)

	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	artifact, err := h.store.AddArtifact(r.Context(), store.AddArtifactRequest{
		TaskType:   req.TaskType,
		Type:       artifactType,
		Content:    req.Content,
		Metadata:   req.Metadata,
		ArtifactID: req.ArtifactID,
	})

	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toArtifactResponse(artifact))
}

func (h *Handler) listArtifacts(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{
		TaskType: r.URL.Query().Get("task_type"),
	}

	if val := r.URL.Query().Get("artifact_type"); val != "" {
		artifactType, err := store.ParseArtifactType(val)

		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		filter.Type = artifactType
	}

	if val := r.URL.Query().Get("status"); val != "" {
		status, err := store.ParseArtifactStatus(val)

		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		filter.Status = status
	}

	artifacts, err := h.store.ListArtifacts(r.Context(), filter)

	if err != nil {
		writeStoreError(w, err)
		return
	}

	result := make([]artifactResponse, 0, len(artifacts))

	for _, artifact := range artifacts {
		result = append(result, toArtifactResponse(artifact))
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var artifact *store.ArtifactVersion

	if val := r.URL.Query().Get("version"); val != "" {
		version, err := strconv.Atoi(val)

		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid version: %q", val))
			return
		}

		artifact = h.store.GetArtifactVersion(r.Context(), id, version)
	} else {
		artifact = h.store.GetArtifact(r.Context(), id)
	}

	if artifact == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("artifact not found: %s", id))
		return
	}

	writeJSON(w, http.StatusOK, toArtifactResponse(artifact))
}

func (h *Handler) updateArtifact(w http.ResponseWriter, r *http.Request) {
	var req updateRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	artifact, err := h.store.UpdateArtifact(r.Context(), chi.URLParam(r, "id"), req.Content, req.Metadata)

	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArtifactResponse(artifact))
}

func (h *Handler) archiveArtifact(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest

	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	artifact, err := h.store.ArchiveArtifact(r.Context(), chi.URLParam(r, "id"), &store.ArchiveOptions{
		Reason:        req.Reason,
		ReplacementID: req.ReplacementID,
	})

	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArtifactResponse(artifact))
}

func (h *Handler) searchArtifacts(w http.ResponseWriter, r *http.Request) {
	var req searchRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}

	artifacts, err := h.store.SearchArtifacts(r.Context(), req.Query, req.Limit)

	if err != nil {
		writeStoreError(w, err)
		return
	}

	result := make([]artifactResponse, 0, len(artifacts))

	for _, artifact := range artifacts {
		result = append(result, toArtifactResponse(artifact))
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) registerTaskType(w http.ResponseWriter, r *http.Request) {
	var req taskTypeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := h.catalog.RegisterTaskType(r.Context(), req.TaskType, req.Description)

	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskTypeResponse(entry))
}

func (h *Handler) listTaskTypes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.ListTaskTypes(r.Context())

	if err != nil {
		writeStoreError(w, err)
		return
	}

	result := make([]taskTypeResponse, 0, len(entries))

	for _, entry := range entries {
		result = append(result, toTaskTypeResponse(entry))
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getTaskType(w http.ResponseWriter, r *http.Request) {
	taskType := chi.URLParam(r, "taskType")

	entry := h.catalog.GetTaskType(r.Context(), taskType)

	if entry == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("task type not found: %s", taskType))
		return
	}

	writeJSON(w, http.StatusOK, toTaskTypeResponse(entry))
}

func (h *Handler) updateTaskType(w http.ResponseWriter, r *http.Request) {
	var req taskTypeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := h.catalog.UpdateTaskType(r.Context(), chi.URLParam(r, "taskType"), req.Description)

	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskTypeResponse(entry))
}

func toArtifactResponse(artifact *store.ArtifactVersion) artifactResponse {
	return artifactResponse{
		ArtifactID: artifact.ArtifactID,
		Version:    artifact.Version,

		TaskType:     artifact.TaskType,
		ArtifactType: string(artifact.Type),

		Content:  artifact.Content,
		Metadata: artifact.CustomMetadata,

		Status:    string(artifact.Status),
		CreatedAt: artifact.CreatedAt,

		DeprecatedAt:     artifact.DeprecatedAt,
		DeprecatedReason: artifact.DeprecatedReason,
		ReplacementID:    artifact.ReplacementID,
	}
}

func toTaskTypeResponse(entry *store.TaskType) taskTypeResponse {
	return taskTypeResponse{
		TaskType:    entry.TaskType,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	var notFound *store.NotFoundError
	var exists *store.AlreadyExistsError

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &exists):
		writeError(w, http.StatusConflict, err)
	default:
		log.Errorf("api: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, val any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(val)
}
