package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/faceproj/facefinder/internal/database"
)

// ProjectsHandler handles project CRUD endpoints.
type ProjectsHandler struct {
	projects database.ProjectStore
	faces    database.FaceReader
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projects database.ProjectStore, faces database.FaceReader) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, faces: faces}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	FaceCount   *int   `json:"face_count,omitempty"`
}

func toProjectResponse(p *database.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List returns all projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListProjects(r.Context())
	if err != nil {
		log.Printf("web: listing projects: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": out})
}

// Create registers a new project. Names are compared after normalization, so
// "Wedding" and "wédding " collide.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing, err := h.projects.GetProjectByName(r.Context(), req.Name)
	if err != nil {
		log.Printf("web: checking project name %q: %v", sanitizeForLog(req.Name), err)
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict, "project with this name already exists")
		return
	}

	project := &database.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.projects.CreateProject(r.Context(), project); err != nil {
		log.Printf("web: creating project %q: %v", sanitizeForLog(req.Name), err)
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, toProjectResponse(project))
}

// Get returns one project with its face count.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	project, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		log.Printf("web: loading project %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	if project == nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}

	resp := toProjectResponse(project)
	count, err := h.faces.CountFaces(r.Context(), id)
	if err != nil {
		log.Printf("web: counting faces for %s: %v", sanitizeForLog(id), err)
	} else {
		resp.FaceCount = &count
	}
	respondJSON(w, http.StatusOK, resp)
}

// Delete removes a project and everything under it.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	project, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		log.Printf("web: loading project %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}
	if project == nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}

	if err := h.projects.DeleteProject(r.Context(), id); err != nil {
		log.Printf("web: deleting project %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
