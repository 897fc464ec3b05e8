package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/faceproj/facefinder/internal/cluster"
	"github.com/faceproj/facefinder/internal/database"
)

// UniqueHandler serves one representative face per cluster of a project.
type UniqueHandler struct {
	projects database.ProjectStore
	faces    database.FaceReader
}

// NewUniqueHandler creates a new unique-faces handler.
func NewUniqueHandler(projects database.ProjectStore, faces database.FaceReader) *UniqueHandler {
	return &UniqueHandler{projects: projects, faces: faces}
}

// List returns the representative faces of the project, one per non-noise
// cluster label.
func (h *UniqueHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	project, err := h.projects.GetProject(r.Context(), projectID)
	if err != nil {
		log.Printf("web: loading project %s: %v", sanitizeForLog(projectID), err)
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	if project == nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}

	reps, err := cluster.UniqueFaces(r.Context(), h.faces, projectID)
	if err != nil {
		log.Printf("web: unique faces for %s: %v", sanitizeForLog(projectID), err)
		respondError(w, http.StatusInternalServerError, "failed to list unique faces")
		return
	}

	if reps == nil {
		reps = []cluster.Representative{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"unique_faces": reps})
}
