package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/faceproj/facefinder/internal/ingest"
)

// FindHandler handles face search queries against a project.
type FindHandler struct {
	svc              *ingest.Service
	defaultTolerance float64
}

// NewFindHandler creates a new find handler.
func NewFindHandler(svc *ingest.Service, defaultTolerance float64) *FindHandler {
	return &FindHandler{svc: svc, defaultTolerance: defaultTolerance}
}

// Find takes a query image and returns the stored images that contain a
// matching face. The optional "tolerance" form field overrides the
// configured similarity threshold.
func (h *FindHandler) Find(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	tolerance := h.defaultTolerance
	if raw := r.FormValue("tolerance"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < -1 || parsed > 1 {
			respondError(w, http.StatusBadRequest, "tolerance must be a number between -1 and 1")
			return
		}
		tolerance = parsed
	}

	refs, err := h.svc.FindFaces(r.Context(), projectID, data, tolerance)
	if err != nil {
		log.Printf("web: find in project %s: %v", sanitizeForLog(projectID), err)
		respondServiceError(w, err)
		return
	}

	if refs == nil {
		refs = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"matches":   refs,
		"tolerance": tolerance,
	})
}
