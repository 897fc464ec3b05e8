package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/faceproj/facefinder/internal/ingest"
)

// FacesHandler handles single-face endpoints.
type FacesHandler struct {
	svc *ingest.Service
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(svc *ingest.Service) *FacesHandler {
	return &FacesHandler{svc: svc}
}

// Delete removes a face record, and its image when no other face uses it.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteFace(r.Context(), id); err != nil {
		log.Printf("web: deleting face %s: %v", sanitizeForLog(id), err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
