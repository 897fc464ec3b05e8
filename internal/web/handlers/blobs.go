package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/faceproj/facefinder/internal/database"
)

// BlobsHandler serves stored image bytes.
type BlobsHandler struct {
	blobs database.BlobStore
}

// NewBlobsHandler creates a new blobs handler.
func NewBlobsHandler(blobs database.BlobStore) *BlobsHandler {
	return &BlobsHandler{blobs: blobs}
}

// Get streams a stored image back to the client. The content type is sniffed
// from the bytes rather than trusted from the original filename.
func (h *BlobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	data, filename, err := h.blobs.GetBlob(r.Context(), ref)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "blob not found")
			return
		}
		log.Printf("web: loading blob %s: %v", sanitizeForLog(ref), err)
		respondError(w, http.StatusInternalServerError, "failed to load blob")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	if filename != "" {
		w.Header().Set("Content-Disposition", `inline; filename="`+sanitizeForLog(filename)+`"`)
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
