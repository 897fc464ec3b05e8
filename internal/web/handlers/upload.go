package handlers

import (
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/faceproj/facefinder/internal/ingest"
)

// UploadHandler handles image upload endpoints.
type UploadHandler struct {
	svc *ingest.Service
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(svc *ingest.Service) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// readUploadedFiles reads every multipart file into memory. Images are small
// and the pipeline needs the full bytes for hashing anyway.
func readUploadedFiles(files []*multipart.FileHeader) ([]ingest.ImageUpload, error) {
	uploads := make([]ingest.ImageUpload, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, ingest.ImageUpload{Filename: fileHeader.Filename, Data: data})
	}
	return uploads, nil
}

// Upload handles multipart image uploads into a project.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	uploads, err := readUploadedFiles(files)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded files")
		return
	}

	result, err := h.svc.Upload(r.Context(), projectID, uploads)
	if err != nil {
		log.Printf("web: upload to project %s: %v", sanitizeForLog(projectID), err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
