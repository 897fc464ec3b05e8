package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/faceproj/facefinder/internal/database"
	"github.com/faceproj/facefinder/internal/ingest"
	"github.com/faceproj/facefinder/internal/match"
)

// maxUploadSize caps multipart request bodies.
const maxUploadSize = 100 << 20

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// decodeJSON parses a JSON request body.
func decodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps pipeline errors to HTTP statuses. Missing records
// are 404s; an image or project that cannot answer the request is a 422; the
// rest is a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, match.ErrProjectNotFound):
		respondError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, match.ErrNoCandidates):
		respondError(w, http.StatusUnprocessableEntity, "project has no embedded faces")
	case errors.Is(err, ingest.ErrNoFacesDetected):
		respondError(w, http.StatusUnprocessableEntity, "no faces detected in image")
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
