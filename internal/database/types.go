package database

import (
	"time"
)

// NoiseLabel is the cluster label for faces that did not join any dense
// group during a clustering pass.
const NoiseLabel = "-1"

// Face represents one detected face instance stored for a project.
//
// Fingerprint is the SHA-256 digest of the source image bytes, not of the
// face crop: every face extracted from the same upload shares one
// fingerprint, and the (project, fingerprint) pair gates duplicate uploads.
type Face struct {
	ID           string
	ProjectID    string
	BlobRef      string    // reference to the source image in the blob store
	Fingerprint  string    // SHA-256 hex digest of the source image bytes
	ClusterLabel string    // empty until a clustering pass labels the face; "-1" is noise
	Embedding    []float32 // nil until an embedding has been extracted
	CreatedAt    time.Time
}

// HasEmbedding reports whether an embedding has been stored for the face.
func (f *Face) HasEmbedding() bool {
	return len(f.Embedding) > 0
}

// Project owns a collection of faces. Faces reference their project by ID;
// there is no face list on the project itself, listings are query-time.
type Project struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
