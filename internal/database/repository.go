package database

import (
	"context"
)

// FaceReader provides read-only access to face records.
type FaceReader interface {
	// GetFace retrieves a face by ID, returns nil if not found.
	GetFace(ctx context.Context, id string) (*Face, error)
	// GetFaceByFingerprint retrieves any face with the given source-image
	// fingerprint within a project, returns nil if none exists. Used as the
	// duplicate-upload gate.
	GetFaceByFingerprint(ctx context.Context, projectID, fingerprint string) (*Face, error)
	// ListEmbedded retrieves all faces of a project that have a stored
	// embedding. The slice is a snapshot; concurrent writes after the call
	// returns are not reflected.
	ListEmbedded(ctx context.Context, projectID string) ([]Face, error)
	// ListLabeled retrieves all faces of a project whose cluster label is set
	// and not the noise label, ordered by label then creation order.
	ListLabeled(ctx context.Context, projectID string) ([]Face, error)
	// CountFaces returns the number of faces stored for a project.
	CountFaces(ctx context.Context, projectID string) (int, error)
}

// FaceWriter provides write access to face records.
type FaceWriter interface {
	FaceReader

	// CreateFace stores a new face record. The ID must be set by the caller.
	CreateFace(ctx context.Context, face *Face) error
	// SetClusterResult writes the cluster label and embedding produced by a
	// clustering pass onto an existing face.
	SetClusterResult(ctx context.Context, faceID, label string, embedding []float32) error
	// DeleteFace removes a face record. Deleting the backing blob is the
	// caller's responsibility.
	DeleteFace(ctx context.Context, id string) error
}

// ProjectStore provides access to project records.
type ProjectStore interface {
	// CreateProject stores a new project. The ID must be set by the caller.
	CreateProject(ctx context.Context, project *Project) error
	// GetProject retrieves a project by ID, returns nil if not found.
	GetProject(ctx context.Context, id string) (*Project, error)
	// GetProjectByName retrieves a project by normalized name, returns nil if
	// not found. Names are compared case- and diacritic-insensitively.
	GetProjectByName(ctx context.Context, name string) (*Project, error)
	// ListProjects retrieves all projects ordered by creation time.
	ListProjects(ctx context.Context) ([]Project, error)
	// DeleteProject removes a project record.
	DeleteProject(ctx context.Context, id string) error
}

// BlobStore holds raw image bytes behind opaque references.
type BlobStore interface {
	// PutBlob stores the data and returns a new opaque reference.
	PutBlob(ctx context.Context, data []byte, filename string) (string, error)
	// GetBlob retrieves the data and original filename for a reference.
	GetBlob(ctx context.Context, ref string) ([]byte, string, error)
	// DeleteBlob removes the blob.
	DeleteBlob(ctx context.Context, ref string) error
}
