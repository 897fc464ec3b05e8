// Package ingest orchestrates the upload pipeline: validate the image,
// fingerprint it, gate duplicates, store the blob, create face records,
// extract embeddings, and run the per-batch clustering pass.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/faceproj/facefinder/internal/cluster"
	"github.com/faceproj/facefinder/internal/database"
	"github.com/faceproj/facefinder/internal/embedding"
	"github.com/faceproj/facefinder/internal/fingerprint"
	"github.com/faceproj/facefinder/internal/match"
)

// ErrNoFacesDetected indicates the provider found no face in a query image.
var ErrNoFacesDetected = errors.New("no faces detected in image")

// Invalidator is implemented by matchers that cache per-project state and
// need to be told when a clustering pass adds embeddings.
type Invalidator interface {
	Invalidate(projectID string)
}

// Service wires the collaborators of the upload and query pipelines.
type Service struct {
	projects database.ProjectStore
	faces    database.FaceWriter
	blobs    database.BlobStore
	provider embedding.Provider
	engine   *cluster.Engine
	matcher  match.Matcher

	// invalidator is optional; nil when the matcher keeps no cache.
	invalidator Invalidator
}

// NewService creates the ingest service. invalidator may be nil.
func NewService(
	projects database.ProjectStore,
	faces database.FaceWriter,
	blobs database.BlobStore,
	provider embedding.Provider,
	engine *cluster.Engine,
	matcher match.Matcher,
	invalidator Invalidator,
) *Service {
	return &Service{
		projects:    projects,
		faces:       faces,
		blobs:       blobs,
		provider:    provider,
		engine:      engine,
		matcher:     matcher,
		invalidator: invalidator,
	}
}

// ImageUpload is one file from an upload request.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// SavedFace reports the outcome for one uploaded file.
type SavedFace struct {
	FaceID    string `json:"face_id,omitempty"`
	BlobRef   string `json:"blob_ref,omitempty"`
	Message   string `json:"message"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Rejected  bool   `json:"rejected,omitempty"`
}

// UploadResult summarizes an upload batch.
type UploadResult struct {
	Saved   []SavedFace         `json:"saved_faces"`
	Cluster cluster.BatchResult `json:"cluster"`
}

// Upload ingests a batch of images into a project and clusters the new
// embeddings. Per-file problems (wrong type, duplicate, store hiccup) are
// reported per file and do not abort sibling files. A structurally invalid
// clustering batch is the only whole-operation failure; face records created
// before it are kept, unlabeled, matching a partially processed upload.
func (s *Service) Upload(ctx context.Context, projectID string, uploads []ImageUpload) (*UploadResult, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", projectID, err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, match.ErrProjectNotFound)
	}

	result := &UploadResult{}
	var batch []cluster.BatchItem
	for _, upload := range uploads {
		saved, items := s.ingestOne(ctx, projectID, upload)
		result.Saved = append(result.Saved, saved)
		batch = append(batch, items...)
	}

	batchResult, err := s.engine.ClusterBatch(ctx, batch)
	if err != nil {
		return result, fmt.Errorf("clustering upload batch: %w", err)
	}
	result.Cluster = batchResult

	if s.invalidator != nil && batchResult.Labeled > 0 {
		s.invalidator.Invalidate(projectID)
	}

	return result, nil
}

// ingestOne processes a single file up to (not including) clustering.
// It returns the per-file outcome and the batch items its faces contribute.
func (s *Service) ingestOne(ctx context.Context, projectID string, upload ImageUpload) (SavedFace, []cluster.BatchItem) {
	if !fingerprint.AllowedFile(upload.Filename) {
		return SavedFace{Message: fmt.Sprintf("file type not allowed: %s", upload.Filename), Rejected: true}, nil
	}
	if !fingerprint.IsImage(upload.Data) {
		return SavedFace{Message: fmt.Sprintf("not a valid image: %s", upload.Filename), Rejected: true}, nil
	}

	digest := fingerprint.Digest(upload.Data)
	existing, err := s.faces.GetFaceByFingerprint(ctx, projectID, digest)
	if err != nil {
		log.Printf("ingest: duplicate check for %s failed: %v", upload.Filename, err)
		return SavedFace{Message: fmt.Sprintf("error checking for duplicates: %s", upload.Filename), Rejected: true}, nil
	}
	if existing != nil {
		return SavedFace{
			FaceID:    existing.ID,
			BlobRef:   existing.BlobRef,
			Message:   "duplicate image detected",
			Duplicate: true,
		}, nil
	}

	blobRef, err := s.blobs.PutBlob(ctx, upload.Data, upload.Filename)
	if err != nil {
		log.Printf("ingest: storing blob for %s failed: %v", upload.Filename, err)
		return SavedFace{Message: fmt.Sprintf("error storing image: %s", upload.Filename), Rejected: true}, nil
	}

	// The first face record is created before extraction so the fingerprint
	// gate holds even for images with no detectable faces.
	first := &database.Face{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		BlobRef:     blobRef,
		Fingerprint: digest,
	}
	if err := s.faces.CreateFace(ctx, first); err != nil {
		log.Printf("ingest: creating face for %s failed: %v", upload.Filename, err)
		if delErr := s.blobs.DeleteBlob(ctx, blobRef); delErr != nil {
			log.Printf("ingest: orphaned blob %s: %v", blobRef, delErr)
		}
		return SavedFace{Message: fmt.Sprintf("error processing image: %s", upload.Filename), Rejected: true}, nil
	}

	embeddings, err := s.provider.Extract(ctx, upload.Data)
	if err != nil {
		// Transient model failure: the face record stays, unprocessed.
		log.Printf("ingest: extraction for %s failed: %v", upload.Filename, err)
		return SavedFace{FaceID: first.ID, BlobRef: blobRef, Message: "no faces found"}, nil
	}
	if len(embeddings) == 0 {
		return SavedFace{FaceID: first.ID, BlobRef: blobRef, Message: "no faces detected"}, nil
	}

	// One face record per detected face. The record created above takes the
	// first embedding; the rest get sibling records sharing blob and
	// fingerprint.
	items := []cluster.BatchItem{{FaceID: first.ID, Embedding: embeddings[0]}}
	for _, emb := range embeddings[1:] {
		sibling := &database.Face{
			ID:          uuid.NewString(),
			ProjectID:   projectID,
			BlobRef:     blobRef,
			Fingerprint: digest,
		}
		if err := s.faces.CreateFace(ctx, sibling); err != nil {
			log.Printf("ingest: creating sibling face for %s failed: %v", upload.Filename, err)
			continue
		}
		items = append(items, cluster.BatchItem{FaceID: sibling.ID, Embedding: emb})
	}

	return SavedFace{
		FaceID:  first.ID,
		BlobRef: blobRef,
		Message: fmt.Sprintf("image uploaded, %d face(s) detected", len(embeddings)),
	}, items
}

// FindFaces extracts embeddings from a query image and returns the blob refs
// of stored images containing a matching face.
func (s *Service) FindFaces(ctx context.Context, projectID string, imageBytes []byte, tolerance float64) ([]string, error) {
	embeddings, err := s.provider.Extract(ctx, imageBytes)
	if err != nil {
		return nil, fmt.Errorf("extracting query embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, ErrNoFacesDetected
	}

	refs, err := s.matcher.Match(ctx, embeddings, projectID, tolerance)
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// DeleteFace removes a face record and, when no sibling face still
// references the same source image, the backing blob.
func (s *Service) DeleteFace(ctx context.Context, faceID string) error {
	face, err := s.faces.GetFace(ctx, faceID)
	if err != nil {
		return fmt.Errorf("loading face %s: %w", faceID, err)
	}
	if face == nil {
		return fmt.Errorf("face %s: %w", faceID, database.ErrNotFound)
	}

	if err := s.faces.DeleteFace(ctx, faceID); err != nil {
		return fmt.Errorf("deleting face %s: %w", faceID, err)
	}

	sibling, err := s.faces.GetFaceByFingerprint(ctx, face.ProjectID, face.Fingerprint)
	if err != nil {
		return fmt.Errorf("checking for sibling faces: %w", err)
	}
	if sibling == nil {
		if err := s.blobs.DeleteBlob(ctx, face.BlobRef); err != nil {
			return fmt.Errorf("deleting blob %s: %w", face.BlobRef, err)
		}
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(face.ProjectID)
	}
	return nil
}
