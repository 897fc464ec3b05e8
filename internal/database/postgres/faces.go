package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/faceproj/facefinder/internal/database"
)

// FaceRepository provides PostgreSQL-backed face storage. Embeddings live in
// a nullable pgvector column; a face without one has not been processed yet.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

const faceColumns = "id, project_id, blob_ref, fingerprint, cluster_label, embedding, created_at"

// scanFace reads one face row. The embedding column may be NULL, so it is
// scanned as raw bytes and parsed only when present.
func scanFace(scan func(...any) error) (*database.Face, error) {
	var face database.Face
	var rawEmbedding []byte

	if err := scan(
		&face.ID,
		&face.ProjectID,
		&face.BlobRef,
		&face.Fingerprint,
		&face.ClusterLabel,
		&rawEmbedding,
		&face.CreatedAt,
	); err != nil {
		return nil, err
	}

	if rawEmbedding != nil {
		var vec pgvector.Vector
		if err := vec.Scan(rawEmbedding); err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
		face.Embedding = vec.Slice()
	}
	return &face, nil
}

func scanFaces(rows *sql.Rows) ([]database.Face, error) {
	var faces []database.Face
	for rows.Next() {
		face, err := scanFace(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, *face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// GetFace retrieves a face by ID, returns nil if not found.
func (r *FaceRepository) GetFace(ctx context.Context, id string) (*database.Face, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+faceColumns+" FROM faces WHERE id = $1", id)
	face, err := scanFace(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query face: %w", err)
	}
	return face, nil
}

// GetFaceByFingerprint retrieves the oldest face in the project with the
// given fingerprint, returns nil if none exists.
func (r *FaceRepository) GetFaceByFingerprint(ctx context.Context, projectID, fingerprint string) (*database.Face, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+faceColumns+" FROM faces WHERE project_id = $1 AND fingerprint = $2 ORDER BY created_at LIMIT 1",
		projectID, fingerprint)
	face, err := scanFace(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query face by fingerprint: %w", err)
	}
	return face, nil
}

// ListEmbedded retrieves all faces of the project with a stored embedding.
func (r *FaceRepository) ListEmbedded(ctx context.Context, projectID string) ([]database.Face, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+faceColumns+" FROM faces WHERE project_id = $1 AND embedding IS NOT NULL ORDER BY created_at, id",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("query embedded faces: %w", err)
	}
	defer rows.Close()
	return scanFaces(rows)
}

// ListLabeled retrieves labeled, non-noise faces ordered by label then
// creation order.
func (r *FaceRepository) ListLabeled(ctx context.Context, projectID string) ([]database.Face, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+faceColumns+" FROM faces WHERE project_id = $1 AND cluster_label NOT IN ('', $2) ORDER BY cluster_label, created_at, id",
		projectID, database.NoiseLabel)
	if err != nil {
		return nil, fmt.Errorf("query labeled faces: %w", err)
	}
	defer rows.Close()
	return scanFaces(rows)
}

// CountFaces returns the number of faces in the project.
func (r *FaceRepository) CountFaces(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces WHERE project_id = $1", projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// CreateFace stores a new face record. A nil embedding is stored as NULL.
func (r *FaceRepository) CreateFace(ctx context.Context, face *database.Face) error {
	var vec any
	if face.HasEmbedding() {
		vec = pgvector.NewVector(face.Embedding)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO faces (id, project_id, blob_ref, fingerprint, cluster_label, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, face.ID, face.ProjectID, face.BlobRef, face.Fingerprint, face.ClusterLabel, vec)
	if err != nil {
		return fmt.Errorf("create face: %w", err)
	}
	return nil
}

// SetClusterResult writes label and embedding onto an existing face.
func (r *FaceRepository) SetClusterResult(ctx context.Context, faceID, label string, embedding []float32) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE faces SET cluster_label = $2, embedding = $3 WHERE id = $1",
		faceID, label, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("set cluster result: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set cluster result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("face %s: %w", faceID, database.ErrNotFound)
	}
	return nil
}

// DeleteFace removes a face record.
func (r *FaceRepository) DeleteFace(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM faces WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ database.FaceReader = (*FaceRepository)(nil)
var _ database.FaceWriter = (*FaceRepository)(nil)
