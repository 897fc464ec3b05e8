package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/faceproj/facefinder/internal/database"
)

// BlobRepository stores uploaded image bytes in PostgreSQL. Images are small
// enough that a bytea column beats running a separate object store.
type BlobRepository struct {
	pool *Pool
}

// NewBlobRepository creates a new PostgreSQL blob repository.
func NewBlobRepository(pool *Pool) *BlobRepository {
	return &BlobRepository{pool: pool}
}

// PutBlob stores the data under a fresh reference.
func (r *BlobRepository) PutBlob(ctx context.Context, data []byte, filename string) (string, error) {
	ref := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		"INSERT INTO blobs (ref, filename, data) VALUES ($1, $2, $3)",
		ref, filename, data)
	if err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	return ref, nil
}

// GetBlob retrieves data and filename for a reference.
func (r *BlobRepository) GetBlob(ctx context.Context, ref string) ([]byte, string, error) {
	var data []byte
	var filename string
	err := r.pool.QueryRow(ctx, "SELECT data, filename FROM blobs WHERE ref = $1", ref).
		Scan(&data, &filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("blob %s: %w", ref, database.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("query blob: %w", err)
	}
	return data, filename, nil
}

// DeleteBlob removes a blob.
func (r *BlobRepository) DeleteBlob(ctx context.Context, ref string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM blobs WHERE ref = $1", ref); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ database.BlobStore = (*BlobRepository)(nil)
