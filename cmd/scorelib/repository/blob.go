package repository

import (
	"context"
	"fmt"

	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/db"
)

// BlobRepository handles database operations for content-addressed blobs
type BlobRepository struct {
	db *db.DB
}

// NewBlobRepository creates a new blob repository
func NewBlobRepository(db *db.DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Create inserts a blob unless its fingerprint is already stored.
// Returns whether a row was written; false is the normal
// duplicate-content path, not an error.
func (r *BlobRepository) Create(ctx context.Context, blob *models.ScoreBlob) (bool, error) {
	query := `
		INSERT INTO score_blobs (fingerprint, media_type, size_bytes, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		blob.Fingerprint,
		blob.MediaType,
		blob.SizeBytes,
		blob.Content,
		blob.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to store blob: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByFingerprint retrieves a blob with its content
func (r *BlobRepository) GetByFingerprint(ctx context.Context, fp string) (*models.ScoreBlob, error) {
	query := `
		SELECT fingerprint, media_type, size_bytes, content, created_at
		FROM score_blobs
		WHERE fingerprint = $1
	`

	blob := &models.ScoreBlob{}
	err := r.db.QueryRow(ctx, query, fp).Scan(
		&blob.Fingerprint,
		&blob.MediaType,
		&blob.SizeBytes,
		&blob.Content,
		&blob.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return blob, nil
}

// SizeByFingerprint returns the stored size without loading content
func (r *BlobRepository) SizeByFingerprint(ctx context.Context, fp string) (int64, error) {
	query := `SELECT size_bytes FROM score_blobs WHERE fingerprint = $1`

	var size int64
	err := r.db.QueryRow(ctx, query, fp).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to get blob size: %w", err)
	}

	return size, nil
}

// DeleteOrphans removes blobs from the candidate set that no catalog
// entry references anymore. A fingerprint re-referenced since the
// candidates were collected is left alone by the guard clause.
func (r *BlobRepository) DeleteOrphans(ctx context.Context, fingerprints []string) (int64, error) {
	if len(fingerprints) == 0 {
		return 0, nil
	}

	query := `
		DELETE FROM score_blobs b
		WHERE b.fingerprint = ANY($1)
		  AND NOT EXISTS (SELECT 1 FROM scores s WHERE s.fingerprint = b.fingerprint)
	`

	tag, err := r.db.Exec(ctx, query, fingerprints)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan blobs: %w", err)
	}

	return tag.RowsAffected(), nil
}
