package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/db"
)

// PurgeRepository removes a user's catalog footprint in one transaction
type PurgeRepository struct {
	db *db.DB
}

// NewPurgeRepository creates a new purge repository
func NewPurgeRepository(db *db.DB) *PurgeRepository {
	return &PurgeRepository{db: db}
}

// PurgeUser removes the user's library associations and owned catalog
// entries. Owned entries still held by other users are detached
// (owner cleared) instead of deleted, so those libraries keep working.
// Returns the fingerprints of deleted entries for blob reclamation.
func (r *PurgeRepository) PurgeUser(ctx context.Context, userID string) (*models.PurgeResult, error) {
	result := &models.PurgeResult{}

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		// The user's own associations go first, so the reference check
		// below sees only other users' holds.
		tag, err := tx.Exec(ctx, `DELETE FROM library_entries WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete library entries: %w", err)
		}
		result.AssociationsRemoved = tag.RowsAffected()

		rows, err := tx.Query(ctx, `
			DELETE FROM scores s
			WHERE s.owner_id = $1
			  AND NOT EXISTS (SELECT 1 FROM library_entries le WHERE le.score_id = s.score_id)
			RETURNING s.fingerprint
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete owned scores: %w", err)
		}
		fingerprints, err := collectFingerprints(rows)
		if err != nil {
			return fmt.Errorf("failed to collect deleted fingerprints: %w", err)
		}
		result.ScoresDeleted = int64(len(fingerprints))
		result.Fingerprints = fingerprints

		tag, err = tx.Exec(ctx, `UPDATE scores SET owner_id = NULL WHERE owner_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to detach owned scores: %w", err)
		}
		result.ScoresDetached = tag.RowsAffected()

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func collectFingerprints(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	var fingerprints []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		fingerprints = append(fingerprints, fp)
	}

	return fingerprints, rows.Err()
}
