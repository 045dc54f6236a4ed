package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/db"
)

// ScoreRepository handles database operations for catalog entries
type ScoreRepository struct {
	db *db.DB
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *db.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Create inserts a catalog entry unless one already exists for the
// fingerprint. Returns whether the row was written; false means a
// concurrent request catalogued the same content first and the caller
// should re-resolve.
func (r *ScoreRepository) Create(ctx context.Context, score *models.Score) (bool, error) {
	query := `
		INSERT INTO scores (score_id, fingerprint, title, composer, subtitle, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (fingerprint) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		score.ScoreID,
		score.Fingerprint,
		score.Title,
		score.Composer,
		score.Subtitle,
		score.OwnerID,
		score.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create score: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ResolveForUpload reads the catalog state for one (fingerprint,
// caller) pair in a single query: the entry if the content is known,
// plus when this caller added it, if they did. A nil result means the
// content is new to the catalog.
func (r *ScoreRepository) ResolveForUpload(ctx context.Context, fp, userID string) (*models.ScoreWithMembership, error) {
	query := `
		SELECT s.score_id, s.fingerprint, s.title, s.composer, s.subtitle, s.owner_id, s.created_at, le.added_at
		FROM scores s
		LEFT JOIN library_entries le ON le.score_id = s.score_id AND le.user_id = $2
		WHERE s.fingerprint = $1
	`

	state := &models.ScoreWithMembership{}
	err := r.db.QueryRow(ctx, query, fp, userID).Scan(
		&state.ScoreID,
		&state.Fingerprint,
		&state.Title,
		&state.Composer,
		&state.Subtitle,
		&state.OwnerID,
		&state.CreatedAt,
		&state.AddedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload state: %w", err)
	}

	return state, nil
}

// GetWithMembership retrieves a catalog entry by id joined with the
// caller's library state. Anonymous callers pass an empty userID and
// simply never match an association.
func (r *ScoreRepository) GetWithMembership(ctx context.Context, scoreID uuid.UUID, userID string) (*models.ScoreWithMembership, error) {
	query := `
		SELECT s.score_id, s.fingerprint, s.title, s.composer, s.subtitle, s.owner_id, s.created_at, le.added_at
		FROM scores s
		LEFT JOIN library_entries le ON le.score_id = s.score_id AND le.user_id = $2
		WHERE s.score_id = $1
	`

	state := &models.ScoreWithMembership{}
	err := r.db.QueryRow(ctx, query, scoreID, userID).Scan(
		&state.ScoreID,
		&state.Fingerprint,
		&state.Title,
		&state.Composer,
		&state.Subtitle,
		&state.OwnerID,
		&state.CreatedAt,
		&state.AddedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	return state, nil
}

// UpdateMetadata rewrites the correctable fields of an entry. Returns
// whether a row matched.
func (r *ScoreRepository) UpdateMetadata(ctx context.Context, scoreID uuid.UUID, title, composer string, subtitle *string) (bool, error) {
	query := `
		UPDATE scores
		SET title = $2, composer = $3, subtitle = $4
		WHERE score_id = $1
	`

	tag, err := r.db.Exec(ctx, query, scoreID, title, composer, subtitle)
	if err != nil {
		return false, fmt.Errorf("failed to update score metadata: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
