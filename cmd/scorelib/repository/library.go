package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/db"
)

// librarySortColumns whitelists the sortable listing columns. Keys
// outside this map fall back to added_at; the values are interpolated
// into SQL, so nothing user-controlled ever is.
var librarySortColumns = map[string]string{
	"title":      "s.title",
	"composer":   "s.composer",
	"added_at":   "le.added_at",
	"created_at": "s.created_at",
}

// LibraryRepository handles database operations for library associations
type LibraryRepository struct {
	db *db.DB
}

// NewLibraryRepository creates a new library repository
func NewLibraryRepository(db *db.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Insert adds an association unless the (user, score) pair already
// exists. Returns whether the row was written; false means the pair
// was present, which resolves duplicate adds without a lock.
func (r *LibraryRepository) Insert(ctx context.Context, entry *models.LibraryEntry) (bool, error) {
	query := `
		INSERT INTO library_entries (user_id, score_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, score_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, entry.UserID, entry.ScoreID, entry.AddedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert library entry: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete removes an association. Returns whether a row was deleted.
func (r *LibraryRepository) Delete(ctx context.Context, userID string, scoreID uuid.UUID) (bool, error) {
	query := `DELETE FROM library_entries WHERE user_id = $1 AND score_id = $2`

	tag, err := r.db.Exec(ctx, query, userID, scoreID)
	if err != nil {
		return false, fmt.Errorf("failed to delete library entry: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// List returns one page of a user's library joined with score
// metadata. Page values must be normalized by the caller.
func (r *LibraryRepository) List(ctx context.Context, userID string, page models.ListPage) ([]*models.LibraryScore, error) {
	sortColumn, ok := librarySortColumns[page.SortBy]
	if !ok {
		sortColumn = librarySortColumns["added_at"]
	}
	direction := "DESC"
	if page.SortDir == "asc" {
		direction = "ASC"
	}

	// score_id breaks ties so pages never overlap.
	query := fmt.Sprintf(`
		SELECT s.score_id, s.fingerprint, s.title, s.composer, s.subtitle, s.owner_id, s.created_at, le.added_at
		FROM library_entries le
		JOIN scores s ON s.score_id = le.score_id
		WHERE le.user_id = $1
		ORDER BY %s %s, s.score_id ASC
		LIMIT $2 OFFSET $3
	`, sortColumn, direction)

	rows, err := r.db.Query(ctx, query, userID, page.PageSize, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	defer rows.Close()

	var scores []*models.LibraryScore
	for rows.Next() {
		score := &models.LibraryScore{}
		err := rows.Scan(
			&score.ScoreID,
			&score.Fingerprint,
			&score.Title,
			&score.Composer,
			&score.Subtitle,
			&score.OwnerID,
			&score.CreatedAt,
			&score.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan library entry: %w", err)
		}
		scores = append(scores, score)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library entries: %w", err)
	}

	return scores, nil
}

// Count returns the total number of entries in a user's library
func (r *LibraryRepository) Count(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COUNT(*) FROM library_entries WHERE user_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count library entries: %w", err)
	}

	return count, nil
}
