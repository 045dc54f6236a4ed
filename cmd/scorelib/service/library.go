package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/logger"
)

// LibraryService manages per-user library associations.
type LibraryService struct {
	store  LibraryStore
	scores ScoreStore
	policy AccessPolicy
	log    *logger.Logger
}

// NewLibraryService creates a new library service
func NewLibraryService(store LibraryStore, scores ScoreStore, policy AccessPolicy, log *logger.Logger) *LibraryService {
	return &LibraryService{
		store:  store,
		scores: scores,
		policy: policy,
		log:    log,
	}
}

// Add puts a score in the caller's library. The caller must be able
// to read the score: adding it is not a way around the read policy.
func (s *LibraryService) Add(ctx context.Context, userID string, scoreID uuid.UUID) (*models.LibraryEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: caller identity required", ErrUnauthorized)
	}

	state, err := s.scores.GetWithMembership(ctx, scoreID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: score %s", ErrNotFound, scoreID)
		}
		return nil, err
	}

	allowed, err := s.policy.CanRead(userID, state)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: score %s", ErrForbidden, scoreID)
	}

	entry := &models.LibraryEntry{
		UserID:  userID,
		ScoreID: scoreID,
		AddedAt: time.Now().UTC(),
	}

	inserted, err := s.store.Insert(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("%w: score %s", ErrAlreadyInLibrary, scoreID)
	}

	s.log.Info("added score to library", "user_id", userID, "score_id", scoreID)
	return entry, nil
}

// Remove drops an association. The score and its blob are untouched;
// other libraries referencing the same entry keep working.
func (s *LibraryService) Remove(ctx context.Context, userID string, scoreID uuid.UUID) error {
	if userID == "" {
		return fmt.Errorf("%w: caller identity required", ErrUnauthorized)
	}

	deleted, err := s.store.Delete(ctx, userID, scoreID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: score %s not in library", ErrNotFound, scoreID)
	}

	s.log.Info("removed score from library", "user_id", userID, "score_id", scoreID)
	return nil
}

// List returns one page of the caller's library.
func (s *LibraryService) List(ctx context.Context, userID string, page models.ListPage) (*models.LibraryPage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: caller identity required", ErrUnauthorized)
	}

	page.Normalize()

	scores, err := s.store.List(ctx, userID, page)
	if err != nil {
		return nil, err
	}

	total, err := s.store.Count(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.LibraryPage{
		Scores:     scores,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: total,
	}, nil
}
