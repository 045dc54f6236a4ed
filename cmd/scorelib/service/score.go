package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/common/logger"
	"github.com/mushee/scorelib/common/musicxml"
	"github.com/mushee/scorelib/common/validation"
)

// ScoreService handles catalog reads gated by the access policy, the
// administrative metadata correction, and user purges.
type ScoreService struct {
	store       ScoreStore
	purge       PurgeStore
	blobs       *BlobService
	policy      AccessPolicy
	corrections *validation.CorrectionValidator
	log         *logger.Logger
}

// NewScoreService creates a new score service
func NewScoreService(store ScoreStore, purge PurgeStore, blobs *BlobService, policy AccessPolicy, log *logger.Logger) *ScoreService {
	return &ScoreService{
		store:       store,
		purge:       purge,
		blobs:       blobs,
		policy:      policy,
		corrections: validation.NewCorrectionValidator(),
		log:         log,
	}
}

// Get retrieves a catalog entry for one caller. Anonymous callers pass
// an empty callerID; the policy decides what they may see.
func (s *ScoreService) Get(ctx context.Context, callerID string, scoreID uuid.UUID) (*models.ScoreWithMembership, error) {
	state, err := s.store.GetWithMembership(ctx, scoreID, callerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: score %s", ErrNotFound, scoreID)
		}
		return nil, err
	}

	allowed, err := s.policy.CanRead(callerID, state)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: score %s", ErrForbidden, scoreID)
	}

	return state, nil
}

// MintDownloadURL returns a signed, time-bounded blob URL for a score
// the caller may read. A non-positive ttl uses the configured default.
func (s *ScoreService) MintDownloadURL(ctx context.Context, callerID string, scoreID uuid.UUID, ttl time.Duration) (*models.DownloadURL, error) {
	state, err := s.Get(ctx, callerID, scoreID)
	if err != nil {
		return nil, err
	}

	url, expiresAt := s.blobs.SignedReadURL(state.Fingerprint, ttl)
	return &models.DownloadURL{URL: url, ExpiresAt: expiresAt}, nil
}

// CorrectMetadata applies an administrative RFC 6902 patch to an
// entry's descriptive fields. This is the only mutation the catalog
// permits after ingest: content and fingerprint are immutable, and the
// patch may touch only title, composer, and subtitle. Title and
// composer may be rewritten but never removed; results are normalized
// like extraction output.
func (s *ScoreService) CorrectMetadata(ctx context.Context, scoreID uuid.UUID, patchJSON []byte) (*models.Score, error) {
	var ops []map[string]interface{}
	if err := json.Unmarshal(patchJSON, &ops); err != nil {
		return nil, fmt.Errorf("%w: patch is not a JSON array: %v", ErrInvalidRequest, err)
	}
	if err := s.corrections.ValidateOperations(ops); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	state, err := s.store.GetWithMembership(ctx, scoreID, "")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: score %s", ErrNotFound, scoreID)
		}
		return nil, err
	}

	subtitle := ""
	if state.Subtitle != nil {
		subtitle = *state.Subtitle
	}
	doc, err := json.Marshal(map[string]string{
		"title":    state.Title,
		"composer": state.Composer,
		"subtitle": subtitle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata document: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	patched, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var updated struct {
		Title    *string `json:"title"`
		Composer *string `json:"composer"`
		Subtitle *string `json:"subtitle"`
	}
	if err := json.Unmarshal(patched, &updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if updated.Title == nil || updated.Composer == nil {
		return nil, fmt.Errorf("%w: title and composer must remain present", ErrInvalidRequest)
	}

	title := musicxml.Truncate(*updated.Title)
	composer := musicxml.Truncate(*updated.Composer)
	var newSubtitle *string
	if updated.Subtitle != nil {
		if trimmed := musicxml.Truncate(*updated.Subtitle); trimmed != "" {
			newSubtitle = &trimmed
		}
	}

	found, err := s.store.UpdateMetadata(ctx, scoreID, title, composer, newSubtitle)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: score %s", ErrNotFound, scoreID)
	}

	s.log.Info("corrected score metadata", "score_id", scoreID, "ops", len(ops))

	corrected := state.Score
	corrected.Title = title
	corrected.Composer = composer
	corrected.Subtitle = newSubtitle
	return &corrected, nil
}

// PurgeUser removes every trace of a user from the catalog: their
// associations, the entries they own that nobody else holds, and the
// owner mark on entries other libraries still reference. Blob
// reclamation runs after the transaction; if it fails, the leftovers
// are unreferenced content the catalog treats as harmless.
func (s *ScoreService) PurgeUser(ctx context.Context, userID string) (*models.PurgeResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidRequest)
	}

	result, err := s.purge.PurgeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(result.Fingerprints) > 0 {
		deleted, err := s.blobs.DeleteOrphans(ctx, result.Fingerprints)
		if err != nil {
			s.log.Warn("failed to reclaim blobs after purge", "user_id", userID, "error", err)
		} else {
			result.BlobsDeleted = deleted
		}
	}

	s.log.Info("purged user",
		"user_id", userID,
		"associations_removed", result.AssociationsRemoved,
		"scores_deleted", result.ScoresDeleted,
		"scores_detached", result.ScoresDetached,
		"blobs_deleted", result.BlobsDeleted,
	)

	return result, nil
}
