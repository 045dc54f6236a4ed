package models

import (
	"time"

	"github.com/google/uuid"
)

// Score is a catalog entry: exactly one exists per unique content
// fingerprint. Later uploads of identical bytes attach to the existing
// entry instead of creating a new one. OwnerID records the first
// uploader; NULL marks pre-seeded or detached entries, which are
// readable by anyone.
type Score struct {
	ScoreID     uuid.UUID `json:"score_id" db:"score_id"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Title       string    `json:"title" db:"title"`
	Composer    string    `json:"composer" db:"composer"`
	Subtitle    *string   `json:"subtitle,omitempty" db:"subtitle"`
	OwnerID     *string   `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Public reports whether the entry has no owner.
func (s *Score) Public() bool {
	return s.OwnerID == nil
}

// OwnedBy reports whether userID owns the entry.
func (s *Score) OwnedBy(userID string) bool {
	return s.OwnerID != nil && *s.OwnerID == userID
}

// ScoreWithMembership is a score joined with one caller's library
// state, resolved in a single query.
type ScoreWithMembership struct {
	Score
	AddedAt *time.Time `json:"added_at,omitempty" db:"added_at"`
}

// InLibrary reports whether the caller holds a library association.
func (s *ScoreWithMembership) InLibrary() bool {
	return s.AddedAt != nil
}
