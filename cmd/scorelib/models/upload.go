package models

import "time"

// Outcome classifies one upload resolution. Exactly one applies per
// request.
type Outcome string

const (
	// OutcomeCreated means the content was new to the whole catalog.
	OutcomeCreated Outcome = "created"
	// OutcomeAddedExisting means the content was known but new to this
	// caller's library.
	OutcomeAddedExisting Outcome = "added_existing"
	// OutcomeAlreadyInLibrary means the caller already holds this
	// content. Expected, not an internal failure.
	OutcomeAlreadyInLibrary Outcome = "already_in_library"
)

// UploadResult is the resolver's answer for one upload. Score is the
// catalog entry the upload landed on (the original entry for duplicate
// content) and AddedAt is the caller's association timestamp.
type UploadResult struct {
	Outcome Outcome   `json:"outcome"`
	Score   *Score    `json:"score"`
	AddedAt time.Time `json:"added_at"`
}
