package models

import "github.com/google/uuid"

// TopicScoreIngested carries catalog mutations to downstream
// consumers. Delivery is best-effort; ingest never fails on it.
const TopicScoreIngested = "score.ingested"

// ScoreIngestedEvent is published after an upload creates an entry or
// attaches a caller to an existing one.
type ScoreIngestedEvent struct {
	ScoreID     uuid.UUID `json:"score_id"`
	Fingerprint string    `json:"fingerprint"`
	UserID      string    `json:"user_id"`
	Outcome     Outcome   `json:"outcome"`
}
