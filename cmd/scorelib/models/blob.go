package models

import "time"

// ScoreBlob is the content-addressed storage record for one uploaded
// file, keyed by fingerprint. Content is the raw uploaded bytes and is
// immutable once written.
type ScoreBlob struct {
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	MediaType   string    `json:"media_type" db:"media_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	Content     []byte    `json:"-" db:"content"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DownloadURL is a minted capability URL for one blob read.
type DownloadURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
