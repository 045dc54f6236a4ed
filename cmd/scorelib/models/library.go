package models

import (
	"time"

	"github.com/google/uuid"
)

// LibraryEntry associates one user with one catalog entry. The
// (user_id, score_id) pair is unique; adding twice is a conflict, not
// a second row.
type LibraryEntry struct {
	UserID  string    `json:"user_id" db:"user_id"`
	ScoreID uuid.UUID `json:"score_id" db:"score_id"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}

// Paging bounds for library listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListPage carries library listing parameters. Sort keys outside the
// repository whitelist fall back to added_at.
type ListPage struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
}

// Normalize clamps paging values into their allowed ranges.
func (p *ListPage) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.SortDir != "asc" && p.SortDir != "desc" {
		p.SortDir = "desc"
	}
	if p.SortBy == "" {
		p.SortBy = "added_at"
	}
}

// Offset returns the row offset for the normalized page.
func (p *ListPage) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// LibraryScore is one listing row: the score plus when this user
// added it.
type LibraryScore struct {
	Score
	AddedAt time.Time `json:"added_at" db:"added_at"`
}

// LibraryPage is one page of a user's library.
type LibraryPage struct {
	Scores     []*LibraryScore `json:"scores"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalCount int64           `json:"total_count"`
}
