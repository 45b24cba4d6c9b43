package database

import (
	"time"
)

type Section struct {
	ID            string // Configuration section id derived from filename
	Title         string
	FeedURL       string // RSS/Atom source URL from configuration
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Item struct {
	ID               string // Database UUID
	Seq              int64  // Monotonic insertion order, basis for pagination cursors
	SectionID        string
	VideoID          string
	SourceURL        string
	Title            string
	Author           string
	AuthorAvatar     string
	ThumbnailURL     string
	Description      string
	Tags             []string
	BaseSaveCount    int
	ContentHash      string
	IsFiltered       bool
	FilterReason     string
	PublishedAt      *time.Time
	ExtractionStatus string // pending, success, failed, skipped
	CreatedAt        time.Time
}

type Book struct {
	ID        string
	Name      string
	Owner     string // "personal" or a group name
	CreatedAt time.Time
}

// StoreItem is an ingested entry ready to be stored for a section.
type StoreItem struct {
	VideoID      string
	SourceURL    string
	Title        string
	Author       string
	ThumbnailURL string
	Description  string
	Tags         []string
	PublishedAt  *time.Time

	ContentHash  string
	IsFiltered   bool
	FilterReason string
}
