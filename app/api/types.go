package api

import (
	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/ingest"
	"github.com/shortkki/shorts-feed/app/sections"
	"github.com/shortkki/shorts-feed/app/tasks"
)

type Handler struct {
	sectionRepo  database.SectionRepository
	itemRepo     database.ItemRepository
	bookRepo     database.BookRepository
	sectionCache *sections.Cache
	filterer     *ingest.Filterer
	scheduler    tasks.TaskSchedulerInterface
}

// ItemResponse is the wire shape of a feed item
type ItemResponse struct {
	ID            string   `json:"id"`
	VideoID       string   `json:"video_id"`
	SourceURL     string   `json:"source_url,omitempty"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	AuthorAvatar  string   `json:"author_avatar,omitempty"`
	ThumbnailURL  string   `json:"thumbnail_url,omitempty"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags"`
	BookmarkCount int      `json:"bookmark_count"`
}

type PageResponse struct {
	Items      []ItemResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasNext    bool           `json:"has_next"`
}

type BookmarkStateResponse struct {
	OwnedBookIDs []string `json:"owned_book_ids"`
	SaveCount    int      `json:"save_count"`
}

type BookResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}
