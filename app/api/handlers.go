package api

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/ingest"
	"github.com/shortkki/shorts-feed/app/sections"
	"github.com/shortkki/shorts-feed/app/tasks"
)

const defaultPageLimit = 10
const maxPageLimit = 50

func NewHandler(sectionCache *sections.Cache, sectionRepo database.SectionRepository,
	itemRepo database.ItemRepository, bookRepo database.BookRepository,
	filterer *ingest.Filterer, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sectionRepo:  sectionRepo,
		itemRepo:     itemRepo,
		bookRepo:     bookRepo,
		sectionCache: sectionCache,
		filterer:     filterer,
		scheduler:    scheduler,
	}
}

// encodeCursor encodes an item seq as an opaque pagination cursor
func encodeCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(seq, 10)))
}

// decodeCursor decodes an opaque pagination cursor back into an item seq
func decodeCursor(cursor string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

func (h *Handler) pageLimit(c *gin.Context) int {
	limit := defaultPageLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit
}

func (h *Handler) itemResponse(item database.Item) ItemResponse {
	resp := ItemResponse{
		ID:           item.ID,
		VideoID:      item.VideoID,
		SourceURL:    item.SourceURL,
		Title:        item.Title,
		Author:       item.Author,
		AuthorAvatar: item.AuthorAvatar,
		ThumbnailURL: item.ThumbnailURL,
		Description:  item.Description,
		Tags:         item.Tags,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	count, err := h.bookRepo.SaveCount(item.ID)
	if err != nil {
		slog.Error("Database error", "operation", "save_count", "item", item.ID, "error", err)
		count = item.BaseSaveCount
	}
	resp.BookmarkCount = count

	return resp
}

// GetPersonalizedFeed returns the most recent items across all sections
func (h *Handler) GetPersonalizedFeed(c *gin.Context) {
	limit := h.pageLimit(c)

	items, err := h.itemRepo.PersonalizedItems(limit)
	if err != nil {
		slog.Error("Database error", "operation", "personalized_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, h.itemResponse(item))
	}

	c.JSON(http.StatusOK, gin.H{"items": responses})
}

// GetSectionItems returns a cursor-paginated page of a curated section
func (h *Handler) GetSectionItems(c *gin.Context) {
	sectionID := c.Param("id")

	if _, err := h.sectionCache.GetConfig(sectionID); err != nil {
		slog.Error("Section configuration not found", "section", sectionID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Section not found"})
		return
	}

	var afterSeq int64
	if cursor := c.Query("cursor"); cursor != "" {
		parsed, err := decodeCursor(cursor)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
			return
		}
		afterSeq = parsed
	}

	limit := h.pageLimit(c)

	// Fetch one extra row to learn whether another page exists
	items, err := h.itemRepo.SectionPage(sectionID, afterSeq, limit+1)
	if err != nil {
		slog.Error("Database error", "operation", "section_page", "section", sectionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	hasNext := len(items) > limit
	if hasNext {
		items = items[:limit]
	}

	page := PageResponse{
		Items:   make([]ItemResponse, 0, len(items)),
		HasNext: hasNext,
	}
	for _, item := range items {
		page.Items = append(page.Items, h.itemResponse(item))
	}
	if hasNext {
		page.NextCursor = encodeCursor(items[len(items)-1].Seq)
	}

	c.JSON(http.StatusOK, page)
}

// GetItemBookmarks returns the bookmark state of a single item
func (h *Handler) GetItemBookmarks(c *gin.Context) {
	itemID := c.Param("id")

	item, err := h.itemRepo.GetItem(itemID)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	owned, err := h.bookRepo.OwnedBookIDs(itemID)
	if err != nil {
		slog.Error("Database error", "operation", "owned_book_ids", "item", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if owned == nil {
		owned = []string{}
	}

	count, err := h.bookRepo.SaveCount(itemID)
	if err != nil {
		slog.Error("Database error", "operation", "save_count", "item", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, BookmarkStateResponse{
		OwnedBookIDs: owned,
		SaveCount:    count,
	})
}

// ListBooks returns all recipe books
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.bookRepo.ListBooks()
	if err != nil {
		slog.Error("Database error", "operation", "list_books", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	responses := make([]BookResponse, 0, len(books))
	for _, b := range books {
		responses = append(responses, BookResponse{ID: b.ID, Name: b.Name, Owner: b.Owner})
	}

	c.JSON(http.StatusOK, gin.H{"books": responses, "total": len(responses)})
}

// AddItemToBook saves an item into a recipe book
func (h *Handler) AddItemToBook(c *gin.Context) {
	bookID := c.Param("bookId")

	var body struct {
		ItemID string `json:"item_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ItemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing item_id"})
		return
	}

	book, err := h.bookRepo.GetBook(bookID)
	if err != nil {
		slog.Error("Database error", "operation", "get_book", "book", bookID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	item, err := h.itemRepo.GetItem(body.ItemID)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item", body.ItemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	if err := h.bookRepo.AddItem(bookID, body.ItemID); err != nil {
		slog.Error("Database error", "operation", "add_item", "book", bookID, "item", body.ItemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveItemFromBook removes an item from a recipe book
func (h *Handler) RemoveItemFromBook(c *gin.Context) {
	bookID := c.Param("bookId")
	itemID := c.Param("itemId")

	book, err := h.bookRepo.GetBook(bookID)
	if err != nil {
		slog.Error("Database error", "operation", "get_book", "book", bookID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if book == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	if err := h.bookRepo.RemoveItem(bookID, itemID); err != nil {
		slog.Error("Database error", "operation", "remove_item", "book", bookID, "item", itemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ReloadSection reloads a section configuration and enqueues sync and
// refilter tasks
func (h *Handler) ReloadSection(c *gin.Context) {
	sectionID := c.Param("id")

	config, err := h.sectionCache.LoadConfig(sectionID)
	if err != nil {
		slog.Error("Error reloading configuration", "section", sectionID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Section configuration not found"})
		return
	}

	syncTask := tasks.NewSyncSectionTask(sectionID, config, h.sectionRepo)
	if err := h.scheduler.EnqueueTask(syncTask); err != nil {
		slog.Error("Error enqueueing sync task", "section", sectionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue sync task"})
		return
	}

	refilterTask := tasks.NewRefilterSectionTask(sectionID, config, h.filterer, h.itemRepo)
	if err := h.scheduler.EnqueueTask(refilterTask); err != nil {
		slog.Error("Error enqueueing refilter task", "section", sectionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue refilter task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"section": sectionID,
		"tasks": []gin.H{
			{"id": syncTask.ID, "type": syncTask.Type},
			{"id": refilterTask.ID, "type": refilterTask.Type},
		},
	})
}

// GetHealth reports service liveness and basic counters
func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sectionCount, err := h.sectionRepo.GetSectionCount(); err == nil {
		health["sections"] = sectionCount
	}

	health["loaded_configurations"] = h.sectionCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

// GetStats returns per-section item statistics
func (h *Handler) GetStats(c *gin.Context) {
	configs := h.sectionCache.GetConfigs()

	stats := make([]map[string]interface{}, 0, len(configs))
	for _, config := range configs {
		info := map[string]interface{}{
			"section":          config.ID,
			"title":            config.Title,
			"enabled":          config.Settings.Enabled,
			"refresh_interval": (time.Duration(config.Settings.RefreshInterval) * time.Second).String(),
			"filters":          len(config.Filters),
		}

		if section, err := h.sectionRepo.GetSection(config.ID); err == nil && section != nil {
			info["last_fetched_at"] = section.LastFetchedAt
			info["next_fetch_at"] = section.NextFetchAt
		}

		if total, visible, filtered, err := h.itemRepo.GetItemStats(config.ID); err == nil {
			info["items"] = map[string]int{
				"total":    total,
				"visible":  visible,
				"filtered": filtered,
			}
		}

		stats = append(stats, info)
	}

	c.JSON(http.StatusOK, gin.H{"sections": stats, "total": len(stats)})
}
