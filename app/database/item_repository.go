package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// itemRepository handles database operations for section items
type itemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `seq, id, section_id, COALESCE(video_id, ''), COALESCE(source_url, ''),
	COALESCE(title, ''), COALESCE(author, ''), COALESCE(author_avatar, ''),
	COALESCE(thumbnail_url, ''), COALESCE(description, ''), COALESCE(tags, '[]'),
	base_save_count, content_hash, is_filtered, COALESCE(filter_reason, ''),
	published_at, extraction_status, created_at`

func scanItem(scan func(...any) error) (Item, error) {
	var item Item
	var tags string
	err := scan(
		&item.Seq, &item.ID, &item.SectionID, &item.VideoID, &item.SourceURL,
		&item.Title, &item.Author, &item.AuthorAvatar,
		&item.ThumbnailURL, &item.Description, &tags,
		&item.BaseSaveCount, &item.ContentHash, &item.IsFiltered, &item.FilterReason,
		&item.PublishedAt, &item.ExtractionStatus, &item.CreatedAt,
	)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return item, fmt.Errorf("failed to decode tags: %w", err)
	}
	return item, nil
}

// GetItem returns an item by its id, or nil when unknown
func (r *itemRepository) GetItem(itemID string) (*Item, error) {
	row := r.db.QueryRow(`
		SELECT `+itemColumns+`
		FROM items
		WHERE id = ?
	`, itemID)

	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// GetItemCount returns the total number of items for a section
func (r *itemRepository) GetItemCount(sectionID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM items WHERE section_id = ?`, sectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}

	return count, nil
}

// GetItemStats returns total, visible, and filtered item counts for a section
func (r *itemRepository) GetItemStats(sectionID string) (int, int, int, error) {
	var total, visible, filtered int
	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_filtered = 0),
		       COUNT(*) FILTER (WHERE is_filtered = 1)
		FROM items
		WHERE section_id = ?
	`, sectionID).Scan(&total, &visible, &filtered)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get item stats: %w", err)
	}

	return total, visible, filtered, nil
}

// SectionPage returns up to limit visible items with seq greater than afterSeq,
// in insertion order
func (r *itemRepository) SectionPage(sectionID string, afterSeq int64, limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE section_id = ?
		  AND seq > ?
		  AND is_filtered = 0
		ORDER BY seq
		LIMIT ?
	`, sectionID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get section page: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// PersonalizedItems returns the most recently published visible items across
// all sections
func (r *itemRepository) PersonalizedItems(limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE is_filtered = 0
		ORDER BY COALESCE(published_at, created_at) DESC, seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get personalized items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// GetAllItems returns every item of a section, filtered ones included
func (r *itemRepository) GetAllItems(sectionID string) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE section_id = ?
		ORDER BY seq
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get all items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// UpdateFilterStatus updates the filter flag and reason for an item
func (r *itemRepository) UpdateFilterStatus(itemID string, isFiltered bool, reason string) error {
	_, err := r.db.Exec(`
		UPDATE items
		SET is_filtered = ?, filter_reason = ?
		WHERE id = ?
	`, isFiltered, reason, itemID)
	if err != nil {
		return fmt.Errorf("failed to update filter status: %w", err)
	}

	return nil
}

func collectItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// UpsertItem stores an ingested item for a section
func (r *itemRepository) UpsertItem(sectionID string, item StoreItem) error {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	if item.Tags == nil {
		tags = []byte("[]")
	}

	_, err = r.db.Exec(`
		INSERT INTO items (
			id, section_id, video_id, source_url, title, author,
			thumbnail_url, description, tags, content_hash,
			is_filtered, filter_reason, published_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (section_id, content_hash) DO UPDATE SET
			video_id = excluded.video_id,
			source_url = excluded.source_url,
			title = excluded.title,
			author = excluded.author,
			thumbnail_url = excluded.thumbnail_url,
			tags = excluded.tags,
			is_filtered = excluded.is_filtered,
			filter_reason = excluded.filter_reason,
			published_at = excluded.published_at
	`, uuid.NewString(), sectionID, item.VideoID, item.SourceURL, item.Title, item.Author,
		item.ThumbnailURL, item.Description, string(tags), item.ContentHash,
		item.IsFiltered, item.FilterReason, item.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	return nil
}

// CheckDuplicate reports whether an item with the given content hash already
// exists in the section
func (r *itemRepository) CheckDuplicate(sectionID, contentHash string) (bool, error) {
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM items WHERE section_id = ? AND content_hash = ? LIMIT 1
	`, sectionID, contentHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return true, nil
}

// GetItemsForExtraction returns items still awaiting description extraction
func (r *itemRepository) GetItemsForExtraction(sectionID string, limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items
		WHERE section_id = ?
		  AND extraction_status = 'pending'
		  AND is_filtered = 0
		ORDER BY seq
		LIMIT ?
	`, sectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for extraction: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// UpdateExtraction stores the extraction result for an item
func (r *itemRepository) UpdateExtraction(itemID, videoID, description, status string) error {
	_, err := r.db.Exec(`
		UPDATE items
		SET video_id = CASE WHEN ? != '' THEN ? ELSE video_id END,
		    description = CASE WHEN ? != '' THEN ? ELSE description END,
		    extraction_status = ?
		WHERE id = ?
	`, videoID, videoID, description, description, status, itemID)
	if err != nil {
		return fmt.Errorf("failed to update extraction: %w", err)
	}

	return nil
}
