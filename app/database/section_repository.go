package database

import (
	"database/sql"
	"fmt"
	"time"
)

// sectionRepository handles database operations for feed sections
type sectionRepository struct {
	db *DB
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(db *DB) SectionRepository {
	return &sectionRepository{db: db}
}

const sectionColumns = `id, COALESCE(title, ''), feed_url, last_fetched_at, next_fetch_at, created_at, updated_at`

// GetSection returns a section by its configuration id, or nil when unknown
func (r *sectionRepository) GetSection(sectionID string) (*Section, error) {
	var s Section
	err := r.db.QueryRow(`
		SELECT `+sectionColumns+`
		FROM sections
		WHERE id = ?
	`, sectionID).Scan(&s.ID, &s.Title, &s.FeedURL, &s.LastFetchedAt, &s.NextFetchAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}

	return &s, nil
}

// GetSectionCount returns the total number of registered sections
func (r *sectionRepository) GetSectionCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sections`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get section count: %w", err)
	}

	return count, nil
}

// ListSections returns all registered sections ordered by id
func (r *sectionRepository) ListSections() ([]Section, error) {
	rows, err := r.db.Query(`
		SELECT ` + sectionColumns + `
		FROM sections
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var s Section
		err := rows.Scan(&s.ID, &s.Title, &s.FeedURL, &s.LastFetchedAt, &s.NextFetchAt, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section row: %w", err)
		}
		sections = append(sections, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating section rows: %w", err)
	}

	return sections, nil
}

// UpsertSection inserts or updates a section from its configuration
func (r *sectionRepository) UpsertSection(sectionID, title, feedURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO sections (id, title, feed_url)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			feed_url = excluded.feed_url,
			updated_at = CURRENT_TIMESTAMP
	`, sectionID, title, feedURL)
	if err != nil {
		return fmt.Errorf("failed to upsert section: %w", err)
	}

	return nil
}

// UpdateFetchTimes records a completed fetch and schedules the next one
func (r *sectionRepository) UpdateFetchTimes(sectionID string, lastFetched time.Time, nextFetch time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sections
		SET last_fetched_at = ?, next_fetch_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, lastFetched, nextFetch, sectionID)
	if err != nil {
		return fmt.Errorf("failed to update fetch times: %w", err)
	}

	return nil
}
