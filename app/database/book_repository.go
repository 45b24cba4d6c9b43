package database

import (
	"database/sql"
	"fmt"
)

// bookRepository handles database operations for recipe books
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *DB) BookRepository {
	return &bookRepository{db: db}
}

// ListBooks returns all recipe books ordered by creation time
func (r *bookRepository) ListBooks() ([]Book, error) {
	rows, err := r.db.Query(`
		SELECT id, name, owner, created_at
		FROM books
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Name, &b.Owner, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}

	return books, nil
}

// GetBook returns a book by its id, or nil when unknown
func (r *bookRepository) GetBook(bookID string) (*Book, error) {
	var b Book
	err := r.db.QueryRow(`
		SELECT id, name, owner, created_at
		FROM books
		WHERE id = ?
	`, bookID).Scan(&b.ID, &b.Name, &b.Owner, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return &b, nil
}

// AddItem saves an item into a book. Saving an already saved item is a no-op.
func (r *bookRepository) AddItem(bookID, itemID string) error {
	_, err := r.db.Exec(`
		INSERT INTO book_items (book_id, item_id)
		VALUES (?, ?)
		ON CONFLICT (book_id, item_id) DO NOTHING
	`, bookID, itemID)
	if err != nil {
		return fmt.Errorf("failed to add item to book: %w", err)
	}

	return nil
}

// RemoveItem removes an item from a book. Removing an absent item is a no-op.
func (r *bookRepository) RemoveItem(bookID, itemID string) error {
	_, err := r.db.Exec(`
		DELETE FROM book_items
		WHERE book_id = ? AND item_id = ?
	`, bookID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove item from book: %w", err)
	}

	return nil
}

// OwnedBookIDs returns the ids of every book holding the item
func (r *bookRepository) OwnedBookIDs(itemID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT book_id FROM book_items
		WHERE item_id = ?
		ORDER BY book_id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owned book ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan book id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book ids: %w", err)
	}

	return ids, nil
}

// SaveCount returns the item's base save count plus one when the item is held
// by at least one book. A save is counted once no matter how many books hold
// the item.
func (r *bookRepository) SaveCount(itemID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT base_save_count +
		       CASE WHEN EXISTS (SELECT 1 FROM book_items WHERE item_id = items.id)
		            THEN 1 ELSE 0 END
		FROM items
		WHERE id = ?
	`, itemID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("item not found: %s", itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get save count: %w", err)
	}

	return count, nil
}
