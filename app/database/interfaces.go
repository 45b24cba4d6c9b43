package database

import (
	"time"
)

type SectionRepository interface {
	GetSection(sectionID string) (*Section, error)
	GetSectionCount() (int, error)
	ListSections() ([]Section, error)

	UpsertSection(sectionID, title, feedURL string) error
	UpdateFetchTimes(sectionID string, lastFetched time.Time, nextFetch time.Time) error
}

type ItemRepository interface {
	GetItem(itemID string) (*Item, error)
	GetItemCount(sectionID string) (int, error)
	GetItemStats(sectionID string) (total int, visible int, filtered int, err error)

	// SectionPage returns up to limit visible items with Seq greater than
	// afterSeq, in insertion order.
	SectionPage(sectionID string, afterSeq int64, limit int) ([]Item, error)
	PersonalizedItems(limit int) ([]Item, error)
	GetAllItems(sectionID string) ([]Item, error)

	UpsertItem(sectionID string, item StoreItem) error
	UpdateFilterStatus(itemID string, isFiltered bool, reason string) error
	CheckDuplicate(sectionID, contentHash string) (bool, error)

	GetItemsForExtraction(sectionID string, limit int) ([]Item, error)
	UpdateExtraction(itemID, videoID, description, status string) error
}

type BookRepository interface {
	ListBooks() ([]Book, error)
	GetBook(bookID string) (*Book, error)

	AddItem(bookID, itemID string) error
	RemoveItem(bookID, itemID string) error

	OwnedBookIDs(itemID string) ([]string, error)
	SaveCount(itemID string) (int, error)
}
