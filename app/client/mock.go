package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shortkki/shorts-feed/app/bookmark"
	"github.com/shortkki/shorts-feed/app/feed"
)

var _ feed.SourceClient = (*Mock)(nil)
var _ bookmark.Client = (*Mock)(nil)

// Mock is an in-memory stand-in for the backend, used when the app runs
// without network access. It serves a fixed set of seeded recipes and keeps
// book membership in memory.
type Mock struct {
	mu         sync.Mutex
	items      []feed.RawItem
	books      map[string]map[string]struct{} // bookID -> itemID set
	baseCounts map[string]int
}

// NewMock creates a mock backend with seeded recipe shorts
func NewMock() *Mock {
	return &Mock{
		items: []feed.RawItem{
			{ID: "mock-1", VideoID: "dQw4w9WgXcQ", Title: "초간단 김치찌개", Author: "백주부의 부엌", Tags: []string{"한식", "찌개"}, BookmarkCount: 128},
			{ID: "mock-2", VideoID: "M7lc1UVfAAA", Title: "10분 계란말이", Author: "자취 요리왕", Tags: []string{"한식", "초간단"}, BookmarkCount: 56},
			{ID: "mock-3", VideoID: "kXYiU_JCYtU", Title: "바삭한 김치전", Author: "비오는날엔", Tags: []string{"한식", "전"}, BookmarkCount: 87},
			{ID: "mock-4", VideoID: "fJ9rUzIMcZQ", Title: "크림 파스타", Author: "오늘의 양식", Tags: []string{"양식", "파스타"}, BookmarkCount: 203},
			{ID: "mock-5", VideoID: "9bZkp7q19f0", Title: "매콤 떡볶이", Author: "분식의 정석", Tags: []string{"분식"}, BookmarkCount: 311},
			{ID: "mock-6", VideoID: "L_jWHffIx5E", Title: "수제 함박스테이크", Author: "오늘의 양식", Tags: []string{"양식"}, BookmarkCount: 64},
			{ID: "mock-7", VideoID: "YQHsXMglC9A", Title: "들기름 막국수", Author: "면요리 연구소", Tags: []string{"한식", "면"}, BookmarkCount: 45},
			{ID: "mock-8", VideoID: "OPf0YbXqDm0", Title: "안 매운 마라탕", Author: "중식 탐구", Tags: []string{"중식"}, BookmarkCount: 92},
		},
		books: map[string]map[string]struct{}{
			"personal": {},
			"family":   {},
		},
		baseCounts: map[string]int{},
	}
}

// PersonalizedItems returns the seeded recipes, most popular first
func (m *Mock) PersonalizedItems(ctx context.Context, limit int) ([]feed.RawItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]feed.RawItem, len(m.items))
	copy(items, m.items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	for i := range items {
		items[i].BookmarkCount = m.countLocked(items[i])
	}
	return items, nil
}

// SectionItems pages through the same seeded recipes. The cursor is the
// offset of the next item.
func (m *Mock) SectionItems(ctx context.Context, sectionID string, cursor string, limit int) (*feed.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid cursor: %q", cursor)
		}
		offset = parsed
	}
	if offset > len(m.items) {
		offset = len(m.items)
	}

	end := offset + limit
	if end > len(m.items) {
		end = len(m.items)
	}

	page := &feed.Page{
		Items:   make([]feed.RawItem, end-offset),
		HasNext: end < len(m.items),
	}
	copy(page.Items, m.items[offset:end])
	for i := range page.Items {
		page.Items[i].BookmarkCount = m.countLocked(page.Items[i])
	}
	if page.HasNext {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// BookmarkState reports in-memory book membership for an item
func (m *Mock) BookmarkState(ctx context.Context, itemID string) (*bookmark.RemoteState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := &bookmark.RemoteState{OwnedBookIDs: []string{}}
	for bookID, members := range m.books {
		if _, ok := members[itemID]; ok {
			state.OwnedBookIDs = append(state.OwnedBookIDs, bookID)
		}
	}

	for _, item := range m.items {
		if item.ID == itemID {
			state.SaveCount = m.countLocked(item)
			break
		}
	}
	return state, nil
}

// AddToBook records an item in an in-memory book
func (m *Mock) AddToBook(ctx context.Context, bookID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.books[bookID]
	if !ok {
		return fmt.Errorf("unknown book: %s", bookID)
	}
	members[itemID] = struct{}{}
	return nil
}

// RemoveFromBook removes an item from an in-memory book
func (m *Mock) RemoveFromBook(ctx context.Context, bookID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.books[bookID]
	if !ok {
		return fmt.Errorf("unknown book: %s", bookID)
	}
	delete(members, itemID)
	return nil
}

// countLocked adds one save to the seeded count when any book holds the item
func (m *Mock) countLocked(item feed.RawItem) int {
	for _, members := range m.books {
		if _, ok := members[item.ID]; ok {
			return item.BookmarkCount + 1
		}
	}
	return item.BookmarkCount
}
