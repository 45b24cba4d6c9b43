package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// SourceClient is the feed-source collaborator.
type SourceClient interface {
	PersonalizedItems(ctx context.Context, limit int) ([]RawItem, error)
	SectionItems(ctx context.Context, sectionID string, cursor string, limit int) (*Page, error)
}

type AssemblerOptions struct {
	PageSize         int
	PrefetchDistance int
}

// Assembler merges the personalized and curated item sources into one
// ordered, validated, deduplicated sequence, and handles cursor pagination
// for curated sections.
type Assembler struct {
	client   SourceClient
	source   Source
	pageSize int
	prefetch int

	mu             sync.Mutex
	items          []Item
	seen           map[string]struct{}
	cursor         string
	hasNext        bool
	fetching       bool
	resolvedStarts map[string]struct{}
}

func NewAssembler(client SourceClient, source Source, opts AssemblerOptions) *Assembler {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.PrefetchDistance <= 0 {
		opts.PrefetchDistance = 3
	}

	return &Assembler{
		client:         client,
		source:         source,
		pageSize:       opts.PageSize,
		prefetch:       opts.PrefetchDistance,
		seen:           make(map[string]struct{}),
		resolvedStarts: make(map[string]struct{}),
	}
}

// Load performs the initial fetch for the session's source. In curated mode
// the first section page is loaded; otherwise personalized items come first,
// followed by the recommendation section's first page.
func (a *Assembler) Load(ctx context.Context) error {
	switch a.source.Kind {
	case SourceCurated:
		page, err := a.client.SectionItems(ctx, a.source.SectionID, "", a.pageSize)
		if err != nil {
			return fmt.Errorf("failed to load section %s: %w", a.source.SectionID, err)
		}
		a.mu.Lock()
		a.appendLocked(page.Items)
		a.cursor = page.NextCursor
		a.hasNext = page.HasNext
		a.mu.Unlock()
		return nil

	default:
		personalized, err := a.client.PersonalizedItems(ctx, a.pageSize)
		if err != nil {
			return fmt.Errorf("failed to load personalized items: %w", err)
		}

		var curated []RawItem
		if a.source.SectionID != "" {
			page, err := a.client.SectionItems(ctx, a.source.SectionID, "", a.pageSize)
			if err != nil {
				return fmt.Errorf("failed to load recommendation section: %w", err)
			}
			curated = page.Items
		}

		a.mu.Lock()
		a.appendLocked(personalized)
		a.appendLocked(curated)
		a.hasNext = false
		a.mu.Unlock()
		return nil
	}
}

// Items returns a snapshot of the assembled sequence.
func (a *Assembler) Items() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Item, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

func (a *Assembler) ItemAt(index int) (Item, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index < 0 || index >= len(a.items) {
		return Item{}, false
	}
	return a.items[index], true
}

// MaybeFetchNext requests the next curated page when the active index is
// within the prefetch distance of the tail. A page already in flight is never
// requested twice. Returns true when a fetch was performed.
func (a *Assembler) MaybeFetchNext(ctx context.Context, activeIndex int) (bool, error) {
	a.mu.Lock()
	if a.source.Kind != SourceCurated || !a.hasNext || a.fetching {
		a.mu.Unlock()
		return false, nil
	}
	if activeIndex < len(a.items)-a.prefetch {
		a.mu.Unlock()
		return false, nil
	}
	a.fetching = true
	cursor := a.cursor
	a.mu.Unlock()

	page, err := a.client.SectionItems(ctx, a.source.SectionID, cursor, a.pageSize)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetching = false

	if err != nil {
		return false, fmt.Errorf("failed to fetch next page: %w", err)
	}

	a.appendLocked(page.Items)
	a.cursor = page.NextCursor
	a.hasNext = page.HasNext

	slog.Debug("Fetched next section page",
		"section", a.source.SectionID,
		"added", len(page.Items),
		"total", len(a.items),
		"has_next", a.hasNext)

	return true, nil
}

// ResolveStart maps a deep-link start item id to its index in the assembled
// sequence, at most once per (startID, token) pair. An unknown id is a silent
// no-op reported as not found.
func (a *Assembler) ResolveStart(startID, token string) (int, bool) {
	if startID == "" {
		return 0, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := startID + "|" + token
	if _, done := a.resolvedStarts[key]; done {
		return 0, false
	}
	a.resolvedStarts[key] = struct{}{}

	for i, item := range a.items {
		if item.ID == startID {
			return i, true
		}
	}

	slog.Debug("Deep-link start item not found", "item", startID)
	return 0, false
}

// appendLocked validates, normalizes and deduplicates raw items onto the tail
// of the sequence. Invalid video identifiers are a data-quality condition,
// not an error.
func (a *Assembler) appendLocked(raws []RawItem) {
	for _, raw := range raws {
		item, ok := transform(raw)
		if !ok {
			slog.Debug("Dropping item with invalid video id", "item", raw.ID, "url", raw.SourceURL)
			continue
		}
		if _, dup := a.seen[item.ID]; dup {
			continue
		}
		a.seen[item.ID] = struct{}{}
		a.items = append(a.items, item)
	}
}

// transform builds a displayable Item from a raw entry. Titles and tags are
// NFC-normalized; some upstream sources deliver decomposed Hangul.
func transform(raw RawItem) (Item, bool) {
	videoID := DeriveVideoID(raw)
	if !IsValidVideoID(videoID) {
		return Item{}, false
	}

	thumbnail := raw.ThumbnailURL
	if thumbnail == "" {
		thumbnail = ThumbnailURL(videoID)
	}

	tags := make([]string, 0, len(raw.Tags))
	for _, tag := range raw.Tags {
		tags = append(tags, norm.NFC.String(tag))
	}

	return Item{
		ID:            raw.ID,
		VideoID:       videoID,
		Title:         norm.NFC.String(raw.Title),
		Author:        norm.NFC.String(raw.Author),
		AuthorAvatar:  raw.AuthorAvatar,
		ThumbnailURL:  thumbnail,
		Tags:          tags,
		BookmarkCount: raw.BookmarkCount,
	}, true
}
