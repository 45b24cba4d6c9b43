package feed

// Feed item types

type Item struct {
	ID            string
	VideoID       string
	Title         string
	Author        string
	AuthorAvatar  string
	ThumbnailURL  string
	Tags          []string
	BookmarkCount int
}

// RawItem is an entry as returned by the feed-source collaborator. It may
// carry an explicit video identifier, or only a source URL to derive one from.
type RawItem struct {
	ID            string
	VideoID       string
	SourceURL     string
	Title         string
	Author        string
	AuthorAvatar  string
	ThumbnailURL  string
	Tags          []string
	BookmarkCount int
}

// Source types

type SourceKind string

const (
	SourcePersonalized SourceKind = "personalized"
	SourceCurated      SourceKind = "curated"
)

// Source identifies where a feed session draws its items from. A personalized
// source is padded with items from the recommendation section; a curated
// source reads a single section with cursor pagination.
type Source struct {
	Kind      SourceKind
	SectionID string
}

// Page is one paginated slice of a curated section.
type Page struct {
	Items      []RawItem
	NextCursor string
	HasNext    bool
}
