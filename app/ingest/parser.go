package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/feed"
)

// Parser handles parsing of RSS/Atom feeds into storable section items
type Parser struct {
	gofeedParser *gofeed.Parser
}

// NewParser creates a new feed parser
func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Parse parses feed data and returns the feed title and normalized items
func (p *Parser) Parse(data []byte) (string, []database.StoreItem, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]database.StoreItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		normalized := p.normalizeItem(item)
		normalized.ContentHash = p.generateContentHash(normalized)
		items = append(items, normalized)
	}

	slog.Debug("Parsed feed", "title", parsed.Title, "items", len(items))
	return parsed.Title, items, nil
}

// normalizeItem converts a gofeed.Item to a StoreItem
func (p *Parser) normalizeItem(item *gofeed.Item) database.StoreItem {
	normalized := database.StoreItem{
		SourceURL: item.Link,
		Title:     item.Title,
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = item.PublishedParsed
	}

	if item.Author != nil {
		normalized.Author = item.Author.Name
	}

	if item.Categories != nil {
		normalized.Tags = item.Categories
	}

	// YouTube feeds carry the video id in the yt namespace; fall back to
	// deriving it from the entry link.
	normalized.VideoID = p.extensionValue(item, "yt", "videoId")
	if normalized.VideoID == "" {
		normalized.VideoID = feed.ExtractVideoID(item.Link)
	}

	normalized.ThumbnailURL = p.mediaGroupAttr(item, "thumbnail", "url")
	if normalized.ThumbnailURL == "" && normalized.VideoID != "" {
		normalized.ThumbnailURL = feed.ThumbnailURL(normalized.VideoID)
	}

	normalized.Description = p.coalesce(p.mediaGroupValue(item, "description"), item.Description)

	return normalized
}

// extensionValue returns the first value of a namespaced feed extension
func (p *Parser) extensionValue(item *gofeed.Item, namespace, name string) string {
	exts, ok := item.Extensions[namespace]
	if !ok {
		return ""
	}
	if nodes := exts[name]; len(nodes) > 0 {
		return nodes[0].Value
	}
	return ""
}

// mediaGroupValue returns the value of a media:group child element
func (p *Parser) mediaGroupValue(item *gofeed.Item, name string) string {
	for _, group := range item.Extensions["media"]["group"] {
		if nodes := group.Children[name]; len(nodes) > 0 {
			return nodes[0].Value
		}
	}
	return ""
}

// mediaGroupAttr returns an attribute of a media:group child element
func (p *Parser) mediaGroupAttr(item *gofeed.Item, name, attr string) string {
	for _, group := range item.Extensions["media"]["group"] {
		if nodes := group.Children[name]; len(nodes) > 0 {
			return nodes[0].Attrs[attr]
		}
	}
	return ""
}

// generateContentHash generates a hash for content deduplication
func (p *Parser) generateContentHash(item database.StoreItem) string {
	// Use only title and link for hash generation so description updates do
	// not create duplicates
	content := fmt.Sprintf("%s|%s", item.Title, item.SourceURL)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// coalesce returns the first non-empty string from the provided values
func (p *Parser) coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
