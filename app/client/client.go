package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shortkki/shorts-feed/app/bookmark"
	"github.com/shortkki/shorts-feed/app/feed"
)

var _ feed.SourceClient = (*Client)(nil)
var _ bookmark.Client = (*Client)(nil)

// Client talks to the shorts feed backend. It serves both the feed-source
// and the recipe-book sides of the API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

type Options struct {
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// wireItem is the backend's JSON shape of a feed item
type wireItem struct {
	ID            string   `json:"id"`
	VideoID       string   `json:"video_id"`
	SourceURL     string   `json:"source_url"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	AuthorAvatar  string   `json:"author_avatar"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	Tags          []string `json:"tags"`
	BookmarkCount int      `json:"bookmark_count"`
}

func (w wireItem) raw() feed.RawItem {
	return feed.RawItem{
		ID:            w.ID,
		VideoID:       w.VideoID,
		SourceURL:     w.SourceURL,
		Title:         w.Title,
		Author:        w.Author,
		AuthorAvatar:  w.AuthorAvatar,
		ThumbnailURL:  w.ThumbnailURL,
		Tags:          w.Tags,
		BookmarkCount: w.BookmarkCount,
	}
}

// PersonalizedItems fetches the recommendation feed
func (c *Client) PersonalizedItems(ctx context.Context, limit int) ([]feed.RawItem, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Items []wireItem `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/feed/personalized", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch personalized feed: %w", err)
	}

	raws := make([]feed.RawItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		raws = append(raws, item.raw())
	}
	return raws, nil
}

// SectionItems fetches one page of a curated section
func (c *Client) SectionItems(ctx context.Context, sectionID string, cursor string, limit int) (*feed.Page, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp struct {
		Items      []wireItem `json:"items"`
		NextCursor string     `json:"next_cursor"`
		HasNext    bool       `json:"has_next"`
	}
	if err := c.getJSON(ctx, "/api/sections/"+url.PathEscape(sectionID)+"/items", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch section %s: %w", sectionID, err)
	}

	page := &feed.Page{
		Items:      make([]feed.RawItem, 0, len(resp.Items)),
		NextCursor: resp.NextCursor,
		HasNext:    resp.HasNext,
	}
	for _, item := range resp.Items {
		page.Items = append(page.Items, item.raw())
	}
	return page, nil
}

// BookmarkState fetches the server-side bookmark state of an item
func (c *Client) BookmarkState(ctx context.Context, itemID string) (*bookmark.RemoteState, error) {
	var resp struct {
		OwnedBookIDs []string `json:"owned_book_ids"`
		SaveCount    int      `json:"save_count"`
	}
	if err := c.getJSON(ctx, "/api/items/"+url.PathEscape(itemID)+"/bookmarks", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch bookmark state for %s: %w", itemID, err)
	}

	return &bookmark.RemoteState{
		OwnedBookIDs: resp.OwnedBookIDs,
		SaveCount:    resp.SaveCount,
	}, nil
}

// AddToBook saves an item into a recipe book
func (c *Client) AddToBook(ctx context.Context, bookID, itemID string) error {
	body, err := json.Marshal(map[string]string{"item_id": itemID})
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/books/"+url.PathEscape(bookID)+"/items", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doDiscard(req)
}

// RemoveFromBook removes an item from a recipe book
func (c *Client) RemoveFromBook(ctx context.Context, bookID, itemID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete,
		"/api/books/"+url.PathEscape(bookID)+"/items/"+url.PathEscape(itemID), nil)
	if err != nil {
		return err
	}

	return c.doDiscard(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) doDiscard(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}
