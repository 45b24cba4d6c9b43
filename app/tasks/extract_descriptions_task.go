package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/feed"
	"github.com/shortkki/shorts-feed/app/ingest"
	"github.com/shortkki/shorts-feed/app/sections"
)

type ExtractDescriptionsTask struct {
	Task
	SectionConfig *sections.Config
	httpClient    *http.Client
	extractor     *ingest.Extractor
	itemRepo      database.ItemRepository
	userAgent     string
}

func NewExtractDescriptionsTask(sectionID string, config *sections.Config, httpClient *http.Client, extractor *ingest.Extractor, itemRepo database.ItemRepository, userAgent string) *ExtractDescriptionsTask {
	return &ExtractDescriptionsTask{
		Task:          NewTask(TaskTypeExtractDescriptions, sectionID),
		SectionConfig: config,
		httpClient:    httpClient,
		extractor:     extractor,
		itemRepo:      itemRepo,
		userAgent:     userAgent,
	}
}

func (t *ExtractDescriptionsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SectionConfig.Settings.ExtractDescriptions {
		slog.Debug("Description extraction disabled for section", "section", t.SectionID)
		return nil
	}

	items, err := t.itemRepo.GetItemsForExtraction(t.SectionID, t.SectionConfig.Settings.MaxItems)
	if err != nil {
		return fmt.Errorf("failed to get items for description extraction: %w", err)
	}

	if len(items) == 0 {
		slog.Debug("No items need description extraction", "section", t.SectionID)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := t.extractForItem(ctx, item)
		if err != nil {
			slog.Error("Failed to extract description for item", "item_id", item.ID, "url", item.SourceURL, "error", err)
			errorCount++

			if err := t.itemRepo.UpdateExtraction(item.ID, "", "", "failed"); err != nil {
				slog.Error("Failed to update extraction status", "item_id", item.ID, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", "ExtractDescriptions",
		"section", t.SectionID,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractDescriptionsTask) extractForItem(ctx context.Context, item database.Item) error {
	if item.SourceURL == "" {
		return fmt.Errorf("item has no source URL")
	}

	data, err := t.fetchPage(ctx, item.SourceURL)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}

	description, err := t.extractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract description: %w", err)
	}

	// Recover a missing video id from the source URL while we are here
	videoID := item.VideoID
	if videoID == "" {
		videoID = feed.ExtractVideoID(item.SourceURL)
	}

	if err := t.itemRepo.UpdateExtraction(item.ID, videoID, description, "success"); err != nil {
		return fmt.Errorf("failed to update extraction: %w", err)
	}

	slog.Debug("Description extracted successfully", "item_id", item.ID, "url", item.SourceURL, "length", len(description))
	return nil
}

func (t *ExtractDescriptionsTask) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SectionConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
