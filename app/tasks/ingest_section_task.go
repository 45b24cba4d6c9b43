package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/ingest"
	"github.com/shortkki/shorts-feed/app/sections"
)

type IngestSectionTask struct {
	Task
	SectionConfig *sections.Config
	httpClient    *http.Client
	parser        *ingest.Parser
	filterer      *ingest.Filterer
	sectionRepo   database.SectionRepository
	itemRepo      database.ItemRepository
	userAgent     string
}

func NewIngestSectionTask(sectionID string, config *sections.Config, httpClient *http.Client, parser *ingest.Parser, filterer *ingest.Filterer, sectionRepo database.SectionRepository, itemRepo database.ItemRepository, userAgent string) *IngestSectionTask {
	return &IngestSectionTask{
		Task:          NewTask(TaskTypeIngestSection, sectionID),
		SectionConfig: config,
		httpClient:    httpClient,
		parser:        parser,
		filterer:      filterer,
		sectionRepo:   sectionRepo,
		itemRepo:      itemRepo,
		userAgent:     userAgent,
	}
}

func (t *IngestSectionTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SectionConfig.Settings.Enabled {
		slog.Debug("Section disabled, skipping", "section", t.SectionID)
		return nil
	}

	data, err := t.fetchFeed(ctx, t.SectionConfig.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	_, items, err := t.parser.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	if len(items) > t.SectionConfig.Settings.MaxItems {
		items = items[:t.SectionConfig.Settings.MaxItems]
	}

	duplicateCount := 0
	filteredCount := 0
	newCount := 0

	if len(items) > 0 {
		var freshItems []database.StoreItem
		for _, item := range items {
			isDuplicate, err := t.itemRepo.CheckDuplicate(t.SectionID, item.ContentHash)
			if err != nil {
				return fmt.Errorf("failed to check for duplicates: %w", err)
			}

			if isDuplicate {
				duplicateCount++
			} else {
				freshItems = append(freshItems, item)
			}
		}

		if len(freshItems) > 0 {
			filteredItems := t.filterer.Run(freshItems, t.SectionConfig)

			for _, item := range filteredItems {
				if item.IsFiltered {
					filteredCount++
				} else {
					newCount++
				}
			}

			for _, item := range filteredItems {
				if err := t.itemRepo.UpsertItem(t.SectionID, item); err != nil {
					return fmt.Errorf("failed to store item: %w", err)
				}
			}
		}
	}

	if err := t.updateFetchTimes(); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "IngestSection",
		"section", t.SectionID,
		"duration", t.GetDuration(),
		"total", len(items),
		"duplicates", duplicateCount,
		"filtered", filteredCount,
		"new", newCount)

	return nil
}

func (t *IngestSectionTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.SectionConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (t *IngestSectionTask) updateFetchTimes() error {
	now := time.Now().UTC()
	nextFetch := now.Add(time.Duration(t.SectionConfig.Settings.RefreshInterval) * time.Second)

	if err := t.sectionRepo.UpdateFetchTimes(t.SectionID, now, nextFetch); err != nil {
		return fmt.Errorf("failed to update fetch times: %w", err)
	}

	return nil
}
