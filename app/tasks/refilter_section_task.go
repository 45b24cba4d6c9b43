package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/ingest"
	"github.com/shortkki/shorts-feed/app/sections"
)

type RefilterSectionTask struct {
	Task
	SectionConfig *sections.Config
	filterer      *ingest.Filterer
	itemRepo      database.ItemRepository
}

func NewRefilterSectionTask(sectionID string, config *sections.Config, filterer *ingest.Filterer, itemRepo database.ItemRepository) *RefilterSectionTask {
	return &RefilterSectionTask{
		Task:          NewTask(TaskTypeRefilterSection, sectionID),
		SectionConfig: config,
		filterer:      filterer,
		itemRepo:      itemRepo,
	}
}

func (t *RefilterSectionTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.itemRepo.GetAllItems(t.SectionID)
	if err != nil {
		return fmt.Errorf("failed to get section items: %w", err)
	}

	storeItems := make([]database.StoreItem, len(items))
	for i, item := range items {
		storeItems[i] = database.StoreItem{
			VideoID:     item.VideoID,
			SourceURL:   item.SourceURL,
			Title:       item.Title,
			Author:      item.Author,
			Tags:        item.Tags,
			ContentHash: item.ContentHash,
		}
	}

	filteredItems := t.filterer.Run(storeItems, t.SectionConfig)

	updatedCount := 0
	errorCount := 0

	for i, filteredItem := range filteredItems {
		originalItem := items[i]

		if originalItem.IsFiltered != filteredItem.IsFiltered || originalItem.FilterReason != filteredItem.FilterReason {
			err := t.itemRepo.UpdateFilterStatus(originalItem.ID, filteredItem.IsFiltered, filteredItem.FilterReason)
			if err != nil {
				slog.Error("Failed to update item filter status", "item_id", originalItem.ID, "error", err)
				errorCount++
			} else {
				updatedCount++
			}
		}
	}

	slog.Info("Task completed",
		"type", "RefilterSection",
		"section", t.SectionID,
		"duration", t.GetDuration(),
		"success", updatedCount,
		"errors", errorCount)

	return nil
}
