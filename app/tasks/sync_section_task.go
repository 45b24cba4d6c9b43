package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/sections"
)

type SyncSectionTask struct {
	Task
	SectionConfig *sections.Config
	sectionRepo   database.SectionRepository
}

func NewSyncSectionTask(sectionID string, config *sections.Config, sectionRepo database.SectionRepository) *SyncSectionTask {
	return &SyncSectionTask{
		Task:          NewTask(TaskTypeSyncSection, sectionID),
		SectionConfig: config,
		sectionRepo:   sectionRepo,
	}
}

func (t *SyncSectionTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.sectionRepo.UpsertSection(
		t.SectionConfig.ID,
		t.SectionConfig.Title,
		t.SectionConfig.URL)
	if err != nil {
		slog.Error("Task failed", "type", "SyncSection", "section", t.SectionID, "error", err)
		return fmt.Errorf("failed to sync section config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSection",
		"section", t.SectionID,
		"duration", t.GetDuration())

	return nil
}
