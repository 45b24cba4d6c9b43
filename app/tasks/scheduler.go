package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shortkki/shorts-feed/app/cfg"
	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/ingest"
	"github.com/shortkki/shorts-feed/app/sections"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sectionRepo  database.SectionRepository
	itemRepo     database.ItemRepository
	sectionCache *sections.Cache
	httpClient   *http.Client
	parser       *ingest.Parser
	filterer     *ingest.Filterer
	extractor    *ingest.Extractor
	userAgent    string
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
}

func NewScheduler(sectionCache *sections.Cache, sectionRepo database.SectionRepository,
	itemRepo database.ItemRepository, httpClient *http.Client, parser *ingest.Parser,
	filterer *ingest.Filterer, extractor *ingest.Extractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sectionRepo:  sectionRepo,
		itemRepo:     itemRepo,
		sectionCache: sectionCache,
		httpClient:   httpClient,
		parser:       parser,
		filterer:     filterer,
		extractor:    extractor,
		userAgent:    cfg.UserAgent,
		interval:     time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:  cfg.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	configs := s.sectionCache.GetConfigs()
	if len(configs) == 0 {
		slog.Debug("No section configurations found")
		return
	}

	slog.Debug("Processing section configurations", "count", len(configs))

	for _, config := range configs {
		syncTask := NewSyncSectionTask(config.ID, config, s.sectionRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSectionTask", "section", config.ID, "error", err)
			continue
		}

		if !config.Settings.Enabled {
			slog.Debug("Section disabled, skipping IngestSectionTask", "section", config.ID)
			continue
		}

		ingestTask := NewIngestSectionTask(config.ID, config, s.httpClient, s.parser, s.filterer, s.sectionRepo, s.itemRepo, s.userAgent)
		if err := s.EnqueueTask(ingestTask); err != nil {
			slog.Warn("Failed to enqueue IngestSectionTask", "section", config.ID, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	configs := s.sectionCache.GetEnabledConfigs()
	if len(configs) == 0 {
		slog.Debug("No enabled section configurations found")
		return
	}

	slog.Debug("Processing enabled section configurations for task scheduling", "count", len(configs))

	for _, config := range configs {
		section, err := s.sectionRepo.GetSection(config.ID)
		if err != nil {
			slog.Warn("Failed to get section from database, skipping", "section", config.ID, "error", err)
			continue
		}
		if section == nil {
			slog.Warn("Section not found in database, skipping", "section", config.ID)
			continue
		}

		now := time.Now().UTC()
		if section.NextFetchAt != nil && section.NextFetchAt.After(now) {
			slog.Debug("Section not due for refresh yet", "section", config.ID, "next_fetch_at", section.NextFetchAt)
		} else {
			ingestTask := NewIngestSectionTask(config.ID, config, s.httpClient, s.parser, s.filterer, s.sectionRepo, s.itemRepo, s.userAgent)
			if err := s.EnqueueTask(ingestTask); err != nil {
				slog.Warn("Failed to enqueue IngestSectionTask", "section", config.ID, "error", err)
			}
		}

		if config.Settings.ExtractDescriptions {
			extractTask := NewExtractDescriptionsTask(config.ID, config, s.httpClient, s.extractor, s.itemRepo, s.userAgent)
			if err := s.EnqueueTask(extractTask); err != nil {
				slog.Warn("Failed to enqueue ExtractDescriptionsTask", "section", config.ID, "error", err)
			}
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "section", task.GetSectionID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
