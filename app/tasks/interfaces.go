package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API layer to manage background
// ingestion work.
// Example usage:
//
//	scheduler := NewScheduler(sectionCache, sectionRepo, itemRepo, httpClient, parser, filterer, extractor)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewIngestSectionTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
