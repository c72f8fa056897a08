package tasks

// TaskSchedulerInterface defines the interface for the polling loop.
// Used by the main application to run checks until shutdown.
// Example usage:
//
//	scheduler := NewScheduler(sourceCache, fetcher, filterer, notifier, store, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	RunCycle() CycleStats
}
