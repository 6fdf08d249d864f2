package tasks

// TaskSchedulerInterface is what the API needs from the scheduler.
//
//	scheduler := NewScheduler(configCache, agg, store, runRepo, stateRepo, interval, workers)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTab("budget")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueTab(tabName string) error
}
