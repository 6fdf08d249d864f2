package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/veille/app/aggregator"
	"github.com/lysyi3m/veille/app/database"
	"github.com/lysyi3m/veille/app/feed"
	"github.com/lysyi3m/veille/app/snapshot"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 5 * time.Minute

type Scheduler struct {
	configCache *feed.ConfigCache
	aggregator  *aggregator.Aggregator
	store       *snapshot.Store
	runRepo     database.RunRepository
	stateRepo   database.StateRepository
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	inFlight    sync.Map // tab name -> struct{}
	now         func() time.Time
}

func NewScheduler(configCache *feed.ConfigCache, agg *aggregator.Aggregator, store *snapshot.Store,
	runRepo database.RunRepository, stateRepo database.StateRepository,
	interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount <= 0 {
		workerCount = 1
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}

	return &Scheduler{
		configCache: configCache,
		aggregator:  agg,
		store:       store,
		runRepo:     runRepo,
		stateRepo:   stateRepo,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
		now:         time.Now,
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

		s.enqueueDueTabs()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTabs()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if _, loaded := s.inFlight.LoadOrStore(task.GetTabName(), struct{}{}); loaded {
		return fmt.Errorf("tab %s already queued", task.GetTabName())
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		s.inFlight.Delete(task.GetTabName())
		return s.ctx.Err()
	default:
		s.inFlight.Delete(task.GetTabName())
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueTab queues an aggregation of the named tab regardless of its
// refresh interval.
func (s *Scheduler) EnqueueTab(tabName string) error {
	tabConfig, err := s.configCache.GetConfig(tabName)
	if err != nil {
		return err
	}
	return s.EnqueueTask(s.NewAggregateTask(tabConfig))
}

func (s *Scheduler) NewAggregateTask(tabConfig *feed.Config) *AggregateTabTask {
	return NewAggregateTabTask(tabConfig, s.configCache.RosterPath(tabConfig), s.aggregator, s.store, s.runRepo, s.stateRepo)
}

func (s *Scheduler) enqueueDueTabs() {
	tabConfigs := s.configCache.GetEnabledConfigs()
	if len(tabConfigs) == 0 {
		slog.Debug("No enabled tab configurations found")
		return
	}

	slog.Debug("Checking enabled tabs for refresh", "count", len(tabConfigs))

	for _, tabConfig := range tabConfigs {
		if !s.isDue(tabConfig) {
			continue
		}

		if err := s.EnqueueTask(s.NewAggregateTask(tabConfig)); err != nil {
			slog.Debug("Failed to enqueue AggregateTabTask", "tab", tabConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) isDue(tabConfig *feed.Config) bool {
	if s.runRepo == nil {
		return true
	}

	lastRun, err := s.runRepo.GetLastRun(tabConfig.Name)
	if err != nil {
		slog.Warn("Failed to get last run, refreshing", "tab", tabConfig.Name, "error", err)
		return true
	}
	if lastRun == nil {
		return true
	}

	nextRun := lastRun.StartedAt.Add(tabConfig.Settings.GetRefreshInterval())
	if nextRun.After(s.now()) {
		slog.Debug("Tab not due for refresh yet", "tab", tabConfig.Name, "next_run_at", nextRun)
		return false
	}
	return true
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	defer s.inFlight.Delete(task.GetTabName())

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "tab", task.GetTabName(), "error", err)
	}
}
