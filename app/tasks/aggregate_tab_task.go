package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/veille/app/aggregator"
	"github.com/lysyi3m/veille/app/database"
	"github.com/lysyi3m/veille/app/feed"
	"github.com/lysyi3m/veille/app/snapshot"
)

type AggregateTabTask struct {
	Task
	TabConfig  *feed.Config
	RosterPath string
	aggregator *aggregator.Aggregator
	store      *snapshot.Store
	runRepo    database.RunRepository
	stateRepo  database.StateRepository
}

// NewAggregateTabTask builds a task for one tab. runRepo and stateRepo may be
// nil, in which case the run is not recorded and states are not pruned.
func NewAggregateTabTask(tabConfig *feed.Config, rosterPath string, agg *aggregator.Aggregator, store *snapshot.Store, runRepo database.RunRepository, stateRepo database.StateRepository) *AggregateTabTask {
	return &AggregateTabTask{
		Task:       NewTask(TaskTypeAggregateTab, tabConfig.Name),
		TabConfig:  tabConfig,
		RosterPath: rosterPath,
		aggregator: agg,
		store:      store,
		runRepo:    runRepo,
		stateRepo:  stateRepo,
	}
}

// Execute runs one aggregation of the tab and replaces its snapshot. Only a
// failure to write the snapshot is returned.
func (t *AggregateTabTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	startedAt := time.Now().UTC()

	sources := aggregator.Sources(t.TabConfig, t.RosterPath)
	res := t.aggregator.Run(ctx, t.TabConfig, sources)

	run := &database.Run{
		TabKey:        t.TabName,
		StartedAt:     startedAt,
		Sources:       len(sources),
		FailedSources: res.Failed,
		Items:         len(res.Items),
		Duplicates:    res.Duplicates,
		Dropped:       res.Dropped,
		Filtered:      res.Filtered,
	}

	snap := snapshot.New(res.Items, res.UpdatedAt)
	if err := t.store.Save(t.TabName, snap); err != nil {
		run.Error = err.Error()
		t.recordRun(run)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	t.recordRun(run)
	t.pruneStates(res.Items)

	slog.Info("Task completed",
		"type", "AggregateTab",
		"tab", t.TabName,
		"duration", t.GetDuration(),
		"sources", len(sources),
		"failed", res.Failed,
		"duplicates", res.Duplicates,
		"dropped", res.Dropped,
		"filtered", res.Filtered,
		"items", len(res.Items))

	return nil
}

func (t *AggregateTabTask) recordRun(run *database.Run) {
	if t.runRepo == nil {
		return
	}
	run.FinishedAt = time.Now().UTC()
	if err := t.runRepo.RecordRun(run); err != nil {
		slog.Warn("Failed to record run", "tab", t.TabName, "error", err)
	}
}

func (t *AggregateTabTask) pruneStates(items []feed.Item) {
	if t.stateRepo == nil {
		return
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	pruned, err := t.stateRepo.PruneStates(t.TabName, ids)
	if err != nil {
		slog.Warn("Failed to prune item states", "tab", t.TabName, "error", err)
		return
	}
	if pruned > 0 {
		slog.Debug("Pruned item states", "tab", t.TabName, "count", pruned)
	}
}
