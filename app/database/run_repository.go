package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO aggregation_runs (
			id, tab_key, started_at, finished_at, sources, failed_sources,
			items, duplicates, dropped, filtered, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.TabKey, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Sources, run.FailedSources, run.Items, run.Duplicates, run.Dropped,
		run.Filtered, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// GetLastRun returns the most recent run of the tab, or nil when the tab has
// never run.
func (r *runRepository) GetLastRun(tabKey string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, tab_key, started_at, finished_at, sources, failed_sources,
		       items, duplicates, dropped, filtered, error
		FROM aggregation_runs
		WHERE tab_key = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, tabKey)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	return run, nil
}

func (r *runRepository) ListRuns(tabKey string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, tab_key, started_at, finished_at, sources, failed_sources,
		       items, duplicates, dropped, filtered, error
		FROM aggregation_runs
		WHERE tab_key = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, tabKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt, finishedAt string

	err := row.Scan(
		&run.ID, &run.TabKey, &startedAt, &finishedAt, &run.Sources, &run.FailedSources,
		&run.Items, &run.Duplicates, &run.Dropped, &run.Filtered, &run.Error,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)

	return &run, nil
}
