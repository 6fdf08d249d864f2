package database

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "veille.db"))
	if err != nil {
		t.Fatalf("Expected no error opening database, got: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error running migrations, got: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("Expected clean version 2, got: %d (dirty=%t)", version, dirty)
	}

	return db
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error on second run, got: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Expected clean version 2, got: %d (dirty=%t)", version, dirty)
	}
}

func TestNewConnectionCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "veille.db")
	db, err := NewConnection(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	db.Close()
}

func TestStateRepositorySetReadAndPinned(t *testing.T) {
	repo := NewStateRepository(newTestDB(t))

	if err := repo.SetRead("budget", "item-1", true); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.SetPinned("budget", "item-1", true); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.SetPinned("budget", "item-2", true); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.SetRead("metz", "item-1", true); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	states, err := repo.GetStates("budget")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(states) != 2 {
		t.Fatalf("Expected 2 states for budget, got: %d", len(states))
	}
	if s := states["item-1"]; !s.Read || !s.Pinned {
		t.Errorf("Expected item-1 read and pinned, got: %+v", s)
	}
	if s := states["item-2"]; s.Read || !s.Pinned {
		t.Errorf("Expected item-2 pinned only, got: %+v", s)
	}
	if states["item-1"].UpdatedAt.IsZero() {
		t.Error("Expected updated_at to be set")
	}

	if err := repo.SetRead("budget", "item-1", false); err != nil {
		t.Fatal(err)
	}
	states, _ = repo.GetStates("budget")
	if s := states["item-1"]; s.Read || !s.Pinned {
		t.Errorf("Expected item-1 unread and still pinned, got: %+v", s)
	}
}

func TestStateRepositoryMarkAllRead(t *testing.T) {
	repo := NewStateRepository(newTestDB(t))

	if err := repo.SetPinned("social", "b", true); err != nil {
		t.Fatal(err)
	}

	n, err := repo.MarkAllRead("social", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 items marked, got: %d", n)
	}

	states, err := repo.GetStates("social")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if !states[id].Read {
			t.Errorf("Expected %s read", id)
		}
	}
	if !states["b"].Pinned {
		t.Error("Expected pin to survive mark-all-read")
	}

	if n, err := repo.MarkAllRead("social", nil); err != nil || n != 0 {
		t.Errorf("Expected no-op for empty list, got %d, %v", n, err)
	}
}

func TestStateRepositoryPruneStates(t *testing.T) {
	repo := NewStateRepository(newTestDB(t))

	repo.SetRead("budget", "keep", true)
	repo.SetRead("budget", "gone", true)
	repo.SetPinned("budget", "pinned-gone", true)
	repo.SetRead("metz", "other-tab", true)

	n, err := repo.PruneStates("budget", []string{"keep"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 pruned state, got: %d", n)
	}

	states, _ := repo.GetStates("budget")
	if _, ok := states["gone"]; ok {
		t.Error("Expected 'gone' to be pruned")
	}
	if _, ok := states["keep"]; !ok {
		t.Error("Expected 'keep' to survive")
	}
	if _, ok := states["pinned-gone"]; !ok {
		t.Error("Expected pinned state to survive")
	}

	other, _ := repo.GetStates("metz")
	if len(other) != 1 {
		t.Errorf("Expected other tab untouched, got %d states", len(other))
	}
}

func TestStateRepositoryPruneKeepsManualItems(t *testing.T) {
	db := newTestDB(t)
	repo := NewStateRepository(db)
	manual := NewManualItemRepository(db)

	if _, err := manual.AddManualItem(&ManualItem{TabKey: "budget", ID: "manual-1", Title: "M", Link: "https://example.com/m", DateISO: "2024-01-01T00:00:00.000Z"}); err != nil {
		t.Fatal(err)
	}
	repo.SetRead("budget", "manual-1", true)
	repo.SetRead("metz", "manual-1", true)

	n, err := repo.PruneStates("budget", nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no pruned state, got: %d", n)
	}
	if states, _ := repo.GetStates("budget"); !states["manual-1"].Read {
		t.Error("Expected manual item state to survive")
	}

	if n, _ := repo.PruneStates("metz", nil); n != 1 {
		t.Errorf("Expected same id in another tab to be pruned, got: %d", n)
	}
}

func TestManualItemRepositoryAddAndList(t *testing.T) {
	repo := NewManualItemRepository(newTestDB(t))

	first := &ManualItem{
		TabKey:    "budget",
		ID:        "m1",
		Title:     "Note de synthèse",
		Link:      "https://example.com/m1",
		Tags:      []string{"budget", "interne"},
		DateISO:   "2024-03-10T12:00:00.000Z",
		CreatedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	inserted, err := repo.AddManualItem(first)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !inserted {
		t.Error("Expected first insert to report inserted")
	}

	inserted, err = repo.AddManualItem(&ManualItem{TabKey: "budget", ID: "m1", Title: "Autre", Link: "https://example.com/m1", DateISO: "2024-03-11T12:00:00.000Z"})
	if err != nil {
		t.Fatalf("Expected no error on duplicate, got: %v", err)
	}
	if inserted {
		t.Error("Expected duplicate insert to be ignored")
	}

	second := &ManualItem{
		TabKey:    "budget",
		ID:        "m2",
		Title:     "Second",
		Link:      "https://example.com/m2",
		DateISO:   "2024-03-11T12:00:00.000Z",
		CreatedAt: time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC),
	}
	if _, err := repo.AddManualItem(second); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.AddManualItem(&ManualItem{TabKey: "metz", ID: "m1", Title: "Metz", Link: "https://example.com/m1", DateISO: "2024-03-10T12:00:00.000Z"}); err != nil {
		t.Fatal(err)
	}

	items, err := repo.ListManualItems("budget")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 budget items, got: %d", len(items))
	}
	if items[0].ID != "m2" || items[1].ID != "m1" {
		t.Errorf("Expected newest first, got: %s, %s", items[0].ID, items[1].ID)
	}
	if items[1].Title != "Note de synthèse" {
		t.Errorf("Expected original title kept, got: %s", items[1].Title)
	}
	if len(items[1].Tags) != 2 || items[1].Tags[1] != "interne" {
		t.Errorf("Expected tags to round-trip, got: %v", items[1].Tags)
	}
	if items[0].Tags == nil || len(items[0].Tags) != 0 {
		t.Errorf("Expected empty tags, got: %v", items[0].Tags)
	}

	empty, err := repo.ListManualItems("social")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected no social items, got %v, %v", empty, err)
	}
}

func TestRunRepositoryRecordAndList(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))

	if run, err := repo.GetLastRun("budget"); err != nil || run != nil {
		t.Fatalf("Expected no run yet, got %+v, %v", run, err)
	}

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &Run{
			TabKey:        "budget",
			StartedAt:     base.Add(time.Duration(i) * time.Hour),
			FinishedAt:    base.Add(time.Duration(i)*time.Hour + 2*time.Second),
			Sources:       5,
			FailedSources: i,
			Items:         100 + i,
		}
		if err := repo.RecordRun(run); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if run.ID == "" {
			t.Error("Expected ID to be assigned")
		}
	}
	if err := repo.RecordRun(&Run{TabKey: "metz", StartedAt: base, FinishedAt: base, Error: "boom"}); err != nil {
		t.Fatal(err)
	}

	last, err := repo.GetLastRun("budget")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if last == nil || last.Items != 102 {
		t.Fatalf("Expected latest run with 102 items, got: %+v", last)
	}
	if !last.StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("Expected started_at %v, got: %v", base.Add(2*time.Hour), last.StartedAt)
	}
	if last.Duration() != 2*time.Second {
		t.Errorf("Expected duration 2s, got: %v", last.Duration())
	}

	runs, err := repo.ListRuns("budget", 2)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got: %d", len(runs))
	}
	if runs[0].Items != 102 || runs[1].Items != 101 {
		t.Errorf("Expected newest first, got: %d, %d", runs[0].Items, runs[1].Items)
	}

	metz, _ := repo.GetLastRun("metz")
	if metz == nil || metz.Error != "boom" {
		t.Errorf("Expected metz run with error, got: %+v", metz)
	}
}
