package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/lysyi3m/veille/app/feed"
)

var ErrNotFound = errors.New("snapshot not found")

var tabKeyPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Snapshot is the persisted output of one aggregation run of a tab.
type Snapshot struct {
	Items     []feed.Item `json:"items"`
	UpdatedAt string      `json:"updatedAt"`
}

func New(items []feed.Item, updatedAt time.Time) *Snapshot {
	if items == nil {
		items = []feed.Item{}
	}
	return &Snapshot{
		Items:     items,
		UpdatedAt: feed.FormatDate(updatedAt),
	}
}

// Store keeps one JSON file per tab under dir.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Path(tabKey string) string {
	return filepath.Join(s.dir, tabKey+".json")
}

// Save replaces the tab's snapshot. The file is written to a temporary name
// and renamed so readers never observe a partial document.
func (s *Store) Save(tabKey string, snap *Snapshot) error {
	if !tabKeyPattern.MatchString(tabKey) {
		return fmt.Errorf("invalid tab key: %q", tabKey)
	}

	for i := range snap.Items {
		if snap.Items[i].Tags == nil {
			snap.Items[i].Tags = []string{}
		}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+tabKey+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to chmod snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(tabKey)); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

func (s *Store) Load(tabKey string) (*Snapshot, error) {
	if !tabKeyPattern.MatchString(tabKey) {
		return nil, fmt.Errorf("invalid tab key: %q", tabKey)
	}

	data, err := os.ReadFile(s.Path(tabKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Items == nil {
		snap.Items = []feed.Item{}
	}

	return &snap, nil
}

func (s *Snapshot) UpdatedTime() time.Time {
	t, err := time.Parse(time.RFC3339, s.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
