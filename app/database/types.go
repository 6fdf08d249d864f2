package database

import (
	"time"
)

// ItemState is the viewer overlay of one snapshot item. It is merged into
// API responses and never written back into snapshots.
type ItemState struct {
	TabKey    string
	ItemID    string
	Read      bool
	Pinned    bool
	UpdatedAt time.Time
}

type Run struct {
	ID            string    `json:"id"` // UUID, assigned on insert when empty
	TabKey        string    `json:"tab_key"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Sources       int       `json:"sources"`
	FailedSources int       `json:"failed_sources"`
	Items         int       `json:"items"`
	Duplicates    int       `json:"duplicates"`
	Dropped       int       `json:"dropped"`
	Filtered      int       `json:"filtered"`
	Error         string    `json:"error,omitempty"`
}

func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ManualItem is an item added through the API rather than aggregated. It is
// stored apart from snapshots and merged in when a tab is served.
type ManualItem struct {
	TabKey    string
	ID        string
	Title     string
	Summary   string
	Link      string
	Source    string
	Tags      []string
	DateISO   string
	CreatedAt time.Time
}
