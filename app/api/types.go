package api

import (
	"time"

	"github.com/lysyi3m/veille/app/database"
	"github.com/lysyi3m/veille/app/feed"
	"github.com/lysyi3m/veille/app/snapshot"
	"github.com/lysyi3m/veille/app/tasks"
)

type GeneratorInterface interface {
	Run(tabConfig *feed.Config, items []feed.Item, updatedAt time.Time) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type SnapshotStoreInterface interface {
	Load(tabKey string) (*snapshot.Snapshot, error)
}

var _ SnapshotStoreInterface = (*snapshot.Store)(nil)

type Handler struct {
	configCache *feed.ConfigCache
	store       SnapshotStoreInterface
	stateRepo   database.StateRepository
	manualRepo  database.ManualItemRepository
	runRepo     database.RunRepository
	generator   GeneratorInterface
	scheduler   tasks.TaskSchedulerInterface
	now         func() time.Time
}

type ItemsResponse struct {
	Items    []feed.Item `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

type TabSummary struct {
	Key       string  `json:"key"`
	Title     string  `json:"title"`
	Social    bool    `json:"social"`
	Count     int     `json:"count"`
	Unread    int     `json:"unread"`
	UpdatedAt *string `json:"updatedAt"`
}

type readRequest struct {
	Read *bool `json:"read" binding:"required"`
}

type pinRequest struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

type manualItemRequest struct {
	TabKey  string   `json:"tab_key" binding:"required"`
	Title   string   `json:"title" binding:"required"`
	Link    string   `json:"link" binding:"required"`
	Summary string   `json:"summary"`
	Source  string   `json:"source"`
	Tags    []string `json:"tags"`
	Pinned  bool     `json:"pinned"`
	Read    bool     `json:"read"`
}

type emailRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}
