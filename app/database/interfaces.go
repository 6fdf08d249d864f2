package database

type StateRepository interface {
	GetStates(tabKey string) (map[string]ItemState, error)
	SetRead(tabKey, itemID string, read bool) error
	SetPinned(tabKey, itemID string, pinned bool) error
	MarkAllRead(tabKey string, itemIDs []string) (int, error)
	PruneStates(tabKey string, keepIDs []string) (int, error)
}

type RunRepository interface {
	RecordRun(run *Run) error
	GetLastRun(tabKey string) (*Run, error)
	ListRuns(tabKey string, limit int) ([]Run, error)
}

type ManualItemRepository interface {
	AddManualItem(item *ManualItem) (bool, error)
	ListManualItems(tabKey string) ([]ManualItem, error)
}
