package database

import (
	"encoding/json"
	"fmt"
	"time"
)

type manualItemRepository struct {
	db  *DB
	now func() time.Time
}

func NewManualItemRepository(db *DB) ManualItemRepository {
	return &manualItemRepository{db: db, now: time.Now}
}

// AddManualItem stores the item unless one with the same id already exists
// in the tab, and reports whether it was inserted.
func (r *manualItemRepository) AddManualItem(item *ManualItem) (bool, error) {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("failed to encode tags: %w", err)
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = r.now()
	}

	res, err := r.db.Exec(`
		INSERT INTO manual_items (tab_key, id, title, summary, link, source, tags, date_iso, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tab_key, id) DO NOTHING
	`, item.TabKey, item.ID, item.Title, item.Summary, item.Link, item.Source,
		string(encoded), item.DateISO, formatTime(item.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to add manual item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// ListManualItems returns the tab's manual items, newest first.
func (r *manualItemRepository) ListManualItems(tabKey string) ([]ManualItem, error) {
	rows, err := r.db.Query(`
		SELECT id, title, summary, link, source, tags, date_iso, created_at
		FROM manual_items
		WHERE tab_key = ?
		ORDER BY created_at DESC
	`, tabKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual items: %w", err)
	}
	defer rows.Close()

	items := []ManualItem{}
	for rows.Next() {
		item := ManualItem{TabKey: tabKey}
		var tags, createdAt string
		if err := rows.Scan(&item.ID, &item.Title, &item.Summary, &item.Link, &item.Source,
			&tags, &item.DateISO, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan manual item row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of %s: %w", item.ID, err)
		}
		if item.Tags == nil {
			item.Tags = []string{}
		}
		item.CreatedAt = parseTime(createdAt)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating manual item rows: %w", err)
	}

	return items, nil
}
