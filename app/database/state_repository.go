package database

import (
	"fmt"
	"time"
)

type stateRepository struct {
	db  *DB
	now func() time.Time
}

func NewStateRepository(db *DB) StateRepository {
	return &stateRepository{db: db, now: time.Now}
}

func (r *stateRepository) GetStates(tabKey string) (map[string]ItemState, error) {
	rows, err := r.db.Query(`
		SELECT item_id, read, pinned, updated_at
		FROM item_states
		WHERE tab_key = ?
	`, tabKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get item states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]ItemState)
	for rows.Next() {
		state := ItemState{TabKey: tabKey}
		var updatedAt string
		if err := rows.Scan(&state.ItemID, &state.Read, &state.Pinned, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item state row: %w", err)
		}
		state.UpdatedAt = parseTime(updatedAt)
		states[state.ItemID] = state
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item state rows: %w", err)
	}

	return states, nil
}

func (r *stateRepository) SetRead(tabKey, itemID string, read bool) error {
	_, err := r.db.Exec(`
		INSERT INTO item_states (tab_key, item_id, read, pinned, updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT (tab_key, item_id) DO UPDATE SET
			read = excluded.read,
			updated_at = excluded.updated_at
	`, tabKey, itemID, read, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("failed to set read state: %w", err)
	}
	return nil
}

func (r *stateRepository) SetPinned(tabKey, itemID string, pinned bool) error {
	_, err := r.db.Exec(`
		INSERT INTO item_states (tab_key, item_id, read, pinned, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT (tab_key, item_id) DO UPDATE SET
			pinned = excluded.pinned,
			updated_at = excluded.updated_at
	`, tabKey, itemID, pinned, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("failed to set pinned state: %w", err)
	}
	return nil
}

// MarkAllRead marks every given item of the tab read in one transaction and
// returns the number of items written.
func (r *stateRepository) MarkAllRead(tabKey string, itemIDs []string) (int, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO item_states (tab_key, item_id, read, pinned, updated_at)
		VALUES (?, ?, 1, 0, ?)
		ON CONFLICT (tab_key, item_id) DO UPDATE SET
			read = 1,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := formatTime(r.now())
	for _, id := range itemIDs {
		if _, err := stmt.Exec(tabKey, id, now); err != nil {
			return 0, fmt.Errorf("failed to mark item %s read: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(itemIDs), nil
}

// PruneStates deletes states of items no longer present in the tab's
// snapshot. Pinned items and manually added items are kept.
func (r *stateRepository) PruneStates(tabKey string, keepIDs []string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TEMP TABLE IF NOT EXISTS keep_ids (item_id TEXT PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM keep_ids`); err != nil {
		return 0, fmt.Errorf("failed to clear temp table: %w", err)
	}

	for _, id := range keepIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO keep_ids (item_id) VALUES (?)`, id); err != nil {
			return 0, fmt.Errorf("failed to stage item id: %w", err)
		}
	}

	res, err := tx.Exec(`
		DELETE FROM item_states
		WHERE tab_key = ?
		  AND pinned = 0
		  AND item_id NOT IN (SELECT item_id FROM keep_ids)
		  AND item_id NOT IN (SELECT id FROM manual_items WHERE tab_key = ?)
	`, tabKey, tabKey)
	if err != nil {
		return 0, fmt.Errorf("failed to prune item states: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM keep_ids`); err != nil {
		return 0, fmt.Errorf("failed to clear temp table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
