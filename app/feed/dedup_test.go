package feed

import "testing"

func TestDedupFirstOccurrenceWins(t *testing.T) {
	items := []Item{
		{ID: "1", Link: "https://example.com/a", Source: "First"},
		{ID: "2", Link: "https://example.com/b"},
		{ID: "3", Link: "https://example.com/a", Source: "Second"},
		{ID: "4", Link: "https://example.com/c"},
		{ID: "5", Link: "https://example.com/b"},
	}

	unique, duplicates := Dedup(items)

	if duplicates != 2 {
		t.Errorf("Expected 2 duplicates, got: %d", duplicates)
	}
	if len(unique) != 3 {
		t.Fatalf("Expected 3 items, got: %d", len(unique))
	}

	expected := []string{"1", "2", "4"}
	for i, id := range expected {
		if unique[i].ID != id {
			t.Errorf("Expected id %s at %d, got: %s", id, i, unique[i].ID)
		}
	}
	if unique[0].Source != "First" {
		t.Errorf("Expected first occurrence to be kept, got source: %s", unique[0].Source)
	}
}

func TestDedupEmpty(t *testing.T) {
	unique, duplicates := Dedup(nil)
	if len(unique) != 0 || duplicates != 0 {
		t.Errorf("Expected empty result, got %d items and %d duplicates", len(unique), duplicates)
	}
}
