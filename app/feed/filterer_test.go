package feed

import (
	"testing"
)

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Test Item 1", Summary: "Test description"},
		{Title: "Test Item 2", Summary: "Another description"},
	}

	result, removed := filterer.Run(items, &Config{})

	if len(result) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result))
	}
	if removed != 0 {
		t.Errorf("Expected 0 removed, got %d", removed)
	}
}

func TestFilterer_TitleInclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Breaking News: Budget Update"},
		{Title: "Sports Update"},
		{Title: "Weather Report"},
	}

	tabConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"news", "update"}},
		},
	}

	result, removed := filterer.Run(items, tabConfig)

	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result))
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if result[0].Title != "Breaking News: Budget Update" || result[1].Title != "Sports Update" {
		t.Errorf("Expected input order preserved, got %v", result)
	}
}

func TestFilterer_ExcludeWinsOverInclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Budget vote", Summary: "Sponsored content"},
		{Title: "Budget debate", Summary: "Assemblée nationale"},
	}

	tabConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"budget"}},
			{Field: "summary", Excludes: []string{"SPONSORED"}},
		},
	}

	result, removed := filterer.Run(items, tabConfig)

	if len(result) != 1 || result[0].Title != "Budget debate" {
		t.Fatalf("Expected only 'Budget debate', got %v", result)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
}

func TestFilterer_SourceAndTags(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "A", Source: "Le Monde", Tags: []string{"Jane Doe"}},
		{Title: "B", Source: "Example Blog", Tags: []string{"John Roe"}},
		{Title: "C", Source: "Le Monde", Tags: []string{}},
	}

	tabConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "source", Includes: []string{"monde"}},
			{Field: "tags", Includes: []string{"jane"}},
		},
	}

	result, _ := filterer.Run(items, tabConfig)

	if len(result) != 1 || result[0].Title != "A" {
		t.Errorf("Expected only item A, got %v", result)
	}
}

func TestFilterer_UnknownFieldMatchesNothing(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{{Title: "A", Link: "https://example.com/a"}}
	tabConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "author", Includes: []string{"x"}},
		},
	}

	result, removed := filterer.Run(items, tabConfig)
	if len(result) != 0 || removed != 1 {
		t.Errorf("Expected item removed by include on empty field, got %d kept", len(result))
	}
}
