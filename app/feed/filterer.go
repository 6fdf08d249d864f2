package feed

import (
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops items rejected by the tab's keyword filters and returns the
// kept items with the number removed.
func (f *Filterer) Run(items []Item, tabConfig *Config) ([]Item, int) {
	if len(tabConfig.Filters) == 0 {
		return items, 0
	}

	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if f.isFiltered(item, tabConfig.Filters) {
			continue
		}
		kept = append(kept, item)
	}

	return kept, len(items) - len(kept)
}

func (f *Filterer) isFiltered(item Item, filters []ConfigFilter) bool {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true
			}
		}
	}

	return false
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "summary":
		return item.Summary
	case "link":
		return item.Link
	case "source":
		return item.Source
	case "tags":
		return strings.Join(item.Tags, " ")
	default:
		return ""
	}
}
