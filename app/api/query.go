package api

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lysyi3m/veille/app/feed"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

const (
	SortDateDesc = "date-desc"
	SortDateAsc  = "date-asc"
	SortTitle    = "title"
)

var dateWindows = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ItemQuery selects, orders and pages snapshot items for presentation.
type ItemQuery struct {
	Tab      string
	Search   string
	Tags     []string
	Sources  []string
	Since    time.Time
	Window   time.Duration
	Sort     string
	Page     int
	PageSize int
}

// ParseItemQuery reads the item filters from URL query values. Malformed
// paging values fall back to their defaults; malformed filters are errors.
func ParseItemQuery(values url.Values) (*ItemQuery, error) {
	q := &ItemQuery{
		Tab:      strings.TrimSpace(values.Get("tab")),
		Search:   strings.TrimSpace(values.Get("search")),
		Tags:     splitList(values.Get("tags")),
		Sources:  splitList(values.Get("sources")),
		Sort:     cmp.Or(values.Get("sort"), SortDateDesc),
		Page:     1,
		PageSize: defaultPageSize,
	}

	if since := values.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, fmt.Errorf("invalid since value: %q", since)
		}
		q.Since = t
	}

	if date := values.Get("date"); date != "" && date != "all" {
		window, ok := dateWindows[date]
		if !ok {
			return nil, fmt.Errorf("invalid date filter: %q", date)
		}
		q.Window = window
	}

	switch q.Sort {
	case SortDateDesc, SortDateAsc, SortTitle:
	case "title-asc":
		q.Sort = SortTitle
	default:
		return nil, fmt.Errorf("invalid sort: %q", q.Sort)
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 1 {
		q.Page = page
	}
	if size, err := strconv.Atoi(values.Get("pageSize")); err == nil && size != 0 {
		q.PageSize = min(max(size, 1), maxPageSize)
	}

	return q, nil
}

func splitList(value string) []string {
	var list []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}

// Match reports whether the item passes every filter of the query.
func (q *ItemQuery) Match(item feed.Item, now time.Time) bool {
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(item.Summary), needle) {
			return false
		}
	}

	if len(q.Sources) > 0 && !slices.Contains(q.Sources, item.Source) {
		return false
	}

	if len(q.Tags) > 0 && !slices.ContainsFunc(q.Tags, func(tag string) bool {
		return slices.Contains(item.Tags, tag)
	}) {
		return false
	}

	if !q.Since.IsZero() || q.Window > 0 {
		date, err := time.Parse(time.RFC3339, item.DateISO)
		if err != nil {
			return false
		}
		if !q.Since.IsZero() && date.Before(q.Since) {
			return false
		}
		if q.Window > 0 && now.Sub(date) > q.Window {
			return false
		}
	}

	return true
}

// Select filters and orders items. Pinned items always come first, each
// group keeping the requested order.
func (q *ItemQuery) Select(items []feed.Item, now time.Time) []feed.Item {
	selected := make([]feed.Item, 0, len(items))
	for _, item := range items {
		if q.Match(item, now) {
			selected = append(selected, item)
		}
	}

	switch q.Sort {
	case SortDateAsc:
		slices.SortStableFunc(selected, func(a, b feed.Item) int {
			return strings.Compare(a.DateISO, b.DateISO)
		})
	case SortTitle:
		collator := collate.New(language.French, collate.IgnoreCase)
		slices.SortStableFunc(selected, func(a, b feed.Item) int {
			return collator.CompareString(a.Title, b.Title)
		})
	default:
		slices.SortStableFunc(selected, func(a, b feed.Item) int {
			return strings.Compare(b.DateISO, a.DateISO)
		})
	}

	slices.SortStableFunc(selected, func(a, b feed.Item) int {
		switch {
		case a.Pinned == b.Pinned:
			return 0
		case a.Pinned:
			return -1
		default:
			return 1
		}
	})

	return selected
}

// Paginate returns the requested page of items. Pages past the end are empty.
func (q *ItemQuery) Paginate(items []feed.Item) []feed.Item {
	size := max(q.PageSize, 1)
	pages := (len(items) + size - 1) / size
	if q.Page < 1 || q.Page > pages {
		return []feed.Item{}
	}
	start := (q.Page - 1) * size
	end := min(start+size, len(items))
	return items[start:end]
}
