package feed

import (
	"cmp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

// NormalizeOptions carries the per-feed context an entry cannot provide itself.
type NormalizeOptions struct {
	TabKey         string
	Person         string // seeds Tags when set
	SourceFallback string // used when the feed has no title, typically the hostname
	IDScheme       IDScheme
	Now            time.Time // ingestion time, used for entries without a usable date
}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run maps every entry of doc to an Item in document order. Entries without
// a title or link are dropped and counted in the second return value.
func (n *Normalizer) Run(doc *Document, opts NormalizeOptions) ([]Item, int) {
	if doc == nil {
		return nil, 0
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	switch doc.Kind {
	case DocumentRSS:
		return normalizeRSS(doc.RSS, opts)
	case DocumentAtom:
		return normalizeAtom(doc.Atom, opts)
	default:
		return nil, 0
	}
}

func normalizeRSS(channel *rss.Feed, opts NormalizeOptions) ([]Item, int) {
	if channel == nil {
		return nil, 0
	}

	source := cmp.Or(StripMarkup(channel.Title), opts.SourceFallback)
	items := make([]Item, 0, len(channel.Items))
	dropped := 0

	for _, entry := range channel.Items {
		if entry == nil {
			continue
		}

		raw := RawEntry{
			Link:      rssLink(entry),
			Title:     entry.Title,
			Timestamp: entry.PubDate,
		}
		if entry.GUID != nil {
			raw.GUID = strings.TrimSpace(entry.GUID.Value)
		}

		published := opts.Now
		if entry.PubDateParsed != nil {
			published = *entry.PubDateParsed
		}

		item, ok := buildItem(raw, entry.Description, source, published, opts)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}

	return items, dropped
}

func normalizeAtom(atomFeed *atom.Feed, opts NormalizeOptions) ([]Item, int) {
	if atomFeed == nil {
		return nil, 0
	}

	source := cmp.Or(StripMarkup(atomFeed.Title), opts.SourceFallback)
	items := make([]Item, 0, len(atomFeed.Entries))
	dropped := 0

	for _, entry := range atomFeed.Entries {
		if entry == nil {
			continue
		}

		summary := entry.Summary
		if summary == "" && entry.Content != nil {
			summary = entry.Content.Value
		}

		raw := RawEntry{
			GUID:      strings.TrimSpace(entry.ID),
			Link:      atomLink(entry.Links),
			Title:     entry.Title,
			Timestamp: cmp.Or(entry.Updated, entry.Published),
		}

		published := opts.Now
		if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		} else if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}

		item, ok := buildItem(raw, summary, source, published, opts)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}

	return items, dropped
}

func buildItem(raw RawEntry, summary, source string, published time.Time, opts NormalizeOptions) (Item, bool) {
	title := StripMarkup(raw.Title)
	if title == "" || raw.Link == "" {
		return Item{}, false
	}

	tags := []string{}
	if opts.Person != "" {
		tags = append(tags, opts.Person)
	}

	return Item{
		ID:      AssignID(raw, opts.TabKey, opts.IDScheme),
		Title:   title,
		Summary: StripMarkup(summary),
		Link:    raw.Link,
		Source:  source,
		Tags:    tags,
		DateISO: FormatDate(published),
		Pinned:  false,
		Read:    false,
		TabKey:  opts.TabKey,
	}, true
}

// rssLink prefers the <link> text and falls back to an href-bearing
// <atom:link> carried inside the item.
func rssLink(entry *rss.Item) string {
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}
	for _, l := range entry.Extensions["atom"]["link"] {
		if href := strings.TrimSpace(l.Attrs["href"]); href != "" {
			return href
		}
	}
	return ""
}

// atomLink prefers a link tagged rel="alternate", then a link without rel
// (alternate by default in Atom), then the first link.
func atomLink(links []*atom.Link) string {
	var alternate, untagged, first string
	for _, l := range links {
		if l == nil {
			continue
		}
		href := strings.TrimSpace(l.Href)
		if href == "" {
			continue
		}
		switch {
		case strings.EqualFold(l.Rel, "alternate"):
			if alternate == "" {
				alternate = href
			}
		case l.Rel == "":
			if untagged == "" {
				untagged = href
			}
		}
		if first == "" {
			first = href
		}
	}
	return cmp.Or(alternate, untagged, first)
}
