package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/veille/app/feed"
)

const DefaultConcurrency = 8

// Source is one feed URL of a tab. Person is set for roster-derived feeds
// and becomes the sole tag of their items.
type Source struct {
	URL    string
	Person string
}

type SourceState int

const (
	StatePending SourceState = iota
	StateFetched
	StateParsed
	StateNormalized
	StateMerged
	StateFailed
)

func (s SourceState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetched:
		return "fetched"
	case StateParsed:
		return "parsed"
	case StateNormalized:
		return "normalized"
	case StateMerged:
		return "merged"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SourceResult is the outcome of one source. Err is set only when State is
// StateFailed.
type SourceResult struct {
	Source  Source
	State   SourceState
	Items   []feed.Item
	Dropped int
	Err     error
}

type Result struct {
	Items      []feed.Item
	UpdatedAt  time.Time
	Sources    []SourceResult
	Failed     int
	Duplicates int
	Dropped    int
	Filtered   int
}

type Aggregator struct {
	fetcher     *feed.Fetcher
	parser      *feed.Parser
	normalizer  *feed.Normalizer
	filterer    *feed.Filterer
	concurrency int
	now         func() time.Time
}

func NewAggregator(fetcher *feed.Fetcher, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		fetcher:     fetcher,
		parser:      feed.NewParser(),
		normalizer:  feed.NewNormalizer(),
		filterer:    feed.NewFilterer(),
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run fetches every source of the tab with bounded concurrency and merges the
// results: concatenation in source order, dedup by link, keyword filters,
// newest first, capped at the tab's max items. A failing source never fails
// the run.
func (a *Aggregator) Run(ctx context.Context, tabConfig *feed.Config, sources []Source) *Result {
	runAt := a.now()
	results := make([]SourceResult, len(sources))

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for i, src := range sources {
		results[i] = SourceResult{Source: src, State: StatePending}
		g.Go(func() error {
			a.runSource(ctx, tabConfig, &results[i], runAt)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		UpdatedAt: runAt,
		Sources:   results,
	}

	var merged []feed.Item
	for i := range results {
		sr := &results[i]
		res.Dropped += sr.Dropped
		if sr.State == StateFailed {
			res.Failed++
			continue
		}
		merged = append(merged, sr.Items...)
		sr.State = StateMerged
	}

	merged, res.Duplicates = feed.Dedup(merged)
	merged, res.Filtered = a.filterer.Run(merged, tabConfig)

	slices.SortStableFunc(merged, func(x, y feed.Item) int {
		return strings.Compare(y.DateISO, x.DateISO)
	})

	if limit := tabConfig.Settings.MaxItems; limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	if merged == nil {
		merged = []feed.Item{}
	}
	res.Items = merged

	return res
}

func (a *Aggregator) runSource(ctx context.Context, tabConfig *feed.Config, sr *SourceResult, runAt time.Time) {
	log := slog.With("tab", tabConfig.Name, "url", sr.Source.URL)
	if sr.Source.Person != "" {
		log = log.With("person", sr.Source.Person)
	}

	data, err := a.fetcher.Run(ctx, sr.Source.URL, tabConfig.Settings.GetTimeout())
	if err != nil {
		a.fail(log, sr, err)
		return
	}
	sr.State = StateFetched

	doc, err := a.parser.Run(data)
	if err != nil {
		a.fail(log, sr, err)
		return
	}
	if doc.Kind == feed.DocumentUnrecognized {
		a.fail(log, sr, &feed.ParseError{Format: "json", Err: feed.ErrUnsupportedFormat})
		return
	}
	sr.State = StateParsed

	sr.Items, sr.Dropped = a.normalizer.Run(doc, feed.NormalizeOptions{
		TabKey:         tabConfig.Name,
		Person:         sr.Source.Person,
		SourceFallback: hostname(sr.Source.URL),
		IDScheme:       tabConfig.Settings.IDScheme,
		Now:            runAt,
	})
	sr.State = StateNormalized

	log.Debug("Feed normalized", "format", doc.Kind.String(), "items", len(sr.Items), "dropped", sr.Dropped)
}

func (a *Aggregator) fail(log *slog.Logger, sr *SourceResult, err error) {
	attrs := []any{"state", sr.State.String(), "error", err}

	var fetchErr *feed.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		attrs = append(attrs, "status", fetchErr.StatusCode)
	}

	sr.State = StateFailed
	sr.Err = err
	log.Warn("Feed failed", attrs...)
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if h := u.Hostname(); h != "" {
		return h
	}
	return raw
}
