package aggregator

import (
	"log/slog"

	"github.com/lysyi3m/veille/app/feed"
	"github.com/lysyi3m/veille/app/roster"
)

// Sources lists the feeds of a tab: its plain feeds first, untagged, then,
// for social tabs, the feeds derived from every person of the roster.
// A roster that cannot be loaded is logged and treated as empty.
func Sources(tabConfig *feed.Config, rosterPath string) []Source {
	sources := make([]Source, 0, len(tabConfig.Feeds))
	for _, u := range tabConfig.Feeds {
		sources = append(sources, Source{URL: u})
	}

	if !tabConfig.IsSocial() || rosterPath == "" {
		return sources
	}

	people, err := roster.Load(rosterPath)
	if err != nil {
		slog.Error("Roster unavailable, continuing without people", "tab", tabConfig.Name, "path", rosterPath, "error", err)
		return sources
	}

	return append(sources, PersonSources(tabConfig.Social, people)...)
}

// PersonSources expands each person into its deduplicated feed URLs.
func PersonSources(social *feed.SocialConfig, people []roster.Person) []Source {
	opts := roster.ExpandOptions{
		Mirrors:       social.Mirrors,
		NewsSearchURL: social.NewsSearch.BaseURL,
		Locale:        social.NewsSearch.Locale,
	}

	var sources []Source
	for _, p := range people {
		urls := p.FeedURLs(opts)
		if len(urls) == 0 {
			slog.Warn("No feeds for person", "person", p.Name)
			continue
		}
		for _, u := range urls {
			sources = append(sources, Source{URL: u, Person: p.Name})
		}
	}

	return sources
}
