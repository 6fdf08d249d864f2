package roster

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSequenceRoot(t *testing.T) {
	data := `
- name: Jane Doe
  x_handle: "@janedoe"
- name: "John Roe"
  custom_feeds:
    - https://blog.example.com/feed
    - "  "
`
	people, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(people) != 2 {
		t.Fatalf("Expected 2 people, got: %d", len(people))
	}
	if people[0].Name != "Jane Doe" || people[0].XHandle != "janedoe" {
		t.Errorf("Expected Jane Doe / janedoe, got: %+v", people[0])
	}
	if len(people[1].CustomFeeds) != 1 || people[1].CustomFeeds[0] != "https://blog.example.com/feed" {
		t.Errorf("Expected one trimmed custom feed, got: %v", people[1].CustomFeeds)
	}
}

func TestParseMappingRoot(t *testing.T) {
	data := `{"people": [{"name": "Jane Doe", "x_handle": "janedoe"}]}`

	people, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(people) != 1 || people[0].Name != "Jane Doe" {
		t.Errorf("Expected Jane Doe, got: %+v", people)
	}
}

func TestParseSkipsMalformedEntries(t *testing.T) {
	data := `
- name: Jane Doe
- "just a string"
- x_handle: nobody
- name: [not, a, string]
- name: John Roe
`
	people, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(people) != 2 {
		t.Fatalf("Expected 2 people, got: %d (%+v)", len(people), people)
	}
	if people[0].Name != "Jane Doe" || people[1].Name != "John Roe" {
		t.Errorf("Expected [Jane Doe John Roe], got: %+v", people)
	}
}

func TestParseInvalidRoots(t *testing.T) {
	for _, data := range []string{"people: nope", "other: []", "just text", "- [unclosed"} {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("Expected error for %q", data)
		}
	}

	people, err := Parse([]byte(""))
	if err != nil || len(people) != 0 {
		t.Errorf("Expected empty roster for empty document, got %v, %v", people, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	people, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got: %v", err)
	}
	if people == nil || len(people) != 0 {
		t.Errorf("Expected empty roster, got: %v", people)
	}
}

func TestLoadFailureIsLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.yml")
	if err := os.WriteFile(path, []byte("people: 42"), 0644); err != nil {
		t.Fatal(err)
	}

	people, err := Load(path)
	if len(people) != 0 {
		t.Errorf("Expected empty roster on failure, got: %v", people)
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError, got: %T", err)
	}
	if loadErr.Path != path {
		t.Errorf("Expected path %s, got: %s", path, loadErr.Path)
	}
}

func TestFeedURLsWithHandle(t *testing.T) {
	p := Person{Name: "Jane Doe", XHandle: "janedoe"}
	opts := ExpandOptions{
		Mirrors:       []string{"https://nitter.example/", "https://mirror.example"},
		NewsSearchURL: "https://news.google.com/rss/search",
		Locale:        "fr-FR",
	}

	urls := p.FeedURLs(opts)

	expected := []string{
		"https://news.google.com/rss/search?q=%22Jane%20Doe%22&hl=fr&gl=FR&ceid=FR:fr",
		"https://nitter.example/janedoe/rss",
		"https://mirror.example/janedoe/rss",
	}
	if len(urls) != len(expected) {
		t.Fatalf("Expected %d URLs, got: %v", len(expected), urls)
	}
	for i := range expected {
		if urls[i] != expected[i] {
			t.Errorf("Expected %s at %d, got: %s", expected[i], i, urls[i])
		}
	}
}

func TestFeedURLsDeduplicated(t *testing.T) {
	p := Person{
		Name:        "Jane Doe",
		XHandle:     "janedoe",
		CustomFeeds: []string{"https://nitter.example/janedoe/rss", "https://blog.example/feed", "https://blog.example/feed"},
	}
	opts := ExpandOptions{
		Mirrors:       []string{"https://nitter.example", "https://nitter.example/"},
		NewsSearchURL: "https://news.example/rss/search",
		Locale:        "en-US",
	}

	urls := p.FeedURLs(opts)

	if len(urls) != 3 {
		t.Fatalf("Expected 3 unique URLs, got: %v", urls)
	}
	if !strings.Contains(urls[0], "hl=en&gl=US&ceid=US:en") {
		t.Errorf("Expected en-US locale parts, got: %s", urls[0])
	}
	if urls[2] != "https://blog.example/feed" {
		t.Errorf("Expected custom feed last, got: %s", urls[2])
	}
}

func TestFeedURLsWithoutHandle(t *testing.T) {
	p := Person{Name: "John Roe"}
	urls := p.FeedURLs(ExpandOptions{
		Mirrors:       []string{"https://nitter.example"},
		NewsSearchURL: "https://news.example/search?src=rss",
		Locale:        "fr-FR",
	})

	if len(urls) != 1 {
		t.Fatalf("Expected only the news search URL, got: %v", urls)
	}
	if !strings.HasPrefix(urls[0], "https://news.example/search?src=rss&q=") {
		t.Errorf("Expected query appended with '&', got: %s", urls[0])
	}
}

func TestNewsSearchURLInvalidLocale(t *testing.T) {
	got := NewsSearchURL("https://news.example/search", "not a locale!!", "A&B")
	expected := "https://news.example/search?q=%22A%26B%22&hl=fr&gl=FR&ceid=FR:fr"
	if got != expected {
		t.Errorf("Expected %s, got: %s", expected, got)
	}
}
