package roster

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Person is one tracked entry of the social roster.
type Person struct {
	Name        string   `yaml:"name"`
	XHandle     string   `yaml:"x_handle"`
	CustomFeeds []string `yaml:"custom_feeds"`
}

// LoadError reports a roster file that exists but could not be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load roster %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads the roster at path. The document root is either a sequence of
// people or a mapping with a "people" sequence. Entries are decoded one at a
// time and malformed ones are skipped. A missing file yields an empty roster
// and no error; any other failure yields an empty roster and a *LoadError.
func Load(path string) ([]Person, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Roster file not found", "path", path)
			return []Person{}, nil
		}
		return []Person{}, &LoadError{Path: path, Err: err}
	}

	people, err := Parse(data)
	if err != nil {
		return []Person{}, &LoadError{Path: path, Err: err}
	}

	return people, nil
}

func Parse(data []byte) ([]Person, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// empty document
	if len(doc.Content) == 0 {
		return []Person{}, nil
	}

	entries, err := entryNodes(doc.Content[0])
	if err != nil {
		return nil, err
	}

	people := make([]Person, 0, len(entries))
	for i, node := range entries {
		var p Person
		if err := node.Decode(&p); err != nil {
			slog.Warn("Skipping malformed roster entry", "index", i, "line", node.Line, "error", err)
			continue
		}

		p = p.normalized()
		if p.Name == "" {
			slog.Warn("Skipping roster entry without name", "index", i, "line", node.Line)
			continue
		}
		people = append(people, p)
	}

	return people, nil
}

func entryNodes(root *yaml.Node) ([]*yaml.Node, error) {
	switch root.Kind {
	case yaml.SequenceNode:
		return root.Content, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "people" {
				value := root.Content[i+1]
				if value.Kind != yaml.SequenceNode {
					return nil, fmt.Errorf("'people' must be a list, got line %d", value.Line)
				}
				return value.Content, nil
			}
		}
		return nil, fmt.Errorf("mapping root has no 'people' list")
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("unsupported roster root at line %d", root.Line)
}

func (p Person) normalized() Person {
	p.Name = strings.TrimSpace(p.Name)
	p.XHandle = strings.TrimPrefix(strings.TrimSpace(p.XHandle), "@")

	feeds := make([]string, 0, len(p.CustomFeeds))
	for _, f := range p.CustomFeeds {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	p.CustomFeeds = feeds

	return p
}

// ExpandOptions configures how a person is turned into feed URLs.
type ExpandOptions struct {
	Mirrors       []string
	NewsSearchURL string
	Locale        string
}

// FeedURLs derives the feeds to fetch for p: the news search for the name,
// one mirror feed per configured mirror when a handle is set, then the
// custom feeds. Duplicates are removed keeping the first position.
func (p Person) FeedURLs(opts ExpandOptions) []string {
	urls := make([]string, 0, 1+len(opts.Mirrors)+len(p.CustomFeeds))
	seen := make(map[string]struct{})

	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	add(NewsSearchURL(opts.NewsSearchURL, opts.Locale, p.Name))

	if p.XHandle != "" {
		for _, mirror := range opts.Mirrors {
			add(MirrorURL(mirror, p.XHandle))
		}
	}

	for _, f := range p.CustomFeeds {
		add(f)
	}

	return urls
}

// NewsSearchURL builds a quoted-name search feed URL, for example
// https://news.google.com/rss/search?q=%22Jane%20Doe%22&hl=fr&gl=FR&ceid=FR:fr
func NewsSearchURL(baseURL, locale, name string) string {
	if baseURL == "" || name == "" {
		return ""
	}

	lang, region := localeParts(locale)
	query := strings.ReplaceAll(url.QueryEscape(`"`+name+`"`), "+", "%20")

	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%sq=%s&hl=%s&gl=%s&ceid=%s:%s", baseURL, sep, query, lang, region, region, lang)
}

func MirrorURL(mirror, handle string) string {
	mirror = strings.TrimRight(strings.TrimSpace(mirror), "/")
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if mirror == "" || handle == "" {
		return ""
	}
	return mirror + "/" + url.PathEscape(handle) + "/rss"
}

func localeParts(locale string) (string, string) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse("fr-FR")
	}

	base, _ := tag.Base()
	region, _ := tag.Region()

	return base.String(), region.String()
}
