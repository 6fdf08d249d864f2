package feed

import (
	"time"
)

// Item is the canonical record produced for every qualifying feed entry.
type Item struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Link    string   `json:"link"`
	Source  string   `json:"source"`
	Tags    []string `json:"tags"`
	DateISO string   `json:"dateISO"`
	Pinned  bool     `json:"pinned"`
	Read    bool     `json:"read"`
	TabKey  string   `json:"tab_key"`
}

// DateLayout matches the shape of JavaScript's Date.toISOString, which keeps
// lexical and chronological order identical for UTC values.
const DateLayout = "2006-01-02T15:04:05.000Z"

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Title    string         `yaml:"title"`
	Feeds    []string       `yaml:"feeds"`
	Settings ConfigSettings `yaml:"settings"`
	Social   *SocialConfig  `yaml:"social"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool     `yaml:"enabled"`
	RefreshInterval int      `yaml:"refresh_interval"` // seconds
	MaxItems        int      `yaml:"max_items"`
	Timeout         int      `yaml:"timeout"` // seconds, per fetch
	IDScheme        IDScheme `yaml:"id_scheme"`
}

type SocialConfig struct {
	Roster     string           `yaml:"roster"`
	Mirrors    []string         `yaml:"mirrors"`
	NewsSearch NewsSearchConfig `yaml:"news_search"`
}

type NewsSearchConfig struct {
	BaseURL string `yaml:"base_url"`
	Locale  string `yaml:"locale"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

func (c *Config) IsSocial() bool {
	return c.Social != nil
}

func (c *Config) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

func (s *ConfigSettings) GetRefreshInterval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 3600 * time.Second
	}
	return time.Duration(s.RefreshInterval) * time.Second
}

func (s *ConfigSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 20 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}
