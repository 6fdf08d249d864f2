package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxItems       = 300
	DefaultSocialMaxItems = 400
	DefaultNewsSearchURL  = "https://news.google.com/rss/search"
	DefaultNewsLocale     = "fr-FR"
)

var tabNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

type ConfigCache struct {
	tabsDir string
	cache   map[string]*Config
	mu      sync.RWMutex
}

func NewConfigCache(tabsDir string) *ConfigCache {
	return &ConfigCache{
		tabsDir: tabsDir,
		cache:   make(map[string]*Config),
	}
}

func (cc *ConfigCache) TabsDir() string {
	return cc.tabsDir
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.tabsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.tabsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		tabName := strings.TrimSuffix(filepath.Base(file), ".yml")

		tabConfig, err := cc.LoadConfig(tabName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "tab", tabName, "enabled", tabConfig.Settings.Enabled, "feeds", len(tabConfig.Feeds), "social", tabConfig.IsSocial())
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(tabName string) (*Config, error) {
	configFile := cc.getConfigFilePath(tabName)
	tabConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	tabConfig.Name = tabName
	cc.applyDefaults(tabConfig)

	if err := cc.validateConfig(tabConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[tabConfig.Name] = tabConfig

	return tabConfig, nil
}

func (cc *ConfigCache) GetConfig(tabName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	tabConfig, ok := cc.cache[tabName]
	if !ok {
		return nil, fmt.Errorf("tab config with name '%s' not found", tabName)
	}
	return tabConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

// GetEnabledConfigs returns enabled tabs sorted by name.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabled = append(enabled, v)
		}
	}
	sort.Slice(enabled, func(i, j int) bool {
		return enabled[i].Name < enabled[j].Name
	})
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

// RosterPath resolves the roster file of a social tab against the tabs dir.
func (cc *ConfigCache) RosterPath(tabConfig *Config) string {
	if tabConfig.Social == nil || tabConfig.Social.Roster == "" {
		return ""
	}
	if filepath.IsAbs(tabConfig.Social.Roster) {
		return tabConfig.Social.Roster
	}
	return filepath.Join(cc.tabsDir, tabConfig.Social.Roster)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var tabConfig Config
	if err := yaml.Unmarshal(data, &tabConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &tabConfig, nil
}

func (cc *ConfigCache) applyDefaults(tabConfig *Config) {
	if tabConfig.Settings.RefreshInterval == 0 {
		tabConfig.Settings.RefreshInterval = 3600
	}
	if tabConfig.Settings.MaxItems == 0 {
		if tabConfig.IsSocial() {
			tabConfig.Settings.MaxItems = DefaultSocialMaxItems
		} else {
			tabConfig.Settings.MaxItems = DefaultMaxItems
		}
	}
	if tabConfig.Settings.Timeout == 0 {
		tabConfig.Settings.Timeout = 20
	}
	if tabConfig.Settings.IDScheme == "" {
		tabConfig.Settings.IDScheme = IDSchemeHash
	}
	if tabConfig.Social != nil {
		if tabConfig.Social.NewsSearch.BaseURL == "" {
			tabConfig.Social.NewsSearch.BaseURL = DefaultNewsSearchURL
		}
		if tabConfig.Social.NewsSearch.Locale == "" {
			tabConfig.Social.NewsSearch.Locale = DefaultNewsLocale
		}
	}
}

func (cc *ConfigCache) validateConfig(tabConfig *Config) error {
	if tabConfig == nil {
		return fmt.Errorf("tabConfig is nil")
	}

	if !tabNamePattern.MatchString(tabConfig.Name) {
		return fmt.Errorf("tab name '%s' must be lowercase letters, digits, '-' or '_'", tabConfig.Name)
	}

	if len(tabConfig.Feeds) == 0 && !tabConfig.IsSocial() {
		return fmt.Errorf("at least one feed URL is required")
	}

	for i, feedURL := range tabConfig.Feeds {
		if strings.TrimSpace(feedURL) == "" {
			return fmt.Errorf("feed URL at index %d is empty", i)
		}
	}

	nonNegativeFields := map[string]int{
		"refresh interval": tabConfig.Settings.RefreshInterval,
		"max items":        tabConfig.Settings.MaxItems,
		"timeout":          tabConfig.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if !ValidIDScheme(tabConfig.Settings.IDScheme) {
		return fmt.Errorf("invalid id scheme: %s", tabConfig.Settings.IDScheme)
	}

	if tabConfig.Social != nil && tabConfig.Social.Roster == "" && len(tabConfig.Feeds) == 0 {
		return fmt.Errorf("social tab needs a roster or at least one feed URL")
	}

	validFields := map[string]bool{
		"title":   true,
		"summary": true,
		"link":    true,
		"source":  true,
		"tags":    true,
	}

	for i, filter := range tabConfig.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(tabName string) string {
	return filepath.Join(cc.tabsDir, tabName+".yml")
}
