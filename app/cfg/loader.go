package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	TabsDir   string `long:"tabs-dir" env:"TABS_DIR" default:"./tabs" description:"Directory containing tab configuration files"`
	OutputDir string `long:"output-dir" env:"OUTPUT_DIR" default:"./data" description:"Directory where tab snapshots are written"`
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/veille.db" description:"SQLite database for read/pin state and run history"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://veille.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of tabs aggregated in parallel"`
	FetchConcurrency  int    `long:"fetch-concurrency" env:"FETCH_CONCURRENCY" default:"8" description:"Maximum concurrent feed fetches per tab"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Batch mode
	Once bool     `long:"once" env:"ONCE" description:"Aggregate every enabled tab once and exit"`
	Tabs []string `long:"tab" description:"Restrict --once to the given tab (repeatable)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Veille/1.0 (+https://github.com/lysyi3m/veille)" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Paris)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// ErrHelp is returned when --help was requested and printed.
var ErrHelp = errors.New("help requested")

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		TabsDir:           raw.TabsDir,
		OutputDir:         raw.OutputDir,
		DBPath:            raw.DBPath,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		FetchConcurrency:  raw.FetchConcurrency,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		Once:              raw.Once,
		Tabs:              raw.Tabs,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Cfg) validate() error {
	positive := map[string]int{
		"worker-count":       c.WorkerCount,
		"fetch-concurrency":  c.FetchConcurrency,
		"scheduler-interval": c.SchedulerInterval,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("--%s must be positive, got %d", name, value)
		}
	}
	if len(c.Tabs) > 0 && !c.Once {
		return fmt.Errorf("--tab requires --once")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
