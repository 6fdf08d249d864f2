package cfg

import "time"

type Cfg struct {
	// Storage
	TabsDir   string
	OutputDir string
	DBPath    string

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	FetchConcurrency  int
	SchedulerInterval int
	APIAccessKey      string

	// Batch mode
	Once bool
	Tabs []string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetSchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerInterval) * time.Second
}
