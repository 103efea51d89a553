package cfg

import "time"

type Cfg struct {
	// HTTP configuration
	Port         string
	APIAccessKey string

	// Storage configuration
	ChannelsDir string
	DBPath      string
	RedisURL    string

	// Pipeline configuration
	WorkerCount       int
	FetchWorkers      int
	SchedulerInterval int
	RefreshInterval   int
	FetchTimeout      int
	CacheTTL          int
	LookbackMinutes   int
	SessionTTL        int
	ExtractBatch      int

	// Application metadata
	UserAgent string
	Timezone  string
	Location  *time.Location
	Debug     bool
	Version   string
}

func (c *Cfg) GetRefreshInterval() time.Duration {
	if c.RefreshInterval <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RefreshInterval) * time.Second
}

func (c *Cfg) GetFetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.FetchTimeout) * time.Second
}

func (c *Cfg) GetCacheTTL() time.Duration {
	if c.CacheTTL < 0 {
		return 0
	}
	return time.Duration(c.CacheTTL) * time.Second
}

func (c *Cfg) GetLookback() time.Duration {
	if c.LookbackMinutes <= 0 {
		return 0
	}
	return time.Duration(c.LookbackMinutes) * time.Minute
}

func (c *Cfg) GetSessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.SessionTTL) * time.Second
}
