package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for session and bookmark endpoints (optional)"`

	// Storage configuration
	ChannelsDir string `long:"channels-dir" env:"CHANNELS_DIR" default:"./channels" description:"Directory containing channel configuration files"`
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./newsdesk.db" description:"SQLite database file for bookmarks"`
	RedisURL    string `long:"redis-url" env:"REDIS_URL" description:"Redis URL for the shared fetch cache (in-process cache when empty)"`

	// Pipeline configuration
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers"`
	FetchWorkers      int `long:"fetch-workers" env:"FETCH_WORKERS" default:"5" description:"Concurrent feed fetches per refresh cycle"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	RefreshInterval   int `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"60" description:"Minimum seconds between live refreshes of a channel"`
	FetchTimeout      int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Per-feed fetch timeout in seconds"`
	CacheTTL          int `long:"cache-ttl" env:"CACHE_TTL" default:"60" description:"Seconds a fetched feed is reused before refetching (0 disables)"`
	LookbackMinutes   int `long:"lookback-minutes" env:"LOOKBACK_MINUTES" default:"0" description:"Default lookback window in minutes for new sessions (0 disables)"`
	SessionTTL        int `long:"session-ttl" env:"SESSION_TTL" default:"43200" description:"Seconds an idle session is kept"`
	ExtractBatch      int `long:"extract-batch" env:"EXTRACT_BATCH" default:"10" description:"Bookmarks whose readable content is extracted per scheduler tick (0 disables)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; Newsdesk/1.0)" description:"User agent string for feed requests"`
	Timezone  string `long:"timezone" env:"DISPLAY_TZ" default:"Asia/Kolkata" description:"Display timezone for article timestamps"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads .env (if present), environment variables and command-line flags.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := LoadArgs(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	globalCfg = cfg

	return cfg, nil
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		ChannelsDir:       raw.ChannelsDir,
		DBPath:            raw.DBPath,
		RedisURL:          raw.RedisURL,
		WorkerCount:       raw.WorkerCount,
		FetchWorkers:      raw.FetchWorkers,
		SchedulerInterval: raw.SchedulerInterval,
		RefreshInterval:   raw.RefreshInterval,
		FetchTimeout:      raw.FetchTimeout,
		CacheTTL:          raw.CacheTTL,
		LookbackMinutes:   raw.LookbackMinutes,
		SessionTTL:        raw.SessionTTL,
		ExtractBatch:      raw.ExtractBatch,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		slog.Warn("Invalid display timezone, falling back to UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}
	cfg.Location = loc

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	positiveFields := map[string]int{
		"worker count":       cfg.WorkerCount,
		"fetch workers":      cfg.FetchWorkers,
		"scheduler interval": cfg.SchedulerInterval,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	nonNegativeFields := map[string]int{
		"refresh interval": cfg.RefreshInterval,
		"fetch timeout":    cfg.FetchTimeout,
		"cache ttl":        cfg.CacheTTL,
		"lookback minutes": cfg.LookbackMinutes,
		"session ttl":      cfg.SessionTTL,
		"extract batch":    cfg.ExtractBatch,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}
