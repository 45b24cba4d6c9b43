package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./shortkki.db" description:"Path to the SQLite database file"`

	// Application configuration
	SectionsDir       string `long:"sections-dir" env:"SECTIONS_DIR" default:"./sections" description:"Directory containing curated section configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://feed.shortkki.app)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for section ingest"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Feed session configuration
	MockMode         bool `long:"mock-mode" env:"MOCK_MODE" description:"Drive feed sessions from the in-memory mock collaborators instead of the REST backend"`
	Simulate         bool `long:"simulate" env:"SIMULATE" description:"Run a scripted feed session instead of the server and exit"`
	PageSize         int  `long:"page-size" env:"PAGE_SIZE" default:"10" description:"Curated section page size"`
	PrefetchDistance int  `long:"prefetch-distance" env:"PREFETCH_DISTANCE" default:"3" description:"How close to the tail the active index may get before the next page is requested"`
	SettleDelayMs    int  `long:"settle-delay" env:"SETTLE_DELAY_MS" default:"300" description:"Delay in milliseconds between seek and play when an item becomes active"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Shortkki Feed/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Seoul)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SectionsDir:       raw.SectionsDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		MockMode:          raw.MockMode,
		Simulate:          raw.Simulate,
		PageSize:          raw.PageSize,
		PrefetchDistance:  raw.PrefetchDistance,
		SettleDelayMs:     raw.SettleDelayMs,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests and the simulate mode.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
