package main

import (
	"time"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

const (
	defaultFormat         = "text"
	defaultTimezone       = "UTC"
	defaultWorkers        = model.DefaultWorkers
	defaultTopK           = model.DefaultTopK
	defaultQueryTimeout   = model.DefaultQueryTimeout
	defaultCacheRetention = model.DefaultCacheRetention // days, 0 = disabled
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Path           string        `mapstructure:"path"`
	Month          string        `mapstructure:"month"`
	Format         string        `mapstructure:"format"`
	Cache          bool          `mapstructure:"cache"`
	DBPath         string        `mapstructure:"db-path"`
	CacheRetention int           `mapstructure:"cache-retention"`
	Workers        int           `mapstructure:"workers"`
	QueryTimeout   time.Duration `mapstructure:"query-timeout"`
	MetricsFile    string        `mapstructure:"metrics-file"`
	LogFile        string        `mapstructure:"log-file"`
	Quiet          bool          `mapstructure:"quiet"`
	Top            int           `mapstructure:"top"`
	Timezone       string        `mapstructure:"timezone"`
	ConfigPath     string        `mapstructure:"-"` // not from config file
}
