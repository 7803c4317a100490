package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tinytelemetry/scrubstat/internal/model"
	"github.com/tinytelemetry/scrubstat/internal/report"
	"github.com/tinytelemetry/scrubstat/internal/timestamp"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(configPath string, flags *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "scrubstat", "cache.duckdb")

	v := viper.New()
	v.SetEnvPrefix("SCRUBSTAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("path", "")
	v.SetDefault("month", "")
	v.SetDefault("format", defaultFormat)
	v.SetDefault("cache", false)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("cache-retention", defaultCacheRetention)
	v.SetDefault("workers", defaultWorkers)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("metrics-file", "")
	v.SetDefault("log-file", "")
	v.SetDefault("quiet", false)
	v.SetDefault("top", defaultTopK)
	v.SetDefault("timezone", defaultTimezone)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return cfg, fmt.Errorf("binding flags: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "scrubstat", "config.yml")
		v.SetConfigFile(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if _, err := report.ParseFormat(cfg.Format); err != nil {
		return cfg, err
	}
	if cfg.Month != "" {
		if _, err := model.ParseMonth(cfg.Month); err != nil {
			return cfg, err
		}
	}
	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("invalid workers: %d", cfg.Workers)
	}
	if cfg.Top < 1 {
		return cfg, fmt.Errorf("invalid top: %d", cfg.Top)
	}
	if cfg.CacheRetention < 0 {
		return cfg, fmt.Errorf("invalid cache-retention: %d", cfg.CacheRetention)
	}
	if cfg.QueryTimeout <= 0 {
		return cfg, fmt.Errorf("invalid query-timeout: %s", cfg.QueryTimeout)
	}
	if _, err := timestamp.LoadLocation(cfg.Timezone); err != nil {
		return cfg, err
	}

	// Expand ~ in db-path
	if strings.HasPrefix(cfg.DBPath, "~/") {
		cfg.DBPath = filepath.Join(home, cfg.DBPath[2:])
	}

	return cfg, nil
}

// configureRuntimeLogger points the standard logger at the configured destination.
// The returned func restores the previous output.
func configureRuntimeLogger(cfg appConfig) func() {
	prevOut, prevFlags := log.Writer(), log.Flags()
	restore := func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if cfg.Quiet {
		log.SetOutput(io.Discard)
		return restore
	}
	if cfg.LogFile == "" {
		log.SetOutput(os.Stderr)
		return restore
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("scrubstat: log file %s unavailable: %v", cfg.LogFile, err)
		return restore
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("scrubstat: log file %s unavailable: %v", cfg.LogFile, err)
		return restore
	}

	log.SetOutput(f)
	return func() {
		restore()
		_ = f.Close()
	}
}
