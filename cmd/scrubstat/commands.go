package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"time"

	"github.com/spf13/cobra"
	"github.com/tinytelemetry/scrubstat/internal/collect"
	"github.com/tinytelemetry/scrubstat/internal/duckdb"
	"github.com/tinytelemetry/scrubstat/internal/logparse"
	"github.com/tinytelemetry/scrubstat/internal/metrics"
	"github.com/tinytelemetry/scrubstat/internal/model"
	"github.com/tinytelemetry/scrubstat/internal/report"
	"github.com/tinytelemetry/scrubstat/internal/scrub"
	"github.com/tinytelemetry/scrubstat/internal/slowreq"
	"github.com/tinytelemetry/scrubstat/internal/suicide"
	"github.com/tinytelemetry/scrubstat/internal/timestamp"
)

// runFunc is the body of a report command, run with loaded config and logger.
type runFunc func(ctx context.Context, cfg appConfig, out io.Writer) error

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "scrubstat",
		Short: "Ceph OSD log statistics",
		Long: `scrubstat reads ceph OSD logs, plain or gzip, from a file, a directory tree
(for example an extracted sosreport) or stdin, and reports:
- scrubs: per-day scrub and deep-scrub activity for a month, with repeated deep-scrubs
- slow-requests: blocked request wait statistics per OSD, host and day
- suicides: heartbeat suicide timeouts per day for a month`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/scrubstat/config.yml)")
	flags.StringP("path", "p", "", "log file or directory to scan, - for stdin")
	flags.StringP("month", "m", "", "month to report, M or YYYY-MM")
	flags.StringP("format", "f", defaultFormat, "output format: text, json or yaml")
	flags.Bool("cache", false, "cache filtered lines in DuckDB keyed by file content")
	flags.String("db-path", "", "cache database path (default is $HOME/.local/share/scrubstat/cache.duckdb)")
	flags.Int("cache-retention", defaultCacheRetention, "cache retention in days, 0 disables expiry")
	flags.Int("workers", defaultWorkers, "files scanned in parallel")
	flags.Duration("query-timeout", defaultQueryTimeout, "cache query timeout")
	flags.String("metrics-file", "", "write Prometheus textfile metrics to this path")
	flags.String("log-file", "", "write diagnostics to this file instead of stderr")
	flags.BoolP("quiet", "q", false, "discard diagnostics")
	flags.Int("top", defaultTopK, "entries kept in each slow request ranking")
	flags.String("timezone", defaultTimezone, "zone of log timestamps that carry no offset")

	with := func(fn runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cleanupLogger := configureRuntimeLogger(cfg)
			defer cleanupLogger()
			return fn(cmd.Context(), cfg, cmd.OutOrStdout())
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "scrubs",
		Short: "Report scrub and deep-scrub activity for a month",
		Args:  cobra.NoArgs,
		RunE:  with(runScrubs),
	})
	root.AddCommand(&cobra.Command{
		Use:   "slow-requests",
		Short: "Report slow request wait statistics",
		Args:  cobra.NoArgs,
		RunE:  with(runSlowRequests),
	})
	root.AddCommand(&cobra.Command{
		Use:   "suicides",
		Short: "Report heartbeat suicide timeouts for a month",
		Args:  cobra.NoArgs,
		RunE:  with(runSuicides),
	})
	root.AddCommand(cacheCmd(with))
	root.AddCommand(versionCmd())
	return root
}

func cacheCmd(with func(runFunc) func(*cobra.Command, []string) error) *cobra.Command {
	cache := &cobra.Command{Use: "cache", Short: "Manage the line cache"}
	cache.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete cache entries older than cache-retention days (all entries when 0)",
		Args:  cobra.NoArgs,
		RunE:  with(runCachePrune),
	})
	cache.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache size",
		Args:  cobra.NoArgs,
		RunE:  with(runCacheStats),
	})
	return cache
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scrubstat - Ceph OSD log statistics\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", buildTime)
			fmt.Fprintf(out, "  Go version: %s\n", goVersion)
		},
	}
}

func requireMonth(cfg appConfig) (model.Month, error) {
	if cfg.Month == "" {
		return model.Month{}, errors.New("--month is required")
	}
	return model.ParseMonth(cfg.Month)
}

// withCache runs fn with the DuckDB line cache when caching is enabled, or a nil cache.
func withCache(cfg appConfig, fn func(model.LineCache) error) error {
	if !cfg.Cache {
		return fn(nil)
	}
	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("opening cache %s: %w", cfg.DBPath, err)
	}
	defer store.Close()

	cleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{RetentionDays: cfg.CacheRetention})
	if cleaner != nil {
		defer cleaner.Stop()
	}
	return fn(store)
}

const maxRejectSamples = 3

// rejects counts keyword lines that extraction did not accept and keeps the
// first few verbatim.
type rejects struct {
	n       int
	samples []string
}

func (r *rejects) add(line string) {
	r.n++
	if len(r.samples) < maxRejectSamples {
		r.samples = append(r.samples, line)
	}
}

func (r *rejects) log(kind string) {
	if r.n == 0 {
		return
	}
	log.Printf("scrubstat: %d %s lines did not match", r.n, kind)
	for _, line := range r.samples {
		log.Printf("scrubstat: unmatched %s line: %s", kind, line)
	}
}

// newExtractor reads zone-less log timestamps in the configured timezone.
func newExtractor(cfg appConfig) (*logparse.Extractor, error) {
	loc, err := timestamp.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return logparse.NewExtractor(timestamp.NewParser(timestamp.WithLocation(loc))), nil
}

func collectLines(ctx context.Context, cfg appConfig, keep *regexp.Regexp) ([]model.IngestEnvelope, error) {
	path, err := resolveInput(buildInputPlugins(InputPluginConfig{Path: cfg.Path}))
	if err != nil {
		return nil, err
	}

	var res collect.Result
	err = withCache(cfg, func(cache model.LineCache) error {
		var err error
		res, err = collect.Run(ctx, collect.Options{
			Path:    path,
			Keep:    keep,
			Workers: cfg.Workers,
			Cache:   cache,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("scrubstat: %d lines from %d files (%d cached, %d skipped)",
		res.Stats.Lines, res.Stats.Files, res.Stats.CacheHits, res.Stats.Skipped)
	return res.Lines, nil
}

func runScrubs(ctx context.Context, cfg appConfig, out io.Writer) error {
	month, err := requireMonth(cfg)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	lines, err := collectLines(ctx, cfg, logparse.ScrubKeywords)
	if err != nil {
		return err
	}

	x, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	engine := scrub.NewEngine()
	var skipped rejects
	for _, env := range lines {
		ev, ok := x.Scrub(env)
		if !ok {
			skipped.add(env.Line)
			continue
		}
		if err := engine.Apply(ev); err != nil {
			return fmt.Errorf("scrub report aborted: %w", err)
		}
	}
	skipped.log("scrub")

	r := report.BuildScrubReport(engine, month)
	if cfg.MetricsFile != "" {
		if err := metrics.WriteScrubTextfile(cfg.MetricsFile, r); err != nil {
			return err
		}
	}
	return report.Render(out, format, r)
}

func runSlowRequests(ctx context.Context, cfg appConfig, out io.Writer) error {
	var scope *model.Month
	if cfg.Month != "" {
		m, err := model.ParseMonth(cfg.Month)
		if err != nil {
			return err
		}
		scope = &m
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	lines, err := collectLines(ctx, cfg, logparse.SlowRequestKeywords)
	if err != nil {
		return err
	}

	x, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	c := slowreq.NewCollection(cfg.Top)
	var skipped rejects
	for _, env := range lines {
		ev, ok := x.SlowRequest(env)
		if !ok {
			skipped.add(env.Line)
			continue
		}
		c.Add(ev)
	}
	skipped.log("slow request")

	r := report.BuildSlowRequestReport(c, cfg.Top, scope)
	if cfg.MetricsFile != "" {
		if err := metrics.WriteSlowRequestTextfile(cfg.MetricsFile, r); err != nil {
			return err
		}
	}
	return report.Render(out, format, r)
}

func runSuicides(ctx context.Context, cfg appConfig, out io.Writer) error {
	month, err := requireMonth(cfg)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	lines, err := collectLines(ctx, cfg, logparse.SuicideKeywords)
	if err != nil {
		return err
	}

	x, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	c := suicide.NewCollection(month)
	var skipped rejects
	for _, env := range lines {
		ev, ok := x.Suicide(env)
		if !ok {
			skipped.add(env.Line)
			continue
		}
		c.Add(ev)
	}
	skipped.log("suicide")

	r := report.BuildSuicideReport(c)
	if cfg.MetricsFile != "" {
		if err := metrics.WriteSuicideTextfile(cfg.MetricsFile, r); err != nil {
			return err
		}
	}
	return report.Render(out, format, r)
}

func runCachePrune(_ context.Context, cfg appConfig, out io.Writer) error {
	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("opening cache %s: %w", cfg.DBPath, err)
	}
	defer store.Close()

	cutoff := time.Now().Add(time.Minute)
	if cfg.CacheRetention > 0 {
		cutoff = time.Now().Add(-time.Duration(cfg.CacheRetention) * 24 * time.Hour)
	}
	n, err := store.DeleteBefore(cutoff)
	if err != nil {
		return fmt.Errorf("pruning cache: %w", err)
	}
	fmt.Fprintf(out, "removed %d cache entries\n", n)
	return nil
}

func runCacheStats(_ context.Context, cfg appConfig, out io.Writer) error {
	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("opening cache %s: %w", cfg.DBPath, err)
	}
	defer store.Close()

	entries, lines, err := store.CacheStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d files, %d lines\n", cfg.DBPath, entries, lines)
	return nil
}
