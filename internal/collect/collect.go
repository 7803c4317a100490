// Package collect gathers keyword-filtered lines from OSD logs, one worker per file,
// and returns them in discovery order.
package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"

	"github.com/tinytelemetry/scrubstat/internal/linecache"
	"github.com/tinytelemetry/scrubstat/internal/logparse"
	"github.com/tinytelemetry/scrubstat/internal/logsource"
	"github.com/tinytelemetry/scrubstat/internal/model"
	"golang.org/x/sync/errgroup"
)

// StdinPath selects stdin instead of a file or directory.
const StdinPath = "-"

// Options controls a collection run.
type Options struct {
	Path        string         // file, directory, or StdinPath
	Keep        *regexp.Regexp // keyword prefilter; nil keeps every line
	Workers     int            // concurrent files; defaults to model.DefaultWorkers
	Cache       model.LineCache
	MaxLineSize int
	Stdin       io.Reader // read when Path is StdinPath; defaults to os.Stdin
}

// Stats summarises a collection run.
type Stats struct {
	Files     int
	CacheHits int
	Skipped   int
	Lines     int
}

// Result is the ordered output of a collection run.
type Result struct {
	Lines []model.IngestEnvelope
	Stats Stats
}

// Lines returns the matching lines of every discovered log, ordered by file then line.
func Lines(ctx context.Context, opts Options) ([]model.IngestEnvelope, error) {
	res, err := Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	return res.Lines, nil
}

// Run is Lines with run statistics.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Path == StdinPath {
		return readStdin(ctx, opts)
	}

	paths, err := logsource.Discover(opts.Path)
	if err != nil {
		return Result{}, err
	}
	if len(paths) == 0 {
		log.Printf("collect: no OSD logs found under %s", opts.Path)
		return Result{}, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = model.DefaultWorkers
	}

	slots := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			slots[i] = readFile(gctx, path, opts)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("collect: %w", err)
	}

	res := Result{Stats: Stats{Files: len(paths)}}
	for _, s := range slots {
		if s.skipped {
			res.Stats.Skipped++
			continue
		}
		if s.cached {
			res.Stats.CacheHits++
		}
		res.Lines = append(res.Lines, s.lines...)
	}
	res.Stats.Lines = len(res.Lines)
	return res, nil
}

type fileResult struct {
	lines   []model.IngestEnvelope
	cached  bool
	skipped bool
}

func readFile(ctx context.Context, path string, opts Options) fileResult {
	pattern := linecache.PatternKey(opts.Keep)

	var fingerprint string
	if opts.Cache != nil {
		fp, err := linecache.FingerprintFile(path)
		if err != nil {
			log.Printf("collect: skipping %s: %v", path, err)
			return fileResult{skipped: true}
		}
		fingerprint = fp
		lines, ok, err := opts.Cache.GetLines(fingerprint, pattern)
		if err != nil {
			log.Printf("collect: cache lookup for %s: %v", path, err)
		} else if ok {
			return fileResult{lines: envelopes(path, lines), cached: true}
		}
	}

	src := logsource.NewFileSource(ctx, path, logsource.FileConfig{
		Keep:        opts.Keep,
		MaxLineSize: opts.MaxLineSize,
	})
	defer src.Stop()

	var out []model.IngestEnvelope
	for env := range src.Lines() {
		out = append(out, env)
	}
	if err := src.Err(); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("collect: skipping %s: %v", path, err)
		}
		return fileResult{skipped: true}
	}

	if opts.Cache != nil {
		raw := make([]string, len(out))
		for i, env := range out {
			raw[i] = env.Line
		}
		if err := opts.Cache.PutLines(fingerprint, pattern, path, raw); err != nil {
			log.Printf("collect: cache store for %s: %v", path, err)
		}
	}
	return fileResult{lines: out}
}

func envelopes(path string, lines []string) []model.IngestEnvelope {
	host := logparse.HostnameFromPath(path)
	if host == "" {
		host = model.UnknownHost
	}
	out := make([]model.IngestEnvelope, len(lines))
	for i, line := range lines {
		out[i] = model.IngestEnvelope{Source: path, Host: host, Line: line}
	}
	return out
}

func readStdin(ctx context.Context, opts Options) (Result, error) {
	r := opts.Stdin
	if r == nil {
		r = os.Stdin
	}
	src := logsource.NewReaderSource(ctx, r, logsource.StdinConfig{
		Keep:        opts.Keep,
		MaxLineSize: opts.MaxLineSize,
	})
	defer src.Stop()

	var res Result
	for env := range src.Lines() {
		res.Lines = append(res.Lines, env)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res.Stats = Stats{Files: 1, Lines: len(res.Lines)}
	return res, nil
}
