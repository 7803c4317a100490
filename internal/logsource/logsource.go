package logsource

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/tinytelemetry/scrubstat/internal/logparse"
	"github.com/tinytelemetry/scrubstat/internal/model"
)

// LogSource is a unified interface for all log input sources (file, stdin).
type LogSource interface {
	Lines() <-chan model.IngestEnvelope // read-only channel of log lines
	Stop()                              // graceful shutdown
	Name() string                       // "file", "stdin"
}

// DefaultMaxLineSize is the default maximum size (in bytes) of a single log line.
const DefaultMaxLineSize = 1024 * 1024 // 1MB

// osdLogRegex matches OSD log file names, including rotated and compressed ones.
var osdLogRegex = regexp.MustCompile(`^ceph-osd\.[0-9]+\.log`)

var gzipMagic = []byte{0x1f, 0x8b}

// Discover returns the OSD logs to scan. A file path is returned as is; a directory
// is walked for ceph-osd.N.log* files. Paths come back sorted so that runs over the
// same tree see the same order.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if info.Mode().IsRegular() {
		return []string{root}, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is neither a file nor a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if d.Type().IsRegular() && osdLogRegex.MatchString(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// OpenLog opens a log file, transparently decompressing gzip content.
func OpenLog(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(gzipMagic))
	if !bytes.Equal(magic, gzipMagic) {
		return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip %s: %w", path, err)
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// newScanner returns a line scanner that accepts lines up to maxLineSize bytes.
func newScanner(r io.Reader, maxLineSize int) *bufio.Scanner {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

func keepLine(line string, keep *regexp.Regexp) bool {
	return line != "" && (keep == nil || keep.MatchString(line))
}

// hostFor returns the sosreport host named in path, or model.UnknownHost.
func hostFor(path string) string {
	if host := logparse.HostnameFromPath(path); host != "" {
		return host
	}
	return model.UnknownHost
}

// scanInto sends the kept lines of r to out and closes it. A line longer than
// maxLineSize ends the scan.
func scanInto(ctx context.Context, out chan<- string, r io.Reader, maxLineSize int, keep *regexp.Regexp, name string) {
	defer close(out)

	scanner := newScanner(r, maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !keepLine(line, keep) {
			continue
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
	switch err := scanner.Err(); {
	case errors.Is(err, bufio.ErrTooLong):
		log.Printf("logsource: %s line exceeded max size, stopping", name)
	case err != nil:
		log.Printf("logsource: %s scanner error: %v", name, err)
	}
}
