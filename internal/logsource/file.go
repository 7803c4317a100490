package logsource

import (
	"context"
	"log"
	"regexp"
	"sync"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

// DefaultFileBuffer is the default channel buffer size for file lines.
const DefaultFileBuffer = 4096

// FileConfig holds tunable parameters for a file source.
type FileConfig struct {
	Keep        *regexp.Regexp // only lines matching Keep are emitted; nil keeps all
	BufferSize  int
	MaxLineSize int
}

// FileSource reads one log file, plain or gzip, in a background goroutine and emits
// its matching lines in file order.
type FileSource struct {
	path   string
	host   string
	ch     chan model.IngestEnvelope
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// NewFileSource starts reading path. The host is taken from a sosreport path when
// there is one.
func NewFileSource(ctx context.Context, path string, conf ...FileConfig) *FileSource {
	var cfg FileConfig
	if len(conf) > 0 {
		cfg = conf[0]
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultFileBuffer
	}
	host := hostFor(path)

	ctx, cancel := context.WithCancel(ctx)
	s := &FileSource{
		path:   path,
		host:   host,
		ch:     make(chan model.IngestEnvelope, cfg.BufferSize),
		cancel: cancel,
	}
	go s.read(ctx, cfg)
	return s
}

func (s *FileSource) read(ctx context.Context, cfg FileConfig) {
	defer close(s.ch)

	rc, err := OpenLog(s.path)
	if err != nil {
		s.setErr(err)
		return
	}
	defer rc.Close()

	scanner := newScanner(rc, cfg.MaxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !keepLine(line, cfg.Keep) {
			continue
		}
		select {
		case s.ch <- model.IngestEnvelope{Source: s.path, Host: s.host, Line: line}:
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("logsource: reading %s: %v", s.path, err)
		s.setErr(err)
	}
}

func (s *FileSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the error that ended the read, if any. It is only meaningful after
// Lines has been closed.
func (s *FileSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Path returns the file being read.
func (s *FileSource) Path() string { return s.path }

// Host returns the host the file was collected from.
func (s *FileSource) Host() string { return s.host }

func (s *FileSource) Lines() <-chan model.IngestEnvelope { return s.ch }
func (s *FileSource) Stop()                              { s.cancel() }
func (s *FileSource) Name() string                       { return "file" }
