package logsource

import (
	"context"
	"io"
	"os"
	"regexp"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

// DefaultStdinBuffer is the default channel buffer size for stdin lines.
const DefaultStdinBuffer = 50_000

// StdinConfig holds tunable parameters for the stdin source.
type StdinConfig struct {
	Keep        *regexp.Regexp
	BufferSize  int
	MaxLineSize int
}

// StdinSource reads `zgrep -H` style output, where every line carries the path
// of the log it came from. The host is recovered per line from that path.
type StdinSource struct {
	ch     chan model.IngestEnvelope
	cancel context.CancelFunc
}

// NewStdinSource creates a StdinSource that reads from stdin in a background goroutine.
func NewStdinSource(ctx context.Context, conf ...StdinConfig) *StdinSource {
	return NewReaderSource(ctx, os.Stdin, conf...)
}

// NewReaderSource is NewStdinSource over an arbitrary reader.
func NewReaderSource(ctx context.Context, r io.Reader, conf ...StdinConfig) *StdinSource {
	cfg := StdinConfig{BufferSize: DefaultStdinBuffer}
	if len(conf) > 0 {
		cfg.Keep = conf[0].Keep
		cfg.MaxLineSize = conf[0].MaxLineSize
		if conf[0].BufferSize > 0 {
			cfg.BufferSize = conf[0].BufferSize
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &StdinSource{ch: make(chan model.IngestEnvelope, cfg.BufferSize), cancel: cancel}
	go s.forward(ctx, r, cfg)
	return s
}

// forward relays scanned lines. The scan runs in its own goroutine so that Stop
// closes Lines even while a read on the pipe is blocked.
func (s *StdinSource) forward(ctx context.Context, r io.Reader, cfg StdinConfig) {
	defer close(s.ch)

	lines := make(chan string)
	go scanInto(ctx, lines, r, cfg.MaxLineSize, cfg.Keep, s.Name())

	for {
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
		}
		if !ok {
			return
		}
		env := model.IngestEnvelope{Source: s.Name(), Host: hostFor(line), Line: line}
		select {
		case s.ch <- env:
		case <-ctx.Done():
			return
		}
	}
}

func (s *StdinSource) Lines() <-chan model.IngestEnvelope { return s.ch }
func (s *StdinSource) Stop()                              { s.cancel() }
func (s *StdinSource) Name() string                       { return "stdin" }
