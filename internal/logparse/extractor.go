package logparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/scrubstat/internal/model"
	"github.com/tinytelemetry/scrubstat/internal/timestamp"
)

// Patterns below apply to the text after the leading timestamp.
var (
	// "7f1d4c9ff700  0 log_channel(cluster) log [INF] : 3.1ff deep-scrub starts"
	scrubRegex = regexp.MustCompile(`(?:^|\s):\s+([0-9]+\.[0-9a-f]+[a-z]*)\s+(\S+)\s+(\S+)\s*$`)

	// "... : 3 slow requests, 1 included below; oldest blocked for > 30.546 secs"
	slowRequestRegex = regexp.MustCompile(`blocked for > ([0-9]+(?:\.[0-9]*)?) secs`)

	// "7f0c2a3ff700  1 heartbeat_map is_healthy 'OSD::osd_op_tp ...' had suicide timed out after 150"
	suicideRegex = regexp.MustCompile(`^([0-9a-z]+)\s+.+had suicide timed out after ([0-9]+)`)
)

// NormalizeStatus maps the statuses ceph writes ("starts", "ok") and their long
// spellings onto model statuses. Unknown statuses are returned lower-cased so the
// tracker can reject them.
func NormalizeStatus(status string) model.Status {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "starts", "starting", "start":
		return model.StatusStarting
	case "ok", "completed", "complete":
		return model.StatusCompleted
	default:
		return model.Status(s)
	}
}

// Extractor turns raw ceph OSD log lines into structured events.
type Extractor struct {
	ts *timestamp.Parser
}

// NewExtractor creates an extractor. Zone-less timestamps are read in the parser's
// location; a nil parser uses UTC.
func NewExtractor(p *timestamp.Parser) *Extractor {
	if p == nil {
		p = timestamp.NewParser()
	}
	return &Extractor{ts: p}
}

// stamp splits a line into its leading timestamp and the rest, after dropping a
// grep `path:` prefix.
func (x *Extractor) stamp(line string) (time.Time, string, bool) {
	r := x.ts.ParseFromText(StripSource(line))
	return r.Timestamp, r.Remaining, r.Found
}

func (x *Extractor) common(env model.IngestEnvelope) (daemon, host string, ok bool) {
	if IsSubthreadLine(env.Line) {
		return "", "", false
	}
	daemon, ok = DaemonFromPath(env.Source)
	if !ok {
		daemon, ok = DaemonFromPath(env.Line)
	}
	host = env.Host
	if host == "" {
		host = model.UnknownHost
	}
	return daemon, host, ok
}

// Scrub extracts a scrub event. The action and status are passed through as found;
// unknown values are left for the tracker to reject.
func (x *Extractor) Scrub(env model.IngestEnvelope) (model.ScrubEvent, bool) {
	daemon, host, ok := x.common(env)
	if !ok {
		return model.ScrubEvent{}, false
	}
	ts, rest, ok := x.stamp(env.Line)
	if !ok {
		return model.ScrubEvent{}, false
	}
	m := scrubRegex.FindStringSubmatch(rest)
	if m == nil {
		return model.ScrubEvent{}, false
	}
	return model.ScrubEvent{
		Host:      host,
		Daemon:    daemon,
		Timestamp: ts,
		Unit:      m[1],
		Action:    model.ActionKind(strings.ToLower(m[2])),
		Status:    NormalizeStatus(m[3]),
	}, true
}

// SlowRequest extracts a slow request warning.
func (x *Extractor) SlowRequest(env model.IngestEnvelope) (model.SlowRequestEvent, bool) {
	daemon, host, ok := x.common(env)
	if !ok {
		return model.SlowRequestEvent{}, false
	}
	ts, rest, ok := x.stamp(env.Line)
	if !ok {
		return model.SlowRequestEvent{}, false
	}
	m := slowRequestRegex.FindStringSubmatch(rest)
	if m == nil {
		return model.SlowRequestEvent{}, false
	}
	blocked, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return model.SlowRequestEvent{}, false
	}
	return model.SlowRequestEvent{Host: host, Daemon: daemon, Timestamp: ts, Blocked: blocked}, true
}

// Suicide extracts a heartbeat suicide timeout.
func (x *Extractor) Suicide(env model.IngestEnvelope) (model.SuicideEvent, bool) {
	daemon, host, ok := x.common(env)
	if !ok {
		return model.SuicideEvent{}, false
	}
	ts, rest, ok := x.stamp(env.Line)
	if !ok {
		return model.SuicideEvent{}, false
	}
	m := suicideRegex.FindStringSubmatch(rest)
	if m == nil {
		return model.SuicideEvent{}, false
	}
	timeout, err := strconv.Atoi(m[2])
	if err != nil {
		return model.SuicideEvent{}, false
	}
	return model.SuicideEvent{Host: host, Daemon: daemon, Timestamp: ts, Thread: m[1], Timeout: timeout}, true
}
