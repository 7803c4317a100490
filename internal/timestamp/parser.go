package timestamp

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CephLayout is the timestamp layout written by ceph daemons before Octopus.
const CephLayout = "2006-01-02 15:04:05.999999999"

// Result is the outcome of looking for a leading timestamp in a line.
type Result struct {
	Timestamp time.Time
	Found     bool
	Remaining string // text after the timestamp, trimmed
}

// isoPrefix matches both the ceph layout and the ISO-8601 stamps of newer releases.
var isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)

var dateLayouts = []string{
	CephLayout,
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
}

// Parser parses log timestamps. Zone-less timestamps are interpreted in the
// parser's location (UTC unless overridden).
type Parser struct {
	loc *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the zone used for timestamps that carry none.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// NewParser creates a parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{loc: time.UTC}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadLocation resolves a zone name for WithLocation. "" and "UTC" give UTC,
// "Local" the host zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Parse parses value, which must consist of a timestamp only.
func (p *Parser) Parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	value = strings.Replace(value, ",", ".", 1)

	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, value, p.loc); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseFromText looks for a timestamp at the start of text.
func (p *Parser) ParseFromText(text string) Result {
	trimmed := strings.TrimSpace(text)
	loc := isoPrefix.FindStringIndex(trimmed)
	if loc == nil {
		return Result{Remaining: text}
	}
	ts, ok := p.Parse(trimmed[:loc[1]])
	if !ok {
		return Result{Remaining: text}
	}
	return Result{
		Timestamp: ts,
		Found:     true,
		Remaining: strings.TrimSpace(trimmed[loc[1]:]),
	}
}
