package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActionKind identifies a background consistency-check action.
type ActionKind string

const (
	ActionScrub     ActionKind = "scrub"
	ActionDeepScrub ActionKind = "deep-scrub"
)

// ActionKinds lists every recognised kind in report order.
var ActionKinds = []ActionKind{ActionScrub, ActionDeepScrub}

// Valid reports whether k is a recognised action kind.
func (k ActionKind) Valid() bool {
	return k == ActionScrub || k == ActionDeepScrub
}

// Status is the lifecycle status of a scrub event. Ceph writes "starts" and "ok";
// the extractor maps those onto these values. Anything else is rejected by the tracker.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusCompleted Status = "completed"
)

// ScrubEvent is one matched scrub log line.
type ScrubEvent struct {
	Host      string
	Daemon    string
	Timestamp time.Time
	Unit      string
	Action    ActionKind
	Status    Status
}

// CompletedAction is a resolved start -> completion pairing.
type CompletedAction struct {
	Host   string
	Daemon string
	Unit   string
	Action ActionKind
	Start  time.Time
	End    time.Time
}

// Duration is always derived from the endpoints.
func (a CompletedAction) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// RepeatRun is a run of consecutive deep-scrub completions of the same unit on one daemon.
type RepeatRun struct {
	Daemon string
	Unit   string
	Count  int
}

// DayBucket aggregates the completed actions that started on one day of a month.
type DayBucket struct {
	Day     int
	Count   int
	Daemons []string // distinct, sorted
	Units   []string // distinct, sorted
	Longest CompletedAction
}

// Month scopes calendar aggregation. A zero Year matches the month in any year.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth accepts "M", "MM" or "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	var m Month
	if year, month, ok := strings.Cut(s, "-"); ok {
		y, err := strconv.Atoi(year)
		if err != nil || len(year) != 4 {
			return m, fmt.Errorf("invalid month %q: bad year", s)
		}
		m.Year = y
		s = month
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q", s)
	}
	if n < 1 || n > 12 {
		return Month{}, fmt.Errorf("invalid month %d: must be 1-12", n)
	}
	m.Month = time.Month(n)
	return m, nil
}

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	if t.Month() != m.Month {
		return false
	}
	return m.Year == 0 || t.Year() == m.Year
}

func (m Month) String() string {
	if m.Year == 0 {
		return strconv.Itoa(int(m.Month))
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
