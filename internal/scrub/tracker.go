package scrub

import (
	"time"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

type slotKey struct {
	daemon string
	unit   string
	action model.ActionKind
}

// slot is the pending state of one (daemon, unit, action) key.
type slot struct {
	pending bool
	start   time.Time
	end     time.Time
}

func (s *slot) open() bool { return s.pending }

func (s *slot) reset() {
	*s = slot{}
}

// TrackerStats counts the tracker's tolerated conditions.
type TrackerStats struct {
	Events      int // events applied
	Completed   int // completed actions emitted
	Dropped     int // completions with no pending start (left-censored)
	Overwritten int // starts that replaced a still-pending start
	OutOfOrder  int // completions timestamped before their pending start
}

// Tracker pairs starting events with their matching completed events per
// (daemon, unit, action) key. It is not safe for concurrent use.
type Tracker struct {
	slots map[slotKey]*slot
	stats TrackerStats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{slots: make(map[slotKey]*slot)}
}

// Apply feeds one event to the state machine. It returns the completed action and true
// when the event closes an open slot.
//
// A second start on an open slot overwrites the pending start. A completion on an idle
// slot is dropped: its start happened before the observed window. A completion
// timestamped before its pending start is dropped and the slot stays open.
// An unrecognised status or action yields a *ParseFault.
func (t *Tracker) Apply(ev model.ScrubEvent) (model.CompletedAction, bool, error) {
	if !ev.Action.Valid() {
		return model.CompletedAction{}, false, &ParseFault{Field: "action", Value: string(ev.Action), Daemon: ev.Daemon, Unit: ev.Unit}
	}

	switch ev.Status {
	case model.StatusStarting:
		t.stats.Events++
		s := t.slot(ev)
		if s.open() {
			t.stats.Overwritten++
		}
		s.pending = true
		s.start = ev.Timestamp
		return model.CompletedAction{}, false, nil

	case model.StatusCompleted:
		t.stats.Events++
		s := t.slot(ev)
		if !s.open() {
			t.stats.Dropped++
			return model.CompletedAction{}, false, nil
		}
		if ev.Timestamp.Before(s.start) {
			t.stats.OutOfOrder++
			return model.CompletedAction{}, false, nil
		}
		s.end = ev.Timestamp
		action := model.CompletedAction{
			Host:   ev.Host,
			Daemon: ev.Daemon,
			Unit:   ev.Unit,
			Action: ev.Action,
			Start:  s.start,
			End:    s.end,
		}
		s.reset()
		t.stats.Completed++
		return action, true, nil

	default:
		return model.CompletedAction{}, false, &ParseFault{Field: "status", Value: string(ev.Status), Daemon: ev.Daemon, Unit: ev.Unit}
	}
}

func (t *Tracker) slot(ev model.ScrubEvent) *slot {
	key := slotKey{daemon: ev.Daemon, unit: ev.Unit, action: ev.Action}
	s, ok := t.slots[key]
	if !ok {
		s = &slot{}
		t.slots[key] = s
	}
	return s
}

// Pending returns the number of slots still waiting for a completion.
func (t *Tracker) Pending() int {
	n := 0
	for _, s := range t.slots {
		if s.open() {
			n++
		}
	}
	return n
}

// Stats returns a snapshot of the tracker counters.
func (t *Tracker) Stats() TrackerStats {
	return t.stats
}
