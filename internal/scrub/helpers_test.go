package scrub

import (
	"testing"
	"time"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

var base = time.Date(2016, time.May, 5, 10, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return base.Add(offset) }

func ev(daemon, unit string, kind model.ActionKind, status model.Status, ts time.Time) model.ScrubEvent {
	return model.ScrubEvent{Host: "node1", Daemon: daemon, Unit: unit, Action: kind, Status: status, Timestamp: ts}
}

func start(daemon, unit string, kind model.ActionKind, ts time.Time) model.ScrubEvent {
	return ev(daemon, unit, kind, model.StatusStarting, ts)
}

func done(daemon, unit string, kind model.ActionKind, ts time.Time) model.ScrubEvent {
	return ev(daemon, unit, kind, model.StatusCompleted, ts)
}

func completed(daemon, unit string, kind model.ActionKind, from time.Time, d time.Duration) model.CompletedAction {
	return model.CompletedAction{Daemon: daemon, Unit: unit, Action: kind, Start: from, End: from.Add(d)}
}

func mustApply(t *testing.T, tr *Tracker, e model.ScrubEvent) (model.CompletedAction, bool) {
	t.Helper()
	a, ok, err := tr.Apply(e)
	if err != nil {
		t.Fatalf("Apply(%+v): %v", e, err)
	}
	return a, ok
}
