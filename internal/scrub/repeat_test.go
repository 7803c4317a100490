package scrub

import (
	"reflect"
	"testing"
	"time"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

func observeAll(d *RepeatDetector, daemon string, kind model.ActionKind, units ...string) []model.RepeatRun {
	var runs []model.RepeatRun
	for i, u := range units {
		if run, ok := d.Observe(completed(daemon, u, kind, at(time.Duration(i)*time.Hour), time.Minute)); ok {
			runs = append(runs, run)
		}
	}
	return runs
}

func TestRepeatDetectorEmitsFinishedRun(t *testing.T) {
	t.Parallel()
	d := NewRepeatDetector()

	runs := observeAll(d, "osd.3", model.ActionDeepScrub, "1.2", "1.2", "1.2", "1.7")
	want := []model.RepeatRun{{Daemon: "osd.3", Unit: "1.2", Count: 3}}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("runs = %+v, want %+v", runs, want)
	}
	if rest := d.Flush(); len(rest) != 0 {
		t.Errorf("flush = %+v, want none", rest)
	}
}

func TestRepeatDetectorIgnoresSingleRuns(t *testing.T) {
	t.Parallel()
	d := NewRepeatDetector()

	runs := observeAll(d, "osd.3", model.ActionDeepScrub, "1.2", "1.7", "1.2")
	runs = append(runs, d.Flush()...)
	if len(runs) != 0 {
		t.Errorf("runs = %+v, want none", runs)
	}
}

func TestRepeatDetectorFlushesFinalRun(t *testing.T) {
	t.Parallel()
	d := NewRepeatDetector()

	if runs := observeAll(d, "osd.1", model.ActionDeepScrub, "4.0", "4.0"); len(runs) != 0 {
		t.Fatalf("unexpected early emission %+v", runs)
	}
	want := []model.RepeatRun{{Daemon: "osd.1", Unit: "4.0", Count: 2}}
	if got := d.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("flush = %+v, want %+v", got, want)
	}
	if got := d.Flush(); len(got) != 0 {
		t.Errorf("second flush = %+v, want none", got)
	}
}

func TestRepeatDetectorIgnoresPlainScrubs(t *testing.T) {
	t.Parallel()
	d := NewRepeatDetector()

	runs := observeAll(d, "osd.3", model.ActionScrub, "1.2", "1.2", "1.2", "1.7")
	runs = append(runs, d.Flush()...)
	if len(runs) != 0 {
		t.Errorf("plain scrubs produced runs %+v", runs)
	}
}

func TestRepeatDetectorTracksDaemonsSeparately(t *testing.T) {
	t.Parallel()
	d := NewRepeatDetector()

	// Interleaving another daemon does not break osd.0's run.
	seq := []struct{ daemon, unit string }{
		{"osd.0", "1.1"}, {"osd.1", "2.2"}, {"osd.0", "1.1"}, {"osd.1", "2.3"}, {"osd.0", "1.1"}, {"osd.0", "1.5"},
	}
	var runs []model.RepeatRun
	for i, s := range seq {
		if run, ok := d.Observe(completed(s.daemon, s.unit, model.ActionDeepScrub, at(time.Duration(i)*time.Hour), time.Minute)); ok {
			runs = append(runs, run)
		}
	}
	want := []model.RepeatRun{{Daemon: "osd.0", Unit: "1.1", Count: 3}}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("runs = %+v, want %+v", runs, want)
	}
}
