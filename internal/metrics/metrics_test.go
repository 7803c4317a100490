package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tinytelemetry/scrubstat/internal/model"
	"github.com/tinytelemetry/scrubstat/internal/report"
	"github.com/tinytelemetry/scrubstat/internal/slowreq"
)

func scrubReport() report.ScrubReport {
	return report.ScrubReport{
		Header:          report.Header{RunID: "r1", GeneratedAt: time.Unix(1462442400, 0).UTC()},
		Month:           "5",
		DaemonsInMonth:  2,
		UnitsInMonth:    3,
		TotalScrubs:     4,
		TotalDeepScrubs: 2,
		Sections: []report.KindSection{
			{Kind: model.ActionScrub, Days: []report.DayRow{{Day: 5, Count: 3}}},
			{Kind: model.ActionDeepScrub, Days: []report.DayRow{}},
		},
		Repeats:     []report.RepeatRow{{Daemon: "osd.2", Unit: "4.1", Count: 2}},
		Diagnostics: report.Diagnostics{Completed: 6, Dropped: 1},
	}
}

func TestObserveScrub(t *testing.T) {
	t.Parallel()
	c := NewCollectors()
	c.ObserveScrub(scrubReport())

	if got := testutil.ToFloat64(c.completed.WithLabelValues("scrub")); got != 4 {
		t.Fatalf("scrub completed = %v", got)
	}
	if got := testutil.ToFloat64(c.dayActions.WithLabelValues("scrub", "5")); got != 3 {
		t.Fatalf("day 5 actions = %v", got)
	}
	if got := testutil.ToFloat64(c.repeats.WithLabelValues("osd.2", "4.1")); got != 2 {
		t.Fatalf("repeat run = %v", got)
	}
	if got := testutil.ToFloat64(c.tracker.WithLabelValues("dropped")); got != 1 {
		t.Fatalf("dropped = %v", got)
	}
	if got := testutil.ToFloat64(c.lastRun); got != 1462442400 {
		t.Fatalf("last run = %v", got)
	}
}

func TestWriteScrubTextfile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scrubstat.prom")

	if err := WriteScrubTextfile(path, scrubReport()); err != nil {
		t.Fatalf("WriteScrubTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`# TYPE scrubstat_scrub_completed_actions gauge`,
		`scrubstat_scrub_completed_actions{kind="deep-scrub"} 2`,
		`scrubstat_scrub_repeated_deep_scrubs{daemon="osd.2",unit="4.1"} 2`,
		`scrubstat_scrub_distinct_in_month{dimension="units"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSlowRequestTextfile(t *testing.T) {
	t.Parallel()
	c := slowreq.NewCollection(10)
	c.Add(model.SlowRequestEvent{Daemon: "osd.1", Host: "h", Timestamp: time.Now(), Blocked: 32})
	r := report.BuildSlowRequestReport(c, 10, nil)

	path := filepath.Join(t.TempDir(), "slow.prom")
	if err := WriteSlowRequestTextfile(path, r); err != nil {
		t.Fatalf("WriteSlowRequestTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `scrubstat_slow_requests_wait_seconds{daemon="osd.1",stat="max"} 32`) {
		t.Fatalf("textfile:\n%s", data)
	}
}

func TestWriteTextfile_BadDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing", "x.prom")
	if err := WriteScrubTextfile(path, scrubReport()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
