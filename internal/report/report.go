// Package report builds the scrub, slow-request and suicide reports and renders them
// as text tables, JSON or YAML.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/tinytelemetry/scrubstat/internal/model"
	"github.com/tinytelemetry/scrubstat/internal/scrub"
	"github.com/tinytelemetry/scrubstat/internal/slowreq"
	"github.com/tinytelemetry/scrubstat/internal/suicide"
)

// Overridable in tests.
var (
	newRunID = uuid.NewString
	now      = time.Now
)

// Header identifies one report run.
type Header struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

func newHeader() Header {
	return Header{RunID: newRunID(), GeneratedAt: now().UTC()}
}

// DayRow is one day of a per-kind scrub table.
type DayRow struct {
	Day          int     `json:"day" yaml:"day"`
	Count        int     `json:"count" yaml:"count"`
	Daemons      int     `json:"daemons" yaml:"daemons"`
	Units        int     `json:"units" yaml:"units"`
	Busiest      string  `json:"busiest" yaml:"busiest"`
	BusiestCount int     `json:"busiest_count" yaml:"busiest_count"`
	LongestUnit  string  `json:"longest_unit" yaml:"longest_unit"`
	LongestSecs  float64 `json:"longest_secs" yaml:"longest_secs"`
}

// KindSection is the per-day table of one action kind in the scoped month.
type KindSection struct {
	Kind model.ActionKind `json:"kind" yaml:"kind"`
	Days []DayRow         `json:"days" yaml:"days"`
}

// RepeatRow is one repeated deep-scrub run.
type RepeatRow struct {
	Daemon string `json:"daemon" yaml:"daemon"`
	Unit   string `json:"unit" yaml:"unit"`
	Count  int    `json:"count" yaml:"count"`
}

// Diagnostics are the tracker's tolerated conditions for the run.
type Diagnostics struct {
	Events      int `json:"events" yaml:"events"`
	Completed   int `json:"completed" yaml:"completed"`
	Dropped     int `json:"dropped" yaml:"dropped"`
	Overwritten int `json:"overwritten" yaml:"overwritten"`
	OutOfOrder  int `json:"out_of_order" yaml:"out_of_order"`
	Pending     int `json:"pending" yaml:"pending"`
}

// ScrubReport is the calendar report of completed scrub actions.
type ScrubReport struct {
	Header          `yaml:",inline"`
	Month           string        `json:"month" yaml:"month"`
	DaemonsInMonth  int           `json:"daemons_in_month" yaml:"daemons_in_month"`
	UnitsInMonth    int           `json:"units_in_month" yaml:"units_in_month"`
	DaemonsTouched  int           `json:"daemons_touched" yaml:"daemons_touched"`
	UnitsTouched    int           `json:"units_touched" yaml:"units_touched"`
	TotalScrubs     int           `json:"total_scrubs" yaml:"total_scrubs"`
	TotalDeepScrubs int           `json:"total_deep_scrubs" yaml:"total_deep_scrubs"`
	Sections        []KindSection `json:"sections" yaml:"sections"`
	Repeats         []RepeatRow   `json:"repeats" yaml:"repeats"`
	Diagnostics     Diagnostics   `json:"diagnostics" yaml:"diagnostics"`
}

// BuildScrubReport finishes the engine and queries its aggregator for month.
// Totals are global; day tables and the in-month counts are scoped to month.
func BuildScrubReport(e *scrub.Engine, month model.Month) ScrubReport {
	res := e.Finish()
	agg := e.Aggregator()
	view := agg.ForMonth(month)

	r := ScrubReport{
		Header:          newHeader(),
		Month:           month.String(),
		DaemonsInMonth:  view.TotalDistinctDaemons(),
		UnitsInMonth:    view.TotalDistinctUnits(),
		DaemonsTouched:  agg.DaemonsTouched(),
		UnitsTouched:    agg.UnitsTouched(),
		TotalScrubs:     agg.TotalCompleted(model.ActionScrub),
		TotalDeepScrubs: agg.TotalCompleted(model.ActionDeepScrub),
		Repeats:         make([]RepeatRow, 0, len(res.Repeats)),
		Diagnostics: Diagnostics{
			Events:      res.Stats.Events,
			Completed:   res.Stats.Completed,
			Dropped:     res.Stats.Dropped,
			Overwritten: res.Stats.Overwritten,
			OutOfOrder:  res.Stats.OutOfOrder,
			Pending:     res.Stats.Pending,
		},
	}
	for _, kind := range model.ActionKinds {
		r.Sections = append(r.Sections, buildSection(view, kind))
	}
	for _, run := range res.Repeats {
		r.Repeats = append(r.Repeats, RepeatRow{Daemon: run.Daemon, Unit: run.Unit, Count: run.Count})
	}
	return r
}

func buildSection(q model.ScrubQuerier, kind model.ActionKind) KindSection {
	sec := KindSection{Kind: kind, Days: []DayRow{}}
	for _, b := range q.CountsByDay(kind) {
		row := DayRow{
			Day:         b.Day,
			Count:       b.Count,
			Daemons:     len(b.Daemons),
			Units:       len(b.Units),
			LongestUnit: b.Longest.Unit,
			LongestSecs: b.Longest.Duration().Seconds(),
		}
		if d, n, ok := q.BusiestDaemon(b.Day, kind); ok {
			row.Busiest, row.BusiestCount = d, n
		}
		sec.Days = append(sec.Days, row)
	}
	return sec
}

// SlowRequestReport wraps the slow-request summary with run metadata.
type SlowRequestReport struct {
	Header          `yaml:",inline"`
	slowreq.Summary `yaml:",inline"`
	TopK            int `json:"top_k" yaml:"top_k"`
}

// BuildSlowRequestReport summarises c. scope limits the by-day sections; nil covers all days.
func BuildSlowRequestReport(c *slowreq.Collection, topK int, scope *model.Month) SlowRequestReport {
	return SlowRequestReport{Header: newHeader(), Summary: c.Summarize(scope), TopK: topK}
}

// SuicideReport wraps the suicide summary with run metadata.
type SuicideReport struct {
	Header          `yaml:",inline"`
	suicide.Summary `yaml:",inline"`
}

// BuildSuicideReport summarises c for its scoped month.
func BuildSuicideReport(c *suicide.Collection) SuicideReport {
	return SuicideReport{Header: newHeader(), Summary: c.Summarize()}
}
