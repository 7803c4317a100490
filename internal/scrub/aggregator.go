package scrub

import (
	"sort"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

// Aggregator indexes completed actions by daemon and by unit and answers
// calendar queries over them. Actions are kept in emission order, which is the
// order used for first-seen tie-breaks.
type Aggregator struct {
	actions  []model.CompletedAction
	byDaemon map[string][]int
	byUnit   map[string][]int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byDaemon: make(map[string][]int),
		byUnit:   make(map[string][]int),
	}
}

// Add appends one completed action.
func (g *Aggregator) Add(a model.CompletedAction) {
	idx := len(g.actions)
	g.actions = append(g.actions, a)
	g.byDaemon[a.Daemon] = append(g.byDaemon[a.Daemon], idx)
	g.byUnit[a.Unit] = append(g.byUnit[a.Unit], idx)
}

// TotalCompleted counts completed actions of kind across all months.
func (g *Aggregator) TotalCompleted(kind model.ActionKind) int {
	n := 0
	for _, a := range g.actions {
		if a.Action == kind {
			n++
		}
	}
	return n
}

// DaemonsTouched counts daemons with at least one completed action in any month.
func (g *Aggregator) DaemonsTouched() int { return len(g.byDaemon) }

// UnitsTouched counts units with at least one completed action in any month.
func (g *Aggregator) UnitsTouched() int { return len(g.byUnit) }

// DaemonActions returns the completed actions of one daemon in emission order.
func (g *Aggregator) DaemonActions(daemon string) []model.CompletedAction {
	return g.collect(g.byDaemon[daemon])
}

// UnitActions returns the completed actions on one unit, across daemons, in emission order.
func (g *Aggregator) UnitActions(unit string) []model.CompletedAction {
	return g.collect(g.byUnit[unit])
}

func (g *Aggregator) collect(idx []int) []model.CompletedAction {
	out := make([]model.CompletedAction, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.actions[i])
	}
	return out
}

// ForMonth scopes queries to actions that started inside m.
func (g *Aggregator) ForMonth(m model.Month) *MonthView {
	return &MonthView{agg: g, month: m}
}

// MonthView answers day-scoped queries for one month. All day and month tests use the
// action's start time. Results are computed on every call.
type MonthView struct {
	agg   *Aggregator
	month model.Month
}

var _ model.ScrubQuerier = (*MonthView)(nil)

// Month returns the scope of the view.
func (v *MonthView) Month() model.Month { return v.month }

func (v *MonthView) matches(a model.CompletedAction, kind model.ActionKind) bool {
	return a.Action == kind && v.month.Contains(a.Start)
}

type dayAccum struct {
	bucket  model.DayBucket
	daemons map[string]struct{}
	units   map[string]struct{}
}

// CountsByDay returns one bucket per day with at least one matching action, ordered by day.
// Longest ties keep the first action seen.
func (v *MonthView) CountsByDay(kind model.ActionKind) []model.DayBucket {
	days := make(map[int]*dayAccum)
	for _, a := range v.agg.actions {
		if !v.matches(a, kind) {
			continue
		}
		day := a.Start.Day()
		acc, ok := days[day]
		if !ok {
			acc = &dayAccum{
				bucket:  model.DayBucket{Day: day, Longest: a},
				daemons: make(map[string]struct{}),
				units:   make(map[string]struct{}),
			}
			days[day] = acc
		} else if a.Duration() > acc.bucket.Longest.Duration() {
			acc.bucket.Longest = a
		}
		acc.bucket.Count++
		acc.daemons[a.Daemon] = struct{}{}
		acc.units[a.Unit] = struct{}{}
	}

	buckets := make([]model.DayBucket, 0, len(days))
	for _, acc := range days {
		acc.bucket.Daemons = sortedKeys(acc.daemons)
		acc.bucket.Units = sortedKeys(acc.units)
		buckets = append(buckets, acc.bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Day < buckets[j].Day })
	return buckets
}

// BusiestDaemon returns the daemon with the most matching actions starting on day,
// and its count. Ties go to the lexicographically first daemon id.
func (v *MonthView) BusiestDaemon(day int, kind model.ActionKind) (string, int, bool) {
	daemons := make([]string, 0, len(v.agg.byDaemon))
	for d := range v.agg.byDaemon {
		daemons = append(daemons, d)
	}
	sort.Strings(daemons)

	best, bestCount := "", 0
	for _, d := range daemons {
		n := 0
		for _, i := range v.agg.byDaemon[d] {
			a := v.agg.actions[i]
			if v.matches(a, kind) && a.Start.Day() == day {
				n++
			}
		}
		if n > bestCount {
			best, bestCount = d, n
		}
	}
	return best, bestCount, bestCount > 0
}

// LongestActionOnDay returns the longest matching action starting on day.
// The boolean is false when no action started that day.
func (v *MonthView) LongestActionOnDay(day int, kind model.ActionKind) (model.CompletedAction, bool) {
	var longest model.CompletedAction
	found := false
	for _, a := range v.agg.actions {
		if !v.matches(a, kind) || a.Start.Day() != day {
			continue
		}
		if !found || a.Duration() > longest.Duration() {
			longest = a
			found = true
		}
	}
	return longest, found
}

// TotalDistinctDaemons counts daemons with any action starting in the month.
func (v *MonthView) TotalDistinctDaemons() int {
	n := 0
	for _, idx := range v.agg.byDaemon {
		if v.anyInMonth(idx) {
			n++
		}
	}
	return n
}

// TotalDistinctUnits counts units with any action starting in the month.
func (v *MonthView) TotalDistinctUnits() int {
	n := 0
	for _, idx := range v.agg.byUnit {
		if v.anyInMonth(idx) {
			n++
		}
	}
	return n
}

func (v *MonthView) anyInMonth(idx []int) bool {
	for _, i := range idx {
		if v.month.Contains(v.agg.actions[i].Start) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
