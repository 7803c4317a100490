// Package slowreq aggregates "slow requests ... blocked for > N secs" warnings.
package slowreq

import (
	"cmp"
	"slices"
	"time"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

type sample struct {
	at    time.Time
	value float64
}

type daemonStats struct {
	host    string
	samples []sample
}

// Collection accumulates slow-request events per daemon.
type Collection struct {
	daemons map[string]*daemonStats
	topK    int
}

// NewCollection creates an empty collection keeping topK entries per ranking.
func NewCollection(topK int) *Collection {
	if topK <= 0 {
		topK = model.DefaultTopK
	}
	return &Collection{daemons: make(map[string]*daemonStats), topK: topK}
}

// Add records one event. The host of a daemon is the host of its first event.
func (c *Collection) Add(ev model.SlowRequestEvent) {
	ds, ok := c.daemons[ev.Daemon]
	if !ok {
		ds = &daemonStats{host: ev.Host}
		c.daemons[ev.Daemon] = ds
	}
	ds.samples = append(ds.samples, sample{at: ev.Timestamp, value: ev.Blocked})
}

// Total returns the number of events recorded.
func (c *Collection) Total() int {
	n := 0
	for _, ds := range c.daemons {
		n += len(ds.samples)
	}
	return n
}

// DaemonSummary holds per-daemon wait statistics in seconds.
type DaemonSummary struct {
	Daemon string  `json:"daemon" yaml:"daemon"`
	Host   string  `json:"host" yaml:"host"`
	Count  int     `json:"count" yaml:"count"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Avg    float64 `json:"avg" yaml:"avg"`
}

// Ranked is one entry of a top-K list. At lists the distinct times the value was seen.
type Ranked struct {
	Daemon string      `json:"daemon" yaml:"daemon"`
	Value  float64     `json:"value" yaml:"value"`
	At     []time.Time `json:"at,omitempty" yaml:"at,omitempty"`
}

// HostWait is the total wait observed on one host.
type HostWait struct {
	Host  string  `json:"host" yaml:"host"`
	Total float64 `json:"total" yaml:"total"`
}

// PeriodValue is a statistic for one month or day. Daemon is the daemon holding the
// highest value of the same statistic in that period, when relevant.
type PeriodValue struct {
	Period string  `json:"period" yaml:"period"`
	Value  float64 `json:"value" yaml:"value"`
	Daemon string  `json:"daemon,omitempty" yaml:"daemon,omitempty"`
}

// Summary is the full slow-request report.
type Summary struct {
	Total         int                 `json:"total" yaml:"total"`
	Daemons       []DaemonSummary     `json:"daemons" yaml:"daemons"`
	LowestMins    []Ranked            `json:"lowest_mins" yaml:"lowest_mins"`
	HighestMaxs   []Ranked            `json:"highest_maxs" yaml:"highest_maxs"`
	HighestAvgs   []Ranked            `json:"highest_avgs" yaml:"highest_avgs"`
	WaitByHost    []HostWait          `json:"wait_by_host" yaml:"wait_by_host"`
	DaemonsByHost []model.HostDaemons `json:"daemons_by_host" yaml:"daemons_by_host"`
	AvgByMonth    []PeriodValue       `json:"avg_by_month" yaml:"avg_by_month"`
	AvgByDay      []PeriodValue       `json:"avg_by_day" yaml:"avg_by_day"`
	MaxByDay      []PeriodValue       `json:"max_by_day" yaml:"max_by_day"`
}

const dayLayout = "2006-01-02"

// Summarize computes the report. When scope is non-nil, only events inside that month
// contribute to the by-day sections; every other section covers all events.
func (c *Collection) Summarize(scope *model.Month) Summary {
	s := Summary{Total: c.Total()}

	names := make([]string, 0, len(c.daemons))
	for d := range c.daemons {
		names = append(names, d)
	}
	slices.SortFunc(names, model.CompareDaemons)

	hostTotals := make(map[string]float64)
	hostDaemons := make(map[string][]string)
	months := make(map[string][]float64)
	days := make(map[string]map[string][]float64) // day -> daemon -> values

	for _, d := range names {
		ds := c.daemons[d]
		sum := DaemonSummary{Daemon: d, Host: ds.host, Count: len(ds.samples)}
		var total float64
		for i, smp := range ds.samples {
			if i == 0 || smp.value < sum.Min {
				sum.Min = smp.value
			}
			if i == 0 || smp.value > sum.Max {
				sum.Max = smp.value
			}
			total += smp.value

			hostTotals[ds.host] += smp.value
			mk := smp.at.Format("2006-01")
			months[mk] = append(months[mk], smp.value)
			if scope == nil || scope.Contains(smp.at) {
				dk := smp.at.Format(dayLayout)
				if days[dk] == nil {
					days[dk] = make(map[string][]float64)
				}
				days[dk][d] = append(days[dk][d], smp.value)
			}
		}
		if len(ds.samples) > 0 {
			sum.Avg = total / float64(len(ds.samples))
		}
		s.Daemons = append(s.Daemons, sum)
		hostDaemons[ds.host] = append(hostDaemons[ds.host], d)
	}

	s.LowestMins = c.rank(s.Daemons, func(d DaemonSummary) float64 { return d.Min }, false, true)
	s.HighestMaxs = c.rank(s.Daemons, func(d DaemonSummary) float64 { return d.Max }, true, true)
	s.HighestAvgs = c.rank(s.Daemons, func(d DaemonSummary) float64 { return d.Avg }, true, false)

	for host, total := range hostTotals {
		s.WaitByHost = append(s.WaitByHost, HostWait{Host: host, Total: total})
	}
	slices.SortFunc(s.WaitByHost, func(a, b HostWait) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Host, b.Host)
	})

	for host, ds := range hostDaemons {
		s.DaemonsByHost = append(s.DaemonsByHost, model.HostDaemons{Host: host, Daemons: ds})
	}
	slices.SortFunc(s.DaemonsByHost, func(a, b model.HostDaemons) int { return cmp.Compare(a.Host, b.Host) })

	for mk, vals := range months {
		s.AvgByMonth = append(s.AvgByMonth, PeriodValue{Period: mk, Value: mean(vals)})
	}
	slices.SortFunc(s.AvgByMonth, byPeriod)

	for dk, perDaemon := range days {
		var all []float64
		for _, vals := range perDaemon {
			all = append(all, vals...)
		}
		s.AvgByDay = append(s.AvgByDay, PeriodValue{Period: dk, Value: mean(all), Daemon: topDaemon(perDaemon, mean)})
		s.MaxByDay = append(s.MaxByDay, PeriodValue{Period: dk, Value: maxOf(all), Daemon: topDaemon(perDaemon, maxOf)})
	}
	slices.SortFunc(s.AvgByDay, byPeriod)
	slices.SortFunc(s.MaxByDay, byPeriod)

	return s
}

func (c *Collection) rank(all []DaemonSummary, stat func(DaemonSummary) float64, desc, withTimes bool) []Ranked {
	sorted := slices.Clone(all)
	slices.SortStableFunc(sorted, func(a, b DaemonSummary) int {
		x, y := stat(a), stat(b)
		if desc {
			x, y = y, x
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
		return model.CompareDaemons(a.Daemon, b.Daemon)
	})
	if len(sorted) > c.topK {
		sorted = sorted[:c.topK]
	}
	out := make([]Ranked, 0, len(sorted))
	for _, d := range sorted {
		r := Ranked{Daemon: d.Daemon, Value: stat(d)}
		if withTimes {
			r.At = c.timesOf(d.Daemon, r.Value)
		}
		out = append(out, r)
	}
	return out
}

func (c *Collection) timesOf(daemon string, value float64) []time.Time {
	var out []time.Time
	for _, smp := range c.daemons[daemon].samples {
		if smp.value != value {
			continue
		}
		if !slices.ContainsFunc(out, smp.at.Equal) {
			out = append(out, smp.at)
		}
	}
	return out
}

// topDaemon returns the daemon with the highest stat, ties going to the
// lexicographically first id.
func topDaemon(perDaemon map[string][]float64, stat func([]float64) float64) string {
	best, bestVal := "", 0.0
	for d, vals := range perDaemon {
		v := stat(vals)
		if best == "" || v > bestVal || (v == bestVal && d < best) {
			best, bestVal = d, v
		}
	}
	return best
}

func byPeriod(a, b PeriodValue) int { return cmp.Compare(a.Period, b.Period) }

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func maxOf(vals []float64) float64 {
	var m float64
	for i, v := range vals {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}
