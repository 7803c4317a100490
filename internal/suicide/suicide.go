// Package suicide aggregates heartbeat "had suicide timed out" events.
package suicide

import (
	"cmp"
	"slices"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

type daemonEvents struct {
	host   string
	events []model.SuicideEvent
}

// Collection accumulates suicide events per daemon for one scoped month.
type Collection struct {
	month   model.Month
	daemons map[string]*daemonEvents
}

// NewCollection creates an empty collection scoped to month.
func NewCollection(month model.Month) *Collection {
	return &Collection{month: month, daemons: make(map[string]*daemonEvents)}
}

// Add records one event. The host of a daemon is the host of its first event.
func (c *Collection) Add(ev model.SuicideEvent) {
	de, ok := c.daemons[ev.Daemon]
	if !ok {
		de = &daemonEvents{host: ev.Host}
		c.daemons[ev.Daemon] = de
	}
	de.events = append(de.events, ev)
}

// DayStat is the suicide count of one day with its busiest daemon.
type DayStat struct {
	Day     int      `json:"day" yaml:"day"`
	Count   int      `json:"count" yaml:"count"`
	Daemon  string   `json:"daemon" yaml:"daemon"`
	Host    string   `json:"host" yaml:"host"`
	Threads []string `json:"threads" yaml:"threads"`
}

// Summary is the suicide report for the scoped month.
type Summary struct {
	Month         string                 `json:"month" yaml:"month"`
	Total         int                    `json:"total" yaml:"total"`
	Days          []DayStat              `json:"days" yaml:"days"`
	ByDaemon      []model.DimensionCount `json:"by_daemon" yaml:"by_daemon"`
	DaemonsByHost []model.HostDaemons    `json:"daemons_by_host" yaml:"daemons_by_host"`
}

// Summarize computes the report. Days are ordered ascending; the busiest daemon
// of a day is the one with most events, ties going to the lexicographically first id.
func (c *Collection) Summarize() Summary {
	s := Summary{Month: c.month.String()}

	dayCounts := make(map[int]map[string]int)
	daemonCounts := make(map[string]int64)
	hostDaemons := make(map[string][]string)

	for d, de := range c.daemons {
		hostDaemons[de.host] = append(hostDaemons[de.host], d)
		for _, ev := range de.events {
			if !c.month.Contains(ev.Timestamp) {
				continue
			}
			day := ev.Timestamp.Day()
			if dayCounts[day] == nil {
				dayCounts[day] = make(map[string]int)
			}
			dayCounts[day][d]++
			daemonCounts[d]++
			s.Total++
		}
	}

	for day, perDaemon := range dayCounts {
		st := DayStat{Day: day}
		best := 0
		for d, n := range perDaemon {
			st.Count += n
			if st.Daemon == "" || n > best || (n == best && d < st.Daemon) {
				st.Daemon, best = d, n
			}
		}
		st.Host = c.daemons[st.Daemon].host
		st.Threads = c.Threads(st.Daemon, day)
		s.Days = append(s.Days, st)
	}
	slices.SortFunc(s.Days, func(a, b DayStat) int { return cmp.Compare(a.Day, b.Day) })

	for d, n := range daemonCounts {
		s.ByDaemon = append(s.ByDaemon, model.DimensionCount{Value: d, Count: n})
	}
	slices.SortFunc(s.ByDaemon, func(a, b model.DimensionCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return model.CompareDaemons(a.Value, b.Value)
	})

	for host, ds := range hostDaemons {
		slices.SortFunc(ds, model.CompareDaemons)
		s.DaemonsByHost = append(s.DaemonsByHost, model.HostDaemons{Host: host, Daemons: ds})
	}
	slices.SortFunc(s.DaemonsByHost, func(a, b model.HostDaemons) int { return cmp.Compare(a.Host, b.Host) })

	return s
}

// Threads returns the threads that timed out on daemon on day of the scoped month,
// in timestamp order.
func (c *Collection) Threads(daemon string, day int) []string {
	de, ok := c.daemons[daemon]
	if !ok {
		return nil
	}
	var evs []model.SuicideEvent
	for _, ev := range de.events {
		if c.month.Contains(ev.Timestamp) && ev.Timestamp.Day() == day {
			evs = append(evs, ev)
		}
	}
	slices.SortStableFunc(evs, func(a, b model.SuicideEvent) int { return a.Timestamp.Compare(b.Timestamp) })

	threads := make([]string, len(evs))
	for i, ev := range evs {
		threads[i] = ev.Thread
	}
	return threads
}
