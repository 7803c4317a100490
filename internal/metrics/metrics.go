// Package metrics exports report totals as a Prometheus textfile, for node_exporter's
// textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tinytelemetry/scrubstat/internal/report"
)

const namespace = "scrubstat"

// Collectors holds the gauges of one export. Each export gets its own registry.
type Collectors struct {
	registry *prometheus.Registry

	completed   *prometheus.GaugeVec
	dayActions  *prometheus.GaugeVec
	repeats     *prometheus.GaugeVec
	tracker     *prometheus.GaugeVec
	inMonth     *prometheus.GaugeVec
	slowTotal   prometheus.Gauge
	slowDaemon  *prometheus.GaugeVec
	suicides    prometheus.Gauge
	suicideDays *prometheus.GaugeVec
	lastRun     prometheus.Gauge
}

// NewCollectors creates and registers the report gauges on a fresh registry.
func NewCollectors() *Collectors {
	c := &Collectors{registry: prometheus.NewRegistry()}

	c.completed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scrub",
		Name:      "completed_actions",
		Help:      "Completed scrub actions across all months",
	}, []string{"kind"})
	c.dayActions = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scrub",
		Name:      "day_actions",
		Help:      "Completed scrub actions started on a day of the reported month",
	}, []string{"kind", "day"})
	c.repeats = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scrub",
		Name:      "repeated_deep_scrubs",
		Help:      "Length of each repeated deep-scrub run",
	}, []string{"daemon", "unit"})
	c.tracker = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scrub",
		Name:      "tracker_events",
		Help:      "Scrub tracker event outcomes",
	}, []string{"outcome"})
	c.inMonth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scrub",
		Name:      "distinct_in_month",
		Help:      "Distinct daemons and units with an action in the reported month",
	}, []string{"dimension"})
	c.slowTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "slow_requests",
		Name:      "total",
		Help:      "Slow request warnings found",
	})
	c.slowDaemon = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "slow_requests",
		Name:      "wait_seconds",
		Help:      "Per-daemon slow request wait statistics",
	}, []string{"daemon", "stat"})
	c.suicides = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "suicides",
		Name:      "total",
		Help:      "Suicide timeouts in the reported month",
	})
	c.suicideDays = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "suicides",
		Name:      "day_total",
		Help:      "Suicide timeouts per day of the reported month",
	}, []string{"day"})
	c.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the exported report was generated",
	})

	c.registry.MustRegister(
		c.completed, c.dayActions, c.repeats, c.tracker, c.inMonth,
		c.slowTotal, c.slowDaemon, c.suicides, c.suicideDays, c.lastRun,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// ObserveScrub sets the scrub gauges from r.
func (c *Collectors) ObserveScrub(r report.ScrubReport) {
	c.completed.WithLabelValues("scrub").Set(float64(r.TotalScrubs))
	c.completed.WithLabelValues("deep-scrub").Set(float64(r.TotalDeepScrubs))
	for _, sec := range r.Sections {
		for _, d := range sec.Days {
			c.dayActions.WithLabelValues(string(sec.Kind), fmt.Sprint(d.Day)).Set(float64(d.Count))
		}
	}
	for _, rep := range r.Repeats {
		c.repeats.WithLabelValues(rep.Daemon, rep.Unit).Set(float64(rep.Count))
	}
	diag := r.Diagnostics
	c.tracker.WithLabelValues("completed").Set(float64(diag.Completed))
	c.tracker.WithLabelValues("dropped").Set(float64(diag.Dropped))
	c.tracker.WithLabelValues("overwritten").Set(float64(diag.Overwritten))
	c.tracker.WithLabelValues("out_of_order").Set(float64(diag.OutOfOrder))
	c.tracker.WithLabelValues("pending").Set(float64(diag.Pending))
	c.inMonth.WithLabelValues("daemons").Set(float64(r.DaemonsInMonth))
	c.inMonth.WithLabelValues("units").Set(float64(r.UnitsInMonth))
	c.lastRun.Set(float64(r.GeneratedAt.Unix()))
}

// ObserveSlowRequests sets the slow-request gauges from r.
func (c *Collectors) ObserveSlowRequests(r report.SlowRequestReport) {
	c.slowTotal.Set(float64(r.Total))
	for _, d := range r.Daemons {
		c.slowDaemon.WithLabelValues(d.Daemon, "min").Set(d.Min)
		c.slowDaemon.WithLabelValues(d.Daemon, "max").Set(d.Max)
		c.slowDaemon.WithLabelValues(d.Daemon, "avg").Set(d.Avg)
	}
	c.lastRun.Set(float64(r.GeneratedAt.Unix()))
}

// ObserveSuicides sets the suicide gauges from r.
func (c *Collectors) ObserveSuicides(r report.SuicideReport) {
	c.suicides.Set(float64(r.Total))
	for _, d := range r.Days {
		c.suicideDays.WithLabelValues(fmt.Sprint(d.Day)).Set(float64(d.Count))
	}
	c.lastRun.Set(float64(r.GeneratedAt.Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (c *Collectors) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// WriteScrubTextfile exports r to path.
func WriteScrubTextfile(path string, r report.ScrubReport) error {
	c := NewCollectors()
	c.ObserveScrub(r)
	return c.WriteTextfile(path)
}

// WriteSlowRequestTextfile exports r to path.
func WriteSlowRequestTextfile(path string, r report.SlowRequestReport) error {
	c := NewCollectors()
	c.ObserveSlowRequests(r)
	return c.WriteTextfile(path)
}

// WriteSuicideTextfile exports r to path.
func WriteSuicideTextfile(path string, r report.SuicideReport) error {
	c := NewCollectors()
	c.ObserveSuicides(r)
	return c.WriteTextfile(path)
}
