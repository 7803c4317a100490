package scrub

import "github.com/tinytelemetry/scrubstat/internal/model"

type runState struct {
	unit  string
	count int
}

// RepeatDetector flags daemons that deep-scrub the same unit several times in a row
// without making progress on any other unit.
type RepeatDetector struct {
	last  map[string]*runState
	order []string // daemons in first-seen order, for a stable Flush
}

// NewRepeatDetector creates an empty detector.
func NewRepeatDetector() *RepeatDetector {
	return &RepeatDetector{last: make(map[string]*runState)}
}

// Observe records one completed action. Only deep-scrubs participate. When the daemon
// moves on to a different unit after a run of two or more, the finished run is returned.
func (d *RepeatDetector) Observe(a model.CompletedAction) (model.RepeatRun, bool) {
	if a.Action != model.ActionDeepScrub {
		return model.RepeatRun{}, false
	}

	st, ok := d.last[a.Daemon]
	if !ok {
		d.last[a.Daemon] = &runState{unit: a.Unit, count: 1}
		d.order = append(d.order, a.Daemon)
		return model.RepeatRun{}, false
	}
	if st.unit == a.Unit {
		st.count++
		return model.RepeatRun{}, false
	}

	prev := *st
	st.unit = a.Unit
	st.count = 1
	if prev.count >= 2 {
		return model.RepeatRun{Daemon: a.Daemon, Unit: prev.unit, Count: prev.count}, true
	}
	return model.RepeatRun{}, false
}

// Flush returns the runs still open at end of stream and clears all tracking.
func (d *RepeatDetector) Flush() []model.RepeatRun {
	var runs []model.RepeatRun
	for _, daemon := range d.order {
		st := d.last[daemon]
		if st.count >= 2 {
			runs = append(runs, model.RepeatRun{Daemon: daemon, Unit: st.unit, Count: st.count})
		}
	}
	d.last = make(map[string]*runState)
	d.order = nil
	return runs
}
