package scrub

import (
	"fmt"

	"github.com/tinytelemetry/scrubstat/internal/model"
)

// Stats summarises one engine run.
type Stats struct {
	TrackerStats
	Pending int // slots still open when the run finished (right-censored)
}

// Result is the side-channel output of a finished run.
type Result struct {
	Repeats []model.RepeatRun
	Stats   Stats
}

// Engine owns all state of one report run: the action tracker, the repeat detector
// and the aggregator. Build a fresh engine per run; it is not safe for concurrent use.
type Engine struct {
	tracker  *Tracker
	repeats  *RepeatDetector
	agg      *Aggregator
	runs     []model.RepeatRun
	finished bool
}

// NewEngine creates an engine with empty state.
func NewEngine() *Engine {
	return &Engine{
		tracker: NewTracker(),
		repeats: NewRepeatDetector(),
		agg:     NewAggregator(),
	}
}

// Apply feeds one event through the tracker and routes any completed action to the
// aggregator and the repeat detector. A *ParseFault is returned unchanged.
func (e *Engine) Apply(ev model.ScrubEvent) error {
	if e.finished {
		return fmt.Errorf("scrub: apply after finish")
	}
	action, ok, err := e.tracker.Apply(ev)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	e.agg.Add(action)
	if run, ok := e.repeats.Observe(action); ok {
		e.runs = append(e.runs, run)
	}
	return nil
}

// ApplyAll feeds events in order and stops at the first fault.
func (e *Engine) ApplyAll(events []model.ScrubEvent) error {
	for _, ev := range events {
		if err := e.Apply(ev); err != nil {
			return err
		}
	}
	return nil
}

// Finish flushes the repeat detector and returns the run result.
// Calling it again returns the same result.
func (e *Engine) Finish() Result {
	if !e.finished {
		e.runs = append(e.runs, e.repeats.Flush()...)
		e.finished = true
	}
	repeats := make([]model.RepeatRun, len(e.runs))
	copy(repeats, e.runs)
	return Result{
		Repeats: repeats,
		Stats: Stats{
			TrackerStats: e.tracker.Stats(),
			Pending:      e.tracker.Pending(),
		},
	}
}

// Aggregator exposes the completed-action index.
func (e *Engine) Aggregator() *Aggregator { return e.agg }

// Run applies events to a fresh engine and finishes it.
func Run(events []model.ScrubEvent) (*Engine, Result, error) {
	e := NewEngine()
	if err := e.ApplyAll(events); err != nil {
		return nil, Result{}, err
	}
	return e, e.Finish(), nil
}
