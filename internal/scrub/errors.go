package scrub

import "fmt"

// ParseFault reports an event field whose value the tracker does not recognise.
// It means the line extractor and the state machine disagree about the log format,
// so it aborts the whole report run rather than skipping the event.
type ParseFault struct {
	Field  string // "status" or "action"
	Value  string
	Daemon string
	Unit   string
}

func (f *ParseFault) Error() string {
	return fmt.Sprintf("scrub: unknown %s %q (daemon=%s unit=%s)", f.Field, f.Value, f.Daemon, f.Unit)
}
