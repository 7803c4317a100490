package model

// LineCache stores previously filtered lines of a log file keyed by a content fingerprint
// and the keyword pattern that produced them.
type LineCache interface {
	GetLines(fingerprint, pattern string) ([]string, bool, error)
	PutLines(fingerprint, pattern, path string, lines []string) error
}

// ScrubQuerier is the read contract over completed scrub actions for one scoped month.
type ScrubQuerier interface {
	CountsByDay(kind ActionKind) []DayBucket
	BusiestDaemon(day int, kind ActionKind) (string, int, bool)
	LongestActionOnDay(day int, kind ActionKind) (CompletedAction, bool)
	TotalDistinctDaemons() int
	TotalDistinctUnits() int
}
