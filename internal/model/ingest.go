package model

// IngestEnvelope carries one raw log line with source metadata.
// It is the transport contract between log sources and the line extractors.
type IngestEnvelope struct {
	Source string // log file path, or "stdin"
	Host   string // host the log was collected from
	Line   string
}
