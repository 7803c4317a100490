package model

import "time"

// SlowRequestEvent is one "slow requests ... blocked for > N secs" warning.
type SlowRequestEvent struct {
	Host      string
	Daemon    string
	Timestamp time.Time
	Blocked   float64 // seconds
}

// SuicideEvent is one heartbeat "had suicide timed out" line.
type SuicideEvent struct {
	Host      string
	Daemon    string
	Timestamp time.Time
	Thread    string
	Timeout   int // seconds
}

// DimensionCount represents grouped counts by a single dimension value
// (for example daemon or hostname).
type DimensionCount struct {
	Value string `json:"value" yaml:"value"`
	Count int64  `json:"count" yaml:"count"`
}

// HostDaemons lists the daemons seen on one host.
type HostDaemons struct {
	Host    string   `json:"host" yaml:"host"`
	Daemons []string `json:"daemons" yaml:"daemons"`
}
