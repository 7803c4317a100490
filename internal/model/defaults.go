package model

import "time"

// Shared defaults used by the CLI and the library packages.
const (
	DefaultWorkers        = 4
	DefaultTopK           = 10
	DefaultQueryTimeout   = 30 * time.Second
	DefaultCacheRetention = 30 // days, 0 = disabled
	UnknownHost           = "<unknownhost>"
)
