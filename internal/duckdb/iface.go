package duckdb

import "github.com/tinytelemetry/scrubstat/internal/model"

// LineCache re-exports the cache contract implemented by Store.
type LineCache = model.LineCache

var _ LineCache = (*Store)(nil)
