package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/tinytelemetry/scrubstat/internal/duckdb/migrate"
	"github.com/tinytelemetry/scrubstat/internal/model"
)

// Store is the DuckDB database behind the line cache.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens dbPath, creating it and its directory when missing, and brings
// the cache schema up to date. An empty dbPath gives an in-memory store.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache %q: %w", dbPath, err)
	}
	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache %q: %w", dbPath, err)
	}

	s := &Store{db: db, dbPath: dbPath, QueryTimeout: model.DefaultQueryTimeout}
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		s.QueryTimeout = queryTimeout[0]
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the database file path, empty for in-memory stores.
func (s *Store) DBPath() string {
	return s.dbPath
}
