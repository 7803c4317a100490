// Package migrate applies the cache schema embedded under migrations/.
package migrate

import (
	"cmp"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"regexp"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

//go:embed migrations/*.sql
var embedded embed.FS

const dir = "migrations"

var fileName = regexp.MustCompile(`^([0-9]{4})_([a-z0-9_]+)\.sql$`)

// ErrChecksumMismatch is returned when an applied migration no longer matches
// the file it was applied from.
var ErrChecksumMismatch = errors.New("applied migration was modified")

// Migration is one versioned schema step.
type Migration struct {
	Version  int
	Name     string
	Checksum string
	body     string
}

// State is the schema position of a database.
type State struct {
	Current int
	Pending []Migration
}

// Runner applies versioned SQL migrations to a DuckDB database.
type Runner struct {
	db     *sql.DB
	source fs.FS
}

// NewRunner creates a runner over the embedded cache schema.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, source: embedded}
}

// Load reads every NNNN_name.sql file under migrations/ in fsys, ordered by version.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	seen := make(map[int]string, len(entries))
	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileName.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("migration %q: name must look like 0001_name.sql", e.Name())
		}
		version, _ := strconv.Atoi(m[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{
			Version:  version,
			Name:     m[2],
			Checksum: strconv.FormatUint(xxhash.Sum64(data), 16),
			body:     string(data),
		})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

func (r *Runner) bootstrap() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		checksum   VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	if err != nil {
		return fmt.Errorf("bootstrap schema_migrations: %w", err)
	}
	return nil
}

func (r *Runner) applied() (map[int]string, error) {
	rows, err := r.db.Query("SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			version  int
			checksum string
		)
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		out[version] = checksum
	}
	return out, rows.Err()
}

// Plan reports the applied version and what Run would apply. Applied
// migrations are checked against their files.
func (r *Runner) Plan() (State, error) {
	if err := r.bootstrap(); err != nil {
		return State{}, err
	}
	all, err := Load(r.source)
	if err != nil {
		return State{}, err
	}
	done, err := r.applied()
	if err != nil {
		return State{}, err
	}

	var st State
	for _, m := range all {
		sum, ok := done[m.Version]
		if !ok {
			st.Pending = append(st.Pending, m)
			continue
		}
		if sum != m.Checksum {
			return State{}, fmt.Errorf("%04d_%s: %w", m.Version, m.Name, ErrChecksumMismatch)
		}
		st.Current = max(st.Current, m.Version)
	}
	return st, nil
}

func (r *Runner) apply(m Migration) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin %04d_%s: %w", m.Version, m.Name, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.body); err != nil {
		return fmt.Errorf("executing %04d_%s: %w", m.Version, m.Name, err)
	}
	if _, err = tx.Exec(
		"INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
		m.Version, m.Name, m.Checksum,
	); err != nil {
		return fmt.Errorf("recording %04d_%s: %w", m.Version, m.Name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %04d_%s: %w", m.Version, m.Name, err)
	}
	return nil
}

// Run applies every pending migration, each in its own transaction.
func (r *Runner) Run() error {
	st, err := r.Plan()
	if err != nil {
		return err
	}
	for _, m := range st.Pending {
		if err := r.apply(m); err != nil {
			return err
		}
		log.Printf("migrate: applied %04d_%s", m.Version, m.Name)
	}
	return nil
}

// Status returns the applied version and the number of pending migrations.
func (r *Runner) Status() (current int, pending int, err error) {
	st, err := r.Plan()
	if err != nil {
		return 0, 0, err
	}
	return st.Current, len(st.Pending), nil
}
