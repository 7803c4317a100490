package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"
)

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// GetLines returns the cached lines for (fingerprint, pattern) in their original order.
// The boolean is false on a cache miss.
func (s *Store) GetLines(fingerprint, pattern string) ([]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var want int
	err := s.db.QueryRowContext(ctx,
		`SELECT line_count FROM cache_entries WHERE fingerprint = ? AND pattern = ?`,
		fingerprint, pattern,
	).Scan(&want)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT line FROM cache_lines WHERE fingerprint = ? AND pattern = ? ORDER BY seq`,
		fingerprint, pattern,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	lines := make([]string, 0, want)
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, false, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(lines) != want {
		log.Printf("duckdb: cache entry %s has %d of %d lines, treating as miss", fingerprint, len(lines), want)
		return nil, false, nil
	}
	return lines, true, nil
}

// PutLines replaces the cached lines for (fingerprint, pattern) in one transaction.
func (s *Store) PutLines(fingerprint, pattern, path string, lines []string) error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_lines WHERE fingerprint = ? AND pattern = ?`, fingerprint, pattern); err != nil {
		return fmt.Errorf("clear cache lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE fingerprint = ? AND pattern = ?`, fingerprint, pattern); err != nil {
		return fmt.Errorf("clear cache entry: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cache_lines (fingerprint, pattern, seq, line) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, line := range lines {
		if _, err := stmt.ExecContext(ctx, fingerprint, pattern, i, line); err != nil {
			return fmt.Errorf("cache line insert: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_entries (fingerprint, pattern, path, line_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		fingerprint, pattern, path, len(lines), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("cache entry insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteBefore removes cache entries created before cutoff, with their lines.
// It returns the number of entries removed.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cache_lines
		WHERE EXISTS (
			SELECT 1 FROM cache_entries e
			WHERE e.fingerprint = cache_lines.fingerprint
			  AND e.pattern = cache_lines.pattern
			  AND e.created_at < ?
		)`, cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("expire cache lines: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}

// CacheStats returns the number of cached files and lines.
func (s *Store) CacheStats() (entries int64, lines int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM cache_entries),
			(SELECT COUNT(*) FROM cache_lines)`,
	).Scan(&entries, &lines)
	return entries, lines, err
}
