// Package linecache keys filtered log lines by the content of the file they came from.
package linecache

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/tinytelemetry/scrubstat/internal/model"
)

// FingerprintFile hashes the raw bytes of path. Compressed files are hashed as stored.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Fingerprint(f)
}

// Fingerprint hashes everything readable from r.
func Fingerprint(r io.Reader) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// PatternKey returns the cache key component for a keep filter.
// A nil filter keeps every line.
func PatternKey(keep *regexp.Regexp) string {
	if keep == nil {
		return "*"
	}
	return keep.String()
}

type memKey struct {
	fingerprint string
	pattern     string
}

// Memory is a process-local LineCache.
type Memory struct {
	mu      sync.RWMutex
	entries map[memKey][]string
}

var _ model.LineCache = (*Memory)(nil)

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[memKey][]string)}
}

// GetLines returns a copy of the cached lines.
func (m *Memory) GetLines(fingerprint, pattern string) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines, ok := m.entries[memKey{fingerprint, pattern}]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), lines...), true, nil
}

// PutLines stores a copy of lines, replacing any previous entry.
func (m *Memory) PutLines(fingerprint, pattern, _ string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memKey{fingerprint, pattern}] = append([]string{}, lines...)
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
