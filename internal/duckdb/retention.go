package duckdb

import (
	"log"
	"sync"
	"time"
)

// RetentionConfig holds configuration for the cache retention cleaner.
type RetentionConfig struct {
	RetentionDays int
	// Interval between sweeps while the cleaner is running. Defaults to one hour.
	Interval time.Duration
	// Now is used to compute the cutoff. Defaults to time.Now.
	Now func() time.Time
}

// RetentionCleaner deletes cache entries older than the retention period,
// once at startup and then on every tick until stopped.
type RetentionCleaner struct {
	store         *Store
	retentionDays int
	interval      time.Duration
	now           func() time.Time
	done          chan struct{}
	wg            sync.WaitGroup
	stopOnce      sync.Once

	mu      sync.Mutex
	removed int64
}

// NewRetentionCleaner creates a retention cleaner for the cache tables.
// Returns nil when retention is 0 (disabled).
func NewRetentionCleaner(store *Store, conf ...RetentionConfig) *RetentionCleaner {
	c := RetentionConfig{RetentionDays: 30}
	if len(conf) > 0 {
		c = conf[0]
	}
	if c.RetentionDays <= 0 {
		return nil
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	rc := &RetentionCleaner{
		store:         store,
		retentionDays: c.RetentionDays,
		interval:      c.Interval,
		now:           c.Now,
		done:          make(chan struct{}),
	}

	// Startup sweep so stale entries never serve a run.
	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()

	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

// Cutoff returns the creation time before which entries are expired.
func (rc *RetentionCleaner) Cutoff() time.Time {
	return rc.now().Add(-time.Duration(rc.retentionDays) * 24 * time.Hour)
}

func (rc *RetentionCleaner) cleanup() {
	rows, err := rc.store.DeleteBefore(rc.Cutoff())
	if err != nil {
		log.Printf("duckdb: cache retention error: %v", err)
		return
	}
	if rows > 0 {
		rc.mu.Lock()
		rc.removed += rows
		rc.mu.Unlock()
		log.Printf("duckdb: cache retention removed %d entries (older than %d days)", rows, rc.retentionDays)
	}
}

// Removed returns the number of entries deleted so far.
func (rc *RetentionCleaner) Removed() int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.removed
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
