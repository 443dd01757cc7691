// Package cache holds the computed timelines keyed by session snapshot, so
// repeated page renders of an unchanged table skip re-aggregation.
package cache

import (
	"fmt"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

var (
	_ Cache[core.Aggregation] = (*LRUCache[core.Aggregation])(nil)
	_ Cleaner                 = (*LRUCache[core.Aggregation])(nil)
	_ Cleaner                 = (*Timelines)(nil)
)

// Timelines caches aggregations by session and snapshot version. A snapshot
// never changes once written, so a version bump is the only invalidation.
type Timelines struct {
	lru *LRUCache[core.Aggregation]
}

// NewTimelines creates a timeline cache holding up to maxSize aggregations.
func NewTimelines(maxSize int, ttl time.Duration) *Timelines {
	return &Timelines{lru: NewLRUCache[core.Aggregation](maxSize, ttl)}
}

// Aggregate returns the aggregation of t, computing it on a miss.
func (c *Timelines) Aggregate(sessionID string, version int64, t core.Table) core.Aggregation {
	agg, _ := c.lru.GetOrCompute(timelineKey(sessionID, version), func() (core.Aggregation, error) {
		return core.Aggregate(t), nil
	})
	return agg
}

// Forget drops a cached aggregation.
func (c *Timelines) Forget(sessionID string, version int64) {
	c.lru.Delete(timelineKey(sessionID, version))
}

// Size returns the number of cached aggregations.
func (c *Timelines) Size() int { return c.lru.Size() }

// CleanExpired implements Cleaner.
func (c *Timelines) CleanExpired() int { return c.lru.CleanExpired() }

func timelineKey(sessionID string, version int64) string {
	return fmt.Sprintf("%s:%d", sessionID, version)
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 && m.logger != nil {
				m.logger.Debug("Cache cleanup", "expired", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup routine. It must be called at most once and only
// after StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
