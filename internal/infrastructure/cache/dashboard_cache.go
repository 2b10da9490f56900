// Package cache provides the in-process cache for dashboard summaries.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waterworks/backend/internal/domain/billing"
	"github.com/waterworks/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultSummaryTTL      = 30 * time.Second
	defaultCleanupInterval = 30 * time.Second
)

// summaryEntry wraps a cached summary with its expiration time
type summaryEntry struct {
	summary   *billing.DashboardSummary
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *summaryEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// DashboardSummaryCache implements billing.DashboardCache with in-process
// storage. Summaries are small and keyed per period, so a sync.Map with
// a background sweep suffices; a restart costs one recomputation.
type DashboardSummaryCache struct {
	entries         sync.Map // map[string]*summaryEntry
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	logger          *zap.Logger
	stopCh          chan struct{}
	stopped         int32

	// Stats for monitoring
	hits   int64
	misses int64
}

// DashboardSummaryCacheOption is a functional option for configuring the cache
type DashboardSummaryCacheOption func(*DashboardSummaryCache)

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) DashboardSummaryCacheOption {
	return func(c *DashboardSummaryCache) {
		c.logger = logger
	}
}

// WithDefaultTTL sets the TTL applied when Set receives a zero TTL
func WithDefaultTTL(ttl time.Duration) DashboardSummaryCacheOption {
	return func(c *DashboardSummaryCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(interval time.Duration) DashboardSummaryCacheOption {
	return func(c *DashboardSummaryCache) {
		if interval > 0 {
			c.cleanupInterval = interval
		}
	}
}

// NewDashboardSummaryCache creates a new in-memory dashboard summary cache
func NewDashboardSummaryCache(opts ...DashboardSummaryCacheOption) *DashboardSummaryCache {
	cache := &DashboardSummaryCache{
		defaultTTL:      defaultSummaryTTL,
		cleanupInterval: defaultCleanupInterval,
		logger:          zap.NewNop(),
		stopCh:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves the cached summary for a period. A miss returns nil, nil.
func (c *DashboardSummaryCache) Get(ctx context.Context, period valueobject.Period) (*billing.DashboardSummary, error) {
	key := period.String()

	if value, ok := c.entries.Load(key); ok {
		entry := value.(*summaryEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("Dashboard cache hit", zap.String("period", key))
			return entry.summary, nil
		}
		// Expired, remove from cache
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("Dashboard cache miss", zap.String("period", key))
	return nil, nil
}

// Set stores a summary for a period. A zero TTL uses the default.
func (c *DashboardSummaryCache) Set(ctx context.Context, period valueobject.Period, summary *billing.DashboardSummary, ttl time.Duration) error {
	if summary == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	key := period.String()
	entry := &summaryEntry{
		summary:   summary,
		expiresAt: time.Now().Add(ttl),
	}

	c.entries.Store(key, entry)
	c.logger.Debug("Cached dashboard summary",
		zap.String("period", key),
		zap.Duration("ttl", ttl))
	return nil
}

// Invalidate removes the cached summary for a period
func (c *DashboardSummaryCache) Invalidate(ctx context.Context, period valueobject.Period) error {
	key := period.String()
	c.entries.Delete(key)
	c.logger.Debug("Invalidated dashboard summary", zap.String("period", key))
	return nil
}

// Close releases any resources held by the cache
func (c *DashboardSummaryCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *DashboardSummaryCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries in the cache
func (c *DashboardSummaryCache) Count() int {
	count := 0
	c.entries.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// cleanupExpired periodically removes expired entries from the cache
func (c *DashboardSummaryCache) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache cleanup",
							zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

// doCleanup removes expired entries
func (c *DashboardSummaryCache) doCleanup() {
	var removed int

	c.entries.Range(func(key, value any) bool {
		entry := value.(*summaryEntry)
		if entry.isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired dashboard summaries",
			zap.Int("removed", removed))
	}
}

// Ensure DashboardSummaryCache implements DashboardCache
var _ billing.DashboardCache = (*DashboardSummaryCache)(nil)
