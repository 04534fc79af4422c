package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"
)


type cachedRows struct {
	worksheets []domain.Worksheet
	storedAt   time.Time
}

// implements domain.RowCache in process memory
type MemoryRowCache struct {
	data    map[string]cachedRows
	mutex   sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// creates a memory row cache; ttl <= 0 keeps entries until cleared
func NewMemoryRowCache(ttl time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *MemoryRowCache {
	return &MemoryRowCache{
		data:    make(map[string]cachedRows),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *MemoryRowCache) Get(ctx context.Context, key string) ([]domain.Worksheet, error) {
	c.mutex.RLock()
	entry, exists := c.data[key]
	c.mutex.RUnlock()

	if !exists || c.expired(entry) {
		c.metrics.RecordCacheLookup("memory", false)
		return nil, domain.ErrCacheMiss
	}

	c.metrics.RecordCacheLookup("memory", true)
	return entry.worksheets, nil
}

func (c *MemoryRowCache) Set(ctx context.Context, key string, worksheets []domain.Worksheet) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cachedRows{worksheets: worksheets, storedAt: c.now()}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"key":        key,
		"worksheets": len(worksheets),
		"rows":       countRows(worksheets),
	}).Debug("Stored rows in memory cache")
	return nil
}

// lists every entry, expired ones included, ordered by key
func (c *MemoryRowCache) Status(ctx context.Context) ([]domain.CacheEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	entries := make([]domain.CacheEntry, 0, len(c.data))
	for key, entry := range c.data {
		e := domain.CacheEntry{
			Key:  key,
			Rows: countRows(entry.worksheets),
			Age:  now.Sub(entry.storedAt),
		}
		if c.ttl > 0 {
			e.ExpiresIn = c.ttl - e.Age
			e.Expired = e.ExpiresIn <= 0
			if e.Expired {
				e.ExpiresIn = 0
			}
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (c *MemoryRowCache) Clear(ctx context.Context) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := len(c.data)
	c.data = make(map[string]cachedRows)

	c.logger.WithContext(ctx).WithField("count", n).Info("Cleared memory row cache")
	return n, nil
}

func (c *MemoryRowCache) expired(entry cachedRows) bool {
	return c.ttl > 0 && c.now().Sub(entry.storedAt) >= c.ttl
}

func countRows(worksheets []domain.Worksheet) int {
	n := 0
	for _, ws := range worksheets {
		n += len(ws.Rows)
	}
	return n
}
