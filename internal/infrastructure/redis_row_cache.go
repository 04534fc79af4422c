package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"adsinsight/internal/domain"
	"adsinsight/pkg/logger"
	"adsinsight/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "adsinsight:rows:"

// implements domain.RowCache on Redis so several instances share fetched rows
type RedisRowCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRedisRowCache(client *redis.Client, prefix string, ttl time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *RedisRowCache {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisRowCache{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// stored form; rows are kept as ordered column lists
type redisEntry struct {
	StoredAt   time.Time        `json:"stored_at"`
	Worksheets []redisWorksheet `json:"worksheets"`
}

type redisWorksheet struct {
	SourceID string            `json:"source_id"`
	Name     string            `json:"name"`
	Rows     [][]domain.Column `json:"rows"`
}

func (c *RedisRowCache) Get(ctx context.Context, key string) ([]domain.Worksheet, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.RecordCacheLookup("redis", false)
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached rows for %s: %w", key, err)
	}

	entry, err := decodeRedisEntry(data)
	if err != nil {
		c.metrics.RecordCacheLookup("redis", false)
		c.logger.WithContext(ctx).WithError(err).WithField("key", key).Warn("Discarding unreadable cache entry")
		return nil, domain.ErrCacheMiss
	}

	worksheets := make([]domain.Worksheet, len(entry.Worksheets))
	for i, ws := range entry.Worksheets {
		rows := make([]domain.Row, len(ws.Rows))
		for j, cols := range ws.Rows {
			rows[j] = domain.NewRow(ws.SourceID, ws.Name, cols...)
		}
		worksheets[i] = domain.Worksheet{SourceID: ws.SourceID, Name: ws.Name, Rows: rows}
	}

	c.metrics.RecordCacheLookup("redis", true)
	return worksheets, nil
}

func (c *RedisRowCache) Set(ctx context.Context, key string, worksheets []domain.Worksheet) error {
	entry := redisEntry{
		StoredAt:   time.Now().UTC(),
		Worksheets: make([]redisWorksheet, len(worksheets)),
	}
	for i, ws := range worksheets {
		rows := make([][]domain.Column, len(ws.Rows))
		for j, r := range ws.Rows {
			rows[j] = r.Columns()
		}
		entry.Worksheets[i] = redisWorksheet{SourceID: ws.SourceID, Name: ws.Name, Rows: rows}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode rows for %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rows for %s: %w", key, err)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"key":        key,
		"worksheets": len(worksheets),
		"rows":       countRows(worksheets),
		"ttl":        c.ttl,
	}).Debug("Stored rows in redis cache")
	return nil
}

// lists live entries under the prefix; expired keys are already gone in redis
func (c *RedisRowCache) Status(ctx context.Context) ([]domain.CacheEntry, error) {
	keys, err := c.keys(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]domain.CacheEntry, 0, len(keys))
	for _, full := range keys {
		data, err := c.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read cache entry %s: %w", full, err)
		}

		e := domain.CacheEntry{Key: full[len(c.prefix):]}
		if entry, err := decodeRedisEntry(data); err == nil {
			for _, ws := range entry.Worksheets {
				e.Rows += len(ws.Rows)
			}
			e.Age = now.Sub(entry.StoredAt)
		}

		ttl, err := c.client.TTL(ctx, full).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read ttl of %s: %w", full, err)
		}
		if ttl > 0 {
			e.ExpiresIn = ttl
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (c *RedisRowCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.keys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to clear row cache: %w", err)
	}

	c.logger.WithContext(ctx).WithField("count", n).Info("Cleared redis row cache")
	return int(n), nil
}

func (c *RedisRowCache) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan row cache: %w", err)
	}
	return keys, nil
}

func decodeRedisEntry(data []byte) (redisEntry, error) {
	var entry redisEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&entry); err != nil {
		return redisEntry{}, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return entry, nil
}
