// Package cache implements the TTL key-value cache in front of the job
// store, backed by Redis. The cache is always a derived, losable view:
// when Redis is unreachable every operation degrades to a no-op or a miss,
// and callers must treat that exactly like a cache miss.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"alumnihub/jobs-service/internal/model"
)

// Key prefixes. External write paths (entity CRUD) invalidate by prefix when
// they touch job records outside this pipeline.
const (
	SearchPrefix      = "job_search"
	RecommendedPrefix = "recommended_jobs"

	snapshotKey = "job_search:snapshot"
)

// Cache wraps a Redis client. A nil client is valid and puts the cache in
// degraded mode.
type Cache struct {
	rdb *redis.Client
}

// New returns a Cache over rdb. rdb may be nil.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Key builds a deterministic cache key from a prefix and parameters:
// parameters are sorted by name and joined, so equivalent filters always map
// to the same key regardless of construction order.
func Key(prefix string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name, v := range params {
		if v != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return prefix
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+params[name])
	}
	return prefix + ":" + strings.Join(parts, "|")
}

// Get unmarshals the cached value at key into dest. Returns false on miss,
// decode failure, or degraded mode.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("cache get failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("cache decode failed", "key", key, "err", err)
		return false
	}
	return true
}

// Set stores v at key with the given TTL. Failures are logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", key, "err", err)
	}
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		slog.Warn("cache delete failed", "key", key, "err", err)
	}
}

// DeleteMatching removes every key matching pattern (e.g. "job_search:*")
// and returns the number deleted.
func (c *Cache) DeleteMatching(ctx context.Context, pattern string) int {
	if c.rdb == nil {
		return 0
	}
	deleted := 0
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Warn("cache delete failed", "key", iter.Val(), "err", err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		slog.Warn("cache scan failed", "pattern", pattern, "err", err)
	}
	return deleted
}

// InvalidateSearches drops the bulk snapshot and every per-query entry.
func (c *Cache) InvalidateSearches(ctx context.Context) int {
	return c.DeleteMatching(ctx, SearchPrefix+":*")
}

// InvalidateRecommended drops all recommended-jobs entries.
func (c *Cache) InvalidateRecommended(ctx context.Context) int {
	return c.DeleteMatching(ctx, RecommendedPrefix+":*")
}

// Snapshot returns the bulk snapshot: the full active-listing set, if cached.
func (c *Cache) Snapshot(ctx context.Context) ([]model.JobListing, bool) {
	var jobs []model.JobListing
	if !c.Get(ctx, snapshotKey, &jobs) {
		return nil, false
	}
	return jobs, true
}

// SetSnapshot stores the full active-listing set as the bulk snapshot.
func (c *Cache) SetSnapshot(ctx context.Context, jobs []model.JobListing, ttl time.Duration) {
	c.Set(ctx, snapshotKey, jobs, ttl)
}
