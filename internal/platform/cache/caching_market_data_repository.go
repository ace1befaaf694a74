// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"folio_backend/internal/feature/marketdata/domain/entity"
	"folio_backend/internal/feature/marketdata/usecase"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

// CachingMarketDataRepository decorates a MarketDataRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository.
type CachingMarketDataRepository struct {
	inner     usecase.MarketDataRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.MarketDataRepository = (*CachingMarketDataRepository)(nil)

// NewCachingMarketDataRepository decorates a MarketDataRepository with Redis caching.
// If ttl is 0, it lasts until the next ECB publication. If namespace is empty, it uses "market-data".
func NewCachingMarketDataRepository(rdb *redis.Client, ttl time.Duration, inner usecase.MarketDataRepository, namespace string) *CachingMarketDataRepository {
	if namespace == "" {
		namespace = "market-data"
	}
	return &CachingMarketDataRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *CachingMarketDataRepository) expiration() time.Duration {
	if c.ttl > 0 {
		return c.ttl
	}
	return TimeUntilNextECBPublication()
}

// UpsertBatch stores prices and invalidates every cache entry of the affected assets.
func (c *CachingMarketDataRepository) UpsertBatch(ctx context.Context, items []entity.MarketData) error {
	if err := c.inner.UpsertBatch(ctx, items); err != nil {
		return err
	}
	if c.rdb == nil || len(items) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	for _, it := range items {
		prefix := c.cacheKeyPrefix(it.Identifier())
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		_ = c.deleteByPattern(ctx, prefix+"*") // Best effort: don't fail if cache deletion fails
	}
	return nil
}

func (c *CachingMarketDataRepository) FindRange(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) ([]entity.MarketData, error) {
	if c.rdb == nil {
		return c.inner.FindRange(ctx, id, from, to)
	}

	key := fmt.Sprintf("%srange:%d:%d", c.cacheKeyPrefix(id), from.Unix(), to.Unix())
	var out []entity.MarketData
	if c.get(ctx, key, &out) {
		return out, nil
	}

	out, err := c.inner.FindRange(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, out)
	return out, nil
}

// FindLatest serves cached assets from Redis and loads the rest with one inner call.
func (c *CachingMarketDataRepository) FindLatest(ctx context.Context, ids []spentity.AssetProfileIdentifier) (map[string]entity.MarketData, error) {
	if c.rdb == nil {
		return c.inner.FindLatest(ctx, ids)
	}

	out := make(map[string]entity.MarketData, len(ids))
	var misses []spentity.AssetProfileIdentifier
	for _, id := range ids {
		var md entity.MarketData
		if c.get(ctx, c.latestKey(id), &md) {
			out[id.Key()] = md
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	loaded, err := c.inner.FindLatest(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, id := range misses {
		md, ok := loaded[id.Key()]
		if !ok {
			continue
		}
		out[id.Key()] = md
		c.set(ctx, c.latestKey(id), md)
	}
	return out, nil
}

func (c *CachingMarketDataRepository) get(ctx context.Context, key string, v any) bool {
	return getJSON(ctx, c.rdb, key, v)
}

func (c *CachingMarketDataRepository) set(ctx context.Context, key string, v any) {
	setJSON(ctx, c.rdb, key, v, c.expiration())
}

// getJSON reads key into v. Corrupted entries are deleted and reported as a miss.
func getJSON(ctx context.Context, rdb *redis.Client, key string, v any) bool {
	b, err := rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		_ = rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

func setJSON(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) {
	if b, err := json.Marshal(v); err == nil {
		_ = rdb.Set(ctx, key, b, ttl).Err()
	}
}

func (c *CachingMarketDataRepository) latestKey(id spentity.AssetProfileIdentifier) string {
	return c.cacheKeyPrefix(id) + "latest"
}

// cacheKeyPrefix generates a prefix for invalidating every entry of one asset.
func (c *CachingMarketDataRepository) cacheKeyPrefix(id spentity.AssetProfileIdentifier) string {
	return fmt.Sprintf("%s:%s:%s:",
		c.namespace,
		safe(string(id.DataSource)),
		safe(id.Symbol),
	)
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingMarketDataRepository) deleteByPattern(ctx context.Context, pattern string) error {
	return DeleteByPattern(ctx, c.rdb, pattern)
}

// DeleteByPattern deletes all keys matching pattern using SCAN.
func DeleteByPattern(ctx context.Context, rdb *redis.Client, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
