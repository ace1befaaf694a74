package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"folio_backend/internal/feature/portfolio/domain/entity"
	"folio_backend/internal/feature/portfolio/usecase"
	"folio_backend/internal/platform/eventbus"
	"folio_backend/internal/shared/filter"
)

// CachingHoldingsCalculator caches computed holdings per user, base currency and filter set.
// Entries are dropped by Invalidate when the user's activities change and by
// InvalidateAll when new market prices arrive.
type CachingHoldingsCalculator struct {
	inner     usecase.HoldingsSource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.HoldingsSource = (*CachingHoldingsCalculator)(nil)

// NewCachingHoldingsCalculator wraps inner. If ttl is 0, entries last until the
// next ECB publication. If namespace is empty, it uses "portfolio".
func NewCachingHoldingsCalculator(rdb *redis.Client, ttl time.Duration, inner usecase.HoldingsSource, namespace string) *CachingHoldingsCalculator {
	if namespace == "" {
		namespace = "portfolio"
	}
	return &CachingHoldingsCalculator{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

func (c *CachingHoldingsCalculator) Calculate(ctx context.Context, userID string, filters []filter.Filter, baseCurrency string) (entity.Holdings, error) {
	if c.rdb == nil {
		return c.inner.Calculate(ctx, userID, filters, baseCurrency)
	}

	key := c.cacheKey(userID, filters, baseCurrency)
	var out entity.Holdings
	if getJSON(ctx, c.rdb, key, &out) {
		return out, nil
	}

	out, err := c.inner.Calculate(ctx, userID, filters, baseCurrency)
	if err != nil {
		return entity.Holdings{}, err
	}
	ttl := c.ttl
	if ttl <= 0 {
		ttl = TimeUntilNextECBPublication()
	}
	setJSON(ctx, c.rdb, key, out, ttl)
	return out, nil
}

// Invalidate deletes every cached entry of userID.
func (c *CachingHoldingsCalculator) Invalidate(ctx context.Context, userID string) error {
	if c.rdb == nil {
		return nil
	}
	return DeleteByPattern(ctx, c.rdb, c.userPrefix(userID)+"*")
}

// OnPortfolioChanged is an eventbus.Listener that invalidates the changed user's entries.
func (c *CachingHoldingsCalculator) OnPortfolioChanged(ctx context.Context, e eventbus.Event) error {
	ev, ok := e.(eventbus.PortfolioChangedEvent)
	if !ok {
		return nil
	}
	return c.Invalidate(ctx, ev.UserID)
}

// InvalidateAll deletes the entries of every user.
func (c *CachingHoldingsCalculator) InvalidateAll(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return DeleteByPattern(ctx, c.rdb, c.namespace+":*")
}

// OnMarketDataUpdated is an eventbus.Listener. Holdings are not indexed by asset,
// so fresh prices of any asset drop every entry.
func (c *CachingHoldingsCalculator) OnMarketDataUpdated(ctx context.Context, e eventbus.Event) error {
	if _, ok := e.(eventbus.MarketDataUpdatedEvent); !ok {
		return nil
	}
	return c.InvalidateAll(ctx)
}

func (c *CachingHoldingsCalculator) userPrefix(userID string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(userID))
}

// cacheKey is independent of the order filters are given in.
func (c *CachingHoldingsCalculator) cacheKey(userID string, filters []filter.Filter, baseCurrency string) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, safe(string(f.Type)+"="+f.ID))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%sholdings:%s:%s", c.userPrefix(userID), safe(baseCurrency), strings.Join(parts, ","))
}
