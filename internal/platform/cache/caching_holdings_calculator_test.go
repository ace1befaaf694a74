package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio_backend/internal/feature/portfolio/domain/entity"
	"folio_backend/internal/platform/eventbus"
	"folio_backend/internal/shared/filter"
)

type mockHoldingsSource struct {
	calls int
	fn    func(userID string, filters []filter.Filter, baseCurrency string) (entity.Holdings, error)
}

func (m *mockHoldingsSource) Calculate(ctx context.Context, userID string, filters []filter.Filter, baseCurrency string) (entity.Holdings, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(userID, filters, baseCurrency)
	}
	return entity.Holdings{BaseCurrency: baseCurrency, Holdings: []entity.Holding{}}, nil
}

const holdingsKey = "portfolio:u1:holdings:CHF:ACCOUNT=a1,TAG=t1"

var sampleHoldings = entity.Holdings{
	BaseCurrency:        "CHF",
	ValueInBaseCurrency: 1500,
	Holdings: []entity.Holding{
		{DataSource: "FINANCIAL_MODELING_PREP", Symbol: "AAPL", Quantity: 10, MarketPrice: 150, ValueInBaseCurrency: 1500, AllocationInPercentage: 1},
	},
}

func TestCachingHoldingsCalculator_NilRedis(t *testing.T) {
	t.Parallel()

	inner := &mockHoldingsSource{}
	c := NewCachingHoldingsCalculator(nil, 0, inner, "")
	_, err := c.Calculate(context.Background(), "u1", nil, "USD")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, c.Invalidate(context.Background(), "u1"))
}

func TestCachingHoldingsCalculator_CacheKeyIgnoresFilterOrder(t *testing.T) {
	t.Parallel()

	c := NewCachingHoldingsCalculator(nil, 0, &mockHoldingsSource{}, "")
	a := c.cacheKey("u1", []filter.Filter{{ID: "t1", Type: filter.TypeTag}, {ID: "a1", Type: filter.TypeAccount}}, "CHF")
	b := c.cacheKey("u1", []filter.Filter{{ID: "a1", Type: filter.TypeAccount}, {ID: "t1", Type: filter.TypeTag}}, "CHF")
	assert.Equal(t, holdingsKey, a)
	assert.Equal(t, a, b)
	assert.Equal(t, "portfolio:u1:holdings:USD:", c.cacheKey("u1", nil, "USD"))
}

func TestCachingHoldingsCalculator_Calculate(t *testing.T) {
	t.Parallel()

	filters := []filter.Filter{{ID: "a1", Type: filter.TypeAccount}, {ID: "t1", Type: filter.TypeTag}}
	payload, _ := json.Marshal(sampleHoldings)

	t.Run("hit", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		defer func() { _ = rdb.Close() }()
		mock.ExpectGet(holdingsKey).SetVal(string(payload))

		inner := &mockHoldingsSource{}
		got, err := NewCachingHoldingsCalculator(rdb, time.Minute, inner, "").Calculate(context.Background(), "u1", filters, "CHF")
		require.NoError(t, err)
		assert.Zero(t, inner.calls, "inner calculator should not run on cache hit")
		assert.Equal(t, sampleHoldings, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		defer func() { _ = rdb.Close() }()
		mock.ExpectGet(holdingsKey).RedisNil()
		mock.ExpectSet(holdingsKey, payload, time.Minute).SetVal("OK")

		inner := &mockHoldingsSource{fn: func(userID string, filters []filter.Filter, baseCurrency string) (entity.Holdings, error) {
			return sampleHoldings, nil
		}}
		got, err := NewCachingHoldingsCalculator(rdb, time.Minute, inner, "").Calculate(context.Background(), "u1", filters, "CHF")
		require.NoError(t, err)
		assert.Equal(t, 1, inner.calls)
		assert.Equal(t, sampleHoldings, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inner error is not cached", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		defer func() { _ = rdb.Close() }()
		mock.ExpectGet(holdingsKey).RedisNil()

		boom := errors.New("db down")
		inner := &mockHoldingsSource{fn: func(string, []filter.Filter, string) (entity.Holdings, error) {
			return entity.Holdings{}, boom
		}}
		_, err := NewCachingHoldingsCalculator(rdb, time.Minute, inner, "").Calculate(context.Background(), "u1", filters, "CHF")
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCachingHoldingsCalculator_OnPortfolioChanged(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	keys := []string{"portfolio:u1:holdings:CHF:", holdingsKey}
	mock.ExpectScan(0, "portfolio:u1:*", 200).SetVal(keys, 0)
	mock.ExpectDel(keys...).SetVal(2)

	c := NewCachingHoldingsCalculator(rdb, time.Minute, &mockHoldingsSource{}, "")
	require.NoError(t, c.OnPortfolioChanged(context.Background(), eventbus.PortfolioChangedEvent{UserID: "u1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingHoldingsCalculator_OnMarketDataUpdated(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	keys := []string{holdingsKey, "portfolio:u2:holdings:USD:"}
	mock.ExpectScan(0, "portfolio:*", 200).SetVal(keys, 0)
	mock.ExpectDel(keys...).SetVal(2)

	c := NewCachingHoldingsCalculator(rdb, time.Minute, &mockHoldingsSource{}, "")
	ev := eventbus.MarketDataUpdatedEvent{DataSource: "FINANCIAL_MODELING_PREP", Symbol: "AAPL"}
	require.NoError(t, c.OnMarketDataUpdated(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())

	// other events are ignored
	require.NoError(t, c.OnMarketDataUpdated(context.Background(), eventbus.PortfolioChangedEvent{UserID: "u1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
