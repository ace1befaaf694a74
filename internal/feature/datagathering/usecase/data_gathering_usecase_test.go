package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dpentity "folio_backend/internal/feature/dataprovider/domain/entity"
	mdentity "folio_backend/internal/feature/marketdata/domain/entity"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/platform/eventbus"
	"folio_backend/internal/platform/queue"
	"folio_backend/internal/shared/ratelimiter"
)

// mockDataProvider is a mock implementation of the DataProvider interface.
type mockDataProvider struct {
	GetAssetProfileFunc func(ctx context.Context, id spentity.AssetProfileIdentifier) (*spentity.SymbolProfile, error)
	GetHistoricalFunc   func(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]dpentity.HistoricalDataItem, error)
}

func (m *mockDataProvider) GetAssetProfile(ctx context.Context, id spentity.AssetProfileIdentifier) (*spentity.SymbolProfile, error) {
	if m.GetAssetProfileFunc != nil {
		return m.GetAssetProfileFunc(ctx, id)
	}
	return &spentity.SymbolProfile{Name: id.Symbol, Currency: "USD"}, nil
}

func (m *mockDataProvider) GetHistorical(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]dpentity.HistoricalDataItem, error) {
	if m.GetHistoricalFunc != nil {
		return m.GetHistoricalFunc(ctx, id, from, to)
	}
	return map[string]dpentity.HistoricalDataItem{}, nil
}

type mockProfiles struct {
	mu         sync.Mutex
	gatherable []spentity.SymbolProfile
	upserted   []spentity.SymbolProfile
}

func (m *mockProfiles) Upsert(ctx context.Context, p spentity.SymbolProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, p)
	return nil
}

func (m *mockProfiles) ListGatherable(ctx context.Context) ([]spentity.SymbolProfile, error) {
	return m.gatherable, nil
}

type mockMarketData struct {
	mu    sync.Mutex
	items []mdentity.MarketData
}

func (m *mockMarketData) UpsertBatch(ctx context.Context, items []mdentity.MarketData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, items...)
	return nil
}

// mockRateLimiter counts Wait calls and returns err.
type mockRateLimiter struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (m *mockRateLimiter) WaitIfNeeded() {}

func (m *mockRateLimiter) Wait(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits++
	return m.err
}

type mockEvents struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (m *mockEvents) Emit(ctx context.Context, e eventbus.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

var fixedNow = time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)

func newTestUsecase(provider *mockDataProvider) (*DataGatheringUsecase, *queue.MemoryQueue, *mockProfiles, *mockMarketData) {
	q := queue.NewMemoryQueue()
	profiles := &mockProfiles{}
	md := &mockMarketData{}
	uc := NewDataGatheringUsecase(q, provider, profiles, md, ratelimiter.NewRateLimiter(0, 0))
	uc.now = func() time.Time { return fixedNow }
	return uc, q, profiles, md
}

func popAll(t *testing.T, q queue.Queue) []queue.Job {
	t.Helper()
	var jobs []queue.Job
	for {
		j, err := q.Pop(context.Background())
		if errors.Is(err, queue.ErrEmpty) {
			return jobs
		}
		require.NoError(t, err)
		jobs = append(jobs, *j)
	}
}

func TestDataGatheringUsecase_GatherSymbols(t *testing.T) {
	t.Parallel()
	uc, q, _, _ := newTestUsecase(&mockDataProvider{})
	ctx := context.Background()

	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	items := []queue.JobData{
		{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "AAPL", Date: &since},
		{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "AAPL", Date: &since},
		{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "MSFT"},
	}
	require.NoError(t, uc.GatherSymbols(ctx, items, queue.PriorityHigh))

	jobs := popAll(t, q)
	require.Len(t, jobs, 2, "duplicate job ids are enqueued once")
	ids := []string{jobs[0].ID, jobs[1].ID}
	sort.Strings(ids)
	assert.Equal(t, []string{"FINANCIAL_MODELING_PREP-AAPL-2024-01-02", "FINANCIAL_MODELING_PREP-MSFT-all"}, ids)
	for _, j := range jobs {
		assert.Equal(t, queue.GatherHistoricalMarketData, j.Name)
		assert.Equal(t, queue.PriorityHigh, j.Priority)
		assert.Equal(t, fixedNow, j.EnqueuedAt)
	}
}

func TestDataGatheringUsecase_GatherAll(t *testing.T) {
	t.Parallel()
	uc, q, profiles, _ := newTestUsecase(&mockDataProvider{})
	profiles.gatherable = []spentity.SymbolProfile{
		{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "AAPL"},
		{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "BTCUSD"},
	}

	n, err := uc.GatherAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	jobs := popAll(t, q)
	require.Len(t, jobs, 4)
	names := map[string]int{}
	for _, j := range jobs {
		names[j.Name]++
		assert.Equal(t, queue.PriorityLow, j.Priority)
	}
	assert.Equal(t, map[string]int{queue.GatherAssetProfile: 2, queue.GatherHistoricalMarketData: 2}, names)
}

func TestDataGatheringUsecase_ProcessAssetProfile(t *testing.T) {
	t.Parallel()
	uc, _, profiles, _ := newTestUsecase(&mockDataProvider{
		GetAssetProfileFunc: func(ctx context.Context, id spentity.AssetProfileIdentifier) (*spentity.SymbolProfile, error) {
			return &spentity.SymbolProfile{Name: "Apple Inc.", Currency: "USD", AssetClass: spentity.AssetClassEquity}, nil
		},
	})

	err := uc.Process(context.Background(), queue.Job{
		Name: queue.GatherAssetProfile,
		Data: queue.JobData{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "AAPL"},
	})
	require.NoError(t, err)
	require.Len(t, profiles.upserted, 1)
	p := profiles.upserted[0]
	assert.Equal(t, spentity.DataSourceFinancialModelingPrep, p.DataSource)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, "Apple Inc.", p.Name)
}

func TestDataGatheringUsecase_ProcessHistorical(t *testing.T) {
	t.Parallel()

	since := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name         string
		since        *time.Time
		expectedFrom time.Time
	}{
		{name: "from job date", since: &since, expectedFrom: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)},
		{name: "default look back", expectedFrom: time.Date(2004, 6, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFrom, gotTo time.Time
			uc, _, _, md := newTestUsecase(&mockDataProvider{
				GetHistoricalFunc: func(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]dpentity.HistoricalDataItem, error) {
					gotFrom, gotTo = from, to
					return map[string]dpentity.HistoricalDataItem{
						"2024-06-11": {MarketPrice: 190.5},
						"garbage":    {MarketPrice: 1},
					}, nil
				},
			})

			err := uc.Process(context.Background(), queue.Job{
				Name: queue.GatherHistoricalMarketData,
				Data: queue.JobData{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "AAPL", Date: tt.since},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedFrom, gotFrom)
			assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), gotTo)
			assert.Equal(t, []mdentity.MarketData{{
				DataSource:  spentity.DataSourceFinancialModelingPrep,
				Symbol:      "AAPL",
				Date:        time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC),
				MarketPrice: 190.5,
				State:       mdentity.MarketDataStateClose,
			}}, md.items)
		})
	}
}

func TestDataGatheringUsecase_ProcessErrors(t *testing.T) {
	t.Parallel()
	uc, _, _, _ := newTestUsecase(&mockDataProvider{
		GetHistoricalFunc: func(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]dpentity.HistoricalDataItem, error) {
			return nil, errors.New("vendor down")
		},
	})

	err := uc.Process(context.Background(), queue.Job{Name: queue.GatherHistoricalMarketData})
	assert.EqualError(t, err, "vendor down")

	err = uc.Process(context.Background(), queue.Job{Name: "REBALANCE"})
	assert.Error(t, err)
}

func TestDataGatheringUsecase_ProcessWaitsForRateLimiter(t *testing.T) {
	t.Parallel()

	var calls int
	provider := &mockDataProvider{
		GetAssetProfileFunc: func(ctx context.Context, id spentity.AssetProfileIdentifier) (*spentity.SymbolProfile, error) {
			calls++
			return &spentity.SymbolProfile{Name: id.Symbol, Currency: "USD"}, nil
		},
	}
	job := queue.Job{Name: queue.GatherAssetProfile, Data: queue.JobData{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "AAPL"}}

	rl := &mockRateLimiter{}
	uc := NewDataGatheringUsecase(queue.NewMemoryQueue(), provider, &mockProfiles{}, &mockMarketData{}, rl)
	require.NoError(t, uc.Process(context.Background(), job))
	require.NoError(t, uc.Process(context.Background(), job))
	assert.Equal(t, 2, rl.waits)
	assert.Equal(t, 2, calls)

	// a cancelled wait skips the provider
	blocked := &mockRateLimiter{err: context.Canceled}
	uc = NewDataGatheringUsecase(queue.NewMemoryQueue(), provider, &mockProfiles{}, &mockMarketData{}, blocked)
	assert.ErrorIs(t, uc.Process(context.Background(), job), context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestNewDataGatheringUsecase_NilRateLimiter(t *testing.T) {
	t.Parallel()

	uc := NewDataGatheringUsecase(queue.NewMemoryQueue(), &mockDataProvider{}, &mockProfiles{}, &mockMarketData{}, nil)
	assert.NoError(t, uc.Process(context.Background(), queue.Job{Name: queue.GatherAssetProfile}))
}

func TestDataGatheringUsecase_HistoricalEmitsMarketDataUpdated(t *testing.T) {
	t.Parallel()

	prices := map[string]dpentity.HistoricalDataItem{}
	uc, _, _, _ := newTestUsecase(&mockDataProvider{
		GetHistoricalFunc: func(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]dpentity.HistoricalDataItem, error) {
			return prices, nil
		},
	})
	events := &mockEvents{}
	uc.WithEvents(events)
	id := spentity.AssetProfileIdentifier{DataSource: spentity.DataSourceFinancialModelingPrep, Symbol: "MSFT"}

	require.NoError(t, uc.GatherHistoricalMarketData(context.Background(), id, nil))
	assert.Empty(t, events.events, "nothing stored, nothing announced")

	prices["2024-06-14"] = dpentity.HistoricalDataItem{MarketPrice: 420}
	require.NoError(t, uc.GatherHistoricalMarketData(context.Background(), id, nil))
	assert.Equal(t, []eventbus.Event{eventbus.MarketDataUpdatedEvent{DataSource: "FINANCIAL_MODELING_PREP", Symbol: "MSFT"}}, events.events)
}
