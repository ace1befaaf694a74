// Package usecase gathers asset profiles and historical market data from the
// data providers into the database, through a priority job queue.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dpentity "folio_backend/internal/feature/dataprovider/domain/entity"
	mdentity "folio_backend/internal/feature/marketdata/domain/entity"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/platform/eventbus"
	"folio_backend/internal/platform/queue"
	"folio_backend/internal/shared/ratelimiter"
)

// defaultLookBack は開始日が指定されていない場合に遡る期間です。
const defaultLookBack = 20

// DataProvider は外部データプロバイダーへのアクセスを抽象化します。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type DataProvider interface {
	GetAssetProfile(ctx context.Context, id spentity.AssetProfileIdentifier) (*spentity.SymbolProfile, error)
	GetHistorical(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]dpentity.HistoricalDataItem, error)
}

type SymbolProfileWriter interface {
	Upsert(ctx context.Context, p spentity.SymbolProfile) error
	// ListGatherable returns every profile whose data source is not MANUAL.
	ListGatherable(ctx context.Context) ([]spentity.SymbolProfile, error)
}

type MarketDataWriter interface {
	UpsertBatch(ctx context.Context, items []mdentity.MarketData) error
}

// DataGatheringUsecase は収集ジョブの投入と実行を担います。
type DataGatheringUsecase struct {
	queue       queue.Queue
	provider    DataProvider
	profiles    SymbolProfileWriter
	marketData  MarketDataWriter
	rateLimiter ratelimiter.RateLimiterInterface
	events      EventEmitter
	now         func() time.Time
}

type EventEmitter interface {
	Emit(ctx context.Context, e eventbus.Event)
}

// WithEvents makes the usecase announce stored prices on events.
func (u *DataGatheringUsecase) WithEvents(events EventEmitter) *DataGatheringUsecase {
	u.events = events
	return u
}

// NewDataGatheringUsecase は収集ユースケースを生成します。rl はジョブの実行間隔を制御し、nil の場合は無制限です。
func NewDataGatheringUsecase(q queue.Queue, provider DataProvider, profiles SymbolProfileWriter, marketData MarketDataWriter, rl ratelimiter.RateLimiterInterface) *DataGatheringUsecase {
	if rl == nil {
		rl = ratelimiter.NewRateLimiter(0, 0)
	}
	return &DataGatheringUsecase{
		queue:       q,
		provider:    provider,
		profiles:    profiles,
		marketData:  marketData,
		rateLimiter: rl,
		now:         time.Now,
	}
}

// AddJobToQueue enqueues job unless a job with the same ID is waiting or running.
func (u *DataGatheringUsecase) AddJobToQueue(ctx context.Context, job queue.Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = u.now()
	}
	added, err := u.queue.Add(ctx, job)
	if err != nil {
		return fmt.Errorf("add job %s: %w", job.ID, err)
	}
	if !added {
		slog.Debug("job already queued", "jobId", job.ID, "name", job.Name)
	}
	return nil
}

// historicalJobID is unique per asset and start date, "all" standing for the default look back.
func historicalJobID(item queue.JobData) string {
	since := "all"
	if item.Date != nil {
		since = item.Date.UTC().Format(dpentity.DateFormat)
	}
	return spentity.AssetProfileIdentifier{DataSource: item.DataSource, Symbol: item.Symbol}.Key() + "-" + since
}

// GatherSymbols enqueues one historical market data job per item.
func (u *DataGatheringUsecase) GatherSymbols(ctx context.Context, items []queue.JobData, priority queue.Priority) error {
	for _, item := range items {
		job := queue.Job{
			ID:       historicalJobID(item),
			Name:     queue.GatherHistoricalMarketData,
			Data:     item,
			Priority: priority,
		}
		if err := u.AddJobToQueue(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// GatherAll enqueues a profile job and a full history job for every gatherable profile.
func (u *DataGatheringUsecase) GatherAll(ctx context.Context) (int, error) {
	profiles, err := u.profiles.ListGatherable(ctx)
	if err != nil {
		return 0, err
	}
	items := make([]queue.JobData, 0, len(profiles))
	for _, p := range profiles {
		job := queue.Job{
			ID:       p.Identifier().Key(),
			Name:     queue.GatherAssetProfile,
			Data:     queue.JobData{DataSource: p.DataSource, Symbol: p.Symbol},
			Priority: queue.PriorityLow,
		}
		if err := u.AddJobToQueue(ctx, job); err != nil {
			return 0, err
		}
		items = append(items, queue.JobData{DataSource: p.DataSource, Symbol: p.Symbol})
	}
	if err := u.GatherSymbols(ctx, items, queue.PriorityLow); err != nil {
		return 0, err
	}
	return len(profiles), nil
}

// Process runs one job once the rate limiter allows the next one.
func (u *DataGatheringUsecase) Process(ctx context.Context, job queue.Job) error {
	id := spentity.AssetProfileIdentifier{DataSource: job.Data.DataSource, Symbol: job.Data.Symbol}
	if err := u.rateLimiter.Wait(ctx); err != nil {
		return err
	}
	switch job.Name {
	case queue.GatherAssetProfile:
		return u.GatherAssetProfile(ctx, id)
	case queue.GatherHistoricalMarketData:
		return u.GatherHistoricalMarketData(ctx, id, job.Data.Date)
	default:
		return fmt.Errorf("unknown job %q", job.Name)
	}
}

// GatherAssetProfile fetches the profile from the provider and merges it into the stored one.
func (u *DataGatheringUsecase) GatherAssetProfile(ctx context.Context, id spentity.AssetProfileIdentifier) error {
	p, err := u.provider.GetAssetProfile(ctx, id)
	if err != nil {
		return fmt.Errorf("get asset profile %s: %w", id.Key(), err)
	}
	if p == nil {
		return nil
	}
	p.DataSource = id.DataSource
	p.Symbol = id.Symbol
	return u.profiles.Upsert(ctx, *p)
}

// GatherHistoricalMarketData stores daily close prices from since (or 20 years back) until today.
func (u *DataGatheringUsecase) GatherHistoricalMarketData(ctx context.Context, id spentity.AssetProfileIdentifier, since *time.Time) error {
	to := startOfDay(u.now())
	from := to.AddDate(-defaultLookBack, 0, 0)
	if since != nil {
		from = startOfDay(*since)
	}

	hist, err := u.provider.GetHistorical(ctx, id, from, to)
	if err != nil {
		return err
	}
	items := make([]mdentity.MarketData, 0, len(hist))
	for day, h := range hist {
		date, err := time.Parse(dpentity.DateFormat, day)
		if err != nil {
			slog.Warn("skipping historical data point with invalid date", "dataSource", id.DataSource, "symbol", id.Symbol, "date", day)
			continue
		}
		items = append(items, mdentity.MarketData{
			DataSource:  id.DataSource,
			Symbol:      id.Symbol,
			Date:        date,
			MarketPrice: h.MarketPrice,
			State:       mdentity.MarketDataStateClose,
		})
	}
	if len(items) == 0 {
		return nil
	}
	if err := u.marketData.UpsertBatch(ctx, items); err != nil {
		return err
	}
	if u.events != nil {
		u.events.Emit(ctx, eventbus.MarketDataUpdatedEvent{DataSource: string(id.DataSource), Symbol: id.Symbol})
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
