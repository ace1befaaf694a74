package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	acadapters "folio_backend/internal/feature/account/adapters"
	achandler "folio_backend/internal/feature/account/transport/handler"
	acusecase "folio_backend/internal/feature/account/usecase"
	authadapters "folio_backend/internal/feature/auth/adapters"
	authhandler "folio_backend/internal/feature/auth/transport/handler"
	authusecase "folio_backend/internal/feature/auth/usecase"
	dgusecase "folio_backend/internal/feature/datagathering/usecase"
	dphandler "folio_backend/internal/feature/dataprovider/transport/handler"
	dpusecase "folio_backend/internal/feature/dataprovider/usecase"
	exusecase "folio_backend/internal/feature/exchangerate/usecase"
	mdadapters "folio_backend/internal/feature/marketdata/adapters"
	mdhandler "folio_backend/internal/feature/marketdata/transport/handler"
	mdusecase "folio_backend/internal/feature/marketdata/usecase"
	orderadapters "folio_backend/internal/feature/order/adapters"
	orderhandler "folio_backend/internal/feature/order/transport/handler"
	orderusecase "folio_backend/internal/feature/order/usecase"
	pfhandler "folio_backend/internal/feature/portfolio/transport/handler"
	pfusecase "folio_backend/internal/feature/portfolio/usecase"
	spadapters "folio_backend/internal/feature/symbolprofile/adapters"
	sphandler "folio_backend/internal/feature/symbolprofile/transport/handler"
	spusecase "folio_backend/internal/feature/symbolprofile/usecase"
	"folio_backend/internal/platform/cache"
	"folio_backend/internal/platform/config"
	"folio_backend/internal/platform/db"
	"folio_backend/internal/platform/eventbus"
	"folio_backend/internal/platform/htmltemplate"
	"folio_backend/internal/platform/metrics"
	infraredis "folio_backend/internal/platform/redis"
	"folio_backend/internal/shared/ratelimiter"
)

// Handlers are the HTTP entry points of every feature.
type Handlers struct {
	Auth          *authhandler.AuthHandler
	Account       *achandler.AccountHandler
	Order         *orderhandler.OrderHandler
	Portfolio     *pfhandler.PortfolioHandler
	SymbolProfile *sphandler.SymbolProfileHandler
	MarketData    *mdhandler.MarketDataHandler
	DataProvider  *dphandler.DataProviderHandler
}

// Container holds the long lived components shared by the server and the ingest command.
type Container struct {
	Config  config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Events  *eventbus.Bus

	DataGathering *dgusecase.DataGatheringUsecase
	Worker        *dgusecase.Worker
	Handlers      Handlers
	HTMLTemplate  *htmltemplate.Middleware

	closers []func() error
}

// NewContainer opens the database and Redis and wires every feature.
// Redis is optional: without it the queue is in memory and nothing is cached.
func NewContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	gdb, err := db.Open(cfg.Database, Models()...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c := &Container{Config: cfg, DB: gdb, Metrics: metrics.New(), Events: eventbus.New()}

	rdb, err := infraredis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without cache", "error", err)
	}
	if rdb != nil {
		c.Redis = rdb
		c.closers = append(c.closers, rdb.Close)
	}

	// Repository
	userRepo := authadapters.NewUserRepository(gdb)
	accountRepo := acadapters.NewAccountRepository(gdb)
	profileRepo := spadapters.NewSymbolProfileRepository(gdb)
	orderRepo := orderadapters.NewOrderRepository(gdb)
	tagRepo := orderadapters.NewTagRepository(gdb)
	if err := tagRepo.EnsureSystemTags(ctx); err != nil {
		return nil, fmt.Errorf("ensure system tags: %w", err)
	}

	// Redisキャッシュでラップ (ttl 0: 次のECB公表まで)
	marketDataRepo := cache.NewCachingMarketDataRepository(c.Redis, 0, mdadapters.NewMarketDataRepository(gdb), "market-data")

	// Usecase
	exchangeRates := exusecase.NewExchangeRateUsecase(NewExchangeRateSource(cfg))
	provider := NewMarketDataProvider(cfg)
	dataProviders := dpusecase.NewDataProviderUsecase(provider)
	marketData := mdusecase.NewMarketDataUsecase(marketDataRepo)

	q := NewQueue(c.Redis)
	// APIリクエスト数の上限はプロバイダー側、ジョブの実行ペースはこちらで制御する
	jobPacer := ratelimiter.NewRateLimiter(cfg.DataGatheringJobsPerMinute, time.Minute)
	c.DataGathering = dgusecase.NewDataGatheringUsecase(q, dataProviders, profileRepo, marketDataRepo, jobPacer).WithEvents(c.Events)
	c.Worker = dgusecase.NewWorker(q, c.DataGathering, c.Metrics, cfg.DataGatheringWorkers, cfg.DataGatheringPollInterval)

	authUC := authusecase.NewAuthUsecase(userRepo, NewJWTGenerator(cfg), c.Events, cfg.BaseCurrency)
	accountUC := acusecase.NewAccountUsecase(accountRepo, exchangeRates)
	profileUC := spusecase.NewSymbolProfileUsecase(profileRepo)
	orderUC := orderusecase.NewOrderUsecase(orderusecase.Deps{
		Orders:         orderRepo,
		Tags:           tagRepo,
		SymbolProfiles: profileRepo,
		Accounts:       accountUC,
		DataGathering:  c.DataGathering,
		Converter:      exchangeRates,
		Events:         c.Events,
		Metrics:        c.Metrics,
	})

	holdings := cache.NewCachingHoldingsCalculator(c.Redis, 0,
		pfusecase.NewHoldingsCalculator(orderUC, marketData, exchangeRates), "portfolio")
	portfolioUC := pfusecase.NewPortfolioUsecase(holdings, authUC)

	c.subscribe(holdings)

	catalog, err := htmltemplate.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	c.HTMLTemplate = htmltemplate.New(htmltemplate.Options{
		ClientDir:  cfg.ClientDir,
		RootURL:    cfg.RootURL,
		Production: cfg.IsProduction(),
	}, catalog)

	// Handler
	c.Handlers = Handlers{
		Auth:          authhandler.NewAuthHandler(authUC),
		Account:       achandler.NewAccountHandler(accountUC),
		Order:         orderhandler.NewOrderHandler(orderUC, authUC),
		Portfolio:     pfhandler.NewPortfolioHandler(portfolioUC),
		SymbolProfile: sphandler.NewSymbolProfileHandler(profileUC),
		MarketData:    mdhandler.NewMarketDataHandler(marketData),
		DataProvider:  dphandler.NewDataProviderHandler(dataProviders),
	}
	return c, nil
}

// subscribe registers the portfolio changed listeners.
func (c *Container) subscribe(holdings *cache.CachingHoldingsCalculator) {
	c.Events.OnDelivered = func(event string, err error) {
		if event == eventbus.PortfolioChanged && err == nil {
			c.Metrics.RecordPortfolioChanged()
		}
	}
	c.Events.Subscribe(eventbus.PortfolioChanged, "portfolio-cache", holdings.OnPortfolioChanged)
	c.Events.Subscribe(eventbus.MarketDataUpdated, "portfolio-cache", holdings.OnMarketDataUpdated)

	if len(c.Config.Kafka.Brokers) == 0 {
		return
	}
	fwd := eventbus.NewKafkaForwarder(eventbus.NewKafkaWriter(c.Config.Kafka.Brokers), c.Config.Kafka.TopicPortfolioChanged)
	c.Events.Subscribe(eventbus.PortfolioChanged, "kafka", fwd.Listen)
	c.closers = append(c.closers, fwd.Close)
	slog.Info("forwarding portfolio events to kafka", "brokers", c.Config.Kafka.Brokers, "topic", c.Config.Kafka.TopicPortfolioChanged)
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	if sqlDB, err := c.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
