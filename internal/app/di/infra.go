package di

import (
	"time"

	"github.com/redis/go-redis/v9"

	"folio_backend/internal/platform/config"
	"folio_backend/internal/platform/cryptocurrency"
	"folio_backend/internal/platform/externalapi/ecb"
	"folio_backend/internal/platform/externalapi/financialmodelingprep"
	infrahttp "folio_backend/internal/platform/http"
	"folio_backend/internal/platform/queue"
	"folio_backend/internal/shared/ratelimiter"
)

// NewQueue returns the data gathering queue.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, it falls back to an in-process heap that is lost on restart.
func NewQueue(rdb *redis.Client) queue.Queue {
	if rdb != nil {
		return queue.NewRedisQueue(rdb, "data-gathering")
	}
	return queue.NewMemoryQueue()
}

// NewMarketDataProvider creates a fully configured Financial Modeling Prep provider with HTTP client.
func NewMarketDataProvider(cfg config.Config) *financialmodelingprep.Provider {
	fmpCfg := financialmodelingprep.LoadConfig(cfg)
	httpClient := infrahttp.NewHTTPClient(infrahttp.DefaultUserAgent)
	return financialmodelingprep.NewProvider(fmpCfg, httpClient, cryptocurrency.NewService(), NewRateLimiter(cfg))
}

// NewRateLimiter throttles outgoing market data requests per minute.
func NewRateLimiter(cfg config.Config) *ratelimiter.RateLimiter {
	return ratelimiter.NewRateLimiter(cfg.DataProviderRequestsPerMinute, time.Minute)
}

func NewExchangeRateSource(cfg config.Config) *ecb.Client {
	return ecb.NewClient(cfg.ECBBaseURL, infrahttp.NewHTTPClient(infrahttp.DefaultUserAgent), cfg.RequestTimeout)
}
