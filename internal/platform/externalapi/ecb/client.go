// Package ecb fetches euro foreign exchange reference rates from the European Central Bank data API.
package ecb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	gocache "github.com/patrickmn/go-cache"

	"folio_backend/internal/platform/cache"
)

const (
	// DefaultBaseURL is the EXR (exchange rates) dataflow.
	DefaultBaseURL = "https://data-api.ecb.europa.eu/service/data/EXR"

	dateFormat      = "2006-01-02"
	maxFallbackDays = 7
	defaultTimeout  = 10 * time.Second
	observationPath = `$.dataSets[0].series.*.observations["0"][0]`
)

var errNoObservation = errors.New("no observation in response")

// Client returns how many units of a currency one euro buys on a given day.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	// rates holds found rates and, under "missing-" keys, lookups that found nothing.
	rates *gocache.Cache
}

// NewClient は指定されたベースURLとHTTPクライアントでECBクライアントを生成します。
// timeout はリクエストごとの期限で、0以下の場合は10秒です。
func NewClient(baseURL string, client *http.Client, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
		rates:   gocache.New(24*time.Hour, 48*time.Hour),
	}
}

// GetRate retrieves the EUR reference rate of currency for date. Weekends and
// holidays have no observation, so up to seven preceding days are tried.
func (c *Client) GetRate(ctx context.Context, currency string, date time.Time) (float64, error) {
	currency = strings.ToUpper(currency)
	if currency == "EUR" {
		return 1.0, nil
	}

	key := fmt.Sprintf("rate-%s-%s", currency, date.Format(dateFormat))
	if rate, found := c.rates.Get(key); found {
		return rate.(float64), nil
	}
	notFound := fmt.Errorf("exchange rate not found for %s on or before %s", currency, date.Format(dateFormat))
	// unpublished currencies would otherwise cost maxFallbackDays requests per conversion
	if _, missing := c.rates.Get("missing-" + key); missing {
		return 0, notFound
	}

	for i := range maxFallbackDays {
		queryDate := date.AddDate(0, 0, -i).Format(dateFormat)

		rate, err := c.fetch(ctx, currency, queryDate)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		if err != nil {
			slog.Debug("no exchange rate for date, trying previous day", "currency", currency, "date", queryDate, "error", err)
			continue
		}

		c.rates.Set(key, rate, c.ttl(date))
		return rate, nil
	}

	c.rates.Set("missing-"+key, struct{}{}, c.ttl(date))
	return 0, notFound
}

// ttl keeps today's entry only until the next publication, past days are stable.
func (c *Client) ttl(date time.Time) time.Duration {
	if date.Format(dateFormat) == time.Now().Format(dateFormat) {
		return cache.TimeUntilNextECBPublication()
	}
	return gocache.DefaultExpiration
}

func (c *Client) fetch(ctx context.Context, currency, date string) (float64, error) {
	// Key structure is D.{CURRENCY}.EUR.SP00.A for daily rates vs Euro
	u := fmt.Sprintf("%s/D.%s.EUR.SP00.A?startPeriod=%s&endPeriod=%s&format=jsondata", c.baseURL, currency, date, date)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ecb http %d", res.StatusCode)
	}

	var body any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode ecb response: %w", err)
	}
	return extractRate(body)
}

func extractRate(body any) (float64, error) {
	val, err := jsonpath.Get(observationPath, body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNoObservation, err)
	}
	// wildcards yield a list, keep the first match
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return 0, errNoObservation
		}
		val = list[0]
	}
	rate, ok := val.(float64)
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: unexpected value %v", errNoObservation, val)
	}
	return rate, nil
}
