package financialmodelingprep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"folio_backend/internal/feature/dataprovider/domain/entity"
	"folio_backend/internal/feature/dataprovider/usecase"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/platform/externalapi/financialmodelingprep/dto"
	"folio_backend/internal/shared/currency"
	"folio_backend/internal/shared/isin"
)

const (
	component = "FinancialModelingPrepService"

	maxYearsPerRequest  = 5
	maxSymbolsPerQuotes = 20
	maxEtfHoldings      = 10
)

// replaceNameParts are fund family prefixes stripped from instrument names.
var replaceNameParts = []string{
	"Amundi Index Solutions -",
	"iShares ETF (CH) -",
	"iShares III Public Limited Company -",
	"iShares V PLC -",
	"iShares VI Public Limited Company -",
	"iShares VII PLC -",
	"Multi Units Luxembourg -",
	"VanEck ETFs N.V. -",
	"Vaneck Vectors Ucits Etfs Plc -",
	"Vanguard Funds Public Limited Company -",
	"Vanguard Index Funds -",
	"Xtrackers (IE) Plc -",
}

// Limiter throttles outgoing requests. *ratelimiter.RateLimiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// CryptocurrencyChecker reports whether a symbol such as BTCUSD is a known cryptocurrency.
type CryptocurrencyChecker interface {
	IsCryptocurrency(symbol string) bool
}

// Provider はFinancial Modeling Prep APIから資産情報と価格を取得するDataProvider実装です。
type Provider struct {
	cfg     Config
	client  *http.Client
	crypto  CryptocurrencyChecker
	limiter Limiter
}

// ProviderがDataProviderを実装していることをコンパイル時に検証します。
var _ usecase.DataProvider = (*Provider)(nil)

// NewProvider は指定された設定とHTTPクライアントでProviderを生成します。limiter は nil でも構いません。
func NewProvider(cfg Config, client *http.Client, crypto CryptocurrencyChecker, limiter Limiter) *Provider {
	return &Provider{cfg: cfg, client: client, crypto: crypto, limiter: limiter}
}

func (p *Provider) CanHandle(symbol string) bool { return true }

func (p *Provider) GetName() spentity.DataSource {
	return spentity.DataSourceFinancialModelingPrep
}

func (p *Provider) GetDataProviderInfo() entity.DataProviderInfo {
	return entity.DataProviderInfo{
		DataSource: spentity.DataSourceFinancialModelingPrep,
		IsPremium:  true,
		Name:       "Financial Modeling Prep",
		URL:        "https://financialmodelingprep.com/developer/docs",
	}
}

func (p *Provider) GetMaxNumberOfSymbolsPerRequest() int { return maxSymbolsPerQuotes }

func (p *Provider) GetTestSymbol() string { return "AAPL" }

// GetAssetProfile classifies symbol and collects its metadata. Vendor errors are
// logged and whatever was gathered before the failure is returned.
func (p *Provider) GetAssetProfile(ctx context.Context, symbol string) *spentity.SymbolProfile {
	profile := &spentity.SymbolProfile{Symbol: symbol, DataSource: p.GetName()}
	if err := p.fillAssetProfile(ctx, symbol, profile); err != nil {
		p.logError(err, fmt.Sprintf("get the asset profile for %s", symbol))
	}
	return profile
}

func (p *Provider) fillAssetProfile(ctx context.Context, symbol string, out *spentity.SymbolProfile) error {
	switch {
	case currency.IsCurrencyPair(symbol):
		out.AssetClass = spentity.AssetClassLiquidity
		out.AssetSubClass = spentity.AssetSubClassCash
		out.Currency = currency.Quote(symbol)
		return nil

	case p.crypto != nil && p.crypto.IsCryptocurrency(symbol):
		quotes, err := fetch[[]dto.Quote](ctx, p, "/quote", url.Values{"symbol": {symbol}})
		if err != nil {
			return err
		}
		if len(quotes) == 0 {
			return fmt.Errorf("no quote for %s", symbol)
		}
		out.AssetClass = spentity.AssetClassLiquidity
		out.AssetSubClass = spentity.AssetSubClassCryptocurrency
		out.Currency = currency.Quote(symbol)
		out.Name = quotes[0].Name
		return nil
	}

	profiles, err := fetch[[]dto.Profile](ctx, p, "/profile", url.Values{"symbol": {symbol}})
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no profile for %s", symbol)
	}
	ap := profiles[0]

	out.AssetClass, out.AssetSubClass = parseAssetClass(ap)

	switch out.AssetSubClass {
	case spentity.AssetSubClassETF:
		if err := p.fillEtfDetails(ctx, symbol, out); err != nil {
			return err
		}
	case spentity.AssetSubClassStock:
		if ap.Country != "" {
			out.Countries = []spentity.Country{{Code: ap.Country, Weight: 1}}
		}
		if ap.Sector != "" {
			out.Sectors = []spentity.Sector{{Name: ap.Sector, Weight: 1}}
		}
	}

	out.Currency = ap.Currency
	if ap.Isin != "" {
		out.Isin = ap.Isin
	}
	out.Name = formatName(ap.CompanyName)
	if ap.Website != "" {
		out.URL = ap.Website
	}
	return nil
}

func (p *Provider) fillEtfDetails(ctx context.Context, symbol string, out *spentity.SymbolProfile) error {
	q := url.Values{"symbol": {symbol}}

	countries, err := fetch[[]dto.CountryWeighting](ctx, p, "/etf/country-weightings", q)
	if err != nil {
		return err
	}
	out.Countries = make([]spentity.Country, 0, len(countries))
	for _, c := range countries {
		out.Countries = append(out.Countries, spentity.Country{
			Code:   countryCode(c.Country),
			Weight: float64(c.WeightPercentage) / 100,
		})
	}

	holdings, err := fetch[[]dto.EtfHolding](ctx, p, "/etf/holdings", q)
	if err != nil {
		return err
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].WeightPercentage > holdings[j].WeightPercentage
	})
	holdings = holdings[:min(len(holdings), maxEtfHoldings)]
	out.Holdings = make([]spentity.Holding, 0, len(holdings))
	for _, h := range holdings {
		out.Holdings = append(out.Holdings, spentity.Holding{Name: h.Name, Weight: float64(h.WeightPercentage) / 100})
	}

	infos, err := fetch[[]dto.EtfInfo](ctx, p, "/etf/info", q)
	if err != nil {
		return err
	}
	if len(infos) > 0 && infos[0].Website != "" {
		out.URL = infos[0].Website
	}

	sectors, err := fetch[[]dto.SectorWeighting](ctx, p, "/etf/sector-weightings", q)
	if err != nil {
		return err
	}
	out.Sectors = make([]spentity.Sector, 0, len(sectors))
	for _, s := range sectors {
		out.Sectors = append(out.Sectors, spentity.Sector{Name: s.Sector, Weight: float64(s.WeightPercentage) / 100})
	}
	return nil
}

// GetDividends returns adjusted dividends paid in [from, to). When from and to
// fall on the same day the window is widened by one day.
func (p *Provider) GetDividends(ctx context.Context, symbol string, from, to time.Time) map[string]entity.HistoricalDataItem {
	from, to = day(from), day(to)
	if from.Equal(to) {
		to = to.AddDate(0, 0, 1)
	}

	out := map[string]entity.HistoricalDataItem{}
	dividends, err := fetch[[]dto.Dividend](ctx, p, "/dividends", url.Values{"symbol": {symbol}})
	if err != nil {
		slog.Error(fmt.Sprintf("Could not get dividends for %s (%s) from %s to %s: %v",
			symbol, p.GetName(), from.Format(entity.DateFormat), to.Format(entity.DateFormat), err),
			"component", component)
		return out
	}
	for _, d := range dividends {
		date, err := time.Parse(entity.DateFormat, d.Date)
		if err != nil {
			continue
		}
		if !date.Before(from) && date.Before(to) {
			out[d.Date] = entity.HistoricalDataItem{MarketPrice: d.AdjDividend}
		}
	}
	return out
}

// GetHistorical returns daily close prices, requesting at most five years per call.
// Each window keeps points on or after its start and before its end.
func (p *Provider) GetHistorical(ctx context.Context, symbol string, from, to time.Time) (map[string]entity.HistoricalDataItem, error) {
	from, to = day(from), day(to)
	out := map[string]entity.HistoricalDataItem{}

	for cur := from; !cur.After(to); cur = cur.AddDate(maxYearsPerRequest, 0, 0) {
		curTo := cur.AddDate(maxYearsPerRequest, 0, 0)
		if !curTo.Before(to) {
			curTo = to
		}

		prices, err := fetch[[]dto.HistoricalPrice](ctx, p, "/historical-price-eod/full", url.Values{
			"symbol": {symbol},
			"from":   {cur.Format(entity.DateFormat)},
			"to":     {curTo.Format(entity.DateFormat)},
		})
		if err != nil {
			return nil, fmt.Errorf("could not get historical market data for %s (%s) from %s to %s: %w",
				symbol, p.GetName(), from.Format(entity.DateFormat), to.Format(entity.DateFormat), err)
		}

		for _, pr := range prices {
			date, err := time.Parse(entity.DateFormat, pr.Date)
			if err != nil {
				continue
			}
			if !date.Before(cur) && date.Before(curTo) {
				out[pr.Date] = entity.HistoricalDataItem{MarketPrice: pr.Close}
			}
		}
	}
	return out, nil
}

// GetQuotes returns the latest prices keyed by symbol. Currencies are looked up
// through the asset profile of each returned symbol.
func (p *Provider) GetQuotes(ctx context.Context, symbols []string) map[string]entity.Quote {
	out := map[string]entity.Quote{}
	if len(symbols) == 0 {
		return out
	}

	quotes, err := fetch[[]dto.ShortQuote](ctx, p, "/batch-quote-short", url.Values{"symbols": {strings.Join(symbols, ",")}})
	if err != nil {
		p.logError(err, "get the quotes")
		return out
	}

	ccy := currencies(ctx, p, quotes, func(q dto.ShortQuote) string { return q.Symbol })
	for i, q := range quotes {
		state := entity.MarketStateDelayed
		if currency.IsCurrencyPair(q.Symbol) {
			state = entity.MarketStateOpen
		}
		out[q.Symbol] = entity.Quote{
			Currency:         ccy[i],
			DataProviderInfo: p.GetDataProviderInfo(),
			DataSource:       p.GetName(),
			MarketPrice:      q.Price,
			MarketState:      state,
		}
	}
	return out
}

// Search looks symbols up by ISIN when query is one, otherwise by name or ticker.
func (p *Provider) Search(ctx context.Context, query string) []entity.LookupItem {
	items := []entity.LookupItem{}

	if upper := strings.ToUpper(query); isin.Valid(upper) {
		results, err := fetch[[]dto.SearchResult](ctx, p, "/search-isin", url.Values{"isin": {upper}})
		if err != nil {
			p.logError(err, fmt.Sprintf("search for %s", query))
			return items
		}
		ccy := currencies(ctx, p, results, func(r dto.SearchResult) string { return r.Symbol })
		for i, r := range results {
			items = append(items, p.lookupItem(r.Symbol, formatName(r.Name), ccy[i]))
		}
		return items
	}

	results, err := fetch[[]dto.SearchResult](ctx, p, "/search-symbol", url.Values{"query": {query}})
	if err != nil {
		p.logError(err, fmt.Sprintf("search for %s", query))
		return items
	}
	for _, r := range results {
		items = append(items, p.lookupItem(r.Symbol, formatName(r.Name), r.Currency))
	}
	return items
}

func (p *Provider) lookupItem(symbol, name, cur string) entity.LookupItem {
	return entity.LookupItem{
		Currency:         cur,
		DataProviderInfo: p.GetDataProviderInfo(),
		DataSource:       p.GetName(),
		Name:             name,
		Symbol:           symbol,
	}
}

// currencies resolves the profile currency of every element concurrently.
func currencies[T any](ctx context.Context, p *Provider, items []T, symbol func(T) string) []string {
	out := make([]string, len(items))
	var g errgroup.Group
	for i, it := range items {
		g.Go(func() error {
			out[i] = p.GetAssetProfile(ctx, symbol(it)).Currency
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Provider) logError(err error, operation string) {
	msg := err.Error()
	if isTimeout(err) {
		msg = fmt.Sprintf("RequestError: The operation to %s was aborted because the request to the data provider took more than %.3f seconds",
			operation, p.cfg.Timeout.Seconds())
	}
	slog.Error(msg, "component", component)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// fetch performs a rate limited GET against the API and decodes the JSON body into T.
func fetch[T any](ctx context.Context, p *Provider, path string, q url.Values) (T, error) {
	var out T
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return out, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	for k, v := range q {
		params[k] = v
	}
	params.Set("apikey", p.cfg.APIKey)
	u := fmt.Sprintf("%s%s?%s", strings.TrimRight(p.cfg.BaseURL, "/"), path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, err
	}
	res, err := p.client.Do(req)
	if err != nil {
		return out, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return out, fmt.Errorf("financialmodelingprep %s: http %d", path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("financialmodelingprep %s: decode: %w", path, err)
	}
	return out, nil
}

func parseAssetClass(p dto.Profile) (spentity.AssetClass, spentity.AssetSubClass) {
	switch {
	case p.IsEtf:
		return spentity.AssetClassEquity, spentity.AssetSubClassETF
	case p.IsFund:
		return spentity.AssetClassEquity, spentity.AssetSubClassMutualFund
	default:
		return spentity.AssetClassEquity, spentity.AssetSubClassStock
	}
}

func formatName(name string) string {
	if name == "" {
		return name
	}
	for _, part := range replaceNameParts {
		name = strings.Replace(name, part, "", 1)
	}
	return strings.TrimSpace(name)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
