// Package usecase routes market data requests to the provider responsible for each data source.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"folio_backend/internal/feature/dataprovider/domain/entity"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

var ErrNoDataProvider = errors.New("no data provider for data source")

// DataProvider is implemented by every market data vendor adapter.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type DataProvider interface {
	CanHandle(symbol string) bool
	GetName() spentity.DataSource
	GetDataProviderInfo() entity.DataProviderInfo
	// GetAssetProfile never fails; on vendor errors it logs and returns what it could collect.
	GetAssetProfile(ctx context.Context, symbol string) *spentity.SymbolProfile
	// GetDividends returns dividends in [from, to) keyed by date, empty on vendor errors.
	GetDividends(ctx context.Context, symbol string, from, to time.Time) map[string]entity.HistoricalDataItem
	// GetHistorical returns daily close prices in [from, to] keyed by date.
	GetHistorical(ctx context.Context, symbol string, from, to time.Time) (map[string]entity.HistoricalDataItem, error)
	// GetQuotes returns latest quotes keyed by symbol, empty on vendor errors.
	GetQuotes(ctx context.Context, symbols []string) map[string]entity.Quote
	Search(ctx context.Context, query string) []entity.LookupItem
	GetMaxNumberOfSymbolsPerRequest() int
	GetTestSymbol() string
}

// DataProviderUsecase dispatches requests by data source.
type DataProviderUsecase struct {
	providers map[spentity.DataSource]DataProvider
	order     []spentity.DataSource
}

// NewDataProviderUsecase は指定されたプロバイダー群を data source ごとに登録します。
func NewDataProviderUsecase(providers ...DataProvider) *DataProviderUsecase {
	u := &DataProviderUsecase{providers: make(map[spentity.DataSource]DataProvider, len(providers))}
	for _, p := range providers {
		if _, dup := u.providers[p.GetName()]; !dup {
			u.order = append(u.order, p.GetName())
		}
		u.providers[p.GetName()] = p
	}
	return u
}

func (u *DataProviderUsecase) provider(ds spentity.DataSource) (DataProvider, error) {
	p, ok := u.providers[ds]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDataProvider, ds)
	}
	return p, nil
}

// DataProviderInfos lists the registered providers.
func (u *DataProviderUsecase) DataProviderInfos() []entity.DataProviderInfo {
	out := make([]entity.DataProviderInfo, 0, len(u.order))
	for _, ds := range u.order {
		out = append(out, u.providers[ds].GetDataProviderInfo())
	}
	return out
}

func (u *DataProviderUsecase) GetAssetProfile(ctx context.Context, id spentity.AssetProfileIdentifier) (*spentity.SymbolProfile, error) {
	p, err := u.provider(id.DataSource)
	if err != nil {
		return nil, err
	}
	return p.GetAssetProfile(ctx, id.Symbol), nil
}

func (u *DataProviderUsecase) GetHistorical(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]entity.HistoricalDataItem, error) {
	p, err := u.provider(id.DataSource)
	if err != nil {
		return nil, err
	}
	return p.GetHistorical(ctx, id.Symbol, from, to)
}

func (u *DataProviderUsecase) GetDividends(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) (map[string]entity.HistoricalDataItem, error) {
	p, err := u.provider(id.DataSource)
	if err != nil {
		return nil, err
	}
	return p.GetDividends(ctx, id.Symbol, from, to), nil
}

// GetQuotes groups identifiers by data source and requests each provider in
// chunks of its maximum batch size. Result keys are AssetProfileIdentifier.Key().
func (u *DataProviderUsecase) GetQuotes(ctx context.Context, ids []spentity.AssetProfileIdentifier) map[string]entity.Quote {
	bySource := map[spentity.DataSource][]string{}
	for _, id := range ids {
		if _, ok := u.providers[id.DataSource]; !ok {
			slog.Debug("skipping quote for data source without provider", "dataSource", id.DataSource, "symbol", id.Symbol)
			continue
		}
		bySource[id.DataSource] = append(bySource[id.DataSource], id.Symbol)
	}

	var (
		mu  sync.Mutex
		out = map[string]entity.Quote{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for ds, symbols := range bySource {
		p := u.providers[ds]
		for _, chunk := range chunk(symbols, p.GetMaxNumberOfSymbolsPerRequest()) {
			g.Go(func() error {
				quotes := p.GetQuotes(gctx, chunk)
				mu.Lock()
				defer mu.Unlock()
				for symbol, q := range quotes {
					out[spentity.AssetProfileIdentifier{DataSource: ds, Symbol: symbol}.Key()] = q
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	return out
}

// Search queries every provider and merges the results ordered by name.
func (u *DataProviderUsecase) Search(ctx context.Context, query string) []entity.LookupItem {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []entity.LookupItem{}
	}

	results := make([][]entity.LookupItem, len(u.order))
	g, gctx := errgroup.WithContext(ctx)
	for i, ds := range u.order {
		p := u.providers[ds]
		g.Go(func() error {
			results[i] = p.Search(gctx, query)
			return nil
		})
	}
	_ = g.Wait()

	items := []entity.LookupItem{}
	for _, r := range results {
		items = append(items, r...)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items
}

func chunk(s []string, size int) [][]string {
	if size <= 0 {
		size = len(s)
	}
	var out [][]string
	for len(s) > 0 {
		n := min(size, len(s))
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
