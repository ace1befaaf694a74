package usecase

import (
	"context"
	"fmt"

	"folio_backend/internal/feature/portfolio/domain/entity"
	"folio_backend/internal/shared/chart"
	"folio_backend/internal/shared/filter"
)

// Allocation grouping keys, matching the attribute names passed to the chart.
const (
	KeyAssetClass    = "assetClass"
	KeyAssetSubClass = "assetSubClass"
	KeyCurrency      = "currency"
	KeyDataSource    = "dataSource"
)

var allocationKeys = map[string]bool{
	KeyAssetClass:    true,
	KeyAssetSubClass: true,
	KeyCurrency:      true,
	KeyDataSource:    true,
}

// HoldingsSource is satisfied by HoldingsCalculator and by its caching decorator.
type HoldingsSource interface {
	Calculate(ctx context.Context, userID string, filters []filter.Filter, baseCurrency string) (entity.Holdings, error)
}

type UserCurrencyResolver interface {
	BaseCurrency(ctx context.Context, userID string) (string, error)
}

type PortfolioUsecase struct {
	holdings HoldingsSource
	users    UserCurrencyResolver
}

func NewPortfolioUsecase(holdings HoldingsSource, users UserCurrencyResolver) *PortfolioUsecase {
	return &PortfolioUsecase{holdings: holdings, users: users}
}

// GetHoldings values the open positions of userID in the user's base currency.
func (u *PortfolioUsecase) GetHoldings(ctx context.Context, userID string, filters []filter.Filter) (entity.Holdings, error) {
	currency, err := u.users.BaseCurrency(ctx, userID)
	if err != nil {
		return entity.Holdings{}, err
	}
	return u.holdings.Calculate(ctx, userID, filters, currency)
}

// GetAllocation groups the holdings of userID by up to two keys into a proportion chart.
// maxItems of 0 keeps every category.
func (u *PortfolioUsecase) GetAllocation(ctx context.Context, userID string, filters []filter.Filter, keys []string, maxItems int) (chart.Chart, error) {
	if len(keys) > 2 || maxItems < 0 {
		return chart.Chart{}, fmt.Errorf("%w: at most 2 keys and a non-negative maxItems", ErrInvalidAllocation)
	}
	for _, k := range keys {
		if !allocationKeys[k] {
			return chart.Chart{}, fmt.Errorf("%w: unknown key %q", ErrInvalidAllocation, k)
		}
	}

	holdings, err := u.GetHoldings(ctx, userID, filters)
	if err != nil {
		return chart.Chart{}, err
	}

	data := make(map[string]chart.Item, len(holdings.Holdings))
	for _, h := range holdings.Holdings {
		data[h.Symbol] = chart.Item{
			Name:       h.Name,
			Value:      h.ValueInBaseCurrency,
			DataSource: string(h.DataSource),
			Attributes: map[string]string{
				KeyAssetClass:    string(h.AssetClass),
				KeyAssetSubClass: string(h.AssetSubClass),
				KeyCurrency:      h.Currency,
				KeyDataSource:    string(h.DataSource),
			},
		}
	}
	return chart.Proportion(data, keys, maxItems), nil
}
