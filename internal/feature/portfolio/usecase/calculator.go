package usecase

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	mdentity "folio_backend/internal/feature/marketdata/domain/entity"
	orderentity "folio_backend/internal/feature/order/domain/entity"
	"folio_backend/internal/feature/portfolio/domain/entity"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/shared/filter"
)

// ActivitySource returns the non-draft activities counting towards analysis.
type ActivitySource interface {
	GetOrdersForPortfolioCalculator(ctx context.Context, userID string, filters []filter.Filter, userCurrency string) (orderentity.Activities, error)
}

// PriceSource returns the latest stored price per asset keyed by AssetProfileIdentifier.Key().
type PriceSource interface {
	GetLatestPrices(ctx context.Context, ids []spentity.AssetProfileIdentifier) (map[string]mdentity.MarketData, error)
}

type CurrencyConverter interface {
	ToCurrency(ctx context.Context, value float64, from, to string) float64
}

// HoldingsCalculator turns the activity history of a user into open positions.
type HoldingsCalculator struct {
	activities ActivitySource
	prices     PriceSource
	converter  CurrencyConverter
}

func NewHoldingsCalculator(activities ActivitySource, prices PriceSource, converter CurrencyConverter) *HoldingsCalculator {
	return &HoldingsCalculator{activities: activities, prices: prices, converter: converter}
}

// position accumulates one asset in its profile currency.
type position struct {
	profile    spentity.SymbolProfile
	quantity   decimal.Decimal
	investment decimal.Decimal
	lastPrice  float64
	dividend   decimal.Decimal
	fee        decimal.Decimal
	count      int
	first      orderentity.Activity
}

// Calculate values every position with a positive quantity. BUY adds at cost,
// SELL removes at the running average cost. Assets without a stored price are
// valued at the unit price of their latest activity.
func (c *HoldingsCalculator) Calculate(ctx context.Context, userID string, filters []filter.Filter, baseCurrency string) (entity.Holdings, error) {
	res, err := c.activities.GetOrdersForPortfolioCalculator(ctx, userID, filters, baseCurrency)
	if err != nil {
		return entity.Holdings{}, err
	}

	activities := append([]orderentity.Activity(nil), res.Activities...)
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date.Before(activities[j].Date)
	})

	positions := map[string]*position{}
	var keys []string
	for _, a := range activities {
		if a.SymbolProfile == nil {
			continue
		}
		key := a.SymbolProfile.Identifier().Key()
		p, ok := positions[key]
		if !ok {
			p = &position{profile: *a.SymbolProfile, first: a}
			positions[key] = p
			keys = append(keys, key)
		}
		p.count++
		p.fee = p.fee.Add(decimal.NewFromFloat(a.FeeInBaseCurrency))

		qty := decimal.NewFromFloat(a.Quantity)
		price := decimal.NewFromFloat(a.UnitPriceInAssetProfileCurrency)
		switch a.Type {
		case orderentity.ActivityTypeBuy:
			p.quantity = p.quantity.Add(qty)
			p.investment = p.investment.Add(qty.Mul(price))
			p.lastPrice = a.UnitPriceInAssetProfileCurrency
		case orderentity.ActivityTypeSell:
			if p.quantity.IsPositive() {
				avg := p.investment.Div(p.quantity)
				p.investment = p.investment.Sub(avg.Mul(decimal.Min(qty, p.quantity)))
			}
			p.quantity = p.quantity.Sub(qty)
			p.lastPrice = a.UnitPriceInAssetProfileCurrency
		case orderentity.ActivityTypeDividend:
			p.dividend = p.dividend.Add(decimal.NewFromFloat(a.ValueInBaseCurrency))
		}
	}

	var ids []spentity.AssetProfileIdentifier
	for _, key := range keys {
		if positions[key].quantity.IsPositive() {
			ids = append(ids, positions[key].profile.Identifier())
		}
	}
	latest := map[string]mdentity.MarketData{}
	if len(ids) > 0 {
		if latest, err = c.prices.GetLatestPrices(ctx, ids); err != nil {
			return entity.Holdings{}, err
		}
	}

	out := entity.Holdings{BaseCurrency: baseCurrency, Holdings: []entity.Holding{}}
	total := decimal.Zero
	investment := decimal.Zero
	for _, key := range keys {
		p := positions[key]
		if !p.quantity.IsPositive() {
			continue
		}
		marketPrice := p.lastPrice
		if md, ok := latest[key]; ok && md.MarketPrice > 0 {
			marketPrice = md.MarketPrice
		}
		value := p.quantity.Mul(decimal.NewFromFloat(marketPrice)).InexactFloat64()
		h := entity.Holding{
			DataSource:               p.profile.DataSource,
			Symbol:                   p.profile.Symbol,
			Name:                     p.profile.Name,
			Currency:                 p.profile.Currency,
			AssetClass:               p.profile.AssetClass,
			AssetSubClass:            p.profile.AssetSubClass,
			Quantity:                 p.quantity.InexactFloat64(),
			MarketPrice:              marketPrice,
			AveragePrice:             p.investment.Div(p.quantity).Round(8).InexactFloat64(),
			InvestmentInBaseCurrency: c.converter.ToCurrency(ctx, p.investment.InexactFloat64(), p.profile.Currency, baseCurrency),
			ValueInBaseCurrency:      c.converter.ToCurrency(ctx, value, p.profile.Currency, baseCurrency),
			DividendInBaseCurrency:   p.dividend.InexactFloat64(),
			FeeInBaseCurrency:        p.fee.InexactFloat64(),
			ActivitiesCount:          p.count,
			DateOfFirstActivity:      p.first.Date,
		}
		total = total.Add(decimal.NewFromFloat(h.ValueInBaseCurrency))
		investment = investment.Add(decimal.NewFromFloat(h.InvestmentInBaseCurrency))
		out.Holdings = append(out.Holdings, h)
	}

	if total.IsPositive() {
		for i := range out.Holdings {
			share := decimal.NewFromFloat(out.Holdings[i].ValueInBaseCurrency).Div(total)
			out.Holdings[i].AllocationInPercentage = share.Round(8).InexactFloat64()
		}
	}
	sort.SliceStable(out.Holdings, func(i, j int) bool {
		a, b := out.Holdings[i], out.Holdings[j]
		if a.ValueInBaseCurrency != b.ValueInBaseCurrency {
			return a.ValueInBaseCurrency > b.ValueInBaseCurrency
		}
		return a.Symbol < b.Symbol
	})
	out.ValueInBaseCurrency = total.InexactFloat64()
	out.InvestmentInBaseCurrency = investment.InexactFloat64()
	return out, nil
}
