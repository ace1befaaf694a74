// Package usecase converts amounts between currencies using daily reference rates.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource returns how many units of currency one euro buys on date.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type RateSource interface {
	GetRate(ctx context.Context, currency string, date time.Time) (float64, error)
}

// derivedCurrency is a minor unit quoted by some exchanges, e.g. pence (GBp).
type derivedCurrency struct {
	root   string
	factor int64
}

var derivedCurrencies = map[string]derivedCurrency{
	"GBp": {root: "GBP", factor: 100},
	"ILA": {root: "ILS", factor: 100},
	"USX": {root: "USD", factor: 100},
	"ZAc": {root: "ZAR", factor: 100},
}

// ExchangeRateUsecase はECB参照レートを用いて通貨換算を行います。
type ExchangeRateUsecase struct {
	rates RateSource
	now   func() time.Time
}

func NewExchangeRateUsecase(rates RateSource) *ExchangeRateUsecase {
	return &ExchangeRateUsecase{rates: rates, now: time.Now}
}

// ToCurrency converts value at today's rates.
func (u *ExchangeRateUsecase) ToCurrency(ctx context.Context, value float64, from, to string) float64 {
	return u.ToCurrencyAtDate(ctx, value, from, to, u.now())
}

// ToCurrencyAtDate converts value from one currency into another at the rates of date.
// When a rate is unavailable the failure is logged and value is returned unconverted.
func (u *ExchangeRateUsecase) ToCurrencyAtDate(ctx context.Context, value float64, from, to string, date time.Time) float64 {
	if value == 0 || from == to || from == "" || to == "" {
		return value
	}

	amount := decimal.NewFromFloat(value)
	fromRoot := from
	if d, ok := derivedCurrencies[from]; ok {
		amount = amount.Div(decimal.NewFromInt(d.factor))
		fromRoot = d.root
	}
	toRoot := to
	var toFactor int64 = 1
	if d, ok := derivedCurrencies[to]; ok {
		toRoot = d.root
		toFactor = d.factor
	}

	if fromRoot != toRoot {
		fromRate, err := u.rates.GetRate(ctx, fromRoot, date)
		if err != nil {
			slog.Warn("no exchange rate, returning unconverted value", "from", from, "to", to, "date", date.Format(time.DateOnly), "error", err)
			return value
		}
		toRate, err := u.rates.GetRate(ctx, toRoot, date)
		if err != nil {
			slog.Warn("no exchange rate, returning unconverted value", "from", from, "to", to, "date", date.Format(time.DateOnly), "error", err)
			return value
		}
		amount = amount.Div(decimal.NewFromFloat(fromRate)).Mul(decimal.NewFromFloat(toRate))
	}

	return amount.Mul(decimal.NewFromInt(toFactor)).InexactFloat64()
}
