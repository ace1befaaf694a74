// Package entity defines the aggregated views the portfolio feature serves.
package entity

import (
	"time"

	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

// Holding is the open position in one asset, valued in the user's base currency.
type Holding struct {
	DataSource    spentity.DataSource    `json:"dataSource"`
	Symbol        string                 `json:"symbol"`
	Name          string                 `json:"name"`
	Currency      string                 `json:"currency"`
	AssetClass    spentity.AssetClass    `json:"assetClass,omitempty"`
	AssetSubClass spentity.AssetSubClass `json:"assetSubClass,omitempty"`

	Quantity float64 `json:"quantity"`
	// MarketPrice is in Currency.
	MarketPrice float64 `json:"marketPrice"`
	// AveragePrice is the average cost per unit in Currency.
	AveragePrice float64 `json:"averagePrice"`

	InvestmentInBaseCurrency float64 `json:"investmentInBaseCurrency"`
	ValueInBaseCurrency      float64 `json:"valueInBaseCurrency"`
	DividendInBaseCurrency   float64 `json:"dividendInBaseCurrency"`
	FeeInBaseCurrency        float64 `json:"feeInBaseCurrency"`
	AllocationInPercentage   float64 `json:"allocationInPercentage"`

	ActivitiesCount     int       `json:"activitiesCount"`
	DateOfFirstActivity time.Time `json:"dateOfFirstActivity"`
}

// Identifier returns the (dataSource, symbol) pair of the held asset.
func (h Holding) Identifier() spentity.AssetProfileIdentifier {
	return spentity.AssetProfileIdentifier{DataSource: h.DataSource, Symbol: h.Symbol}
}

// Holdings is a snapshot of all open positions of a user.
type Holdings struct {
	BaseCurrency             string    `json:"baseCurrency"`
	Holdings                 []Holding `json:"holdings"`
	ValueInBaseCurrency      float64   `json:"valueInBaseCurrency"`
	InvestmentInBaseCurrency float64   `json:"investmentInBaseCurrency"`
}
