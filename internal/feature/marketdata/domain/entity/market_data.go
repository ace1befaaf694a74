// Package entity defines the domain models for the marketdata feature.
package entity

import (
	"time"

	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

type MarketDataState string

const (
	MarketDataStateClose    MarketDataState = "CLOSE"
	MarketDataStateIntraday MarketDataState = "INTRADAY"
)

// MarketData is the price of a symbol on one day. (DataSource, Symbol, Date) is unique.
type MarketData struct {
	DataSource  spentity.DataSource
	Symbol      string
	Date        time.Time // 00:00 UTC of the trading day
	MarketPrice float64
	State       MarketDataState
}

// Identifier returns the asset the price belongs to.
func (m MarketData) Identifier() spentity.AssetProfileIdentifier {
	return spentity.AssetProfileIdentifier{DataSource: m.DataSource, Symbol: m.Symbol}
}
