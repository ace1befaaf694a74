// Package entity defines the vendor-neutral shapes returned by market data providers.
package entity

import (
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

// DateFormat is the key format of historical and dividend maps.
const DateFormat = "2006-01-02"

type MarketState string

const (
	MarketStateClosed  MarketState = "closed"
	MarketStateDelayed MarketState = "delayed"
	MarketStateOpen    MarketState = "open"
)

type DataProviderInfo struct {
	DataSource spentity.DataSource `json:"dataSource"`
	IsPremium  bool                `json:"isPremium"`
	Name       string              `json:"name"`
	URL        string              `json:"url"`
}

// HistoricalDataItem is one daily data point (close price, or dividend amount).
type HistoricalDataItem struct {
	MarketPrice float64 `json:"marketPrice"`
}

// Quote is the latest known price of a symbol.
type Quote struct {
	Currency         string              `json:"currency"`
	DataProviderInfo DataProviderInfo    `json:"dataProviderInfo"`
	DataSource       spentity.DataSource `json:"dataSource"`
	MarketPrice      float64             `json:"marketPrice"`
	MarketState      MarketState         `json:"marketState"`
}

type LookupItem struct {
	AssetClass       spentity.AssetClass    `json:"assetClass,omitempty"`
	AssetSubClass    spentity.AssetSubClass `json:"assetSubClass,omitempty"`
	Currency         string                 `json:"currency"`
	DataProviderInfo DataProviderInfo       `json:"dataProviderInfo"`
	DataSource       spentity.DataSource    `json:"dataSource"`
	Name             string                 `json:"name"`
	Symbol           string                 `json:"symbol"`
}
