package dto

import "folio_backend/internal/feature/dataprovider/domain/entity"

// LookupResponse はシンボル検索のレスポンスDTOです。
type LookupResponse struct {
	Items []entity.LookupItem `json:"items"`
}

// QuoteResponse は単一銘柄の最新価格レスポンスDTOです。
type QuoteResponse struct {
	Symbol      string             `json:"symbol"`
	DataSource  string             `json:"dataSource"`
	Currency    string             `json:"currency"`
	MarketPrice float64            `json:"marketPrice"`
	MarketState entity.MarketState `json:"marketState"`
}
