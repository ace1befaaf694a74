package dto

// MarketDataResponse は日次価格のレスポンスDTOです。
type MarketDataResponse struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	MarketPrice float64 `json:"marketPrice"`
	State       string  `json:"state"`
}
