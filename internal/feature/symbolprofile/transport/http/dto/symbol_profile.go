// Package dto defines data transfer objects for the symbol profile HTTP API.
package dto

import (
	"time"

	"folio_backend/internal/feature/symbolprofile/domain/entity"
)

type SymbolProfileResponse struct {
	ID                  string           `json:"id"`
	DataSource          string           `json:"dataSource"`
	Symbol              string           `json:"symbol"`
	Currency            string           `json:"currency"`
	Name                string           `json:"name"`
	Isin                string           `json:"isin,omitempty"`
	URL                 string           `json:"url,omitempty"`
	AssetClass          string           `json:"assetClass,omitempty"`
	AssetSubClass       string           `json:"assetSubClass,omitempty"`
	Countries           []entity.Country `json:"countries"`
	Sectors             []entity.Sector  `json:"sectors"`
	Holdings            []entity.Holding `json:"holdings"`
	ActivitiesCount     int              `json:"activitiesCount"`
	DateOfFirstActivity *time.Time       `json:"dateOfFirstActivity,omitempty"`
}

// OverridesRequest is the body of PATCH /api/v1/symbol-profile/:dataSource/:symbol.
type OverridesRequest struct {
	AssetClass    *string `json:"assetClass"`
	AssetSubClass *string `json:"assetSubClass"`
	Name          *string `json:"name"`
	URL           *string `json:"url" binding:"omitempty,url"`
}

func FromEntity(p entity.SymbolProfile) SymbolProfileResponse {
	return SymbolProfileResponse{
		ID:                  p.ID,
		DataSource:          string(p.DataSource),
		Symbol:              p.Symbol,
		Currency:            p.Currency,
		Name:                p.Name,
		Isin:                p.Isin,
		URL:                 p.URL,
		AssetClass:          string(p.AssetClass),
		AssetSubClass:       string(p.AssetSubClass),
		Countries:           nonNil(p.Countries),
		Sectors:             nonNil(p.Sectors),
		Holdings:            nonNil(p.Holdings),
		ActivitiesCount:     p.ActivitiesCount,
		DateOfFirstActivity: p.DateOfFirstActivity,
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
