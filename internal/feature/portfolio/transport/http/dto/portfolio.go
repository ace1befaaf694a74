// Package dto defines the response bodies of the portfolio endpoints.
package dto

import (
	"folio_backend/internal/feature/portfolio/domain/entity"
	"folio_backend/internal/shared/chart"
)

type HoldingsResponse struct {
	BaseCurrency             string           `json:"baseCurrency"`
	Holdings                 []entity.Holding `json:"holdings"`
	InvestmentInBaseCurrency float64          `json:"investmentInBaseCurrency"`
	ValueInBaseCurrency      float64          `json:"valueInBaseCurrency"`
}

// AllocationResponse is the proportion chart of GET /portfolio/allocation.
type AllocationResponse struct {
	Keys     []string    `json:"keys"`
	MaxItems int         `json:"maxItems"`
	Chart    chart.Chart `json:"chart"`
}
