// Package financialmodelingprep provides a market data provider backed by the Financial Modeling Prep API.
package financialmodelingprep

import (
	"time"

	"folio_backend/internal/platform/config"
)

// DefaultBaseURL is the stable API root.
const DefaultBaseURL = "https://financialmodelingprep.com/stable"

// Config holds configuration for the Financial Modeling Prep API client.
type Config struct {
	APIKey  string        // API key for authentication
	BaseURL string        // Base URL for the API (e.g., "https://financialmodelingprep.com/stable")
	Timeout time.Duration // per request timeout
}

// LoadConfig builds the client configuration from the application config.
func LoadConfig(cfg config.Config) Config {
	c := Config{
		APIKey:  cfg.FinancialModelingPrep.APIKey,
		BaseURL: cfg.FinancialModelingPrep.BaseURL,
		Timeout: cfg.RequestTimeout,
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	return c
}
