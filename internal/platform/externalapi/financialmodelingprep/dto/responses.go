// Package dto holds the raw JSON shapes returned by Financial Modeling Prep.
package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Percent decodes weightPercentage values which FMP sends either as a
// number (12.5) or as a string with a trailing percent sign ("12.5%").
type Percent float64

func (p *Percent) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*p = 0
		return nil
	}
	if b[0] != '"' {
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*p = Percent(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*p = Percent(f)
	return nil
}

// Profile is one element of /profile.
type Profile struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Currency    string `json:"currency"`
	Isin        string `json:"isin"`
	Country     string `json:"country"`
	Sector      string `json:"sector"`
	Website     string `json:"website"`
	IsEtf       bool   `json:"isEtf"`
	IsFund      bool   `json:"isFund"`
}

// Quote is one element of /quote.
type Quote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// ShortQuote is one element of /batch-quote-short.
type ShortQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
	Volume float64 `json:"volume"`
}

type CountryWeighting struct {
	Country          string  `json:"country"`
	WeightPercentage Percent `json:"weightPercentage"`
}

type SectorWeighting struct {
	Sector           string  `json:"sector"`
	WeightPercentage Percent `json:"weightPercentage"`
}

type EtfHolding struct {
	Asset            string  `json:"asset"`
	Name             string  `json:"name"`
	WeightPercentage Percent `json:"weightPercentage"`
}

type EtfInfo struct {
	Symbol  string `json:"symbol"`
	Website string `json:"website"`
}

// Dividend is one element of /dividends.
type Dividend struct {
	Date        string  `json:"date"`
	AdjDividend float64 `json:"adjDividend"`
	Dividend    float64 `json:"dividend"`
}

// HistoricalPrice is one element of /historical-price-eod/full.
type HistoricalPrice struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// SearchResult is one element of /search-symbol and /search-isin.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Isin     string `json:"isin"`
}
