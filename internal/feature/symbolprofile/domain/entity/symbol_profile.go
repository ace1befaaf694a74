// Package entity defines the asset profile model shared by orders, data gathering and portfolio features.
package entity

import "time"

// DataSource identifies where market data for a symbol comes from.
type DataSource string

const (
	DataSourceFinancialModelingPrep DataSource = "FINANCIAL_MODELING_PREP"
	DataSourceManual                DataSource = "MANUAL"
)

type AssetClass string

const (
	AssetClassAlternativeInvestment AssetClass = "ALTERNATIVE_INVESTMENT"
	AssetClassCommodity             AssetClass = "COMMODITY"
	AssetClassEquity                AssetClass = "EQUITY"
	AssetClassFixedIncome           AssetClass = "FIXED_INCOME"
	AssetClassLiquidity             AssetClass = "LIQUIDITY"
	AssetClassRealEstate            AssetClass = "REAL_ESTATE"
)

type AssetSubClass string

const (
	AssetSubClassBond           AssetSubClass = "BOND"
	AssetSubClassCash           AssetSubClass = "CASH"
	AssetSubClassCommodity      AssetSubClass = "COMMODITY"
	AssetSubClassCryptocurrency AssetSubClass = "CRYPTOCURRENCY"
	AssetSubClassETF            AssetSubClass = "ETF"
	AssetSubClassMutualFund     AssetSubClass = "MUTUALFUND"
	AssetSubClassPreciousMetal  AssetSubClass = "PRECIOUS_METAL"
	AssetSubClassPrivateEquity  AssetSubClass = "PRIVATE_EQUITY"
	AssetSubClassStock          AssetSubClass = "STOCK"
)

// IsValidAssetClass reports whether s names a known asset class.
func IsValidAssetClass(s string) bool {
	switch AssetClass(s) {
	case AssetClassAlternativeInvestment, AssetClassCommodity, AssetClassEquity,
		AssetClassFixedIncome, AssetClassLiquidity, AssetClassRealEstate:
		return true
	}
	return false
}

// Country is a weighted country exposure, Code is ISO 3166-1 alpha-2.
type Country struct {
	Code   string  `json:"code"`
	Weight float64 `json:"weight"`
}

type Sector struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Holding struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// AssetProfileIdentifier は dataSource と symbol の組で資産プロファイルを一意に識別します。
type AssetProfileIdentifier struct {
	DataSource DataSource `json:"dataSource"`
	Symbol     string     `json:"symbol"`
}

// Key returns the "DATASOURCE-SYMBOL" form used as queue job id and map key.
func (a AssetProfileIdentifier) Key() string {
	return string(a.DataSource) + "-" + a.Symbol
}

// SymbolProfile describes an asset. (DataSource, Symbol) is unique.
type SymbolProfile struct {
	ID            string
	DataSource    DataSource
	Symbol        string
	Currency      string
	Name          string
	Isin          string
	URL           string
	AssetClass    AssetClass
	AssetSubClass AssetSubClass
	Countries     []Country
	Sectors       []Sector
	Holdings      []Holding
	// UserID is set for custom (MANUAL) profiles owned by a user.
	UserID string

	ActivitiesCount     int
	DateOfFirstActivity *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identifier returns the profile's (dataSource, symbol) pair.
func (p SymbolProfile) Identifier() AssetProfileIdentifier {
	return AssetProfileIdentifier{DataSource: p.DataSource, Symbol: p.Symbol}
}

// Overrides are user supplied corrections applied on top of provider data.
type Overrides struct {
	AssetClass    *AssetClass
	AssetSubClass *AssetSubClass
	Name          *string
	URL           *string
}

// Apply returns a copy of p with the non-nil override fields applied.
func (o Overrides) Apply(p SymbolProfile) SymbolProfile {
	if o.AssetClass != nil {
		p.AssetClass = *o.AssetClass
	}
	if o.AssetSubClass != nil {
		p.AssetSubClass = *o.AssetSubClass
	}
	if o.Name != nil {
		p.Name = *o.Name
	}
	if o.URL != nil {
		p.URL = *o.URL
	}
	return p
}
