package usecase

import (
	"fmt"
	"strings"
	"time"

	"folio_backend/internal/feature/order/domain/entity"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/shared/filter"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// sortColumns maps the public sort keys to order columns.
var sortColumns = map[string]string{
	"date":      "date",
	"type":      "type",
	"quantity":  "quantity",
	"unitPrice": "unit_price",
	"fee":       "fee",
	"currency":  "currency",
	"updatedAt": "updated_at",
}

// GetOrdersParams are the inputs of GetOrders.
type GetOrdersParams struct {
	UserID       string
	UserCurrency string
	Filters      []filter.Filter
	// StartDate is exclusive, EndDate inclusive. Zero means unbounded.
	StartDate time.Time
	EndDate   time.Time
	Types     []entity.ActivityType

	IncludeDrafts                     bool
	WithExcludedAccountsAndActivities bool

	SortColumn    string
	SortDirection SortDirection
	Skip          int
	// Take limits the result, zero means no limit.
	Take int
}

// OrderQuery is the storage level predicate derived from GetOrdersParams.
// All populated conditions are combined with AND.
type OrderQuery struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time

	AccountIDs    []string
	ExcludeDrafts bool
	// AssetClasses matches the override asset class if set, else the profile asset class.
	AssetClasses []spentity.AssetClass
	// Asset is set only when both a DATA_SOURCE and a SYMBOL filter are present.
	Asset *spentity.AssetProfileIdentifier
	// SearchQuery is a case-insensitive prefix of profile id, isin, name or symbol.
	SearchQuery string
	TagIDs      []string
	Types       []entity.ActivityType

	// ExcludeAnalysisHidden drops activities of excluded accounts and those tagged TagIDExcludeFromAnalysis.
	ExcludeAnalysisHidden bool

	OrderBy []OrderBy
	Skip    int
	Take    int
}

type OrderBy struct {
	Column string
	Desc   bool
}

// NewOrderQuery groups the filters of p into an OrderQuery.
func NewOrderQuery(p GetOrdersParams) (OrderQuery, error) {
	q := OrderQuery{
		UserID:                p.UserID,
		StartDate:             p.StartDate,
		EndDate:               p.EndDate,
		AccountIDs:            filter.IDs(p.Filters, filter.TypeAccount),
		ExcludeDrafts:         !p.IncludeDrafts,
		SearchQuery:           filter.First(p.Filters, filter.TypeSearchQuery),
		TagIDs:                filter.IDs(p.Filters, filter.TypeTag),
		Types:                 p.Types,
		ExcludeAnalysisHidden: !p.WithExcludedAccountsAndActivities,
		OrderBy:               []OrderBy{{Column: "date"}, {Column: "id"}},
		Skip:                  p.Skip,
		Take:                  p.Take,
	}

	for _, id := range filter.IDs(p.Filters, filter.TypeAssetClass) {
		if !spentity.IsValidAssetClass(id) {
			return OrderQuery{}, fmt.Errorf("%w: asset class %q", ErrInvalidQuery, id)
		}
		q.AssetClasses = append(q.AssetClasses, spentity.AssetClass(id))
	}

	ds := filter.First(p.Filters, filter.TypeDataSource)
	symbol := filter.First(p.Filters, filter.TypeSymbol)
	if ds != "" && symbol != "" {
		q.Asset = &spentity.AssetProfileIdentifier{DataSource: spentity.DataSource(ds), Symbol: symbol}
	}

	if p.SortColumn != "" {
		col, ok := sortColumns[p.SortColumn]
		if !ok {
			return OrderQuery{}, fmt.Errorf("%w: sort column %q", ErrInvalidQuery, p.SortColumn)
		}
		desc := false
		switch SortDirection(strings.ToLower(string(p.SortDirection))) {
		case "", SortAsc:
		case SortDesc:
			desc = true
		default:
			return OrderQuery{}, fmt.Errorf("%w: sort direction %q", ErrInvalidQuery, p.SortDirection)
		}
		q.OrderBy = []OrderBy{{Column: col, Desc: desc}, {Column: "id", Desc: desc}}
	}

	if q.Skip < 0 || q.Take < 0 {
		return OrderQuery{}, fmt.Errorf("%w: negative skip or take", ErrInvalidQuery)
	}
	return q, nil
}
