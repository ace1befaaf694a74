package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/shared/filter"
)

func TestNewOrderQuery_Defaults(t *testing.T) {
	t.Parallel()

	q, err := NewOrderQuery(GetOrdersParams{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", q.UserID)
	assert.True(t, q.ExcludeDrafts)
	assert.True(t, q.ExcludeAnalysisHidden)
	assert.Equal(t, []OrderBy{{Column: "date"}, {Column: "id"}}, q.OrderBy)
	assert.Nil(t, q.Asset)
	assert.Empty(t, q.AccountIDs)
}

func TestNewOrderQuery_Filters(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q, err := NewOrderQuery(GetOrdersParams{
		UserID:    "u1",
		StartDate: start,
		Filters: []filter.Filter{
			{ID: "acc-1", Type: filter.TypeAccount},
			{ID: "acc-2", Type: filter.TypeAccount},
			{ID: "EQUITY", Type: filter.TypeAssetClass},
			{ID: "FINANCIAL_MODELING_PREP", Type: filter.TypeDataSource},
			{ID: "AAPL", Type: filter.TypeSymbol},
			{ID: "app", Type: filter.TypeSearchQuery},
			{ID: "t-1", Type: filter.TypeTag},
		},
		IncludeDrafts:                     true,
		WithExcludedAccountsAndActivities: true,
	})
	require.NoError(t, err)

	assert.Equal(t, start, q.StartDate)
	assert.Equal(t, []string{"acc-1", "acc-2"}, q.AccountIDs)
	assert.Equal(t, []spentity.AssetClass{spentity.AssetClassEquity}, q.AssetClasses)
	require.NotNil(t, q.Asset)
	assert.Equal(t, "FINANCIAL_MODELING_PREP-AAPL", q.Asset.Key())
	assert.Equal(t, "app", q.SearchQuery)
	assert.Equal(t, []string{"t-1"}, q.TagIDs)
	assert.False(t, q.ExcludeDrafts)
	assert.False(t, q.ExcludeAnalysisHidden)
}

func TestNewOrderQuery_Sort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		column    string
		direction SortDirection
		expected  []OrderBy
		wantErr   bool
	}{
		{name: "ascending by default", column: "unitPrice", expected: []OrderBy{{Column: "unit_price"}, {Column: "id"}}},
		{name: "descending", column: "date", direction: "DESC", expected: []OrderBy{{Column: "date", Desc: true}, {Column: "id", Desc: true}}},
		{name: "unknown column", column: "symbol; DROP TABLE orders", wantErr: true},
		{name: "unknown direction", column: "fee", direction: "sideways", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewOrderQuery(GetOrdersParams{UserID: "u1", SortColumn: tt.column, SortDirection: tt.direction})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, q.OrderBy)
		})
	}
}

func TestNewOrderQuery_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewOrderQuery(GetOrdersParams{Filters: []filter.Filter{{ID: "GOLD", Type: filter.TypeAssetClass}}})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = NewOrderQuery(GetOrdersParams{Skip: -1})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestNewOrderQuery_SymbolNeedsDataSource(t *testing.T) {
	t.Parallel()

	q, err := NewOrderQuery(GetOrdersParams{Filters: []filter.Filter{{ID: "AAPL", Type: filter.TypeSymbol}}})
	require.NoError(t, err)
	assert.Nil(t, q.Asset)
}
