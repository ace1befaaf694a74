package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/feature/symbolprofile/usecase"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&SymbolProfileModel{}, &SymbolProfileOverridesModel{}))
	// orders は order フィーチャーが所有するため、統計に必要な列だけ作成する
	require.NoError(t, db.Exec(`CREATE TABLE orders (id TEXT PRIMARY KEY, symbol_profile_id TEXT, date DATETIME)`).Error)

	return db
}

func seedProfile(t *testing.T, db *gorm.DB, id string, ds entity.DataSource, symbol string) {
	t.Helper()
	m := toModel(entity.SymbolProfile{
		ID:         id,
		DataSource: ds,
		Symbol:     symbol,
		Currency:   "USD",
		Name:       symbol + " Inc.",
		AssetClass: entity.AssetClassEquity,
		Countries:  []entity.Country{{Code: "US", Weight: 1}},
	})
	require.NoError(t, db.Create(&m).Error, "failed to seed profile")
}

func seedOrder(t *testing.T, db *gorm.DB, id, profileID string, date time.Time) {
	t.Helper()
	require.NoError(t, db.Exec(`INSERT INTO orders (id, symbol_profile_id, date) VALUES (?, ?, ?)`, id, profileID, date).Error)
}

func TestSymbolProfileGorm_FindOrCreate(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewSymbolProfileRepository(db)
	ctx := context.Background()

	created, err := repo.FindOrCreate(ctx, entity.SymbolProfile{
		DataSource: entity.DataSourceFinancialModelingPrep,
		Symbol:     "AAPL",
		Currency:   "USD",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	again, err := repo.FindOrCreate(ctx, entity.SymbolProfile{
		DataSource: entity.DataSourceFinancialModelingPrep,
		Symbol:     "AAPL",
		Currency:   "EUR",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "USD", again.Currency, "existing profile must not be overwritten")

	var count int64
	require.NoError(t, db.Model(&SymbolProfileModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSymbolProfileGorm_GetSymbolProfiles_AppliesOverrides(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewSymbolProfileRepository(db)
	ctx := context.Background()

	seedProfile(t, db, "p1", entity.DataSourceFinancialModelingPrep, "AAPL")
	seedProfile(t, db, "p2", entity.DataSourceFinancialModelingPrep, "MSFT")

	ac := entity.AssetClassFixedIncome
	name := "Apple (custom)"
	require.NoError(t, repo.SaveOverrides(ctx, "p1", entity.Overrides{AssetClass: &ac, Name: &name}))

	got, err := repo.GetSymbolProfiles(ctx, []entity.AssetProfileIdentifier{
		{DataSource: entity.DataSourceFinancialModelingPrep, Symbol: "AAPL"},
		{DataSource: entity.DataSourceManual, Symbol: "MSFT"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.AssetClassFixedIncome, got[0].AssetClass)
	assert.Equal(t, "Apple (custom)", got[0].Name)
	assert.Equal(t, []entity.Country{{Code: "US", Weight: 1}}, got[0].Countries)
}

func TestSymbolProfileGorm_GetSymbolProfilesByIDs_ActivityStats(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewSymbolProfileRepository(db)
	ctx := context.Background()

	seedProfile(t, db, "p1", entity.DataSourceFinancialModelingPrep, "AAPL")
	seedProfile(t, db, "p2", entity.DataSourceFinancialModelingPrep, "MSFT")
	first := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedOrder(t, db, "o1", "p1", first.AddDate(0, 1, 0))
	seedOrder(t, db, "o2", "p1", first)

	got, err := repo.GetSymbolProfilesByIDs(ctx, []string{"p1", "p2", "p1"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]entity.SymbolProfile{}
	for _, p := range got {
		byID[p.ID] = p
	}
	assert.Equal(t, 2, byID["p1"].ActivitiesCount)
	require.NotNil(t, byID["p1"].DateOfFirstActivity)
	assert.True(t, byID["p1"].DateOfFirstActivity.Equal(first))
	assert.Equal(t, 0, byID["p2"].ActivitiesCount)
	assert.Nil(t, byID["p2"].DateOfFirstActivity)
}

func TestSymbolProfileGorm_Upsert_MergesNonEmptyFields(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewSymbolProfileRepository(db)
	ctx := context.Background()

	seedProfile(t, db, "p1", entity.DataSourceFinancialModelingPrep, "AAPL")

	err := repo.Upsert(ctx, entity.SymbolProfile{
		DataSource: entity.DataSourceFinancialModelingPrep,
		Symbol:     "AAPL",
		Isin:       "US0378331005",
		Sectors:    []entity.Sector{{Name: "Technology", Weight: 1}},
	})
	require.NoError(t, err)

	var m SymbolProfileModel
	require.NoError(t, db.Where("id = ?", "p1").First(&m).Error)
	e := m.ToEntity()
	assert.Equal(t, "US0378331005", e.Isin)
	assert.Equal(t, "AAPL Inc.", e.Name, "empty provider field must keep stored value")
	assert.Equal(t, []entity.Sector{{Name: "Technology", Weight: 1}}, e.Sectors)

	// 新規シンボルは作成される
	require.NoError(t, repo.Upsert(ctx, entity.SymbolProfile{DataSource: entity.DataSourceFinancialModelingPrep, Symbol: "NVDA"}))
	var count int64
	require.NoError(t, db.Model(&SymbolProfileModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSymbolProfileGorm_UpdateByID(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewSymbolProfileRepository(db)
	ctx := context.Background()

	seedProfile(t, db, "p1", entity.DataSourceManual, "custom")
	cur := "CHF"
	sub := entity.AssetSubClassPrivateEquity

	require.NoError(t, repo.UpdateByID(ctx, "p1", usecase.ProfileUpdate{Currency: &cur, AssetSubClass: &sub}))
	require.NoError(t, repo.UpdateByID(ctx, "p1", usecase.ProfileUpdate{}))
	assert.ErrorIs(t, repo.UpdateByID(ctx, "missing", usecase.ProfileUpdate{Currency: &cur}), usecase.ErrSymbolProfileNotFound)

	var m SymbolProfileModel
	require.NoError(t, db.Where("id = ?", "p1").First(&m).Error)
	assert.Equal(t, "CHF", m.Currency)
	assert.Equal(t, "PRIVATE_EQUITY", m.AssetSubClass)
}

func TestSymbolProfileGorm_DeleteByID_And_ListGatherable(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewSymbolProfileRepository(db)
	ctx := context.Background()

	seedProfile(t, db, "p1", entity.DataSourceFinancialModelingPrep, "AAPL")
	seedProfile(t, db, "p2", entity.DataSourceManual, "house")
	seedProfile(t, db, "p3", entity.DataSourceFinancialModelingPrep, "BTCUSD")
	name := "x"
	require.NoError(t, repo.SaveOverrides(ctx, "p1", entity.Overrides{Name: &name}))

	require.NoError(t, repo.DeleteByID(ctx, "p1"))

	var overrides int64
	require.NoError(t, db.Model(&SymbolProfileOverridesModel{}).Count(&overrides).Error)
	assert.Zero(t, overrides)

	list, err := repo.ListGatherable(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BTCUSD", list[0].Symbol)
}
