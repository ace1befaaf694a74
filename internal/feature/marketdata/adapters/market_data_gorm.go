// Package adapters はmarketdataフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio_backend/internal/feature/marketdata/domain/entity"
	"folio_backend/internal/feature/marketdata/usecase"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

// upsertBatchSize keeps the number of bound parameters below SQLite's limit.
const upsertBatchSize = 500

type marketDataGorm struct {
	db *gorm.DB
}

var _ usecase.MarketDataRepository = (*marketDataGorm)(nil)

func NewMarketDataRepository(db *gorm.DB) *marketDataGorm {
	return &marketDataGorm{db: db}
}

type MarketDataModel struct {
	ID          uint      `gorm:"primaryKey"`
	DataSource  string    `gorm:"size:32;not null;uniqueIndex:market_data_ds_symbol_date,priority:1"`
	Symbol      string    `gorm:"size:64;not null;uniqueIndex:market_data_ds_symbol_date,priority:2"`
	Date        time.Time `gorm:"not null;uniqueIndex:market_data_ds_symbol_date,priority:3"`
	MarketPrice float64   `gorm:"not null"`
	State       string    `gorm:"size:16;not null;default:CLOSE"`
	CreatedAt   time.Time
}

func (MarketDataModel) TableName() string {
	return "market_data"
}

func toModel(e entity.MarketData) MarketDataModel {
	state := e.State
	if state == "" {
		state = entity.MarketDataStateClose
	}
	return MarketDataModel{
		DataSource:  string(e.DataSource),
		Symbol:      e.Symbol,
		Date:        e.Date.UTC(),
		MarketPrice: e.MarketPrice,
		State:       string(state),
	}
}

func (m MarketDataModel) toEntity() entity.MarketData {
	return entity.MarketData{
		DataSource:  spentity.DataSource(m.DataSource),
		Symbol:      m.Symbol,
		Date:        m.Date.UTC(),
		MarketPrice: m.MarketPrice,
		State:       entity.MarketDataState(m.State),
	}
}

func (r *marketDataGorm) UpsertBatch(ctx context.Context, items []entity.MarketData) error {
	if len(items) == 0 {
		return nil
	}
	ms := make([]MarketDataModel, 0, len(items))
	for _, e := range items {
		ms = append(ms, toModel(e))
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "data_source"}, {Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"market_price", "state"}),
	}).CreateInBatches(&ms, upsertBatchSize).Error
}

func (r *marketDataGorm) FindRange(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) ([]entity.MarketData, error) {
	var rows []MarketDataModel
	if err := r.db.WithContext(ctx).
		Where("data_source = ? AND symbol = ?", string(id.DataSource), id.Symbol).
		Where("date >= ? AND date <= ?", from.UTC(), to.UTC()).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.MarketData, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

func (r *marketDataGorm) FindLatest(ctx context.Context, ids []spentity.AssetProfileIdentifier) (map[string]entity.MarketData, error) {
	out := make(map[string]entity.MarketData, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	conds := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		conds = append(conds, "(md.data_source = ? AND md.symbol = ?)")
		args = append(args, string(id.DataSource), id.Symbol)
	}

	var rows []MarketDataModel
	if err := r.db.WithContext(ctx).
		Table("market_data AS md").
		Select("md.*").
		Joins(`JOIN (SELECT data_source, symbol, MAX(date) AS max_date FROM market_data GROUP BY data_source, symbol) latest
			ON latest.data_source = md.data_source AND latest.symbol = md.symbol AND latest.max_date = md.date`).
		Where(strings.Join(conds, " OR "), args...).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		e := m.toEntity()
		out[e.Identifier().Key()] = e
	}
	return out, nil
}
