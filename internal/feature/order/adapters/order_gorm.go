// Package adapters はorderフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"folio_backend/internal/feature/order/domain/entity"
	"folio_backend/internal/feature/order/usecase"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

type orderGorm struct {
	db *gorm.DB
}

var _ usecase.OrderRepository = (*orderGorm)(nil)

func NewOrderRepository(db *gorm.DB) *orderGorm {
	return &orderGorm{db: db}
}

type OrderModel struct {
	ID              string    `gorm:"primaryKey;size:36"`
	UserID          string    `gorm:"size:36;not null;index"`
	AccountID       *string   `gorm:"size:36;index"`
	SymbolProfileID string    `gorm:"size:36;not null;index"`
	Type            string    `gorm:"size:16;not null"`
	Date            time.Time `gorm:"not null;index"`
	Quantity        float64   `gorm:"not null"`
	UnitPrice       float64   `gorm:"not null"`
	Fee             float64   `gorm:"not null;default:0"`
	Currency        *string   `gorm:"size:8"`
	Comment         *string   `gorm:"type:text"`
	IsDraft         bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderTagModel is the many-to-many link between orders and tags.
type OrderTagModel struct {
	OrderID string `gorm:"primaryKey;size:36"`
	TagID   string `gorm:"primaryKey;size:36;index"`
}

func (OrderTagModel) TableName() string {
	return "order_tags"
}

// orderRow is an order joined with its account.
type orderRow struct {
	OrderModel
	AccountName       *string
	AccountCurrency   *string
	AccountIsExcluded *bool
}

func toModel(e entity.Order) OrderModel {
	m := OrderModel{
		ID:              e.ID,
		UserID:          e.UserID,
		SymbolProfileID: e.SymbolProfileID,
		Type:            string(e.Type),
		Date:            e.Date.UTC(),
		Quantity:        e.Quantity,
		UnitPrice:       e.UnitPrice,
		Fee:             e.Fee,
		Comment:         e.Comment,
		IsDraft:         e.IsDraft,
	}
	if e.AccountID != "" {
		id := e.AccountID
		m.AccountID = &id
	}
	if e.Currency != "" {
		c := e.Currency
		m.Currency = &c
	}
	return m
}

func (m OrderModel) toEntity() entity.Order {
	e := entity.Order{
		ID:              m.ID,
		UserID:          m.UserID,
		SymbolProfileID: m.SymbolProfileID,
		Type:            entity.ActivityType(m.Type),
		Date:            m.Date.UTC(),
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		Fee:             m.Fee,
		Comment:         m.Comment,
		IsDraft:         m.IsDraft,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.AccountID != nil {
		e.AccountID = *m.AccountID
	}
	if m.Currency != nil {
		e.Currency = *m.Currency
	}
	return e
}

func (r orderRow) toEntity() entity.Order {
	e := r.OrderModel.toEntity()
	if r.AccountName != nil {
		e.Account = &entity.AccountRef{ID: e.AccountID, Name: *r.AccountName}
		if r.AccountCurrency != nil {
			e.Account.Currency = *r.AccountCurrency
		}
		if r.AccountIsExcluded != nil {
			e.Account.IsExcluded = *r.AccountIsExcluded
		}
	}
	return e
}

func insertTags(tx *gorm.DB, orderID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]OrderTagModel, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, OrderTagModel{OrderID: orderID, TagID: id})
	}
	return tx.Create(&links).Error
}

func (r *orderGorm) Create(ctx context.Context, o entity.Order, tagIDs []string) (*entity.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	m := toModel(o)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return insertTags(tx, m.ID, tagIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, m.ID)
}

func (r *orderGorm) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("orders AS o").
		Joins("JOIN symbol_profiles sp ON sp.id = o.symbol_profile_id").
		Joins("LEFT JOIN symbol_profile_overrides spo ON spo.symbol_profile_id = sp.id").
		Joins("LEFT JOIN accounts a ON a.id = o.account_id")
}

const orderColumns = "o.*, a.name AS account_name, a.currency AS account_currency, a.is_excluded AS account_is_excluded"

func (r *orderGorm) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var rows []orderRow
	if err := r.base(ctx).Select(orderColumns).Where("o.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, usecase.ErrOrderNotFound
	}
	orders, err := r.withTags(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// apply translates q into WHERE conditions on the joined base query.
func apply(db *gorm.DB, q usecase.OrderQuery) *gorm.DB {
	db = db.Where("o.user_id = ?", q.UserID)
	if !q.EndDate.IsZero() {
		db = db.Where("o.date <= ?", q.EndDate.UTC())
	}
	if !q.StartDate.IsZero() {
		db = db.Where("o.date > ?", q.StartDate.UTC())
	}
	if len(q.AccountIDs) > 0 {
		db = db.Where("o.account_id IN ?", q.AccountIDs)
	}
	if q.ExcludeDrafts {
		db = db.Where("o.is_draft = ?", false)
	}
	if len(q.AssetClasses) > 0 {
		classes := make([]string, 0, len(q.AssetClasses))
		for _, c := range q.AssetClasses {
			classes = append(classes, string(c))
		}
		db = db.Where("((sp.asset_class IN ? AND spo.asset_class IS NULL) OR spo.asset_class IN ?)", classes, classes)
	}
	if q.Asset != nil {
		db = db.Where("sp.data_source = ? AND sp.symbol = ?", string(q.Asset.DataSource), q.Asset.Symbol)
	}
	if q.SearchQuery != "" {
		p := escapeLike(strings.ToLower(q.SearchQuery)) + "%"
		db = db.Where(`(LOWER(sp.id) LIKE ? ESCAPE '\' OR LOWER(sp.isin) LIKE ? ESCAPE '\' OR LOWER(sp.name) LIKE ? ESCAPE '\' OR LOWER(sp.symbol) LIKE ? ESCAPE '\')`, p, p, p, p)
	}
	if len(q.TagIDs) > 0 {
		db = db.Where("EXISTS (SELECT 1 FROM order_tags ot WHERE ot.order_id = o.id AND ot.tag_id IN ?)", q.TagIDs)
	}
	if len(q.Types) > 0 {
		types := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			types = append(types, string(t))
		}
		db = db.Where("o.type IN ?", types)
	}
	if q.ExcludeAnalysisHidden {
		db = db.Where("(a.id IS NULL OR a.is_excluded = ?)", false).
			Where("NOT EXISTS (SELECT 1 FROM order_tags ot WHERE ot.order_id = o.id AND ot.tag_id = ?)", entity.TagIDExcludeFromAnalysis)
	}
	return db
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *orderGorm) Find(ctx context.Context, q usecase.OrderQuery) ([]entity.Order, int64, error) {
	var count int64
	if err := apply(r.base(ctx), q).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	db := apply(r.base(ctx), q).Select(orderColumns)
	for _, ob := range q.OrderBy {
		dir := "ASC"
		if ob.Desc {
			dir = "DESC"
		}
		// columns come from a fixed whitelist
		db = db.Order("o." + ob.Column + " " + dir)
	}
	if q.Skip > 0 {
		db = db.Offset(q.Skip)
	}
	if q.Take > 0 {
		db = db.Limit(q.Take)
	}

	var rows []orderRow
	if err := db.Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}
	orders, err := r.withTags(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

// withTags converts rows and attaches their tags.
func (r *orderGorm) withTags(ctx context.Context, rows []orderRow) ([]entity.Order, error) {
	out := make([]entity.Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var links []struct {
		OrderID string
		TagModel
	}
	if err := r.db.WithContext(ctx).
		Table("order_tags AS ot").
		Select("ot.order_id, t.*").
		Joins("JOIN tags t ON t.id = ot.tag_id").
		Where("ot.order_id IN ?", ids).
		Order("t.name ASC").
		Scan(&links).Error; err != nil {
		return nil, fmt.Errorf("load order tags: %w", err)
	}
	tags := map[string][]entity.Tag{}
	for _, l := range links {
		tags[l.OrderID] = append(tags[l.OrderID], l.TagModel.toEntity())
	}

	for _, row := range rows {
		e := row.toEntity()
		e.Tags = tags[e.ID]
		out = append(out, e)
	}
	return out, nil
}

func (r *orderGorm) FindIDsByUserAndAsset(ctx context.Context, userID string, asset spentity.AssetProfileIdentifier) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("orders AS o").
		Joins("JOIN symbol_profiles sp ON sp.id = o.symbol_profile_id").
		Where("o.user_id = ? AND sp.data_source = ? AND sp.symbol = ?", userID, string(asset.DataSource), asset.Symbol).
		Pluck("o.id", &ids).Error
	return ids, err
}

func (r *orderGorm) FindLatest(ctx context.Context, asset spentity.AssetProfileIdentifier) (*entity.Order, error) {
	var m OrderModel
	err := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.*").
		Joins("JOIN symbol_profiles sp ON sp.id = o.symbol_profile_id").
		Where("sp.data_source = ? AND sp.symbol = ?", string(asset.DataSource), asset.Symbol).
		Order("o.date DESC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, usecase.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	e := m.toEntity()
	return &e, nil
}

func (r *orderGorm) Update(ctx context.Context, o entity.Order, tagIDs []string) (*entity.Order, error) {
	m := toModel(o)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&OrderModel{}).Where("id = ?", m.ID).Updates(map[string]any{
			"account_id":        m.AccountID,
			"symbol_profile_id": m.SymbolProfileID,
			"type":              m.Type,
			"date":              m.Date,
			"quantity":          m.Quantity,
			"unit_price":        m.UnitPrice,
			"fee":               m.Fee,
			"currency":          m.Currency,
			"comment":           m.Comment,
			"is_draft":          m.IsDraft,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrOrderNotFound
		}
		if err := tx.Where("order_id = ?", m.ID).Delete(&OrderTagModel{}).Error; err != nil {
			return err
		}
		return insertTags(tx, m.ID, tagIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, m.ID)
}

func (r *orderGorm) ReplaceTags(ctx context.Context, orderIDs []string, tagIDs []string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id IN ?", orderIDs).Delete(&OrderTagModel{}).Error; err != nil {
			return err
		}
		for _, id := range orderIDs {
			if err := insertTags(tx, id, tagIDs); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *orderGorm) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&OrderTagModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&OrderModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrOrderNotFound
		}
		return nil
	})
}

func (r *orderGorm) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id IN ?", ids).Delete(&OrderTagModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&OrderModel{})
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

func (r *orderGorm) StatisticsByCurrency(ctx context.Context, currency string) (int64, *time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).
		Table("orders AS o").
		Joins("JOIN symbol_profiles sp ON sp.id = o.symbol_profile_id").
		Where("sp.currency = ?", currency).
		Order("o.date ASC").
		Pluck("o.date", &dates).Error; err != nil {
		return 0, nil, err
	}
	if len(dates) == 0 {
		return 0, nil, nil
	}
	first := dates[0].UTC()
	return int64(len(dates)), &first, nil
}
