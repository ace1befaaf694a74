// Package adapters はsymbolprofileフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/feature/symbolprofile/usecase"
)

type symbolProfileGorm struct {
	db *gorm.DB
}

var _ usecase.SymbolProfileRepository = (*symbolProfileGorm)(nil)

// NewSymbolProfileRepository は指定されたDB接続でリポジトリを生成します。
func NewSymbolProfileRepository(db *gorm.DB) *symbolProfileGorm {
	return &symbolProfileGorm{db: db}
}

type SymbolProfileModel struct {
	ID            string         `gorm:"primaryKey;size:36"`
	DataSource    string         `gorm:"size:32;not null;uniqueIndex:symbol_profile_ds_symbol,priority:1"`
	Symbol        string         `gorm:"size:64;not null;uniqueIndex:symbol_profile_ds_symbol,priority:2"`
	Currency      string         `gorm:"size:8"`
	Name          string         `gorm:"size:255"`
	Isin          string         `gorm:"size:16"`
	URL           string         `gorm:"size:512"`
	AssetClass    string         `gorm:"size:32"`
	AssetSubClass string         `gorm:"size:32"`
	Countries     datatypes.JSON `gorm:"type:json"`
	Sectors       datatypes.JSON `gorm:"type:json"`
	Holdings      datatypes.JSON `gorm:"type:json"`
	UserID        *string        `gorm:"size:36;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (SymbolProfileModel) TableName() string {
	return "symbol_profiles"
}

type SymbolProfileOverridesModel struct {
	SymbolProfileID string  `gorm:"primaryKey;size:36"`
	AssetClass      *string `gorm:"size:32"`
	AssetSubClass   *string `gorm:"size:32"`
	Name            *string `gorm:"size:255"`
	URL             *string `gorm:"size:512"`
}

func (SymbolProfileOverridesModel) TableName() string {
	return "symbol_profile_overrides"
}

func toModel(e entity.SymbolProfile) SymbolProfileModel {
	m := SymbolProfileModel{
		ID:            e.ID,
		DataSource:    string(e.DataSource),
		Symbol:        e.Symbol,
		Currency:      e.Currency,
		Name:          e.Name,
		Isin:          e.Isin,
		URL:           e.URL,
		AssetClass:    string(e.AssetClass),
		AssetSubClass: string(e.AssetSubClass),
		Countries:     marshalJSON(e.Countries),
		Sectors:       marshalJSON(e.Sectors),
		Holdings:      marshalJSON(e.Holdings),
	}
	if e.UserID != "" {
		uid := e.UserID
		m.UserID = &uid
	}
	return m
}

func (m SymbolProfileModel) ToEntity() entity.SymbolProfile {
	e := entity.SymbolProfile{
		ID:            m.ID,
		DataSource:    entity.DataSource(m.DataSource),
		Symbol:        m.Symbol,
		Currency:      m.Currency,
		Name:          m.Name,
		Isin:          m.Isin,
		URL:           m.URL,
		AssetClass:    entity.AssetClass(m.AssetClass),
		AssetSubClass: entity.AssetSubClass(m.AssetSubClass),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	_ = unmarshalJSON(m.Countries, &e.Countries)
	_ = unmarshalJSON(m.Sectors, &e.Sectors)
	_ = unmarshalJSON(m.Holdings, &e.Holdings)
	if m.UserID != nil {
		e.UserID = *m.UserID
	}
	return e
}

func (m SymbolProfileOverridesModel) toEntity() entity.Overrides {
	o := entity.Overrides{Name: m.Name, URL: m.URL}
	if m.AssetClass != nil {
		ac := entity.AssetClass(*m.AssetClass)
		o.AssetClass = &ac
	}
	if m.AssetSubClass != nil {
		asc := entity.AssetSubClass(*m.AssetSubClass)
		o.AssetSubClass = &asc
	}
	return o
}

func (r *symbolProfileGorm) FindOrCreate(ctx context.Context, p entity.SymbolProfile) (*entity.SymbolProfile, error) {
	var m SymbolProfileModel
	err := r.db.WithContext(ctx).
		Where("data_source = ? AND symbol = ?", string(p.DataSource), p.Symbol).
		First(&m).Error
	if err == nil {
		e := m.ToEntity()
		return &e, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m = toModel(p)
	// 同時作成に備えて一意制約の競合は無視し、再取得する
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("data_source = ? AND symbol = ?", string(p.DataSource), p.Symbol).
		First(&m).Error; err != nil {
		return nil, err
	}
	e := m.ToEntity()
	return &e, nil
}

func (r *symbolProfileGorm) GetSymbolProfiles(ctx context.Context, ids []entity.AssetProfileIdentifier) ([]entity.SymbolProfile, error) {
	if len(ids) == 0 {
		return []entity.SymbolProfile{}, nil
	}

	conds := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		conds = append(conds, "(data_source = ? AND symbol = ?)")
		args = append(args, string(id.DataSource), id.Symbol)
	}

	var rows []SymbolProfileModel
	if err := r.db.WithContext(ctx).
		Where(strings.Join(conds, " OR "), args...).
		Order("symbol ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.enrich(ctx, rows)
}

func (r *symbolProfileGorm) GetSymbolProfilesByIDs(ctx context.Context, ids []string) ([]entity.SymbolProfile, error) {
	if len(ids) == 0 {
		return []entity.SymbolProfile{}, nil
	}
	var rows []SymbolProfileModel
	if err := r.db.WithContext(ctx).Where("id IN ?", dedupe(ids)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.enrich(ctx, rows)
}

// enrich applies overrides and attaches activity statistics.
func (r *symbolProfileGorm) enrich(ctx context.Context, rows []SymbolProfileModel) ([]entity.SymbolProfile, error) {
	if len(rows) == 0 {
		return []entity.SymbolProfile{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}

	var overrides []SymbolProfileOverridesModel
	if err := r.db.WithContext(ctx).Where("symbol_profile_id IN ?", ids).Find(&overrides).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]entity.Overrides, len(overrides))
	for _, o := range overrides {
		byID[o.SymbolProfileID] = o.toEntity()
	}

	stats, err := r.activityStats(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]entity.SymbolProfile, 0, len(rows))
	for _, m := range rows {
		e := m.ToEntity()
		if o, ok := byID[m.ID]; ok {
			e = o.Apply(e)
		}
		if s, ok := stats[m.ID]; ok {
			e.ActivitiesCount = s.count
			first := s.first
			e.DateOfFirstActivity = &first
		}
		out = append(out, e)
	}
	return out, nil
}

type activityStat struct {
	count int
	first time.Time
}

func (r *symbolProfileGorm) activityStats(ctx context.Context, profileIDs []string) (map[string]activityStat, error) {
	var rows []struct {
		SymbolProfileID string
		Date            time.Time
	}
	if err := r.db.WithContext(ctx).
		Table("orders").
		Select("symbol_profile_id, date").
		Where("symbol_profile_id IN ?", profileIDs).
		Order("date ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load activity stats: %w", err)
	}
	out := make(map[string]activityStat, len(profileIDs))
	for _, row := range rows {
		s, ok := out[row.SymbolProfileID]
		if !ok {
			s.first = row.Date
		}
		s.count++
		out[row.SymbolProfileID] = s
	}
	return out, nil
}

func (r *symbolProfileGorm) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("symbol_profile_id = ?", id).Delete(&SymbolProfileOverridesModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&SymbolProfileModel{}).Error
	})
}

func (r *symbolProfileGorm) Upsert(ctx context.Context, p entity.SymbolProfile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m := toModel(p)

	cols := []string{"updated_at"}
	add := func(col string, nonEmpty bool) {
		if nonEmpty {
			cols = append(cols, col)
		}
	}
	add("currency", p.Currency != "")
	add("name", p.Name != "")
	add("isin", p.Isin != "")
	add("url", p.URL != "")
	add("asset_class", p.AssetClass != "")
	add("asset_sub_class", p.AssetSubClass != "")
	add("countries", len(p.Countries) > 0)
	add("sectors", len(p.Sectors) > 0)
	add("holdings", len(p.Holdings) > 0)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "data_source"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(&m).Error
}

func (r *symbolProfileGorm) UpdateByID(ctx context.Context, id string, f usecase.ProfileUpdate) error {
	updates := map[string]any{}
	if f.AssetClass != nil {
		updates["asset_class"] = string(*f.AssetClass)
	}
	if f.AssetSubClass != nil {
		updates["asset_sub_class"] = string(*f.AssetSubClass)
	}
	if f.Currency != nil {
		updates["currency"] = *f.Currency
	}
	if f.Name != nil {
		updates["name"] = *f.Name
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&SymbolProfileModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrSymbolProfileNotFound
	}
	return nil
}

func (r *symbolProfileGorm) SaveOverrides(ctx context.Context, id string, o entity.Overrides) error {
	m := SymbolProfileOverridesModel{SymbolProfileID: id, Name: o.Name, URL: o.URL}
	if o.AssetClass != nil {
		s := string(*o.AssetClass)
		m.AssetClass = &s
	}
	if o.AssetSubClass != nil {
		s := string(*o.AssetSubClass)
		m.AssetSubClass = &s
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol_profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"asset_class", "asset_sub_class", "name", "url"}),
	}).Create(&m).Error
}

func (r *symbolProfileGorm) ListGatherable(ctx context.Context) ([]entity.SymbolProfile, error) {
	var rows []SymbolProfileModel
	if err := r.db.WithContext(ctx).
		Where("data_source <> ?", string(entity.DataSourceManual)).
		Order("data_source ASC, symbol ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.SymbolProfile, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.ToEntity())
	}
	return out, nil
}

func marshalJSON[T any](v []T) datatypes.JSON {
	if len(v) == 0 {
		return datatypes.JSON("[]")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}

func unmarshalJSON[T any](b datatypes.JSON, out *[]T) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
