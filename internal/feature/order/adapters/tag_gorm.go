package adapters

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio_backend/internal/feature/order/domain/entity"
	"folio_backend/internal/feature/order/usecase"
)

type tagGorm struct {
	db *gorm.DB
}

var _ usecase.TagRepository = (*tagGorm)(nil)

func NewTagRepository(db *gorm.DB) *tagGorm {
	return &tagGorm{db: db}
}

type TagModel struct {
	ID     string  `gorm:"primaryKey;size:36"`
	Name   string  `gorm:"size:255;not null"`
	UserID *string `gorm:"size:36;index"`
}

func (TagModel) TableName() string {
	return "tags"
}

func (m TagModel) toEntity() entity.Tag {
	t := entity.Tag{ID: m.ID, Name: m.Name}
	if m.UserID != nil {
		t.UserID = *m.UserID
	}
	return t
}

// EnsureSystemTags creates the tags every installation needs.
func (r *tagGorm) EnsureSystemTags(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&TagModel{ID: entity.TagIDExcludeFromAnalysis, Name: "EXCLUDE_FROM_ANALYSIS"}).Error
}

// FindByIDs returns the tags among ids that are system tags or owned by userID.
func (r *tagGorm) FindByIDs(ctx context.Context, ids []string, userID string) ([]entity.Tag, error) {
	if len(ids) == 0 {
		return []entity.Tag{}, nil
	}
	var rows []TagModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Where("user_id IS NULL OR user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTags(rows), nil
}

func (r *tagGorm) List(ctx context.Context, userID string) ([]entity.Tag, error) {
	var rows []TagModel
	if err := r.db.WithContext(ctx).
		Where("user_id IS NULL OR user_id = ?", userID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTags(rows), nil
}

func (r *tagGorm) Create(ctx context.Context, t entity.Tag) (*entity.Tag, error) {
	m := TagModel{ID: t.ID, Name: t.Name}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if t.UserID != "" {
		uid := t.UserID
		m.UserID = &uid
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	e := m.toEntity()
	return &e, nil
}

func toTags(rows []TagModel) []entity.Tag {
	out := make([]entity.Tag, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out
}
