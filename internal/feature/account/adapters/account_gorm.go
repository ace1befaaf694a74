// Package adapters はaccountフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"folio_backend/internal/feature/account/domain/entity"
	"folio_backend/internal/feature/account/usecase"
)

type accountGorm struct {
	db *gorm.DB
}

var _ usecase.AccountRepository = (*accountGorm)(nil)

func NewAccountRepository(db *gorm.DB) *accountGorm {
	return &accountGorm{db: db}
}

type AccountModel struct {
	ID         string  `gorm:"primaryKey;size:36"`
	UserID     string  `gorm:"size:36;not null;index"`
	Name       string  `gorm:"size:255;not null"`
	Currency   string  `gorm:"size:8;not null"`
	Balance    float64 `gorm:"not null;default:0"`
	IsExcluded bool    `gorm:"not null;default:false"`
	Comment    string  `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (AccountModel) TableName() string {
	return "accounts"
}

type AccountBalanceModel struct {
	ID        uint      `gorm:"primaryKey"`
	AccountID string    `gorm:"size:36;not null;uniqueIndex:account_balance_account_date,priority:1"`
	Date      time.Time `gorm:"not null;uniqueIndex:account_balance_account_date,priority:2"`
	Value     float64   `gorm:"not null"`
	UpdatedAt time.Time
}

func (AccountBalanceModel) TableName() string {
	return "account_balances"
}

func (m AccountModel) toEntity() entity.Account {
	return entity.Account{
		ID:         m.ID,
		UserID:     m.UserID,
		Name:       m.Name,
		Currency:   m.Currency,
		Balance:    m.Balance,
		IsExcluded: m.IsExcluded,
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (r *accountGorm) Create(ctx context.Context, a entity.Account) (*entity.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m := AccountModel{
		ID:         a.ID,
		UserID:     a.UserID,
		Name:       a.Name,
		Currency:   a.Currency,
		Balance:    a.Balance,
		IsExcluded: a.IsExcluded,
		Comment:    a.Comment,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	e := m.toEntity()
	return &e, nil
}

func (r *accountGorm) FindByID(ctx context.Context, id, userID string) (*entity.Account, error) {
	var m AccountModel
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, usecase.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	e := m.toEntity()
	return &e, nil
}

func (r *accountGorm) FindByUser(ctx context.Context, userID string) ([]entity.Account, error) {
	var rows []AccountModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Account, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

func (r *accountGorm) SaveBalance(ctx context.Context, b entity.AccountBalance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := AccountBalanceModel{AccountID: b.AccountID, Date: b.Date.UTC(), Value: b.Value}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&m).Error; err != nil {
			return err
		}
		res := tx.Model(&AccountModel{}).Where("id = ?", b.AccountID).Update("balance", b.Value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrAccountNotFound
		}
		return nil
	})
}

func (r *accountGorm) Balances(ctx context.Context, accountID string) ([]entity.AccountBalance, error) {
	var rows []AccountBalanceModel
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.AccountBalance, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.AccountBalance{AccountID: m.AccountID, Date: m.Date.UTC(), Value: m.Value})
	}
	return out, nil
}
