// Package usecase implements the business logic for accounts and their balances.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"folio_backend/internal/feature/account/domain/entity"
	"folio_backend/internal/shared/currency"
)

// AccountRepository abstracts the persistence layer for accounts.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type AccountRepository interface {
	Create(ctx context.Context, a entity.Account) (*entity.Account, error)
	// FindByID returns ErrAccountNotFound unless the account exists and belongs to userID.
	FindByID(ctx context.Context, id, userID string) (*entity.Account, error)
	FindByUser(ctx context.Context, userID string) ([]entity.Account, error)
	// SaveBalance sets the account balance and records it as the balance of date.
	SaveBalance(ctx context.Context, b entity.AccountBalance) error
	Balances(ctx context.Context, accountID string) ([]entity.AccountBalance, error)
}

// CurrencyConverter converts amounts at historical rates.
type CurrencyConverter interface {
	ToCurrencyAtDate(ctx context.Context, value float64, from, to string, date time.Time) float64
}

type AccountUsecase struct {
	repo      AccountRepository
	converter CurrencyConverter
}

func NewAccountUsecase(repo AccountRepository, converter CurrencyConverter) *AccountUsecase {
	return &AccountUsecase{repo: repo, converter: converter}
}

// CreateAccountInput carries the user supplied fields of a new account.
type CreateAccountInput struct {
	UserID     string
	Name       string
	Currency   string
	Balance    float64
	IsExcluded bool
	Comment    string
}

func (u *AccountUsecase) CreateAccount(ctx context.Context, in CreateAccountInput) (*entity.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if !currency.IsCurrency(in.Currency) {
		return nil, fmt.Errorf("%w: unknown currency %q", ErrInvalidAccount, in.Currency)
	}

	a, err := u.repo.Create(ctx, entity.Account{
		UserID:     in.UserID,
		Name:       name,
		Currency:   in.Currency,
		Balance:    in.Balance,
		IsExcluded: in.IsExcluded,
		Comment:    in.Comment,
	})
	if err != nil {
		return nil, err
	}
	if err := u.repo.SaveBalance(ctx, entity.AccountBalance{
		AccountID: a.ID,
		Date:      startOfDay(time.Now()),
		Value:     a.Balance,
	}); err != nil {
		return nil, err
	}
	return a, nil
}

func (u *AccountUsecase) ListAccounts(ctx context.Context, userID string) ([]entity.Account, error) {
	return u.repo.FindByUser(ctx, userID)
}

func (u *AccountUsecase) GetAccount(ctx context.Context, id, userID string) (*entity.Account, error) {
	return u.repo.FindByID(ctx, id, userID)
}

// UpdateAccountBalance adds amount, given in amountCurrency, to the account
// balance. The amount is converted into the account currency at date and the
// resulting balance is recorded for the day of date.
func (u *AccountUsecase) UpdateAccountBalance(ctx context.Context, accountID, userID string, amount float64, amountCurrency string, date time.Time) error {
	a, err := u.repo.FindByID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	converted := u.converter.ToCurrencyAtDate(ctx, amount, amountCurrency, a.Currency, date)
	balance, _ := decimal.NewFromFloat(a.Balance).Add(decimal.NewFromFloat(converted)).Float64()

	if err := u.repo.SaveBalance(ctx, entity.AccountBalance{
		AccountID: a.ID,
		Date:      startOfDay(date),
		Value:     balance,
	}); err != nil {
		return fmt.Errorf("update balance of account %s: %w", a.ID, err)
	}
	slog.Debug("account balance updated", "accountId", a.ID, "amount", converted, "balance", balance)
	return nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
