package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"folio_backend/internal/feature/auth/domain/entity"
	"folio_backend/internal/platform/eventbus"
	"folio_backend/internal/shared/currency"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化し、IDを設定します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	FindByID(ctx context.Context, id string) (*entity.User, error)

	UpdateBaseCurrency(ctx context.Context, id, baseCurrency string) error
}

// JWTGenerator はJWTトークン生成のインターフェースを定義します。
type JWTGenerator interface {
	GenerateToken(userID, email string) (string, error)
}

type EventEmitter interface {
	Emit(ctx context.Context, e eventbus.Event)
}

// AuthUsecase は認証とユーザー設定のビジネスロジックを実装します。
type AuthUsecase struct {
	users               UserRepository
	jwtGenerator        JWTGenerator
	events              EventEmitter
	defaultBaseCurrency string
}

// NewAuthUsecase はAuthUsecaseの新しいインスタンスを生成します。
// defaultBaseCurrency はサインアップ時に通貨が指定されなかった場合に使われます。
func NewAuthUsecase(users UserRepository, jwtGenerator JWTGenerator, events EventEmitter, defaultBaseCurrency string) *AuthUsecase {
	if defaultBaseCurrency == "" {
		defaultBaseCurrency = currency.Default
	}
	return &AuthUsecase{
		users:               users,
		jwtGenerator:        jwtGenerator,
		events:              events,
		defaultBaseCurrency: defaultBaseCurrency,
	}
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	return nil
}

func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !currency.IsCurrency(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return code, nil
}

// Signup はハッシュ化されたパスワードで新規ユーザーを登録します。
func (u *AuthUsecase) Signup(ctx context.Context, email, password, baseCurrency string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	if baseCurrency == "" {
		baseCurrency = u.defaultBaseCurrency
	}
	code, err := normalizeCurrency(baseCurrency)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{Email: strings.ToLower(email), Password: string(hashed), BaseCurrency: code}
	return u.users.Create(ctx, user)
}

// Login はユーザーを認証し、成功時にJWTトークンを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (string, error) {
	user, err := u.users.FindByEmail(ctx, strings.ToLower(email))

	// ユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュ
	passwordHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	if err == nil {
		passwordHash = user.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return "", err
	}
	if err != nil || compareErr != nil {
		return "", ErrInvalidCredentials
	}

	token, err := u.jwtGenerator.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// Me returns the user behind an authenticated request.
func (u *AuthUsecase) Me(ctx context.Context, userID string) (*entity.User, error) {
	return u.users.FindByID(ctx, userID)
}

// BaseCurrency returns the currency the portfolio of userID is reported in.
func (u *AuthUsecase) BaseCurrency(ctx context.Context, userID string) (string, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.BaseCurrency == "" {
		return u.defaultBaseCurrency, nil
	}
	return user.BaseCurrency, nil
}

// UpdateBaseCurrency changes the reporting currency; every cached portfolio value becomes stale.
func (u *AuthUsecase) UpdateBaseCurrency(ctx context.Context, userID, baseCurrency string) error {
	code, err := normalizeCurrency(baseCurrency)
	if err != nil {
		return err
	}
	if err := u.users.UpdateBaseCurrency(ctx, userID, code); err != nil {
		return err
	}
	if u.events != nil {
		u.events.Emit(ctx, eventbus.PortfolioChangedEvent{UserID: userID})
	}
	return nil
}
