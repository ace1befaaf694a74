package usecase

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"folio_backend/internal/feature/auth/domain/entity"
	"folio_backend/internal/platform/eventbus"
)

// mockUserRepository is a mock implementation of the UserRepository interface.
// It simulates database operations during testing.
type mockUserRepository struct {
	CreateFunc             func(user *entity.User) error
	FindByEmailFunc        func(email string) (*entity.User, error)
	FindByIDFunc           func(id string) (*entity.User, error)
	UpdateBaseCurrencyFunc func(id, baseCurrency string) error
}

// mockJWTGenerator is a mock implementation of JWTGenerator interface.
type mockJWTGenerator struct {
	GenerateTokenFunc func(userID, email string) (string, error)
}

// GenerateToken is the mock implementation of the GenerateToken method.
func (m *mockJWTGenerator) GenerateToken(userID, email string) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(userID, email)
	}
	// Default: return a dummy token
	return "mock-jwt-token", nil
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(user)
	}
	return nil // Default: success
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(email)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(id)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) UpdateBaseCurrency(ctx context.Context, id, baseCurrency string) error {
	if m.UpdateBaseCurrencyFunc != nil {
		return m.UpdateBaseCurrencyFunc(id, baseCurrency)
	}
	return nil
}

type mockEvents struct {
	events []eventbus.Event
}

func (m *mockEvents) Emit(ctx context.Context, e eventbus.Event) {
	m.events = append(m.events, e)
}

func TestAuthUsecase_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("successful signup", func(t *testing.T) {
		var created *entity.User
		mockRepo := &mockUserRepository{
			CreateFunc: func(user *entity.User) error {
				created = user
				return nil
			},
		}

		uc := NewAuthUsecase(mockRepo, &mockJWTGenerator{}, nil, "CHF")
		if err := uc.Signup(ctx, "Test@Example.com", "password123", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Verify that it's a valid bcrypt hash
		if err := bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("password123")); err != nil {
			t.Errorf("invalid bcrypt hash: %v", err)
		}
		if created.Email != "test@example.com" {
			t.Errorf("expected lower-cased email, got: %s", created.Email)
		}
		if created.BaseCurrency != "CHF" {
			t.Errorf("expected default base currency CHF, got: %s", created.BaseCurrency)
		}
	})

	t.Run("explicit base currency", func(t *testing.T) {
		var created *entity.User
		mockRepo := &mockUserRepository{CreateFunc: func(user *entity.User) error { created = user; return nil }}

		uc := NewAuthUsecase(mockRepo, &mockJWTGenerator{}, nil, "")
		if err := uc.Signup(ctx, "a@example.com", "password123", "eur"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created.BaseCurrency != "EUR" {
			t.Errorf("expected EUR, got: %s", created.BaseCurrency)
		}
	})

	t.Run("invalid base currency", func(t *testing.T) {
		uc := NewAuthUsecase(&mockUserRepository{}, &mockJWTGenerator{}, nil, "")
		err := uc.Signup(ctx, "a@example.com", "password123", "XYZ")
		if !errors.Is(err, ErrInvalidCurrency) {
			t.Errorf("expected ErrInvalidCurrency, got: %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		uc := NewAuthUsecase(&mockUserRepository{}, &mockJWTGenerator{}, nil, "")
		if err := uc.Signup(ctx, "a@example.com", "short", ""); err == nil {
			t.Error("expected error but got nil")
		}
	})

	t.Run("repository create failure", func(t *testing.T) {
		mockRepo := &mockUserRepository{
			CreateFunc: func(user *entity.User) error {
				return ErrEmailAlreadyExists
			},
		}

		uc := NewAuthUsecase(mockRepo, &mockJWTGenerator{}, nil, "")
		err := uc.Signup(ctx, "test@example.com", "password123", "")

		if !errors.Is(err, ErrEmailAlreadyExists) {
			t.Errorf("expected error '%v', got: %v", ErrEmailAlreadyExists, err)
		}
	})
}

func TestAuthUsecase_Login(t *testing.T) {
	ctx := context.Background()
	password := "password123"
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	testUser := &entity.User{
		ID:       "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}
	findTestUser := func(email string) (*entity.User, error) {
		if email == testUser.Email {
			return testUser, nil
		}
		return nil, ErrUserNotFound
	}

	t.Run("successful login", func(t *testing.T) {
		mockJWT := &mockJWTGenerator{
			GenerateTokenFunc: func(userID, email string) (string, error) {
				if userID != testUser.ID || email != testUser.Email {
					t.Errorf("unexpected userID or email: got userID=%s, email=%s", userID, email)
				}
				return "mock-jwt-token", nil
			},
		}

		uc := NewAuthUsecase(&mockUserRepository{FindByEmailFunc: findTestUser}, mockJWT, nil, "")
		token, err := uc.Login(ctx, "TEST@example.com", "password123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "mock-jwt-token" {
			t.Errorf("expected token 'mock-jwt-token', got: '%s'", token)
		}
	})

	t.Run("user not found", func(t *testing.T) {
		uc := NewAuthUsecase(&mockUserRepository{FindByEmailFunc: findTestUser}, &mockJWTGenerator{}, nil, "")
		_, err := uc.Login(ctx, "wrong@example.com", "password123")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got: %v", err)
		}
	})

	t.Run("incorrect password", func(t *testing.T) {
		uc := NewAuthUsecase(&mockUserRepository{FindByEmailFunc: findTestUser}, &mockJWTGenerator{}, nil, "")
		_, err := uc.Login(ctx, "test@example.com", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got: %v", err)
		}
	})

	t.Run("repository failure is not reported as bad credentials", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		mockRepo := &mockUserRepository{
			FindByEmailFunc: func(email string) (*entity.User, error) { return nil, dbErr },
		}
		uc := NewAuthUsecase(mockRepo, &mockJWTGenerator{}, nil, "")
		_, err := uc.Login(ctx, "test@example.com", "password123")
		if !errors.Is(err, dbErr) {
			t.Errorf("expected '%v', got: %v", dbErr, err)
		}
	})

	t.Run("JWT generation failure", func(t *testing.T) {
		mockJWT := &mockJWTGenerator{
			GenerateTokenFunc: func(userID, email string) (string, error) {
				return "", errors.New("failed to sign token")
			},
		}

		uc := NewAuthUsecase(&mockUserRepository{FindByEmailFunc: findTestUser}, mockJWT, nil, "")
		_, err := uc.Login(ctx, "test@example.com", "password123")
		if err == nil {
			t.Fatal("expected error but got nil")
		}
		expectedErrMsg := "failed to generate token: failed to sign token"
		if err.Error() != expectedErrMsg {
			t.Errorf("expected error message '%s', got: '%s'", expectedErrMsg, err.Error())
		}
	})
}

func TestAuthUsecase_BaseCurrency(t *testing.T) {
	ctx := context.Background()
	mockRepo := &mockUserRepository{
		FindByIDFunc: func(id string) (*entity.User, error) {
			switch id {
			case "u1":
				return &entity.User{ID: id, BaseCurrency: "EUR"}, nil
			case "legacy":
				return &entity.User{ID: id}, nil
			}
			return nil, ErrUserNotFound
		},
	}
	uc := NewAuthUsecase(mockRepo, &mockJWTGenerator{}, nil, "USD")

	if got, err := uc.BaseCurrency(ctx, "u1"); err != nil || got != "EUR" {
		t.Errorf("expected EUR, got: %s (%v)", got, err)
	}
	if got, err := uc.BaseCurrency(ctx, "legacy"); err != nil || got != "USD" {
		t.Errorf("expected default USD, got: %s (%v)", got, err)
	}
	if _, err := uc.BaseCurrency(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got: %v", err)
	}
}

func TestAuthUsecase_UpdateBaseCurrency(t *testing.T) {
	ctx := context.Background()
	var saved string
	mockRepo := &mockUserRepository{
		UpdateBaseCurrencyFunc: func(id, baseCurrency string) error {
			saved = baseCurrency
			return nil
		},
	}
	events := &mockEvents{}
	uc := NewAuthUsecase(mockRepo, &mockJWTGenerator{}, events, "")

	if err := uc.UpdateBaseCurrency(ctx, "u1", "gbp"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved != "GBP" {
		t.Errorf("expected GBP, got: %s", saved)
	}
	if len(events.events) != 1 || events.events[0] != (eventbus.PortfolioChangedEvent{UserID: "u1"}) {
		t.Errorf("expected one PortfolioChanged event, got: %v", events.events)
	}

	if err := uc.UpdateBaseCurrency(ctx, "u1", "??"); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected ErrInvalidCurrency, got: %v", err)
	}
}
