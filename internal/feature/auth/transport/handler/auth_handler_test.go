package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"folio_backend/internal/feature/auth/domain/entity"
	"folio_backend/internal/feature/auth/usecase"
	jwtmw "folio_backend/internal/platform/jwt"
)

// mockAuthUsecase is a mock implementation of the AuthUsecase interface.
type mockAuthUsecase struct {
	SignupFunc             func(ctx context.Context, email, password, baseCurrency string) error
	LoginFunc              func(ctx context.Context, email, password string) (string, error)
	MeFunc                 func(ctx context.Context, userID string) (*entity.User, error)
	UpdateBaseCurrencyFunc func(ctx context.Context, userID, baseCurrency string) error
}

func (m *mockAuthUsecase) Signup(ctx context.Context, email, password, baseCurrency string) error {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, email, password, baseCurrency)
	}
	return nil // Default: success
}

func (m *mockAuthUsecase) Login(ctx context.Context, email, password string) (string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return "", usecase.ErrInvalidCredentials // Default: failure
}

func (m *mockAuthUsecase) Me(ctx context.Context, userID string) (*entity.User, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx, userID)
	}
	return nil, usecase.ErrUserNotFound
}

func (m *mockAuthUsecase) UpdateBaseCurrency(ctx context.Context, userID, baseCurrency string) error {
	if m.UpdateBaseCurrencyFunc != nil {
		return m.UpdateBaseCurrencyFunc(ctx, userID, baseCurrency)
	}
	return nil
}

func newRouter(uc AuthUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(uc)
	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	authed := r.Group("/", func(c *gin.Context) { c.Set(jwtmw.ContextUserID, "user-1") })
	authed.GET("/user", h.Me)
	authed.PUT("/user/setting", h.UpdateSetting)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    gin.H
		mockSignupFunc func(ctx context.Context, email, password, baseCurrency string) error
		expectedStatus int
		expectedError  string
	}{
		{
			name:        "success: user registration",
			requestBody: gin.H{"email": "test@example.com", "password": "password123", "baseCurrency": "EUR"},
			mockSignupFunc: func(ctx context.Context, email, password, baseCurrency string) error {
				if baseCurrency != "EUR" {
					return errors.New("unexpected currency")
				}
				return nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "failure: invalid email address",
			requestBody:    gin.H{"email": "invalid-email", "password": "password123"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Key: 'SignupReq.Email' Error:Field validation for 'Email' failed on the 'email' tag",
		},
		{
			name:           "failure: short password",
			requestBody:    gin.H{"email": "test@example.com", "password": "short"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Key: 'SignupReq.Password' Error:Field validation for 'Password' failed on the 'min' tag",
		},
		{
			name:        "failure: unknown currency",
			requestBody: gin.H{"email": "test@example.com", "password": "password123", "baseCurrency": "XYZ"},
			mockSignupFunc: func(ctx context.Context, email, password, baseCurrency string) error {
				return usecase.ErrInvalidCurrency
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid currency",
		},
		{
			name:        "failure: duplicate email (usecase error)",
			requestBody: gin.H{"email": "existing@example.com", "password": "password123"},
			mockSignupFunc: func(ctx context.Context, email, password, baseCurrency string) error {
				return usecase.ErrEmailAlreadyExists
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "signup failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(newRouter(&mockAuthUsecase{SignupFunc: tt.mockSignupFunc}), http.MethodPost, "/signup", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var responseBody gin.H
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &responseBody))
			if tt.expectedError == "" {
				assert.Equal(t, gin.H{"message": "ok"}, responseBody)
			} else {
				assert.Contains(t, responseBody["error"], tt.expectedError)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    gin.H
		mockLoginFunc  func(ctx context.Context, email, password string) (string, error)
		expectedStatus int
		expectedBody   gin.H
	}{
		{
			name:        "success: user login",
			requestBody: gin.H{"email": "test@example.com", "password": "password123"},
			mockLoginFunc: func(ctx context.Context, email, password string) (string, error) {
				return "dummy-jwt-token", nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   gin.H{"token": "dummy-jwt-token"},
		},
		{
			name:           "failure: wrong password",
			requestBody:    gin.H{"email": "test@example.com", "password": "wrong"},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   gin.H{"error": "invalid email or password"},
		},
		{
			name:        "failure: storage error is hidden",
			requestBody: gin.H{"email": "test@example.com", "password": "password123"},
			mockLoginFunc: func(ctx context.Context, email, password string) (string, error) {
				return "", errors.New("connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   gin.H{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(newRouter(&mockAuthUsecase{LoginFunc: tt.mockLoginFunc}), http.MethodPost, "/login", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var responseBody gin.H
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &responseBody))
			assert.Equal(t, tt.expectedBody, responseBody)
		})
	}

	t.Run("failure: missing password", func(t *testing.T) {
		w := doJSON(newRouter(&mockAuthUsecase{}), http.MethodPost, "/login", gin.H{"email": "test@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	uc := &mockAuthUsecase{
		MeFunc: func(ctx context.Context, userID string) (*entity.User, error) {
			return &entity.User{ID: userID, Email: "me@example.com", Password: "secret-hash", BaseCurrency: "CHF", CreatedAt: created}, nil
		},
	}

	w := doJSON(newRouter(uc), http.MethodGet, "/user", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"user-1","email":"me@example.com","createdAt":"2024-01-02T03:04:05Z","settings":{"baseCurrency":"CHF"}}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "secret-hash")

	w = doJSON(newRouter(&mockAuthUsecase{}), http.MethodGet, "/user", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthHandler_UpdateSetting(t *testing.T) {
	tests := []struct {
		name           string
		body           gin.H
		updateErr      error
		expectedStatus int
	}{
		{name: "success", body: gin.H{"baseCurrency": "eur"}, expectedStatus: http.StatusOK},
		{name: "missing currency", body: gin.H{}, expectedStatus: http.StatusBadRequest},
		{name: "unknown currency", body: gin.H{"baseCurrency": "XYZ"}, updateErr: usecase.ErrInvalidCurrency, expectedStatus: http.StatusBadRequest},
		{name: "storage error", body: gin.H{"baseCurrency": "EUR"}, updateErr: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			uc := &mockAuthUsecase{
				UpdateBaseCurrencyFunc: func(ctx context.Context, userID, baseCurrency string) error {
					got = baseCurrency
					return tt.updateErr
				},
			}
			w := doJSON(newRouter(uc), http.MethodPut, "/user/setting", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "EUR", got)
				assert.JSONEq(t, `{"baseCurrency":"EUR"}`, w.Body.String())
			}
		})
	}
}
