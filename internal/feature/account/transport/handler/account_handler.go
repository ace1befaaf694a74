// Package handler はaccountフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"folio_backend/internal/feature/account/domain/entity"
	"folio_backend/internal/feature/account/transport/http/dto"
	"folio_backend/internal/feature/account/usecase"
	httpdto "folio_backend/internal/platform/http/dto"
	jwtmw "folio_backend/internal/platform/jwt"
)

// AccountUsecase はアカウント操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type AccountUsecase interface {
	ListAccounts(ctx context.Context, userID string) ([]entity.Account, error)
	CreateAccount(ctx context.Context, in usecase.CreateAccountInput) (*entity.Account, error)
}

type AccountHandler struct {
	uc AccountUsecase
}

func NewAccountHandler(uc AccountUsecase) *AccountHandler {
	return &AccountHandler{uc: uc}
}

// List handles GET /api/v1/account.
func (h *AccountHandler) List(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}
	accounts, err := h.uc.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to list accounts", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
		return
	}
	out := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

// Create handles POST /api/v1/account.
func (h *AccountHandler) Create(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		return
	}

	a, err := h.uc.CreateAccount(c.Request.Context(), usecase.CreateAccountInput{
		UserID:     userID,
		Name:       req.Name,
		Currency:   req.Currency,
		Balance:    req.Balance,
		IsExcluded: req.IsExcluded,
		Comment:    req.Comment,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidAccount) {
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("failed to create account", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, toResponse(*a))
}

func toResponse(a entity.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:         a.ID,
		Name:       a.Name,
		Currency:   a.Currency,
		Balance:    a.Balance,
		IsExcluded: a.IsExcluded,
		Comment:    a.Comment,
		CreatedAt:  a.CreatedAt,
	}
}
