// Package handler はportfolioフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"folio_backend/internal/feature/portfolio/domain/entity"
	"folio_backend/internal/feature/portfolio/transport/http/dto"
	"folio_backend/internal/feature/portfolio/usecase"
	httpdto "folio_backend/internal/platform/http/dto"
	jwtmw "folio_backend/internal/platform/jwt"
	"folio_backend/internal/shared/chart"
	"folio_backend/internal/shared/filter"
)

type PortfolioUsecase interface {
	GetHoldings(ctx context.Context, userID string, filters []filter.Filter) (entity.Holdings, error)
	GetAllocation(ctx context.Context, userID string, filters []filter.Filter, keys []string, maxItems int) (chart.Chart, error)
}

type PortfolioHandler struct {
	uc PortfolioUsecase
}

func NewPortfolioHandler(uc PortfolioUsecase) *PortfolioHandler {
	return &PortfolioHandler{uc: uc}
}

// Holdings handles GET /api/v1/portfolio/holdings with the activity filter query parameters.
func (h *PortfolioHandler) Holdings(c *gin.Context) {
	uid, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}
	res, err := h.uc.GetHoldings(c.Request.Context(), uid, filter.FromQuery(c.Query))
	if err != nil {
		writeError(c, err, "failed to get holdings")
		return
	}
	c.JSON(http.StatusOK, dto.HoldingsResponse{
		BaseCurrency:             res.BaseCurrency,
		Holdings:                 res.Holdings,
		InvestmentInBaseCurrency: res.InvestmentInBaseCurrency,
		ValueInBaseCurrency:      res.ValueInBaseCurrency,
	})
}

// Allocation handles GET /api/v1/portfolio/allocation?keys=assetClass,assetSubClass&maxItems=10.
func (h *PortfolioHandler) Allocation(c *gin.Context) {
	uid, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
		return
	}
	keys := []string{}
	for _, k := range strings.Split(c.Query("keys"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	maxItems := 0
	if v := c.Query("maxItems"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid maxItems"})
			return
		}
		maxItems = n
	}

	res, err := h.uc.GetAllocation(c.Request.Context(), uid, filter.FromQuery(c.Query), keys, maxItems)
	if err != nil {
		writeError(c, err, "failed to get allocation")
		return
	}
	c.JSON(http.StatusOK, dto.AllocationResponse{Keys: keys, MaxItems: maxItems, Chart: res})
}

func writeError(c *gin.Context, err error, msg string) {
	if errors.Is(err, usecase.ErrInvalidAllocation) {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		return
	}
	slog.Error(msg, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msg})
}
