// Package handler はmarketdataフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"folio_backend/internal/feature/marketdata/domain/entity"
	"folio_backend/internal/feature/marketdata/transport/http/dto"
	"folio_backend/internal/feature/marketdata/usecase"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	httpdto "folio_backend/internal/platform/http/dto"
)

const dateLayout = "2006-01-02"

// MarketDataUsecase は価格データ参照のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type MarketDataUsecase interface {
	GetMarketData(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) ([]entity.MarketData, error)
}

type MarketDataHandler struct {
	uc MarketDataUsecase
}

func NewMarketDataHandler(uc MarketDataUsecase) *MarketDataHandler {
	return &MarketDataHandler{uc: uc}
}

// Get は保存済みの日次価格をJSONで返します。
//
// エンドポイント例:
// GET /api/v1/market-data/:dataSource/:symbol?from=2024-01-01&to=2024-06-30
func (h *MarketDataHandler) Get(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid from date"})
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid to date"})
		return
	}

	id := spentity.AssetProfileIdentifier{
		DataSource: spentity.DataSource(strings.ToUpper(c.Param("dataSource"))),
		Symbol:     c.Param("symbol"),
	}
	items, err := h.uc.GetMarketData(c.Request.Context(), id, from, to)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "failed to load market data"})
		return
	}

	out := make([]dto.MarketDataResponse, 0, len(items))
	for _, x := range items {
		out = append(out, dto.MarketDataResponse{
			Date:        x.Date.UTC().Format(dateLayout),
			MarketPrice: x.MarketPrice,
			State:       string(x.State),
		})
	}
	c.JSON(http.StatusOK, out)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
