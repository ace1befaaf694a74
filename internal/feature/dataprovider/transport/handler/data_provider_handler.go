// Package handler はdataproviderフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"folio_backend/internal/feature/dataprovider/domain/entity"
	"folio_backend/internal/feature/dataprovider/transport/http/dto"
	"folio_backend/internal/feature/dataprovider/usecase"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	httpdto "folio_backend/internal/platform/http/dto"
)

// DataProviderUsecase is the subset of the data provider service used over HTTP.
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type DataProviderUsecase interface {
	Search(ctx context.Context, query string) []entity.LookupItem
	GetQuotes(ctx context.Context, ids []spentity.AssetProfileIdentifier) map[string]entity.Quote
	DataProviderInfos() []entity.DataProviderInfo
}

type DataProviderHandler struct {
	uc DataProviderUsecase
}

func NewDataProviderHandler(uc DataProviderUsecase) *DataProviderHandler {
	return &DataProviderHandler{uc: uc}
}

// Lookup は銘柄を検索します。
//
// エンドポイント例:
// GET /api/v1/symbol/lookup?query=apple
func (h *DataProviderHandler) Lookup(c *gin.Context) {
	c.JSON(http.StatusOK, dto.LookupResponse{Items: h.uc.Search(c.Request.Context(), c.Query("query"))})
}

// Quote returns the latest quote of one symbol.
//
// GET /api/v1/symbol/:dataSource/:symbol
func (h *DataProviderHandler) Quote(c *gin.Context) {
	id := spentity.AssetProfileIdentifier{
		DataSource: spentity.DataSource(c.Param("dataSource")),
		Symbol:     c.Param("symbol"),
	}
	if !h.knows(id.DataSource) {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: usecase.ErrNoDataProvider.Error()})
		return
	}

	q, ok := h.uc.GetQuotes(c.Request.Context(), []spentity.AssetProfileIdentifier{id})[id.Key()]
	if !ok {
		c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "quote not found"})
		return
	}
	c.JSON(http.StatusOK, dto.QuoteResponse{
		Symbol:      id.Symbol,
		DataSource:  string(id.DataSource),
		Currency:    q.Currency,
		MarketPrice: q.MarketPrice,
		MarketState: q.MarketState,
	})
}

// Providers lists the registered data providers.
func (h *DataProviderHandler) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, h.uc.DataProviderInfos())
}

func (h *DataProviderHandler) knows(ds spentity.DataSource) bool {
	for _, info := range h.uc.DataProviderInfos() {
		if info.DataSource == ds {
			return true
		}
	}
	return false
}
