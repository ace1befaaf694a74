package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"folio_backend/internal/feature/symbolprofile/domain/entity"
	"folio_backend/internal/feature/symbolprofile/transport/http/dto"
	"folio_backend/internal/feature/symbolprofile/usecase"
	httpdto "folio_backend/internal/platform/http/dto"
)

// SymbolProfileUsecase は資産プロファイルに関するユースケースのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SymbolProfileUsecase interface {
	ListProfiles(ctx context.Context) ([]entity.SymbolProfile, error)
	GetProfile(ctx context.Context, id entity.AssetProfileIdentifier) (*entity.SymbolProfile, error)
	SetOverrides(ctx context.Context, id entity.AssetProfileIdentifier, o entity.Overrides) (*entity.SymbolProfile, error)
}

type SymbolProfileHandler struct {
	uc SymbolProfileUsecase
}

func NewSymbolProfileHandler(uc SymbolProfileUsecase) *SymbolProfileHandler {
	return &SymbolProfileHandler{uc: uc}
}

// List は外部データソースで更新される資産プロファイルの一覧を返します。
func (h *SymbolProfileHandler) List(c *gin.Context) {
	ps, err := h.uc.ListProfiles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]dto.SymbolProfileResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, dto.FromEntity(p))
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/v1/symbol-profile/:dataSource/:symbol.
func (h *SymbolProfileHandler) Get(c *gin.Context) {
	p, err := h.uc.GetProfile(c.Request.Context(), identifier(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEntity(*p))
}

// PatchOverrides handles PATCH /api/v1/symbol-profile/:dataSource/:symbol.
func (h *SymbolProfileHandler) PatchOverrides(c *gin.Context) {
	var req dto.OverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request"})
		return
	}
	o := entity.Overrides{Name: req.Name, URL: req.URL}
	if req.AssetClass != nil {
		ac := entity.AssetClass(*req.AssetClass)
		o.AssetClass = &ac
	}
	if req.AssetSubClass != nil {
		asc := entity.AssetSubClass(*req.AssetSubClass)
		o.AssetSubClass = &asc
	}

	p, err := h.uc.SetOverrides(c.Request.Context(), identifier(c), o)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromEntity(*p))
}

func identifier(c *gin.Context) entity.AssetProfileIdentifier {
	return entity.AssetProfileIdentifier{
		DataSource: entity.DataSource(c.Param("dataSource")),
		Symbol:     c.Param("symbol"),
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrSymbolProfileNotFound):
		c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrInvalidOverrides):
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal error"})
	}
}
