// Package handler はorderフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	acusecase "folio_backend/internal/feature/account/usecase"
	"folio_backend/internal/feature/order/domain/entity"
	"folio_backend/internal/feature/order/transport/http/dto"
	"folio_backend/internal/feature/order/usecase"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	httpdto "folio_backend/internal/platform/http/dto"
	jwtmw "folio_backend/internal/platform/jwt"
	"folio_backend/internal/shared/filter"
)

// OrderUsecase は注文（アクティビティ）操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type OrderUsecase interface {
	GetOrders(ctx context.Context, p usecase.GetOrdersParams) (entity.Activities, error)
	Order(ctx context.Context, id, userID string) (*entity.Order, error)
	CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*entity.Order, error)
	UpdateOrder(ctx context.Context, id, userID string, in usecase.UpdateOrderInput) (*entity.Order, error)
	DeleteOrder(ctx context.Context, id, userID string) (*entity.Order, error)
	DeleteOrders(ctx context.Context, userID string, filters []filter.Filter) (int64, error)
	AssignTags(ctx context.Context, userID string, asset spentity.AssetProfileIdentifier, tagIDs []string) error
	ListTags(ctx context.Context, userID string) ([]entity.Tag, error)
	CreateTag(ctx context.Context, userID, name string) (*entity.Tag, error)
}

// UserCurrencyResolver returns the base currency activities are converted into.
type UserCurrencyResolver interface {
	BaseCurrency(ctx context.Context, userID string) (string, error)
}

type OrderHandler struct {
	uc    OrderUsecase
	users UserCurrencyResolver
}

func NewOrderHandler(uc OrderUsecase, users UserCurrencyResolver) *OrderHandler {
	return &OrderHandler{uc: uc, users: users}
}

func userID(c *gin.Context) (string, bool) {
	id, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}
	return id, ok
}

// writeError maps usecase errors to HTTP statuses; anything unknown is logged and hidden.
func writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, usecase.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, usecase.ErrInvalidOrder),
		errors.Is(err, usecase.ErrInvalidQuery),
		errors.Is(err, usecase.ErrTagNotFound),
		errors.Is(err, acusecase.ErrAccountNotFound):
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	default:
		slog.Error(msg, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: msg})
	}
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// List handles GET /api/v1/order?accounts=&assetClasses=&dataSource=&symbol=&query=&tags=&skip=&take=&sortColumn=&sortDirection=.
func (h *OrderHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	skip, err := queryInt(c, "skip")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid skip"})
		return
	}
	take, err := queryInt(c, "take")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid take"})
		return
	}
	currency, err := h.users.BaseCurrency(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err, "failed to resolve user currency")
		return
	}

	res, err := h.uc.GetOrders(c.Request.Context(), usecase.GetOrdersParams{
		UserID:        uid,
		UserCurrency:  currency,
		Filters:       filter.FromQuery(c.Query),
		IncludeDrafts: true,
		SortColumn:    c.Query("sortColumn"),
		SortDirection: usecase.SortDirection(c.Query("sortDirection")),
		Skip:          skip,
		Take:          take,
	})
	if err != nil {
		writeError(c, err, "failed to list activities")
		return
	}

	out := dto.ActivitiesResponse{Activities: make([]dto.ActivityResponse, 0, len(res.Activities)), Count: res.Count}
	for _, a := range res.Activities {
		out.Activities = append(out.Activities, toActivityResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/v1/order/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	o, err := h.uc.Order(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		writeError(c, err, "failed to load activity")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*o))
}

// Create handles POST /api/v1/order.
func (h *OrderHandler) Create(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		return
	}

	o, err := h.uc.CreateOrder(c.Request.Context(), usecase.CreateOrderInput{
		UserID:               uid,
		AccountID:            req.AccountID,
		AssetClass:           spentity.AssetClass(req.AssetClass),
		AssetSubClass:        spentity.AssetSubClass(req.AssetSubClass),
		Comment:              req.Comment,
		Currency:             strings.ToUpper(req.Currency),
		DataSource:           spentity.DataSource(strings.ToUpper(req.DataSource)),
		Date:                 req.Date,
		Fee:                  req.Fee,
		Quantity:             req.Quantity,
		Symbol:               req.Symbol,
		TagIDs:               req.Tags,
		Type:                 entity.ActivityType(strings.ToUpper(req.Type)),
		UnitPrice:            req.UnitPrice,
		UpdateAccountBalance: req.UpdateAccountBalance,
	})
	if err != nil {
		writeError(c, err, "failed to create activity")
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(*o))
}

// Update handles PUT /api/v1/order/:id.
func (h *OrderHandler) Update(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		return
	}

	in := usecase.UpdateOrderInput{
		AccountID:  req.AccountID,
		Comment:    req.Comment,
		Currency:   strings.ToUpper(req.Currency),
		DataSource: spentity.DataSource(strings.ToUpper(req.DataSource)),
		Date:       req.Date,
		Fee:        req.Fee,
		Quantity:   req.Quantity,
		Symbol:     req.Symbol,
		TagIDs:     req.Tags,
		Type:       entity.ActivityType(strings.ToUpper(req.Type)),
		UnitPrice:  req.UnitPrice,
	}
	if req.AssetClass != nil {
		ac := spentity.AssetClass(*req.AssetClass)
		in.AssetClass = &ac
	}
	if req.AssetSubClass != nil {
		asc := spentity.AssetSubClass(*req.AssetSubClass)
		in.AssetSubClass = &asc
	}

	o, err := h.uc.UpdateOrder(c.Request.Context(), c.Param("id"), uid, in)
	if err != nil {
		writeError(c, err, "failed to update activity")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*o))
}

// Delete handles DELETE /api/v1/order/:id.
func (h *OrderHandler) Delete(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	o, err := h.uc.DeleteOrder(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		writeError(c, err, "failed to delete activity")
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*o))
}

// DeleteMany handles DELETE /api/v1/order with the same filters as List.
func (h *OrderHandler) DeleteMany(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	n, err := h.uc.DeleteOrders(c.Request.Context(), uid, filter.FromQuery(c.Query))
	if err != nil {
		writeError(c, err, "failed to delete activities")
		return
	}
	c.JSON(http.StatusOK, dto.DeleteOrdersResponse{Count: n})
}

// AssignTags handles PUT /api/v1/portfolio/position/:dataSource/:symbol/tags.
func (h *OrderHandler) AssignTags(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req dto.AssignTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		return
	}
	asset := spentity.AssetProfileIdentifier{
		DataSource: spentity.DataSource(strings.ToUpper(c.Param("dataSource"))),
		Symbol:     c.Param("symbol"),
	}
	if err := h.uc.AssignTags(c.Request.Context(), uid, asset, req.Tags); err != nil {
		writeError(c, err, "failed to assign tags")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTags handles GET /api/v1/tag.
func (h *OrderHandler) ListTags(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	tags, err := h.uc.ListTags(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err, "failed to list tags")
		return
	}
	c.JSON(http.StatusOK, toTagResponses(tags))
}

// CreateTag handles POST /api/v1/tag.
func (h *OrderHandler) CreateTag(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req dto.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		return
	}
	tag, err := h.uc.CreateTag(c.Request.Context(), uid, req.Name)
	if err != nil {
		writeError(c, err, "failed to create tag")
		return
	}
	c.JSON(http.StatusCreated, dto.TagResponse{ID: tag.ID, Name: tag.Name, UserID: tag.UserID})
}

func toTagResponses(tags []entity.Tag) []dto.TagResponse {
	out := make([]dto.TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, dto.TagResponse{ID: t.ID, Name: t.Name, UserID: t.UserID})
	}
	return out
}

func toOrderResponse(o entity.Order) dto.OrderResponse {
	r := dto.OrderResponse{
		ID:        o.ID,
		AccountID: o.AccountID,
		Type:      string(o.Type),
		Date:      o.Date,
		Quantity:  o.Quantity,
		UnitPrice: o.UnitPrice,
		Fee:       o.Fee,
		Currency:  o.Currency,
		Comment:   o.Comment,
		IsDraft:   o.IsDraft,
		Tags:      toTagResponses(o.Tags),
		UpdatedAt: o.UpdatedAt,
	}
	if o.Account != nil {
		r.Account = &dto.AccountResponse{
			ID:         o.Account.ID,
			Name:       o.Account.Name,
			Currency:   o.Account.Currency,
			IsExcluded: o.Account.IsExcluded,
		}
	}
	if sp := o.SymbolProfile; sp != nil {
		r.SymbolProfile = &dto.SymbolProfileResponse{
			ID:            sp.ID,
			DataSource:    string(sp.DataSource),
			Symbol:        sp.Symbol,
			Name:          sp.Name,
			Currency:      sp.Currency,
			AssetClass:    string(sp.AssetClass),
			AssetSubClass: string(sp.AssetSubClass),
		}
	}
	return r
}

func toActivityResponse(a entity.Activity) dto.ActivityResponse {
	return dto.ActivityResponse{
		OrderResponse:                   toOrderResponse(a.Order),
		Value:                           a.Value,
		ValueInBaseCurrency:             a.ValueInBaseCurrency,
		FeeInAssetProfileCurrency:       a.FeeInAssetProfileCurrency,
		FeeInBaseCurrency:               a.FeeInBaseCurrency,
		UnitPriceInAssetProfileCurrency: a.UnitPriceInAssetProfileCurrency,
	}
}
