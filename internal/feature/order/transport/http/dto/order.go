// Package dto defines request and response bodies of the order endpoints.
package dto

import "time"

// CreateOrderRequest is the body of POST /api/v1/order.
type CreateOrderRequest struct {
	AccountID            string    `json:"accountId"`
	AssetClass           string    `json:"assetClass"`
	AssetSubClass        string    `json:"assetSubClass"`
	Comment              string    `json:"comment"`
	Currency             string    `json:"currency" binding:"required,len=3"`
	DataSource           string    `json:"dataSource" binding:"required"`
	Date                 time.Time `json:"date" binding:"required"`
	Fee                  float64   `json:"fee" binding:"gte=0"`
	Quantity             float64   `json:"quantity" binding:"gte=0"`
	Symbol               string    `json:"symbol" binding:"required"`
	Tags                 []string  `json:"tags"`
	Type                 string    `json:"type" binding:"required"`
	UnitPrice            float64   `json:"unitPrice" binding:"gte=0"`
	UpdateAccountBalance bool      `json:"updateAccountBalance"`
}

// UpdateOrderRequest is the body of PUT /api/v1/order/:id.
type UpdateOrderRequest struct {
	AccountID     string    `json:"accountId"`
	AssetClass    *string   `json:"assetClass"`
	AssetSubClass *string   `json:"assetSubClass"`
	Comment       string    `json:"comment"`
	Currency      string    `json:"currency"`
	DataSource    string    `json:"dataSource" binding:"required"`
	Date          time.Time `json:"date" binding:"required"`
	Fee           float64   `json:"fee" binding:"gte=0"`
	Quantity      float64   `json:"quantity" binding:"gte=0"`
	Symbol        string    `json:"symbol" binding:"required"`
	Tags          []string  `json:"tags"`
	Type          string    `json:"type" binding:"required"`
	UnitPrice     float64   `json:"unitPrice" binding:"gte=0"`
}

type TagResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"userId,omitempty"`
}

type AccountResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Currency   string `json:"currency"`
	IsExcluded bool   `json:"isExcluded"`
}

type SymbolProfileResponse struct {
	ID            string `json:"id"`
	DataSource    string `json:"dataSource"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Currency      string `json:"currency"`
	AssetClass    string `json:"assetClass,omitempty"`
	AssetSubClass string `json:"assetSubClass,omitempty"`
}

type OrderResponse struct {
	ID            string                 `json:"id"`
	AccountID     string                 `json:"accountId,omitempty"`
	Type          string                 `json:"type"`
	Date          time.Time              `json:"date"`
	Quantity      float64                `json:"quantity"`
	UnitPrice     float64                `json:"unitPrice"`
	Fee           float64                `json:"fee"`
	Currency      string                 `json:"currency,omitempty"`
	Comment       *string                `json:"comment"`
	IsDraft       bool                   `json:"isDraft"`
	Tags          []TagResponse          `json:"tags"`
	Account       *AccountResponse       `json:"account,omitempty"`
	SymbolProfile *SymbolProfileResponse `json:"SymbolProfile,omitempty"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// ActivityResponse is an order with its converted values.
type ActivityResponse struct {
	OrderResponse
	Value                           float64 `json:"value"`
	ValueInBaseCurrency             float64 `json:"valueInBaseCurrency"`
	FeeInAssetProfileCurrency       float64 `json:"feeInAssetProfileCurrency"`
	FeeInBaseCurrency               float64 `json:"feeInBaseCurrency"`
	UnitPriceInAssetProfileCurrency float64 `json:"unitPriceInAssetProfileCurrency"`
}

type ActivitiesResponse struct {
	Activities []ActivityResponse `json:"activities"`
	Count      int64              `json:"count"`
}

// AssignTagsRequest is the body of PUT /api/v1/portfolio/position/:dataSource/:symbol/tags.
type AssignTagsRequest struct {
	Tags []string `json:"tags"`
}

type CreateTagRequest struct {
	Name string `json:"name" binding:"required"`
}

type DeleteOrdersResponse struct {
	Count int64 `json:"count"`
}
