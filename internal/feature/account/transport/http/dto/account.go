package dto

import "time"

// CreateAccountRequest is the body of POST /api/v1/account.
type CreateAccountRequest struct {
	Name       string  `json:"name" binding:"required"`
	Currency   string  `json:"currency" binding:"required,len=3"`
	Balance    float64 `json:"balance"`
	IsExcluded bool    `json:"isExcluded"`
	Comment    string  `json:"comment"`
}

type AccountResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Currency   string    `json:"currency"`
	Balance    float64   `json:"balance"`
	IsExcluded bool      `json:"isExcluded"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
