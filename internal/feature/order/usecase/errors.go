package usecase

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrInvalidQuery  = errors.New("invalid order query")
	ErrTagNotFound   = errors.New("tag not found")
)
