// Package usecase aggregates activities into holdings and allocation charts.
package usecase

import "errors"

// ErrInvalidAllocation is returned for unknown grouping keys or a negative item limit.
var ErrInvalidAllocation = errors.New("invalid allocation request")
