// Package entity defines the domain models for the account feature.
package entity

import "time"

// Account is a cash or brokerage account holding activities of one user.
type Account struct {
	ID       string
	UserID   string
	Name     string
	Currency string
	Balance  float64
	// IsExcluded removes the account and its activities from analysis.
	IsExcluded bool
	Comment    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountBalance is the balance of an account at the end of a day.
type AccountBalance struct {
	AccountID string
	Date      time.Time
	Value     float64
}
