// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User represents a registered user in the system.
type User struct {
	// ID is a UUID assigned on creation.
	ID string

	// Email must be unique across all users.
	Email string

	// Password is the bcrypt hash, never the plaintext.
	Password string

	// BaseCurrency is the ISO 4217 code portfolio values are reported in.
	BaseCurrency string

	CreatedAt time.Time
	UpdatedAt time.Time
}
