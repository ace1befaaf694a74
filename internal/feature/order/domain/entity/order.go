// Package entity defines the domain models for the order (activity) feature.
package entity

import (
	"time"

	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

type ActivityType string

const (
	ActivityTypeBuy       ActivityType = "BUY"
	ActivityTypeDividend  ActivityType = "DIVIDEND"
	ActivityTypeFee       ActivityType = "FEE"
	ActivityTypeInterest  ActivityType = "INTEREST"
	ActivityTypeLiability ActivityType = "LIABILITY"
	ActivityTypeSell      ActivityType = "SELL"
)

// IsValid reports whether t is a known activity type.
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityTypeBuy, ActivityTypeDividend, ActivityTypeFee,
		ActivityTypeInterest, ActivityTypeLiability, ActivityTypeSell:
		return true
	}
	return false
}

// IsCashLike reports whether t has no tradable asset behind it.
// Such activities are always stored against a MANUAL asset profile and are never drafts.
func (t ActivityType) IsCashLike() bool {
	return t == ActivityTypeFee || t == ActivityTypeInterest || t == ActivityTypeLiability
}

// TagIDExcludeFromAnalysis is the system tag that hides activities from analysis.
const TagIDExcludeFromAnalysis = "f2e868af-8333-459f-b161-cbc6544c24bd"

type Tag struct {
	ID   string
	Name string
	// UserID is empty for system tags.
	UserID string
}

// AccountRef is the part of an account an activity listing needs.
type AccountRef struct {
	ID         string
	Name       string
	Currency   string
	IsExcluded bool
}

// Order is a single portfolio activity.
type Order struct {
	ID              string
	UserID          string
	AccountID       string
	SymbolProfileID string
	Type            ActivityType
	Date            time.Time
	Quantity        float64
	UnitPrice       float64
	Fee             float64
	// Currency of UnitPrice and Fee, empty means the asset profile currency.
	Currency string
	Comment  *string
	IsDraft  bool
	Tags     []Tag

	Account       *AccountRef
	SymbolProfile *spentity.SymbolProfile

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activity is an order enriched with values converted for display.
type Activity struct {
	Order

	Value                           float64
	ValueInBaseCurrency             float64
	FeeInAssetProfileCurrency       float64
	FeeInBaseCurrency               float64
	UnitPriceInAssetProfileCurrency float64
}

type Activities struct {
	Activities []Activity
	Count      int64
}
