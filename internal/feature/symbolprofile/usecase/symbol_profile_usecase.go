// Package usecase implements the business logic for asset (symbol) profiles.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"folio_backend/internal/feature/symbolprofile/domain/entity"
)

var (
	ErrSymbolProfileNotFound = errors.New("symbol profile not found")
	ErrInvalidOverrides      = errors.New("invalid overrides")
)

// SymbolProfileRepository abstracts the persistence layer for symbol profiles.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type SymbolProfileRepository interface {
	// FindOrCreate returns the profile for p's (dataSource, symbol), creating it from p when absent.
	FindOrCreate(ctx context.Context, p entity.SymbolProfile) (*entity.SymbolProfile, error)
	GetSymbolProfiles(ctx context.Context, ids []entity.AssetProfileIdentifier) ([]entity.SymbolProfile, error)
	// GetSymbolProfilesByIDs returns profiles with ActivitiesCount populated.
	GetSymbolProfilesByIDs(ctx context.Context, ids []string) ([]entity.SymbolProfile, error)
	DeleteByID(ctx context.Context, id string) error
	// Upsert merges the non-empty fields of p into the stored profile.
	Upsert(ctx context.Context, p entity.SymbolProfile) error
	UpdateByID(ctx context.Context, id string, fields ProfileUpdate) error
	SaveOverrides(ctx context.Context, id string, o entity.Overrides) error
	// ListGatherable returns every profile backed by an external data source.
	ListGatherable(ctx context.Context) ([]entity.SymbolProfile, error)
}

// ProfileUpdate carries the fields a user may change on a custom profile.
type ProfileUpdate struct {
	AssetClass    *entity.AssetClass
	AssetSubClass *entity.AssetSubClass
	Currency      *string
	Name          *string
}

// SymbolProfileUsecase provides read access and overrides for symbol profiles.
type SymbolProfileUsecase struct {
	repo SymbolProfileRepository
}

func NewSymbolProfileUsecase(r SymbolProfileRepository) *SymbolProfileUsecase {
	return &SymbolProfileUsecase{repo: r}
}

// ListProfiles returns all profiles that are refreshed from a data provider.
func (u *SymbolProfileUsecase) ListProfiles(ctx context.Context) ([]entity.SymbolProfile, error) {
	return u.repo.ListGatherable(ctx)
}

// GetProfile returns a single profile with overrides applied.
func (u *SymbolProfileUsecase) GetProfile(ctx context.Context, id entity.AssetProfileIdentifier) (*entity.SymbolProfile, error) {
	ps, err := u.repo.GetSymbolProfiles(ctx, []entity.AssetProfileIdentifier{id})
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, ErrSymbolProfileNotFound
	}
	return &ps[0], nil
}

// SetOverrides stores user corrections for the given profile.
func (u *SymbolProfileUsecase) SetOverrides(ctx context.Context, id entity.AssetProfileIdentifier, o entity.Overrides) (*entity.SymbolProfile, error) {
	if o.AssetClass != nil && !entity.IsValidAssetClass(string(*o.AssetClass)) {
		return nil, fmt.Errorf("%w: asset class %q", ErrInvalidOverrides, *o.AssetClass)
	}
	p, err := u.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.repo.SaveOverrides(ctx, p.ID, o); err != nil {
		return nil, err
	}
	return u.GetProfile(ctx, id)
}
