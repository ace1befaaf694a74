// Package di provides dependency injection factories for creating application components.
package di

import (
	acadapters "folio_backend/internal/feature/account/adapters"
	authadapters "folio_backend/internal/feature/auth/adapters"
	mdadapters "folio_backend/internal/feature/marketdata/adapters"
	orderadapters "folio_backend/internal/feature/order/adapters"
	spadapters "folio_backend/internal/feature/symbolprofile/adapters"
)

// Models lists every GORM model migrated when RUN_MIGRATIONS is enabled.
func Models() []any {
	return []any{
		&authadapters.UserModel{},
		&acadapters.AccountModel{},
		&acadapters.AccountBalanceModel{},
		&spadapters.SymbolProfileModel{},
		&spadapters.SymbolProfileOverridesModel{},
		&orderadapters.TagModel{},
		&orderadapters.OrderModel{},
		&orderadapters.OrderTagModel{},
		&mdadapters.MarketDataModel{},
	}
}
