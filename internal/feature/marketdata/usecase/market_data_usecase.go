// Package usecase は保存済みの日次価格データを扱うビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"time"

	"folio_backend/internal/feature/marketdata/domain/entity"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
)

// DefaultRange は from が指定されなかったときの取得期間です。
const DefaultRange = 365 * 24 * time.Hour

var ErrInvalidRange = errors.New("from must not be after to")

// MarketDataRepository はmarket dataの永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type MarketDataRepository interface {
	// UpsertBatch inserts prices or updates the ones already stored for the same day.
	UpsertBatch(ctx context.Context, items []entity.MarketData) error
	// FindRange returns prices of one asset with from <= date <= to, oldest first.
	FindRange(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) ([]entity.MarketData, error)
	// FindLatest returns the most recent price per asset keyed by AssetProfileIdentifier.Key().
	FindLatest(ctx context.Context, ids []spentity.AssetProfileIdentifier) (map[string]entity.MarketData, error)
}

type MarketDataUsecase struct {
	repo MarketDataRepository
	now  func() time.Time
}

func NewMarketDataUsecase(repo MarketDataRepository) *MarketDataUsecase {
	return &MarketDataUsecase{repo: repo, now: time.Now}
}

// GetMarketData returns daily prices in [from, to]. Zero bounds default to
// today and one year before to.
func (u *MarketDataUsecase) GetMarketData(ctx context.Context, id spentity.AssetProfileIdentifier, from, to time.Time) ([]entity.MarketData, error) {
	if to.IsZero() {
		to = u.now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-DefaultRange)
	}
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	return u.repo.FindRange(ctx, id, from, to)
}

// GetLatestPrices returns the latest stored price per asset.
func (u *MarketDataUsecase) GetLatestPrices(ctx context.Context, ids []spentity.AssetProfileIdentifier) (map[string]entity.MarketData, error) {
	if len(ids) == 0 {
		return map[string]entity.MarketData{}, nil
	}
	return u.repo.FindLatest(ctx, ids)
}
