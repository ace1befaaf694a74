// Package usecase implements the business logic for portfolio activities (orders).
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	acentity "folio_backend/internal/feature/account/domain/entity"
	"folio_backend/internal/feature/order/domain/entity"
	spentity "folio_backend/internal/feature/symbolprofile/domain/entity"
	spusecase "folio_backend/internal/feature/symbolprofile/usecase"
	"folio_backend/internal/platform/eventbus"
	"folio_backend/internal/platform/queue"
	"folio_backend/internal/shared/filter"
)

// customSymbolPrefix marks asset profiles cloned from a custom profile.
const customSymbolPrefix = "GF_"

// conversionConcurrency bounds parallel exchange rate lookups while enriching activities.
const conversionConcurrency = 8

// OrderRepository abstracts the persistence layer for orders.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type OrderRepository interface {
	Create(ctx context.Context, o entity.Order, tagIDs []string) (*entity.Order, error)
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	// Find returns one page of orders matching q plus the total number of matches.
	Find(ctx context.Context, q OrderQuery) ([]entity.Order, int64, error)
	FindIDsByUserAndAsset(ctx context.Context, userID string, asset spentity.AssetProfileIdentifier) ([]string, error)
	FindLatest(ctx context.Context, asset spentity.AssetProfileIdentifier) (*entity.Order, error)
	// Update overwrites the order fields and replaces its tags.
	Update(ctx context.Context, o entity.Order, tagIDs []string) (*entity.Order, error)
	ReplaceTags(ctx context.Context, orderIDs []string, tagIDs []string) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	StatisticsByCurrency(ctx context.Context, currency string) (int64, *time.Time, error)
}

// TagRepository resolves tags visible to a user.
type TagRepository interface {
	FindByIDs(ctx context.Context, ids []string, userID string) ([]entity.Tag, error)
	List(ctx context.Context, userID string) ([]entity.Tag, error)
	Create(ctx context.Context, t entity.Tag) (*entity.Tag, error)
}

// SymbolProfileStore is the subset of symbol profile persistence orders depend on.
type SymbolProfileStore interface {
	FindOrCreate(ctx context.Context, p spentity.SymbolProfile) (*spentity.SymbolProfile, error)
	GetSymbolProfilesByIDs(ctx context.Context, ids []string) ([]spentity.SymbolProfile, error)
	DeleteByID(ctx context.Context, id string) error
	UpdateByID(ctx context.Context, id string, fields spusecase.ProfileUpdate) error
}

type AccountService interface {
	GetAccount(ctx context.Context, id, userID string) (*acentity.Account, error)
	UpdateAccountBalance(ctx context.Context, accountID, userID string, amount float64, currency string, date time.Time) error
}

// DataGatherer schedules background market data gathering.
type DataGatherer interface {
	AddJobToQueue(ctx context.Context, job queue.Job) error
	GatherSymbols(ctx context.Context, items []queue.JobData, priority queue.Priority) error
}

type CurrencyConverter interface {
	ToCurrencyAtDate(ctx context.Context, value float64, from, to string, date time.Time) float64
}

type EventEmitter interface {
	Emit(ctx context.Context, e eventbus.Event)
}

// ActivityRecorder counts created activities.
type ActivityRecorder interface {
	RecordActivity(activityType string)
}

// Deps are the collaborators of OrderUsecase.
type Deps struct {
	Orders         OrderRepository
	Tags           TagRepository
	SymbolProfiles SymbolProfileStore
	Accounts       AccountService
	DataGathering  DataGatherer
	Converter      CurrencyConverter
	Events         EventEmitter
	Metrics        ActivityRecorder
}

type OrderUsecase struct {
	Deps
	now func() time.Time
}

func NewOrderUsecase(d Deps) *OrderUsecase {
	return &OrderUsecase{Deps: d, now: time.Now}
}

// CreateOrderInput carries a new activity. Currency is the currency of the
// asset profile as well as of UnitPrice and Fee.
type CreateOrderInput struct {
	UserID               string
	AccountID            string
	AssetClass           spentity.AssetClass
	AssetSubClass        spentity.AssetSubClass
	Comment              string
	Currency             string
	DataSource           spentity.DataSource
	Date                 time.Time
	Fee                  float64
	Quantity             float64
	Symbol               string
	TagIDs               []string
	Type                 entity.ActivityType
	UnitPrice            float64
	UpdateAccountBalance bool
}

// UpdateOrderInput replaces the editable fields of an activity. An empty
// AccountID removes the account.
type UpdateOrderInput struct {
	AccountID     string
	AssetClass    *spentity.AssetClass
	AssetSubClass *spentity.AssetSubClass
	Comment       string
	Currency      string
	DataSource    spentity.DataSource
	Date          time.Time
	Fee           float64
	Quantity      float64
	Symbol        string
	TagIDs        []string
	Type          entity.ActivityType
	UnitPrice     float64
}

// usesManualProfile reports whether the activity is stored against a user owned MANUAL profile.
func usesManualProfile(t entity.ActivityType, ds spentity.DataSource) bool {
	return t.IsCashLike() || (ds == spentity.DataSourceManual && t == entity.ActivityTypeBuy)
}

// isCustomSymbol reports whether symbol references an existing custom asset profile.
func isCustomSymbol(symbol string) bool {
	if strings.HasPrefix(symbol, customSymbolPrefix) {
		return true
	}
	if len(symbol) != 36 {
		return false
	}
	_, err := uuid.Parse(symbol)
	return err == nil
}

func (u *OrderUsecase) endOfToday() time.Time {
	now := u.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())
}

func (u *OrderUsecase) isDraft(t entity.ActivityType, date time.Time) bool {
	if t.IsCashLike() {
		return false
	}
	return date.After(u.endOfToday())
}

func (u *OrderUsecase) emitChanged(ctx context.Context, userID string) {
	u.Events.Emit(ctx, eventbus.PortfolioChangedEvent{UserID: userID})
}

func (u *OrderUsecase) validate(t entity.ActivityType, symbol string, date time.Time, quantity, unitPrice, fee float64) error {
	switch {
	case !t.IsValid():
		return fmt.Errorf("%w: type %q", ErrInvalidOrder, t)
	case strings.TrimSpace(symbol) == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	case date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidOrder)
	case quantity < 0 || unitPrice < 0 || fee < 0:
		return fmt.Errorf("%w: quantity, unit price and fee must not be negative", ErrInvalidOrder)
	}
	return nil
}

// resolveTags checks that every id names a tag visible to userID.
func (u *OrderUsecase) resolveTags(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tags, err := u.Tags.FindByIDs(ctx, ids, userID)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		found[t.ID] = struct{}{}
	}
	out := make([]string, 0, len(found))
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrTagNotFound, id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (u *OrderUsecase) checkAccount(ctx context.Context, accountID, userID string) error {
	if accountID == "" {
		return nil
	}
	_, err := u.Accounts.GetAccount(ctx, accountID, userID)
	return err
}

// AssignTags replaces the tags of every activity of userID on the given asset.
func (u *OrderUsecase) AssignTags(ctx context.Context, userID string, asset spentity.AssetProfileIdentifier, tagIDs []string) error {
	tagIDs, err := u.resolveTags(ctx, userID, tagIDs)
	if err != nil {
		return err
	}
	ids, err := u.Orders.FindIDsByUserAndAsset(ctx, userID, asset)
	if err != nil {
		return err
	}
	if err := u.Orders.ReplaceTags(ctx, ids, tagIDs); err != nil {
		return err
	}
	u.emitChanged(ctx, userID)
	return nil
}

func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	if err := u.validate(in.Type, in.Symbol, in.Date, in.Quantity, in.UnitPrice, in.Fee); err != nil {
		return nil, err
	}
	if in.UpdateAccountBalance && in.AccountID == "" {
		return nil, fmt.Errorf("%w: updating the account balance requires an account", ErrInvalidOrder)
	}
	if err := u.checkAccount(ctx, in.AccountID, in.UserID); err != nil {
		return nil, err
	}
	tagIDs, err := u.resolveTags(ctx, in.UserID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	profile := spentity.SymbolProfile{
		DataSource: in.DataSource,
		Symbol:     in.Symbol,
		Currency:   in.Currency,
	}
	if usesManualProfile(in.Type, in.DataSource) {
		profile.DataSource = spentity.DataSourceManual
		if !isCustomSymbol(in.Symbol) {
			// the entered symbol becomes the name of a new custom profile
			profile.Name = in.Symbol
			profile.Symbol = uuid.NewString()
		}
		profile.AssetClass = in.AssetClass
		profile.AssetSubClass = in.AssetSubClass
		profile.UserID = in.UserID
	}

	if profile.DataSource != spentity.DataSourceManual {
		job := queue.Job{
			ID:       profile.Identifier().Key(),
			Name:     queue.GatherAssetProfile,
			Data:     queue.JobData{DataSource: profile.DataSource, Symbol: profile.Symbol},
			Priority: queue.PriorityHigh,
		}
		if err := u.DataGathering.AddJobToQueue(ctx, job); err != nil {
			slog.Warn("failed to enqueue asset profile gathering", "jobId", job.ID, "error", err)
		}
	}

	sp, err := u.SymbolProfiles.FindOrCreate(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("connect symbol profile %s: %w", profile.Identifier().Key(), err)
	}

	o := entity.Order{
		UserID:          in.UserID,
		AccountID:       in.AccountID,
		SymbolProfileID: sp.ID,
		Type:            in.Type,
		Date:            in.Date,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		Fee:             in.Fee,
		Currency:        in.Currency,
		Comment:         nonEmpty(in.Comment),
		IsDraft:         u.isDraft(in.Type, in.Date),
	}
	created, err := u.Orders.Create(ctx, o, tagIDs)
	if err != nil {
		return nil, err
	}
	created.SymbolProfile = sp

	if in.UpdateAccountBalance {
		amount := decimal.NewFromFloat(in.UnitPrice).
			Mul(decimal.NewFromFloat(in.Quantity)).
			Add(decimal.NewFromFloat(in.Fee))
		if in.Type == entity.ActivityTypeBuy || in.Type == entity.ActivityTypeFee {
			amount = amount.Neg()
		}
		if err := u.Accounts.UpdateAccountBalance(ctx, in.AccountID, in.UserID, amount.InexactFloat64(), in.Currency, in.Date); err != nil {
			return nil, fmt.Errorf("update account balance: %w", err)
		}
	}

	if u.Metrics != nil {
		u.Metrics.RecordActivity(string(in.Type))
	}
	u.emitChanged(ctx, created.UserID)
	return created, nil
}

// DeleteOrder deletes an activity of userID and its asset profile once no activity references it.
func (u *OrderUsecase) DeleteOrder(ctx context.Context, id, userID string) (*entity.Order, error) {
	o, err := u.Order(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := u.Orders.Delete(ctx, id); err != nil {
		return nil, err
	}
	if err := u.deleteOrphanedProfiles(ctx, []string{o.SymbolProfileID}); err != nil {
		return nil, err
	}
	u.emitChanged(ctx, o.UserID)
	return o, nil
}

// DeleteOrders deletes every activity of userID matching filters, drafts and
// excluded ones included, and returns how many were deleted.
func (u *OrderUsecase) DeleteOrders(ctx context.Context, userID string, filters []filter.Filter) (int64, error) {
	q, err := NewOrderQuery(GetOrdersParams{
		UserID:                            userID,
		Filters:                           filters,
		IncludeDrafts:                     true,
		WithExcludedAccountsAndActivities: true,
	})
	if err != nil {
		return 0, err
	}
	orders, _, err := u.Orders.Find(ctx, q)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(orders))
	profileIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		profileIDs = append(profileIDs, o.SymbolProfileID)
	}
	count, err := u.Orders.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if err := u.deleteOrphanedProfiles(ctx, profileIDs); err != nil {
		return 0, err
	}
	u.emitChanged(ctx, userID)
	return count, nil
}

func (u *OrderUsecase) deleteOrphanedProfiles(ctx context.Context, profileIDs []string) error {
	if len(profileIDs) == 0 {
		return nil
	}
	profiles, err := u.SymbolProfiles.GetSymbolProfilesByIDs(ctx, profileIDs)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p.ActivitiesCount > 0 {
			continue
		}
		if err := u.SymbolProfiles.DeleteByID(ctx, p.ID); err != nil {
			return fmt.Errorf("delete orphaned symbol profile %s: %w", p.ID, err)
		}
	}
	return nil
}

// GetLatestOrder returns the most recent activity on asset of any user.
func (u *OrderUsecase) GetLatestOrder(ctx context.Context, asset spentity.AssetProfileIdentifier) (*entity.Order, error) {
	return u.Orders.FindLatest(ctx, asset)
}

// GetOrders lists activities matching p, enriched with values converted into
// the asset profile currency and into p.UserCurrency at the activity date.
func (u *OrderUsecase) GetOrders(ctx context.Context, p GetOrdersParams) (entity.Activities, error) {
	q, err := NewOrderQuery(p)
	if err != nil {
		return entity.Activities{}, err
	}
	orders, count, err := u.Orders.Find(ctx, q)
	if err != nil {
		return entity.Activities{}, err
	}

	profileIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		profileIDs = append(profileIDs, o.SymbolProfileID)
	}
	profiles, err := u.SymbolProfiles.GetSymbolProfilesByIDs(ctx, profileIDs)
	if err != nil {
		return entity.Activities{}, err
	}
	byID := make(map[string]spentity.SymbolProfile, len(profiles))
	for _, sp := range profiles {
		byID[sp.ID] = sp
	}

	activities := make([]entity.Activity, len(orders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conversionConcurrency)
	for i, o := range orders {
		if sp, ok := byID[o.SymbolProfileID]; ok {
			o.SymbolProfile = &sp
		}
		g.Go(func() error {
			activities[i] = u.toActivity(gctx, o, p.UserCurrency)
			return nil
		})
	}
	_ = g.Wait()

	return entity.Activities{Activities: activities, Count: count}, nil
}

func (u *OrderUsecase) toActivity(ctx context.Context, o entity.Order, userCurrency string) entity.Activity {
	value := decimal.NewFromFloat(o.Quantity).Mul(decimal.NewFromFloat(o.UnitPrice)).InexactFloat64()

	profileCurrency := ""
	if o.SymbolProfile != nil {
		profileCurrency = o.SymbolProfile.Currency
	}
	currency := o.Currency
	if currency == "" {
		currency = profileCurrency
	}

	return entity.Activity{
		Order:                           o,
		Value:                           value,
		FeeInAssetProfileCurrency:       u.Converter.ToCurrencyAtDate(ctx, o.Fee, currency, profileCurrency, o.Date),
		FeeInBaseCurrency:               u.Converter.ToCurrencyAtDate(ctx, o.Fee, currency, userCurrency, o.Date),
		UnitPriceInAssetProfileCurrency: u.Converter.ToCurrencyAtDate(ctx, o.UnitPrice, currency, profileCurrency, o.Date),
		ValueInBaseCurrency:             u.Converter.ToCurrencyAtDate(ctx, value, currency, userCurrency, o.Date),
	}
}

// GetOrdersForPortfolioCalculator returns all non-draft activities that count towards analysis.
func (u *OrderUsecase) GetOrdersForPortfolioCalculator(ctx context.Context, userID string, filters []filter.Filter, userCurrency string) (entity.Activities, error) {
	return u.GetOrders(ctx, GetOrdersParams{
		UserID:       userID,
		UserCurrency: userCurrency,
		Filters:      filters,
	})
}

// CurrencyStatistics summarizes the activities on assets quoted in one currency.
type CurrencyStatistics struct {
	ActivitiesCount     int64
	DateOfFirstActivity *time.Time
}

func (u *OrderUsecase) GetStatisticsByCurrency(ctx context.Context, currency string) (CurrencyStatistics, error) {
	n, first, err := u.Orders.StatisticsByCurrency(ctx, currency)
	if err != nil {
		return CurrencyStatistics{}, err
	}
	return CurrencyStatistics{ActivitiesCount: n, DateOfFirstActivity: first}, nil
}

// Order returns the activity id if it belongs to userID.
func (u *OrderUsecase) Order(ctx context.Context, id, userID string) (*entity.Order, error) {
	o, err := u.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (u *OrderUsecase) UpdateOrder(ctx context.Context, id, userID string, in UpdateOrderInput) (*entity.Order, error) {
	if err := u.validate(in.Type, in.Symbol, in.Date, in.Quantity, in.UnitPrice, in.Fee); err != nil {
		return nil, err
	}
	existing, err := u.Order(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := u.checkAccount(ctx, in.AccountID, userID); err != nil {
		return nil, err
	}
	tagIDs, err := u.resolveTags(ctx, userID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	o := *existing
	o.AccountID = in.AccountID
	o.Type = in.Type
	o.Date = in.Date
	o.Quantity = in.Quantity
	o.UnitPrice = in.UnitPrice
	o.Fee = in.Fee
	o.Currency = in.Currency
	o.Comment = nonEmpty(in.Comment)
	o.IsDraft = false

	if usesManualProfile(in.Type, in.DataSource) {
		// custom profile keeps its identity and name
		update := spusecase.ProfileUpdate{AssetClass: in.AssetClass, AssetSubClass: in.AssetSubClass}
		if in.Currency != "" {
			c := in.Currency
			update.Currency = &c
		}
		if err := u.SymbolProfiles.UpdateByID(ctx, existing.SymbolProfileID, update); err != nil {
			return nil, fmt.Errorf("update symbol profile %s: %w", existing.SymbolProfileID, err)
		}
	} else {
		sp, err := u.SymbolProfiles.FindOrCreate(ctx, spentity.SymbolProfile{
			DataSource: in.DataSource,
			Symbol:     in.Symbol,
			Currency:   in.Currency,
		})
		if err != nil {
			return nil, err
		}
		o.SymbolProfileID = sp.ID

		o.IsDraft = u.isDraft(in.Type, in.Date)
		if !o.IsDraft {
			date := in.Date
			items := []queue.JobData{{DataSource: in.DataSource, Symbol: in.Symbol, Date: &date}}
			if err := u.DataGathering.GatherSymbols(ctx, items, queue.PriorityHigh); err != nil {
				slog.Warn("failed to enqueue market data gathering", "dataSource", in.DataSource, "symbol", in.Symbol, "error", err)
			}
		}
	}

	updated, err := u.Orders.Update(ctx, o, tagIDs)
	if err != nil {
		return nil, err
	}
	u.emitChanged(ctx, updated.UserID)
	return updated, nil
}

// ListTags returns the system tags and the tags of userID.
func (u *OrderUsecase) ListTags(ctx context.Context, userID string) ([]entity.Tag, error) {
	return u.Tags.List(ctx, userID)
}

func (u *OrderUsecase) CreateTag(ctx context.Context, userID, name string) (*entity.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", ErrInvalidOrder)
	}
	return u.Tags.Create(ctx, entity.Tag{Name: name, UserID: userID})
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
