/*
service.go - Subscription flow for the Membership Ledger

PURPOSE:
  Subscribe resolves a tier by name, computes the validity window from the
  billing cycle, upserts the client's single membership row and emits a
  succeeded membership payment record. Re-subscribing overwrites the row.
*/
package membership

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/payments"
)

// Store is the persistence contract for tiers and memberships.
type Store interface {
	SaveTier(ctx context.Context, t Tier) error
	TierByName(ctx context.Context, name string) (*Tier, error)
	ListTiers(ctx context.Context) ([]Tier, error)

	// UpsertMembership inserts or, keyed on ClientID, replaces the row
	// while preserving its Ref and CreatedAt.
	UpsertMembership(ctx context.Context, m *Membership) error
	MembershipByClient(ctx context.Context, clientID string) (*Membership, error)
	ListMemberships(ctx context.Context) ([]Membership, error)
}

// Service runs the subscription flow.
type Service struct {
	store    Store
	payments payments.Store
	clock    core.Clock
}

func NewService(store Store, pay payments.Store, clock core.Clock) *Service {
	if clock == nil {
		clock = core.UTCNow
	}
	return &Service{store: store, payments: pay, clock: clock}
}

// SeedDefaultTiers inserts the default catalog for tiers that do not exist
// yet. Existing tiers are left untouched.
func (s *Service) SeedDefaultTiers(ctx context.Context) error {
	for _, t := range DefaultTiers() {
		existing, err := s.store.TierByName(ctx, t.Name)
		if err != nil && !core.IsNotFound(err) {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.store.SaveTier(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe activates (or replaces) the client's membership on the named
// tier. The fee charged follows the cycle; validity runs 30 days for
// monthly, 365 for annual, starting today.
func (s *Service) Subscribe(ctx context.Context, clientID, tierName string, cycle Cycle, autoRenew bool) (*Membership, error) {
	if clientID == "" {
		return nil, core.InvalidArgf("client_id", "must not be empty")
	}
	if !cycle.Valid() {
		return nil, core.InvalidArgf("billing_cycle", "must be %q or %q, got %q", CycleMonthly, CycleAnnual, cycle)
	}
	tier, err := s.store.TierByName(ctx, tierName)
	if err != nil {
		return nil, err
	}
	if !tier.Active {
		return nil, core.NotFoundf("tier", tierName)
	}

	fee := tier.MonthlyFeeUSD
	days := 30
	if cycle == CycleAnnual {
		fee = tier.AnnualFeeUSD
		days = 365
	}

	now := s.clock()
	today := core.DateOf(now)
	m := &Membership{
		Ref:           core.NewRef(),
		ClientID:      clientID,
		TierName:      tier.Name,
		Status:        StatusActive,
		Cycle:         cycle,
		StartDate:     today,
		EndDate:       today.AddDate(0, 0, days),
		AutoRenew:     autoRenew,
		AmountPaidUSD: fee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.UpsertMembership(ctx, m); err != nil {
		return nil, err
	}

	rec := payments.Record{
		Ref:           core.NewRef(),
		UserID:        clientID,
		MembershipRef: m.Ref,
		Type:          payments.TypeMembership,
		Status:        payments.StatusSucceeded,
		AmountUSD:     fee,
		Currency:      "USD",
		Description:   tier.DisplayName + " membership (" + string(cycle) + ")",
		CreatedAt:     now,
	}
	if err := s.payments.SavePayment(ctx, rec); err != nil {
		return nil, err
	}
	return m, nil
}

// ByClient returns the client's membership row.
func (s *Service) ByClient(ctx context.Context, clientID string) (*Membership, error) {
	return s.store.MembershipByClient(ctx, clientID)
}

// Tiers returns the tier catalog.
func (s *Service) Tiers(ctx context.Context) ([]Tier, error) {
	return s.store.ListTiers(ctx)
}

// Discount returns the hourly discount percentage the client is entitled
// to: the tier discount with an active membership, zero otherwise.
func (s *Service) Discount(ctx context.Context, clientID string) (decimal.Decimal, error) {
	m, err := s.store.MembershipByClient(ctx, clientID)
	if err != nil {
		if core.IsNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, err
	}
	if !m.IsActive(s.clock()) {
		return decimal.Zero, nil
	}
	tier, err := s.store.TierByName(ctx, m.TierName)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return tier.HourlyDiscountPct, nil
}
