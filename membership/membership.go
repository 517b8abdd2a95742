/*
Package membership is the Membership Ledger.

PURPOSE:
  Tracks each client's paid tier, billing cycle, validity window and
  entitlement to an hourly discount. A client has at most one membership
  row: subscribing upserts, re-subscribing overwrites tier/cycle/dates on
  the same row. Memberships are never hard-deleted; cancellation is a
  status change.

DERIVATIONS:
  is_active       status == active AND (no end date OR end date >= today)
  days_remaining  max(end_date - today, 0), absent without an end date

Both are computed on demand, never stored.
*/
package membership

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
)

// =============================================================================
// TIER
// =============================================================================

// Tier is a named pricing plan. Tiers are looked up by name, never by free
// text; editing one is an administrative action outside this engine.
type Tier struct {
	Ref               core.Ref
	Name              string // "basic", "premium", "corporate"
	DisplayName       string
	Description       string
	MonthlyFeeUSD     decimal.Decimal
	AnnualFeeUSD      decimal.Decimal
	HourlyDiscountPct decimal.Decimal // 0-100
	PriorityBooking   bool
	DedicatedSupport  bool
	ExclusiveListings bool
	MaxMonthlyBookings int // 0 = unlimited
	Active            bool
}

// DefaultTiers is the seeded tier catalog.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Ref:                core.NewRef(),
			Name:               "basic",
			DisplayName:        "Basic",
			Description:        "Entry membership for occasional charters.",
			MonthlyFeeUSD:      decimal.NewFromInt(250),
			AnnualFeeUSD:       decimal.NewFromInt(2500),
			HourlyDiscountPct:  decimal.NewFromInt(5),
			MaxMonthlyBookings: 2,
			Active:             true,
		},
		{
			Ref:                core.NewRef(),
			Name:               "premium",
			DisplayName:        "Premium",
			Description:        "Priority access with a 15% hourly discount.",
			MonthlyFeeUSD:      decimal.NewFromInt(500),
			AnnualFeeUSD:       decimal.NewFromInt(5000),
			HourlyDiscountPct:  decimal.NewFromInt(15),
			PriorityBooking:    true,
			MaxMonthlyBookings: 10,
			Active:             true,
		},
		{
			Ref:                core.NewRef(),
			Name:               "corporate",
			DisplayName:        "Corporate",
			Description:        "Unlimited bookings, dedicated support, exclusive listings.",
			MonthlyFeeUSD:      decimal.NewFromInt(1500),
			AnnualFeeUSD:       decimal.NewFromInt(15000),
			HourlyDiscountPct:  decimal.NewFromInt(25),
			PriorityBooking:    true,
			DedicatedSupport:   true,
			ExclusiveListings:  true,
			MaxMonthlyBookings: 0,
			Active:             true,
		},
	}
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleAnnual  Cycle = "annual"
)

func (c Cycle) Valid() bool {
	return c == CycleMonthly || c == CycleAnnual
}

// Membership is one client's subscription row. One per client.
type Membership struct {
	Ref           core.Ref
	ClientID      string
	TierName      string
	Status        Status
	Cycle         Cycle
	StartDate     time.Time
	EndDate       time.Time // zero = no end date
	AutoRenew     bool
	AmountPaidUSD decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive holds iff status is active and the validity window covers today.
func (m *Membership) IsActive(today time.Time) bool {
	if m.Status != StatusActive {
		return false
	}
	if m.EndDate.IsZero() {
		return true
	}
	return !m.EndDate.Before(core.DateOf(today))
}

// DaysRemaining returns max(end_date - today, 0). ok is false when the
// membership has no end date.
func (m *Membership) DaysRemaining(today time.Time) (days int, ok bool) {
	if m.EndDate.IsZero() {
		return 0, false
	}
	d := int(m.EndDate.Sub(core.DateOf(today)).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d, true
}
