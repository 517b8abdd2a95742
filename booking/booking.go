/*
Package booking is the Booking Ledger.

PURPOSE:
  The transactional record of the marketplace. Creating a booking reads the
  Membership Ledger (must be active), the Fleet Registry (aircraft must be
  eligible) and the Rate Ledger (commission in effect now), prices the trip
  and persists one pending row - atomically, under a single store
  transaction, so concurrent requests against the same aircraft are
  serialized through a re-checked eligibility gate.

SNAPSHOTS:
  commission_pct and discount_applied_pct are captured at creation and
  never change afterwards, whatever the Rate Ledger or the client's tier
  does later. The monetary triad {gross, commission, net} is recomputed and
  persisted together on every save that touches gross or commission_pct.

LIFECYCLE:
  pending -> confirmed -> in_flight -> completed, with cancelled reachable
  from any non-terminal state and disputed reachable from any state. The
  dispute overlay does not remove a booking from its lifecycle position.
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusInFlight  Status = "in_flight"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDisputed  Status = "disputed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInFlight,
		StatusCompleted, StatusCancelled, StatusDisputed:
		return true
	}
	return false
}

// Cancellable reports whether a booking in this status may be cancelled.
// Completed flights and flights in the air cannot be.
func (s Status) Cancellable() bool {
	return s != StatusCompleted && s != StatusInFlight
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// =============================================================================
// TRIP
// =============================================================================

type TripType string

const (
	TripOneWay    TripType = "one_way"
	TripRoundTrip TripType = "round_trip"
)

func (t TripType) Valid() bool {
	return t == TripOneWay || t == TripRoundTrip
}

// Trip carries the client-submitted trip details.
type Trip struct {
	Type           TripType
	Origin         string
	Destination    string
	DepartureAt    time.Time
	ReturnAt       time.Time // zero for one-way
	PassengerCount int
	EstimatedHours decimal.Decimal
}

// =============================================================================
// BOOKING
// =============================================================================

// Booking is one ledger row.
type Booking struct {
	Ref           core.Ref
	ClientID      string
	AircraftRef   core.Ref
	MembershipRef core.Ref // snapshot of the membership that applied, not a live lookup

	Trip Trip

	Status        Status
	PaymentStatus PaymentStatus

	// Pricing snapshot, fixed at creation.
	HourlyRateUSD      decimal.Decimal
	DiscountAppliedPct decimal.Decimal
	CommissionPct      decimal.Decimal
	GrossAmountUSD     decimal.Decimal
	CommissionUSD      decimal.Decimal
	NetOwnerUSD        decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}
