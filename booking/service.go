/*
service.go - Booking Ledger operations

PURPOSE:
  Create (the five-step atomic sequence), Cancel (guarded), SetStatus
  (admin, enum-validated only), ConfirmPayment (external confirmation
  event) and the dispute overlay flag. Notifications are dispatched after
  the state change commits; a send failure is logged, never propagated.
*/
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/notify"
	"github.com/vistajets/charter-engine/payments"
	"github.com/vistajets/charter-engine/pricing"
	"github.com/vistajets/charter-engine/rates"
)

// Tx is the view of the store available inside a booking-creation
// transaction. All five creation steps read and write through one Tx so
// eligibility cannot change between the check and the insert.
type Tx interface {
	MembershipByClient(ctx context.Context, clientID string) (*membership.Membership, error)
	TierByName(ctx context.Context, name string) (*membership.Tier, error)
	AircraftByRef(ctx context.Context, ref core.Ref) (*fleet.Aircraft, error)
	EffectiveCommission(ctx context.Context, at time.Time) (*rates.Setting, error)
	InsertBooking(ctx context.Context, b *Booking) error
}

// Store is the persistence contract for the booking ledger.
type Store interface {
	// WithTx runs fn inside one serialized transaction: fn's writes commit
	// iff fn returns nil, and no other booking transaction interleaves.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	BookingByRef(ctx context.Context, ref core.Ref) (*Booking, error)
	UpdateBooking(ctx context.Context, b *Booking) error
	ListBookingsByClient(ctx context.Context, clientID string) ([]Booking, error)
	ListBookings(ctx context.Context) ([]Booking, error)
}

// Service runs booking operations.
type Service struct {
	store         Store
	payments      payments.Store
	dispatcher    notify.Dispatcher
	defaultComPct decimal.Decimal
	clock         core.Clock
	log           *slog.Logger
}

func NewService(store Store, pay payments.Store, dispatcher notify.Dispatcher, defaultCommissionPct decimal.Decimal, clock core.Clock, log *slog.Logger) *Service {
	if defaultCommissionPct.IsZero() {
		defaultCommissionPct = rates.DefaultRatePct
	}
	if clock == nil {
		clock = core.UTCNow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:         store,
		payments:      pay,
		dispatcher:    dispatcher,
		defaultComPct: defaultCommissionPct,
		clock:         clock,
		log:           log,
	}
}

// Create runs the booking-creation sequence atomically:
//
//  1. membership gate  - client must hold an active membership
//  2. aircraft gate    - aircraft must be approved and available
//  3. rate resolution  - commission in effect now, snapshotted
//  4. pricing          - gross/commission/net with the tier discount
//  5. insert           - one pending row, or nothing
func (s *Service) Create(ctx context.Context, clientID string, aircraftRef core.Ref, trip Trip) (*Booking, error) {
	if clientID == "" {
		return nil, core.InvalidArgf("client_id", "must not be empty")
	}
	if !trip.Type.Valid() {
		return nil, core.InvalidArgf("trip_type", "must be %q or %q, got %q", TripOneWay, TripRoundTrip, trip.Type)
	}
	if trip.PassengerCount < 1 {
		return nil, core.InvalidArgf("passenger_count", "must be at least 1, got %d", trip.PassengerCount)
	}
	if !trip.EstimatedHours.IsPositive() {
		return nil, core.InvalidArgf("estimated_hours", "must be positive, got %s", trip.EstimatedHours)
	}

	now := s.clock()
	var b *Booking
	var maintenanceDue bool
	err := s.store.WithTx(ctx, func(tx Tx) error {
		m, err := tx.MembershipByClient(ctx, clientID)
		if err != nil {
			if core.IsNotFound(err) {
				return core.Preconditionf("active membership required")
			}
			return err
		}
		if !m.IsActive(now) {
			return core.Preconditionf("active membership required")
		}
		tier, err := tx.TierByName(ctx, m.TierName)
		if err != nil {
			return err
		}

		a, err := tx.AircraftByRef(ctx, aircraftRef)
		if err != nil {
			return err
		}
		if !a.Eligible() {
			return core.Conflictf("aircraft %s is not available for booking", a.RegistrationNumber)
		}
		maintenanceDue = a.MaintenanceDue()

		commissionPct := s.defaultComPct
		if setting, err := tx.EffectiveCommission(ctx, now); err != nil {
			return err
		} else if setting != nil {
			commissionPct = setting.RatePct
		}

		quote := pricing.Price(a.HourlyRateUSD, trip.EstimatedHours, tier.HourlyDiscountPct, commissionPct)

		b = &Booking{
			Ref:                core.NewRef(),
			ClientID:           clientID,
			AircraftRef:        a.Ref,
			MembershipRef:      m.Ref,
			Trip:               trip,
			Status:             StatusPending,
			PaymentStatus:      PaymentPending,
			HourlyRateUSD:      a.HourlyRateUSD,
			DiscountAppliedPct: tier.HourlyDiscountPct,
			CommissionPct:      commissionPct,
			GrossAmountUSD:     quote.GrossUSD,
			CommissionUSD:      quote.CommissionUSD,
			NetOwnerUSD:        quote.NetOwnerUSD,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return tx.InsertBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	if maintenanceDue {
		s.log.Warn("booking created against maintenance-due aircraft",
			"booking", b.Ref.String(),
			"aircraft", b.AircraftRef.String())
	}
	s.notifyClient(ctx, b.ClientID, "Booking received",
		fmt.Sprintf("Booking %s: %s to %s, %s USD pending payment.",
			b.Ref, b.Trip.Origin, b.Trip.Destination, b.GrossAmountUSD.StringFixed(2)))
	return b, nil
}

// Cancel sets the booking to cancelled. Completed and in-flight bookings
// cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, ref core.Ref) (*Booking, error) {
	b, err := s.store.BookingByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !b.Status.Cancellable() {
		return nil, core.Conflictf("booking in status %q cannot be cancelled", b.Status)
	}
	b.Status = StatusCancelled
	b.UpdatedAt = s.clock()
	if err := s.store.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}
	s.notifyClient(ctx, b.ClientID, "Booking cancelled",
		fmt.Sprintf("Booking %s has been cancelled.", b.Ref))
	return b, nil
}

// SetStatus is the admin write: any of the six statuses, no transition
// graph beyond the enum check.
func (s *Service) SetStatus(ctx context.Context, ref core.Ref, status Status) (*Booking, error) {
	if !status.Valid() {
		return nil, core.InvalidArgf("status", "unknown booking status %q", status)
	}
	b, err := s.store.BookingByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	b.Status = status
	b.UpdatedAt = s.clock()
	if err := s.store.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConfirmPayment records an externally-confirmed payment for the booking,
// marks it paid and promotes a pending booking to confirmed. The engine
// does not validate the confirmation against a processor.
func (s *Service) ConfirmPayment(ctx context.Context, ref core.Ref, processorID string) (*Booking, error) {
	b, err := s.store.BookingByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == PaymentPaid {
		return nil, core.Conflictf("booking %s is already paid", b.Ref)
	}

	now := s.clock()
	b.PaymentStatus = PaymentPaid
	if b.Status == StatusPending {
		b.Status = StatusConfirmed
	}
	b.UpdatedAt = now
	if err := s.store.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	rec := payments.Record{
		Ref:         core.NewRef(),
		UserID:      b.ClientID,
		BookingRef:  b.Ref,
		Type:        payments.TypeBooking,
		Status:      payments.StatusSucceeded,
		AmountUSD:   b.GrossAmountUSD,
		Currency:    "USD",
		ProcessorID: processorID,
		Description: fmt.Sprintf("Charter %s to %s", b.Trip.Origin, b.Trip.Destination),
		CreatedAt:   now,
	}
	if err := s.payments.SavePayment(ctx, rec); err != nil {
		return nil, err
	}

	s.notifyClient(ctx, b.ClientID, "Booking confirmed",
		fmt.Sprintf("Payment received for booking %s. Your charter is confirmed.", b.Ref))
	return b, nil
}

// FlagDisputed applies the dispute overlay. Reachable from any status,
// including terminal ones.
func (s *Service) FlagDisputed(ctx context.Context, ref core.Ref) error {
	b, err := s.store.BookingByRef(ctx, ref)
	if err != nil {
		return err
	}
	b.Status = StatusDisputed
	b.UpdatedAt = s.clock()
	return s.store.UpdateBooking(ctx, b)
}

// ByRef returns one booking.
func (s *Service) ByRef(ctx context.Context, ref core.Ref) (*Booking, error) {
	return s.store.BookingByRef(ctx, ref)
}

// ListByClient returns the client's bookings, newest first.
func (s *Service) ListByClient(ctx context.Context, clientID string) ([]Booking, error) {
	return s.store.ListBookingsByClient(ctx, clientID)
}

// List returns all bookings, newest first.
func (s *Service) List(ctx context.Context) ([]Booking, error) {
	return s.store.ListBookings(ctx)
}

// notifyClient dispatches and logs; delivery failure never fails the
// operation that triggered it.
func (s *Service) notifyClient(ctx context.Context, recipient, subject, body string) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Send(ctx, recipient, subject, body); err != nil {
		s.log.Error("notification send failed",
			"recipient", recipient,
			"subject", subject,
			"error", err)
	}
}
