/*
Package dispute is the Dispute Tracker.

PURPOSE:
  Disputes attach many-to-one to a booking and run their own small state
  machine: open -> reviewing -> resolved/closed. Opening a dispute is
  always permitted regardless of the booking's lifecycle position; it also
  flags the booking disputed. resolved_at is stamped exactly once, on the
  transition into resolved.
*/
package dispute

import (
	"context"
	"time"

	"github.com/vistajets/charter-engine/core"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusReviewing Status = "reviewing"
	StatusResolved  Status = "resolved"
	StatusClosed    Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusReviewing, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Dispute is one dispute row.
type Dispute struct {
	Ref         core.Ref
	BookingRef  core.Ref
	RaisedBy    string
	Subject     string
	Description string
	Status      Status
	Resolution  string
	ResolvedAt  time.Time // zero until resolved; set exactly once
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the persistence contract for disputes.
type Store interface {
	SaveDispute(ctx context.Context, d *Dispute) error
	UpdateDispute(ctx context.Context, d *Dispute) error
	DisputeByRef(ctx context.Context, ref core.Ref) (*Dispute, error)
	ListDisputesByUser(ctx context.Context, userID string) ([]Dispute, error)
	ListDisputes(ctx context.Context) ([]Dispute, error)
}

// BookingFlagger applies the disputed overlay to a booking. Implemented by
// the booking service; an interface here keeps the dependency one-way.
type BookingFlagger interface {
	FlagDisputed(ctx context.Context, bookingRef core.Ref) error
}

// Tracker runs dispute operations.
type Tracker struct {
	store    Store
	bookings BookingFlagger
	clock    core.Clock
}

func NewTracker(store Store, bookings BookingFlagger, clock core.Clock) *Tracker {
	if clock == nil {
		clock = core.UTCNow
	}
	return &Tracker{store: store, bookings: bookings, clock: clock}
}

// Open creates a dispute against the booking and flags the booking
// disputed. Permitted in every booking status.
func (t *Tracker) Open(ctx context.Context, bookingRef core.Ref, raisedBy, subject, description string) (*Dispute, error) {
	if subject == "" {
		return nil, core.InvalidArgf("subject", "must not be empty")
	}
	if err := t.bookings.FlagDisputed(ctx, bookingRef); err != nil {
		return nil, err
	}
	now := t.clock()
	d := &Dispute{
		Ref:         core.NewRef(),
		BookingRef:  bookingRef,
		RaisedBy:    raisedBy,
		Subject:     subject,
		Description: description,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.store.SaveDispute(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Review moves an open dispute under review.
func (t *Tracker) Review(ctx context.Context, ref core.Ref) (*Dispute, error) {
	d, err := t.store.DisputeByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, core.Conflictf("dispute in status %q cannot move to reviewing", d.Status)
	}
	d.Status = StatusReviewing
	d.UpdatedAt = t.clock()
	if err := t.store.UpdateDispute(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve records the resolution text and stamps resolved_at. Allowed from
// any status except closed; resolved_at is never overwritten.
func (t *Tracker) Resolve(ctx context.Context, ref core.Ref, resolution string) (*Dispute, error) {
	d, err := t.store.DisputeByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusClosed {
		return nil, core.Conflictf("dispute is closed")
	}
	now := t.clock()
	d.Status = StatusResolved
	d.Resolution = resolution
	if d.ResolvedAt.IsZero() {
		d.ResolvedAt = now
	}
	d.UpdatedAt = now
	if err := t.store.UpdateDispute(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Close sets the dispute closed. Unconditional.
func (t *Tracker) Close(ctx context.Context, ref core.Ref) (*Dispute, error) {
	d, err := t.store.DisputeByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	d.Status = StatusClosed
	d.UpdatedAt = t.clock()
	if err := t.store.UpdateDispute(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ByRef returns one dispute.
func (t *Tracker) ByRef(ctx context.Context, ref core.Ref) (*Dispute, error) {
	return t.store.DisputeByRef(ctx, ref)
}

// ListByUser returns the disputes raised by one user, newest first.
func (t *Tracker) ListByUser(ctx context.Context, userID string) ([]Dispute, error) {
	return t.store.ListDisputesByUser(ctx, userID)
}

// List returns all disputes, newest first.
func (t *Tracker) List(ctx context.Context) ([]Dispute, error) {
	return t.store.ListDisputes(ctx)
}
