package dispute_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistajets/charter-engine/booking"
	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/dispute"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// newTestTracker wires a tracker over the real booking service so opening
// a dispute exercises the booking flag.
func newTestTracker(t *testing.T) (*dispute.Tracker, *booking.Service, core.Ref) {
	ctx := context.Background()
	store := memory.New()

	members := membership.NewService(store, store, testClock)
	require.NoError(t, members.SeedDefaultTiers(ctx))
	_, err := members.Subscribe(ctx, "client-1", "premium", membership.CycleAnnual, false)
	require.NoError(t, err)

	registry := fleet.NewRegistry(store, testClock, nil)
	a, err := registry.Register(ctx, "owner-1", fleet.RegisterSpec{
		RegistrationNumber:       "N100VJ",
		PassengerCapacity:        10,
		HourlyRateUSD:            decimal.NewFromInt(8000),
		MaintenanceIntervalHours: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	_, err = registry.Approve(ctx, a.Ref)
	require.NoError(t, err)

	bookings := booking.NewService(store, store, nil, decimal.Decimal{}, testClock, nil)
	b, err := bookings.Create(ctx, "client-1", a.Ref, booking.Trip{
		Type:           booking.TripOneWay,
		Origin:         "TEB",
		Destination:    "ASE",
		DepartureAt:    testNow.AddDate(0, 0, 3),
		PassengerCount: 2,
		EstimatedHours: decimal.NewFromInt(4),
	})
	require.NoError(t, err)

	return dispute.NewTracker(store, bookings, testClock), bookings, b.Ref
}

// =============================================================================
// OPEN
// =============================================================================

func TestOpen_FlagsBookingDisputed(t *testing.T) {
	// GIVEN: A pending booking
	// WHEN: The client opens a dispute
	// THEN: The dispute is open and the booking moves to disputed

	tracker, bookings, bookingRef := newTestTracker(t)
	ctx := context.Background()

	d, err := tracker.Open(ctx, bookingRef, "client-1", "Catering missing", "No catering was loaded despite the order.")
	require.NoError(t, err)

	assert.Equal(t, dispute.StatusOpen, d.Status)
	assert.Equal(t, bookingRef, d.BookingRef)
	assert.Equal(t, "client-1", d.RaisedBy)
	assert.True(t, d.ResolvedAt.IsZero())

	b, err := bookings.ByRef(ctx, bookingRef)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusDisputed, b.Status)
}

func TestOpen_AllowedOnCompletedBooking(t *testing.T) {
	// Disputes typically arrive after the flight; terminal statuses do not
	// block them.
	tracker, bookings, bookingRef := newTestTracker(t)
	ctx := context.Background()

	_, err := bookings.SetStatus(ctx, bookingRef, booking.StatusCompleted)
	require.NoError(t, err)

	_, err = tracker.Open(ctx, bookingRef, "client-1", "Billing error", "")
	require.NoError(t, err)

	b, err := bookings.ByRef(ctx, bookingRef)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusDisputed, b.Status)
}

func TestOpen_MultiplePerBooking(t *testing.T) {
	tracker, _, bookingRef := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Open(ctx, bookingRef, "client-1", "First issue", "")
	require.NoError(t, err)
	_, err = tracker.Open(ctx, bookingRef, "client-1", "Second issue", "")
	require.NoError(t, err)

	all, err := tracker.ListByUser(ctx, "client-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOpen_EmptySubject(t *testing.T) {
	tracker, _, bookingRef := newTestTracker(t)

	_, err := tracker.Open(context.Background(), bookingRef, "client-1", "", "details")
	assert.True(t, core.IsInvalidArgument(err))
}

func TestOpen_UnknownBooking(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	_, err := tracker.Open(context.Background(), core.NewRef(), "client-1", "Lost bag", "")
	assert.True(t, core.IsNotFound(err))
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestReview_OnlyFromOpen(t *testing.T) {
	tracker, _, bookingRef := newTestTracker(t)
	ctx := context.Background()

	d, err := tracker.Open(ctx, bookingRef, "client-1", "Catering missing", "")
	require.NoError(t, err)

	d, err = tracker.Review(ctx, d.Ref)
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusReviewing, d.Status)

	// Already reviewing
	_, err = tracker.Review(ctx, d.Ref)
	assert.True(t, core.IsConflict(err))
}

func TestResolve_StampsResolvedAtOnce(t *testing.T) {
	// GIVEN: A dispute under review
	// WHEN: It is resolved, and resolved again with amended text
	// THEN: resolved_at is stamped on the first resolve and never moves

	tracker, _, bookingRef := newTestTracker(t)
	ctx := context.Background()

	d, err := tracker.Open(ctx, bookingRef, "client-1", "Catering missing", "")
	require.NoError(t, err)
	_, err = tracker.Review(ctx, d.Ref)
	require.NoError(t, err)

	resolved, err := tracker.Resolve(ctx, d.Ref, "Credited $500 to account")
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusResolved, resolved.Status)
	assert.Equal(t, testNow, resolved.ResolvedAt)

	again, err := tracker.Resolve(ctx, d.Ref, "Credited $500 to account; apology sent")
	require.NoError(t, err)
	assert.Equal(t, "Credited $500 to account; apology sent", again.Resolution)
	assert.Equal(t, resolved.ResolvedAt, again.ResolvedAt, "resolved_at must not move")
}

func TestResolve_DirectlyFromOpen(t *testing.T) {
	tracker, _, bookingRef := newTestTracker(t)
	ctx := context.Background()

	d, err := tracker.Open(ctx, bookingRef, "client-1", "Catering missing", "")
	require.NoError(t, err)

	resolved, err := tracker.Resolve(ctx, d.Ref, "Refunded catering fee")
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusResolved, resolved.Status)
}

func TestResolve_ClosedIsFinal(t *testing.T) {
	tracker, _, bookingRef := newTestTracker(t)
	ctx := context.Background()

	d, err := tracker.Open(ctx, bookingRef, "client-1", "Catering missing", "")
	require.NoError(t, err)
	_, err = tracker.Close(ctx, d.Ref)
	require.NoError(t, err)

	_, err = tracker.Resolve(ctx, d.Ref, "too late")
	assert.True(t, core.IsConflict(err))
}

func TestClose_Unconditional(t *testing.T) {
	tracker, _, bookingRef := newTestTracker(t)
	ctx := context.Background()

	d, err := tracker.Open(ctx, bookingRef, "client-1", "Catering missing", "")
	require.NoError(t, err)

	closed, err := tracker.Close(ctx, d.Ref)
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusClosed, closed.Status)
	assert.True(t, closed.ResolvedAt.IsZero(), "closing without resolving leaves no resolution stamp")
}
