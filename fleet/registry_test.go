package fleet_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRegistry(t *testing.T) *fleet.Registry {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return fleet.NewRegistry(store, nil, nil)
}

func gulfstream(reg string) fleet.RegisterSpec {
	return fleet.RegisterSpec{
		Category:                 "heavy_jet",
		Manufacturer:             "Gulfstream",
		Model:                    "G650",
		RegistrationNumber:       reg,
		PassengerCapacity:        14,
		HourlyRateUSD:            decimal.NewFromInt(10000),
		MaintenanceIntervalHours: decimal.NewFromInt(100),
	}
}

// =============================================================================
// REGISTRATION
// =============================================================================

func TestRegister_StartsPendingUnapproved(t *testing.T) {
	reg := newTestRegistry(t)

	a, err := reg.Register(context.Background(), "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	assert.Equal(t, fleet.StatusPending, a.Status)
	assert.False(t, a.Approved)
	assert.False(t, a.Eligible())
	assert.True(t, a.TotalFlightHours.IsZero())
}

func TestRegister_DuplicateRegistrationNumber(t *testing.T) {
	// GIVEN: N100VJ is registered
	// WHEN: A second owner registers the same number
	// THEN: Conflict

	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	_, err = reg.Register(ctx, "owner-2", gulfstream("N100VJ"))
	assert.True(t, core.IsConflict(err))
}

func TestApprove_Idempotent(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	a, err = reg.Approve(ctx, a.Ref)
	require.NoError(t, err)
	assert.True(t, a.Approved)
	assert.Equal(t, fleet.StatusAvailable, a.Status)
	assert.True(t, a.Eligible())

	// Approving again changes nothing
	a, err = reg.Approve(ctx, a.Ref)
	require.NoError(t, err)
	assert.True(t, a.Approved)
	assert.Equal(t, fleet.StatusAvailable, a.Status)
}

func TestApprove_UnknownAircraft(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Approve(context.Background(), core.NewRef())
	assert.True(t, core.IsNotFound(err))
}

// =============================================================================
// MAINTENANCE THRESHOLD
// =============================================================================

func TestAccrueHours_MaintenanceThreshold(t *testing.T) {
	// GIVEN: interval 100h, last maintenance at 0h
	// WHEN: 99 hours accrue
	// THEN: not due; one more hour flips the flag

	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	a, due, err := reg.AccrueHours(ctx, a.Ref, decimal.NewFromInt(99))
	require.NoError(t, err)
	assert.False(t, due)
	assert.True(t, a.HoursUntilMaintenance().Equal(decimal.NewFromInt(1)))

	a, due, err = reg.AccrueHours(ctx, a.Ref, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, due)
	assert.True(t, a.TotalFlightHours.Equal(decimal.NewFromInt(100)))
	assert.True(t, a.HoursUntilMaintenance().IsZero())
}

func TestAccrueHours_NegativeRejected(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	_, _, err = reg.AccrueHours(ctx, a.Ref, decimal.NewFromInt(-1))
	assert.True(t, core.IsInvalidArgument(err))
}

func TestAccrueHours_ConcurrentAccrualsNeverLost(t *testing.T) {
	// GIVEN: 20 operational sources reporting 5 hours each, concurrently
	// THEN: Exactly 100 hours on the counter

	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, _, err := reg.AccrueHours(ctx, a.Ref, decimal.NewFromInt(5))
			done <- err
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	refreshed, err := reg.ByRef(ctx, a.Ref)
	require.NoError(t, err)
	assert.True(t, refreshed.TotalFlightHours.Equal(decimal.NewFromInt(100)),
		"total = %s", refreshed.TotalFlightHours)
}

func TestRecordMaintenance_CompletedResetsCounter(t *testing.T) {
	// GIVEN: An aircraft due for maintenance at 100h
	// WHEN: A completed maintenance event at 100h is recorded
	// THEN: last_maintenance_hours resets, the flag clears

	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	_, due, err := reg.AccrueHours(ctx, a.Ref, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.True(t, due)

	_, err = reg.RecordMaintenance(ctx, a.Ref, fleet.MaintenanceLog{
		Type:          fleet.MaintenanceRoutine,
		Status:        fleet.MaintenanceCompleted,
		FlightHoursAt: decimal.NewFromInt(100),
		Technician:    "J. Alvarez",
		PerformedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	refreshed, err := reg.ByRef(ctx, a.Ref)
	require.NoError(t, err)
	assert.True(t, refreshed.LastMaintenanceHours.Equal(decimal.NewFromInt(100)))
	assert.False(t, refreshed.MaintenanceDue())
	assert.True(t, refreshed.HoursUntilMaintenance().Equal(decimal.NewFromInt(100)))
}

func TestRecordMaintenance_ScheduledDoesNotReset(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)
	_, _, err = reg.AccrueHours(ctx, a.Ref, decimal.NewFromInt(50))
	require.NoError(t, err)

	_, err = reg.RecordMaintenance(ctx, a.Ref, fleet.MaintenanceLog{
		Type:          fleet.MaintenanceInspection,
		Status:        fleet.MaintenanceScheduled,
		FlightHoursAt: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	refreshed, err := reg.ByRef(ctx, a.Ref)
	require.NoError(t, err)
	assert.True(t, refreshed.LastMaintenanceHours.IsZero(), "scheduled events must not reset")
}

func TestRecordMaintenance_UnknownType(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	_, err = reg.RecordMaintenance(ctx, a.Ref, fleet.MaintenanceLog{
		Type:          "detailing",
		FlightHoursAt: decimal.Zero,
	})
	assert.True(t, core.IsInvalidArgument(err))
}

// =============================================================================
// STATUS
// =============================================================================

func TestSetStatus_FreeTransitions(t *testing.T) {
	// Any status is reachable from any status; no ordering is enforced.
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	for _, status := range []fleet.Status{
		fleet.StatusMaintenance, fleet.StatusAvailable,
		fleet.StatusInFlight, fleet.StatusInactive, fleet.StatusPending,
	} {
		a, err = reg.SetStatus(ctx, a.Ref, status)
		require.NoError(t, err)
		assert.Equal(t, status, a.Status)
	}
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)

	_, err = reg.SetStatus(ctx, a.Ref, "grounded")
	assert.True(t, core.IsInvalidArgument(err))
}

func TestEligibility_MaintenanceDueIsSoftAlert(t *testing.T) {
	// A maintenance-due aircraft that is approved and available stays
	// bookable; the flag alerts operators, it does not gate.
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Register(ctx, "owner-1", gulfstream("N100VJ"))
	require.NoError(t, err)
	_, err = reg.Approve(ctx, a.Ref)
	require.NoError(t, err)

	_, due, err := reg.AccrueHours(ctx, a.Ref, decimal.NewFromInt(150))
	require.NoError(t, err)
	require.True(t, due)

	refreshed, err := reg.ByRef(ctx, a.Ref)
	require.NoError(t, err)
	assert.True(t, refreshed.Eligible())
}
