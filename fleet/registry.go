/*
registry.go - Fleet Registry operations

PURPOSE:
  Register / Approve / AccrueHours / SetStatus / RecordMaintenance over the
  aircraft store. Accrual is a store-level atomic increment so concurrent
  reports from multiple operational sources never lose hours.
*/
package fleet

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
)

// Store is the persistence contract for the registry.
type Store interface {
	// InsertAircraft persists a new aircraft. A duplicate registration
	// number fails with Conflict.
	InsertAircraft(ctx context.Context, a *Aircraft) error
	UpdateAircraft(ctx context.Context, a *Aircraft) error
	AircraftByRef(ctx context.Context, ref core.Ref) (*Aircraft, error)
	ListAircraftByOwner(ctx context.Context, ownerID string) ([]Aircraft, error)
	ListAircraft(ctx context.Context) ([]Aircraft, error)

	// AddFlightHours increments total_flight_hours atomically and returns
	// the refreshed row.
	AddFlightHours(ctx context.Context, ref core.Ref, hours decimal.Decimal) (*Aircraft, error)

	SaveMaintenanceLog(ctx context.Context, l MaintenanceLog) error
	ListMaintenanceLogs(ctx context.Context, aircraftRef core.Ref) ([]MaintenanceLog, error)
}

// RegisterSpec carries the owner-submitted fields for a new aircraft.
type RegisterSpec struct {
	Category                 string
	Manufacturer             string
	Model                    string
	RegistrationNumber       string
	PassengerCapacity        int
	HourlyRateUSD            decimal.Decimal
	MaintenanceIntervalHours decimal.Decimal
}

// Registry runs fleet operations.
type Registry struct {
	store Store
	clock core.Clock
	log   *slog.Logger
}

func NewRegistry(store Store, clock core.Clock, log *slog.Logger) *Registry {
	if clock == nil {
		clock = core.UTCNow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: store, clock: clock, log: log}
}

// Register creates a pending, unapproved aircraft.
func (r *Registry) Register(ctx context.Context, ownerID string, spec RegisterSpec) (*Aircraft, error) {
	if ownerID == "" {
		return nil, core.InvalidArgf("owner_id", "must not be empty")
	}
	if spec.RegistrationNumber == "" {
		return nil, core.InvalidArgf("registration_number", "must not be empty")
	}
	if spec.HourlyRateUSD.IsNegative() {
		return nil, core.InvalidArgf("hourly_rate_usd", "must not be negative, got %s", spec.HourlyRateUSD)
	}
	if spec.MaintenanceIntervalHours.IsNegative() {
		return nil, core.InvalidArgf("maintenance_interval_hours", "must not be negative, got %s", spec.MaintenanceIntervalHours)
	}

	now := r.clock()
	a := &Aircraft{
		Ref:                      core.NewRef(),
		OwnerID:                  ownerID,
		Category:                 spec.Category,
		Manufacturer:             spec.Manufacturer,
		Model:                    spec.Model,
		RegistrationNumber:       spec.RegistrationNumber,
		PassengerCapacity:        spec.PassengerCapacity,
		HourlyRateUSD:            spec.HourlyRateUSD,
		Status:                   StatusPending,
		Approved:                 false,
		TotalFlightHours:         decimal.Zero,
		MaintenanceIntervalHours: spec.MaintenanceIntervalHours,
		LastMaintenanceHours:     decimal.Zero,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := r.store.InsertAircraft(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Approve marks the aircraft approved and lists it as available.
// Idempotent: approving an approved aircraft is a no-op write.
func (r *Registry) Approve(ctx context.Context, ref core.Ref) (*Aircraft, error) {
	a, err := r.store.AircraftByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	a.Approved = true
	a.Status = StatusAvailable
	a.UpdatedAt = r.clock()
	if err := r.store.UpdateAircraft(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AccrueHours atomically adds flight hours and reports whether the aircraft
// is now due for maintenance. Crossing the threshold is logged as an
// operational alert; it does not change the aircraft's status.
func (r *Registry) AccrueHours(ctx context.Context, ref core.Ref, hours decimal.Decimal) (*Aircraft, bool, error) {
	if hours.IsNegative() {
		return nil, false, core.InvalidArgf("hours", "must not be negative, got %s", hours)
	}
	a, err := r.store.AddFlightHours(ctx, ref, hours)
	if err != nil {
		return nil, false, err
	}
	due := a.MaintenanceDue()
	if due {
		r.log.Warn("aircraft maintenance due",
			"aircraft", a.Ref.String(),
			"registration", a.RegistrationNumber,
			"total_flight_hours", a.TotalFlightHours.String(),
			"hours_until_maintenance", a.HoursUntilMaintenance().String())
	}
	return a, due, nil
}

// SetStatus moves the aircraft to any of the five statuses. The registry
// imposes no ordering; maintenance events are operator-driven.
func (r *Registry) SetStatus(ctx context.Context, ref core.Ref, status Status) (*Aircraft, error) {
	if !status.Valid() {
		return nil, core.InvalidArgf("status", "unknown aircraft status %q", status)
	}
	a, err := r.store.AircraftByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	a.Status = status
	a.UpdatedAt = r.clock()
	if err := r.store.UpdateAircraft(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RecordMaintenance appends a maintenance log row. A completed event resets
// last_maintenance_hours to the hours recorded at the event.
func (r *Registry) RecordMaintenance(ctx context.Context, ref core.Ref, l MaintenanceLog) (*MaintenanceLog, error) {
	if !l.Type.Valid() {
		return nil, core.InvalidArgf("maintenance_type", "unknown maintenance type %q", l.Type)
	}
	if l.Status == "" {
		l.Status = MaintenanceCompleted
	}
	if !l.Status.Valid() {
		return nil, core.InvalidArgf("maintenance_status", "unknown maintenance status %q", l.Status)
	}
	if l.FlightHoursAt.IsNegative() {
		return nil, core.InvalidArgf("flight_hours_at", "must not be negative, got %s", l.FlightHoursAt)
	}

	a, err := r.store.AircraftByRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := r.clock()
	l.Ref = core.NewRef()
	l.AircraftRef = a.Ref
	if l.PerformedAt.IsZero() {
		l.PerformedAt = now
	}
	l.CreatedAt = now
	if err := r.store.SaveMaintenanceLog(ctx, l); err != nil {
		return nil, err
	}

	if l.Status == MaintenanceCompleted {
		a.LastMaintenanceHours = l.FlightHoursAt
		a.UpdatedAt = now
		if err := r.store.UpdateAircraft(ctx, a); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

// ByRef returns one aircraft.
func (r *Registry) ByRef(ctx context.Context, ref core.Ref) (*Aircraft, error) {
	return r.store.AircraftByRef(ctx, ref)
}

// ListByOwner returns the owner's aircraft.
func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]Aircraft, error) {
	return r.store.ListAircraftByOwner(ctx, ownerID)
}

// List returns the full registry.
func (r *Registry) List(ctx context.Context) ([]Aircraft, error) {
	return r.store.ListAircraft(ctx)
}

// MaintenanceHistory returns the aircraft's maintenance log, newest first.
func (r *Registry) MaintenanceHistory(ctx context.Context, ref core.Ref) ([]MaintenanceLog, error) {
	if _, err := r.store.AircraftByRef(ctx, ref); err != nil {
		return nil, err
	}
	return r.store.ListMaintenanceLogs(ctx, ref)
}
