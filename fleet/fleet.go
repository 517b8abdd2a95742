/*
Package fleet is the Fleet Registry.

PURPOSE:
  Holds owner-submitted aircraft, their approval/listing state and the
  flight-hour counters that drive the maintenance threshold. Registration
  numbers are globally unique. Approval (admin gate) and listing status are
  independent axes: an aircraft is eligible for new bookings iff it is
  approved AND its status is available.

MAINTENANCE MODEL:
  hours_until_maintenance = interval - (total_hours - last_maintenance_hours)
  maintenance_due         = hours_until_maintenance <= 0

  Crossing the threshold is a soft alert: accrual reports the refreshed
  flag so operators can act, but the flag alone does not block bookings
  and does not change the aircraft's status. Moving to the maintenance
  status is a separate explicit action. A completed maintenance event
  resets last_maintenance_hours to the hours recorded at that event.
*/
package fleet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
)

// =============================================================================
// AIRCRAFT
// =============================================================================

type Status string

const (
	StatusPending     Status = "pending"
	StatusAvailable   Status = "available"
	StatusInFlight    Status = "in_flight"
	StatusMaintenance Status = "maintenance"
	StatusInactive    Status = "inactive"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAvailable, StatusInFlight, StatusMaintenance, StatusInactive:
		return true
	}
	return false
}

// Aircraft is one fleet entry, owned by exactly one fleet-owner identity.
type Aircraft struct {
	Ref                      core.Ref
	OwnerID                  string
	Category                 string // "light_jet", "midsize_jet", "heavy_jet", ...
	Manufacturer             string
	Model                    string
	RegistrationNumber       string // globally unique
	PassengerCapacity        int
	HourlyRateUSD            decimal.Decimal
	Status                   Status
	Approved                 bool // admin gate, independent of Status
	TotalFlightHours         decimal.Decimal
	MaintenanceIntervalHours decimal.Decimal
	LastMaintenanceHours     decimal.Decimal
	InsuranceExpiry          time.Time // zero = not recorded
	AirworthinessExpiry      time.Time // zero = not recorded
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// HoursUntilMaintenance is interval - (total - last_maintenance). Negative
// when the aircraft is overdue.
func (a *Aircraft) HoursUntilMaintenance() decimal.Decimal {
	return a.MaintenanceIntervalHours.Sub(a.TotalFlightHours.Sub(a.LastMaintenanceHours))
}

// MaintenanceDue holds when the interval has been consumed.
func (a *Aircraft) MaintenanceDue() bool {
	return a.HoursUntilMaintenance().LessThanOrEqual(decimal.Zero)
}

// Eligible reports whether the aircraft can take new bookings. The
// maintenance flag is deliberately not part of this check.
func (a *Aircraft) Eligible() bool {
	return a.Approved && a.Status == StatusAvailable
}

// =============================================================================
// MAINTENANCE LOG
// =============================================================================

type MaintenanceType string

const (
	MaintenanceRoutine    MaintenanceType = "routine"
	MaintenanceRepair     MaintenanceType = "repair"
	MaintenanceInspection MaintenanceType = "inspection"
	MaintenanceUpgrade    MaintenanceType = "upgrade"
	MaintenanceEmergency  MaintenanceType = "emergency"
)

func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenanceRoutine, MaintenanceRepair, MaintenanceInspection,
		MaintenanceUpgrade, MaintenanceEmergency:
		return true
	}
	return false
}

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	}
	return false
}

// MaintenanceLog is one maintenance event against an aircraft.
type MaintenanceLog struct {
	Ref           core.Ref
	AircraftRef   core.Ref
	Type          MaintenanceType
	Status        MaintenanceStatus
	FlightHoursAt decimal.Decimal // total flight hours when the event occurred
	CostUSD       decimal.Decimal
	Technician    string
	Notes         string
	PerformedAt   time.Time
	CreatedAt     time.Time
}
