/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API contract, decoupled from the domain model.
  Monetary and percentage fields travel as decimal strings, never JSON
  numbers, so clients cannot lose precision in transit.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Handlers validate; DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/vistajets/charter-engine/booking"
	"github.com/vistajets/charter-engine/dispute"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/payments"
	"github.com/vistajets/charter-engine/rates"
)

// ErrorResponse is the uniform error body: the kind and a human-readable
// reason, never internal detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// =============================================================================
// MEMBERSHIP
// =============================================================================

type SubscribeRequest struct {
	Tier         string `json:"tier"`
	BillingCycle string `json:"billing_cycle"`
	AutoRenew    bool   `json:"auto_renew"`
}

type TierDTO struct {
	Name              string `json:"name"`
	DisplayName       string `json:"display_name"`
	Description       string `json:"description,omitempty"`
	MonthlyFeeUSD     string `json:"monthly_fee_usd"`
	AnnualFeeUSD      string `json:"annual_fee_usd"`
	HourlyDiscountPct string `json:"hourly_discount_pct"`
	PriorityBooking   bool   `json:"priority_booking"`
	DedicatedSupport  bool   `json:"dedicated_support"`
	ExclusiveListings bool   `json:"exclusive_listings"`
	MaxMonthlyBookings int   `json:"max_monthly_bookings"`
}

type MembershipDTO struct {
	Ref           string `json:"ref"`
	ClientID      string `json:"client_id"`
	Tier          string `json:"tier"`
	Status        string `json:"status"`
	BillingCycle  string `json:"billing_cycle"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date,omitempty"`
	AutoRenew     bool   `json:"auto_renew"`
	AmountPaidUSD string `json:"amount_paid_usd"`
	IsActive      bool   `json:"is_active"`
	DaysRemaining *int   `json:"days_remaining,omitempty"`
}

func toTierDTO(t membership.Tier) TierDTO {
	return TierDTO{
		Name:               t.Name,
		DisplayName:        t.DisplayName,
		Description:        t.Description,
		MonthlyFeeUSD:      t.MonthlyFeeUSD.StringFixed(2),
		AnnualFeeUSD:       t.AnnualFeeUSD.StringFixed(2),
		HourlyDiscountPct:  t.HourlyDiscountPct.String(),
		PriorityBooking:    t.PriorityBooking,
		DedicatedSupport:   t.DedicatedSupport,
		ExclusiveListings:  t.ExclusiveListings,
		MaxMonthlyBookings: t.MaxMonthlyBookings,
	}
}

func toMembershipDTO(m *membership.Membership, now time.Time) MembershipDTO {
	dto := MembershipDTO{
		Ref:           m.Ref.String(),
		ClientID:      m.ClientID,
		Tier:          m.TierName,
		Status:        string(m.Status),
		BillingCycle:  string(m.Cycle),
		StartDate:     m.StartDate.Format("2006-01-02"),
		AutoRenew:     m.AutoRenew,
		AmountPaidUSD: m.AmountPaidUSD.StringFixed(2),
		IsActive:      m.IsActive(now),
	}
	if !m.EndDate.IsZero() {
		dto.EndDate = m.EndDate.Format("2006-01-02")
	}
	if days, ok := m.DaysRemaining(now); ok {
		dto.DaysRemaining = &days
	}
	return dto
}

// =============================================================================
// FLEET
// =============================================================================

type RegisterAircraftRequest struct {
	Category                 string `json:"category"`
	Manufacturer             string `json:"manufacturer"`
	Model                    string `json:"model"`
	RegistrationNumber       string `json:"registration_number"`
	PassengerCapacity        int    `json:"passenger_capacity"`
	HourlyRateUSD            string `json:"hourly_rate_usd"`
	MaintenanceIntervalHours string `json:"maintenance_interval_hours"`
}

type AccrueHoursRequest struct {
	Hours string `json:"hours"`
}

type SetAircraftStatusRequest struct {
	Status string `json:"status"`
}

type RecordMaintenanceRequest struct {
	Type          string `json:"type"`
	Status        string `json:"status,omitempty"`
	FlightHoursAt string `json:"flight_hours_at"`
	CostUSD       string `json:"cost_usd,omitempty"`
	Technician    string `json:"technician,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type AircraftDTO struct {
	Ref                      string `json:"ref"`
	OwnerID                  string `json:"owner_id"`
	Category                 string `json:"category,omitempty"`
	Manufacturer             string `json:"manufacturer,omitempty"`
	Model                    string `json:"model,omitempty"`
	RegistrationNumber       string `json:"registration_number"`
	PassengerCapacity        int    `json:"passenger_capacity"`
	HourlyRateUSD            string `json:"hourly_rate_usd"`
	Status                   string `json:"status"`
	Approved                 bool   `json:"approved"`
	TotalFlightHours         string `json:"total_flight_hours"`
	MaintenanceIntervalHours string `json:"maintenance_interval_hours"`
	LastMaintenanceHours     string `json:"last_maintenance_hours"`
	HoursUntilMaintenance    string `json:"hours_until_maintenance"`
	MaintenanceDue           bool   `json:"maintenance_due"`
	Eligible                 bool   `json:"eligible"`
}

func toAircraftDTO(a *fleet.Aircraft) AircraftDTO {
	return AircraftDTO{
		Ref:                      a.Ref.String(),
		OwnerID:                  a.OwnerID,
		Category:                 a.Category,
		Manufacturer:             a.Manufacturer,
		Model:                    a.Model,
		RegistrationNumber:       a.RegistrationNumber,
		PassengerCapacity:        a.PassengerCapacity,
		HourlyRateUSD:            a.HourlyRateUSD.StringFixed(2),
		Status:                   string(a.Status),
		Approved:                 a.Approved,
		TotalFlightHours:         a.TotalFlightHours.String(),
		MaintenanceIntervalHours: a.MaintenanceIntervalHours.String(),
		LastMaintenanceHours:     a.LastMaintenanceHours.String(),
		HoursUntilMaintenance:    a.HoursUntilMaintenance().String(),
		MaintenanceDue:           a.MaintenanceDue(),
		Eligible:                 a.Eligible(),
	}
}

type MaintenanceLogDTO struct {
	Ref           string `json:"ref"`
	AircraftRef   string `json:"aircraft_ref"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	FlightHoursAt string `json:"flight_hours_at"`
	CostUSD       string `json:"cost_usd"`
	Technician    string `json:"technician,omitempty"`
	Notes         string `json:"notes,omitempty"`
	PerformedAt   string `json:"performed_at"`
}

func toMaintenanceLogDTO(l fleet.MaintenanceLog) MaintenanceLogDTO {
	return MaintenanceLogDTO{
		Ref:           l.Ref.String(),
		AircraftRef:   l.AircraftRef.String(),
		Type:          string(l.Type),
		Status:        string(l.Status),
		FlightHoursAt: l.FlightHoursAt.String(),
		CostUSD:       l.CostUSD.StringFixed(2),
		Technician:    l.Technician,
		Notes:         l.Notes,
		PerformedAt:   l.PerformedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// BOOKING
// =============================================================================

type CreateBookingRequest struct {
	AircraftRef    string `json:"aircraft_ref"`
	TripType       string `json:"trip_type"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureAt    string `json:"departure_at"`          // RFC 3339
	ReturnAt       string `json:"return_at,omitempty"`   // RFC 3339, round trips
	PassengerCount int    `json:"passenger_count"`
	EstimatedHours string `json:"estimated_hours"`
}

type SetBookingStatusRequest struct {
	Status string `json:"status"`
}

type ConfirmPaymentRequest struct {
	BookingRef  string `json:"booking_ref"`
	ProcessorID string `json:"processor_id,omitempty"`
}

type BookingDTO struct {
	Ref                string `json:"ref"`
	ClientID           string `json:"client_id"`
	AircraftRef        string `json:"aircraft_ref"`
	MembershipRef      string `json:"membership_ref"`
	TripType           string `json:"trip_type"`
	Origin             string `json:"origin"`
	Destination        string `json:"destination"`
	DepartureAt        string `json:"departure_at"`
	ReturnAt           string `json:"return_at,omitempty"`
	PassengerCount     int    `json:"passenger_count"`
	EstimatedHours     string `json:"estimated_hours"`
	Status             string `json:"status"`
	PaymentStatus      string `json:"payment_status"`
	HourlyRateUSD      string `json:"hourly_rate_usd"`
	DiscountAppliedPct string `json:"discount_applied_pct"`
	CommissionPct      string `json:"commission_pct"`
	GrossAmountUSD     string `json:"gross_amount_usd"`
	CommissionUSD      string `json:"commission_usd"`
	NetOwnerUSD        string `json:"net_owner_usd"`
	CreatedAt          string `json:"created_at"`
}

func toBookingDTO(b *booking.Booking) BookingDTO {
	dto := BookingDTO{
		Ref:                b.Ref.String(),
		ClientID:           b.ClientID,
		AircraftRef:        b.AircraftRef.String(),
		MembershipRef:      b.MembershipRef.String(),
		TripType:           string(b.Trip.Type),
		Origin:             b.Trip.Origin,
		Destination:        b.Trip.Destination,
		DepartureAt:        b.Trip.DepartureAt.Format(time.RFC3339),
		PassengerCount:     b.Trip.PassengerCount,
		EstimatedHours:     b.Trip.EstimatedHours.String(),
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		HourlyRateUSD:      b.HourlyRateUSD.StringFixed(2),
		DiscountAppliedPct: b.DiscountAppliedPct.String(),
		CommissionPct:      b.CommissionPct.String(),
		GrossAmountUSD:     b.GrossAmountUSD.StringFixed(2),
		CommissionUSD:      b.CommissionUSD.StringFixed(2),
		NetOwnerUSD:        b.NetOwnerUSD.StringFixed(2),
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
	}
	if !b.Trip.ReturnAt.IsZero() {
		dto.ReturnAt = b.Trip.ReturnAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// DISPUTE
// =============================================================================

type OpenDisputeRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
}

type ResolveDisputeRequest struct {
	Resolution string `json:"resolution"`
}

type DisputeDTO struct {
	Ref         string `json:"ref"`
	BookingRef  string `json:"booking_ref"`
	RaisedBy    string `json:"raised_by"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Resolution  string `json:"resolution,omitempty"`
	ResolvedAt  string `json:"resolved_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toDisputeDTO(d *dispute.Dispute) DisputeDTO {
	dto := DisputeDTO{
		Ref:         d.Ref.String(),
		BookingRef:  d.BookingRef.String(),
		RaisedBy:    d.RaisedBy,
		Subject:     d.Subject,
		Description: d.Description,
		Status:      string(d.Status),
		Resolution:  d.Resolution,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
	if !d.ResolvedAt.IsZero() {
		dto.ResolvedAt = d.ResolvedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// COMMISSION
// =============================================================================

type AddCommissionRequest struct {
	RatePct       string `json:"rate_pct"`
	EffectiveFrom string `json:"effective_from"` // YYYY-MM-DD
	Note          string `json:"note,omitempty"`
}

type CommissionDTO struct {
	Ref           string `json:"ref"`
	RatePct       string `json:"rate_pct"`
	EffectiveFrom string `json:"effective_from"`
	Note          string `json:"note,omitempty"`
	SetBy         string `json:"set_by,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toCommissionDTO(s rates.Setting) CommissionDTO {
	return CommissionDTO{
		Ref:           s.Ref.String(),
		RatePct:       s.RatePct.String(),
		EffectiveFrom: s.EffectiveFrom.Format("2006-01-02"),
		Note:          s.Note,
		SetBy:         s.SetBy,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentDTO struct {
	Ref           string `json:"ref"`
	UserID        string `json:"user_id"`
	BookingRef    string `json:"booking_ref,omitempty"`
	MembershipRef string `json:"membership_ref,omitempty"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	AmountUSD     string `json:"amount_usd"`
	Currency      string `json:"currency"`
	ProcessorID   string `json:"processor_id,omitempty"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toPaymentDTO(r payments.Record) PaymentDTO {
	return PaymentDTO{
		Ref:           r.Ref.String(),
		UserID:        r.UserID,
		BookingRef:    r.BookingRef.String(),
		MembershipRef: r.MembershipRef.String(),
		Type:          string(r.Type),
		Status:        string(r.Status),
		AmountUSD:     r.AmountUSD.StringFixed(2),
		Currency:      r.Currency,
		ProcessorID:   r.ProcessorID,
		Description:   r.Description,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}
