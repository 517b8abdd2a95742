/*
handlers.go - HTTP API handlers for the charter marketplace engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the domain services.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, registry, tracker)
  4. Serialize response
  5. Map domain errors to status codes

ERROR HANDLING:
  Domain errors map by kind:
  - 400: invalid_argument
  - 404: not_found
  - 409: conflict
  - 412: precondition_failed
  - 500: everything else (reason withheld from the body)

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Authentication and role gates
  - server.go: Router setup
*/
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/booking"
	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/dispute"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/payments"
	"github.com/vistajets/charter-engine/rates"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Memberships *membership.Service
	Fleet       *fleet.Registry
	Bookings    *booking.Service
	Disputes    *dispute.Tracker
	Rates       *rates.Ledger
	Payments    payments.Store
	Clock       core.Clock
	Log         *slog.Logger
}

// NewHandler creates a handler over the wired services.
func NewHandler(memberships *membership.Service, registry *fleet.Registry,
	bookings *booking.Service, disputes *dispute.Tracker, ledger *rates.Ledger,
	pay payments.Store, clock core.Clock, log *slog.Logger) *Handler {
	if clock == nil {
		clock = core.UTCNow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Memberships: memberships,
		Fleet:       registry,
		Bookings:    bookings,
		Disputes:    disputes,
		Rates:       ledger,
		Payments:    pay,
		Clock:       clock,
		Log:         log,
	}
}

// =============================================================================
// MEMBERSHIP HANDLERS
// =============================================================================

// Subscribe activates (or replaces) the caller's membership.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}

	m, err := h.Memberships.Subscribe(r.Context(), p.Subject, req.Tier,
		membership.Cycle(req.BillingCycle), req.AutoRenew)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMembershipDTO(m, h.Clock()))
}

// GetMyMembership returns the caller's membership row.
func (h *Handler) GetMyMembership(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	m, err := h.Memberships.ByClient(r.Context(), p.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMembershipDTO(m, h.Clock()))
}

// ListTiers returns the tier catalog. Public.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.Memberships.Tiers(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]TierDTO, 0, len(tiers))
	for _, t := range tiers {
		if t.Active {
			dtos = append(dtos, toTierDTO(t))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// FLEET HANDLERS
// =============================================================================

// RegisterAircraft creates a pending, unapproved aircraft for the caller.
func (h *Handler) RegisterAircraft(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req RegisterAircraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	hourlyRate, err := parseDecimalField("hourly_rate_usd", req.HourlyRateUSD)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	interval, err := parseDecimalField("maintenance_interval_hours", req.MaintenanceIntervalHours)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	a, err := h.Fleet.Register(r.Context(), p.Subject, fleet.RegisterSpec{
		Category:                 req.Category,
		Manufacturer:             req.Manufacturer,
		Model:                    req.Model,
		RegistrationNumber:       req.RegistrationNumber,
		PassengerCapacity:        req.PassengerCapacity,
		HourlyRateUSD:            hourlyRate,
		MaintenanceIntervalHours: interval,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAircraftDTO(a))
}

// ListAircraft returns the caller's aircraft, or the whole registry for
// an admin.
func (h *Handler) ListAircraft(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var aircraft []fleet.Aircraft
	var err error
	if p.Role == RoleAdmin {
		aircraft, err = h.Fleet.List(r.Context())
	} else {
		aircraft, err = h.Fleet.ListByOwner(r.Context(), p.Subject)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]AircraftDTO, len(aircraft))
	for i := range aircraft {
		dtos[i] = toAircraftDTO(&aircraft[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AccrueHours adds flight hours to the caller's aircraft and reports the
// refreshed maintenance flag.
func (h *Handler) AccrueHours(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	var req AccrueHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	hours, err := parseDecimalField("hours", req.Hours)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !h.ownsAircraft(w, r, ref) {
		return
	}

	a, due, err := h.Fleet.AccrueHours(r.Context(), ref, hours)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"aircraft":        toAircraftDTO(a),
		"maintenance_due": due,
	})
}

// RecordMaintenance appends a maintenance event to the caller's aircraft.
func (h *Handler) RecordMaintenance(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	var req RecordMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	hoursAt, err := parseDecimalField("flight_hours_at", req.FlightHoursAt)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	cost := decimal.Zero
	if req.CostUSD != "" {
		if cost, err = parseDecimalField("cost_usd", req.CostUSD); err != nil {
			h.writeDomainError(w, err)
			return
		}
	}
	if !h.ownsAircraft(w, r, ref) {
		return
	}

	l, err := h.Fleet.RecordMaintenance(r.Context(), ref, fleet.MaintenanceLog{
		Type:          fleet.MaintenanceType(req.Type),
		Status:        fleet.MaintenanceStatus(req.Status),
		FlightHoursAt: hoursAt,
		CostUSD:       cost,
		Technician:    req.Technician,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaintenanceLogDTO(*l))
}

// ListMaintenance returns the aircraft's maintenance log, newest first.
func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	if !h.ownsAircraft(w, r, ref) {
		return
	}
	logs, err := h.Fleet.MaintenanceHistory(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]MaintenanceLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = toMaintenanceLogDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveAircraft marks an aircraft approved and available. Admin only;
// idempotent.
func (h *Handler) ApproveAircraft(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	a, err := h.Fleet.Approve(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAircraftDTO(a))
}

// SetAircraftStatus moves an aircraft to any of the five statuses.
func (h *Handler) SetAircraftStatus(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	var req SetAircraftStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	a, err := h.Fleet.SetStatus(r.Context(), ref, fleet.Status(req.Status))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAircraftDTO(a))
}

// ownsAircraft enforces that non-admin callers only touch their own
// aircraft. Writes the response on failure.
func (h *Handler) ownsAircraft(w http.ResponseWriter, r *http.Request, ref core.Ref) bool {
	p, _ := PrincipalFrom(r.Context())
	if p.Role == RoleAdmin {
		return true
	}
	a, err := h.Fleet.ByRef(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err)
		return false
	}
	if a.OwnerID != p.Subject {
		writeError(w, http.StatusForbidden, "forbidden", "not the aircraft owner")
		return false
	}
	return true
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking prices and records a charter booking for the caller.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	aircraftRef := core.Ref(req.AircraftRef)
	if !aircraftRef.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_argument", "aircraft_ref: malformed reference")
		return
	}
	hours, err := parseDecimalField("estimated_hours", req.EstimatedHours)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	departureAt, err := parseTimeField("departure_at", req.DepartureAt)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	var returnAt time.Time
	if req.ReturnAt != "" {
		if returnAt, err = parseTimeField("return_at", req.ReturnAt); err != nil {
			h.writeDomainError(w, err)
			return
		}
	}

	b, err := h.Bookings.Create(r.Context(), p.Subject, aircraftRef, booking.Trip{
		Type:           booking.TripType(req.TripType),
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureAt:    departureAt,
		ReturnAt:       returnAt,
		PassengerCount: req.PassengerCount,
		EstimatedHours: hours,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

// ListBookings returns the caller's bookings, or all bookings for an
// admin.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var bookings []booking.Booking
	var err error
	if p.Role == RoleAdmin {
		bookings, err = h.Bookings.List(r.Context())
	} else {
		bookings, err = h.Bookings.ListByClient(r.Context(), p.Subject)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]BookingDTO, len(bookings))
	for i := range bookings {
		dtos[i] = toBookingDTO(&bookings[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBooking returns one booking. Clients see only their own.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.ByRef(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	p, _ := PrincipalFrom(r.Context())
	if p.Role != RoleAdmin && b.ClientID != p.Subject {
		writeError(w, http.StatusNotFound, "not_found", "booking not found")
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// CancelBooking cancels a booking that is not completed or in flight.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	p, _ := PrincipalFrom(r.Context())
	if p.Role != RoleAdmin {
		b, err := h.Bookings.ByRef(r.Context(), ref)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		if b.ClientID != p.Subject {
			writeError(w, http.StatusNotFound, "not_found", "booking not found")
			return
		}
	}
	b, err := h.Bookings.Cancel(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// SetBookingStatus is the admin status write.
func (h *Handler) SetBookingStatus(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	var req SetBookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	b, err := h.Bookings.SetStatus(r.Context(), ref, booking.Status(req.Status))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// ConfirmPayment records an external payment confirmation against a
// booking.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	ref := core.Ref(req.BookingRef)
	if !ref.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_argument", "booking_ref: malformed reference")
		return
	}
	b, err := h.Bookings.ConfirmPayment(r.Context(), ref, req.ProcessorID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// ListPayments returns the caller's payment records, or all for an admin.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var records []payments.Record
	var err error
	if p.Role == RoleAdmin {
		records, err = h.Payments.ListPayments(r.Context())
	} else {
		records, err = h.Payments.ListPaymentsByUser(r.Context(), p.Subject)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]PaymentDTO, len(records))
	for i, rec := range records {
		dtos[i] = toPaymentDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DISPUTE HANDLERS
// =============================================================================

// OpenDispute raises a dispute against a booking the caller owns.
func (h *Handler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	var req OpenDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	p, _ := PrincipalFrom(r.Context())
	if p.Role != RoleAdmin {
		b, err := h.Bookings.ByRef(r.Context(), ref)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		if b.ClientID != p.Subject {
			writeError(w, http.StatusNotFound, "not_found", "booking not found")
			return
		}
	}

	d, err := h.Disputes.Open(r.Context(), ref, p.Subject, req.Subject, req.Description)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDisputeDTO(d))
}

// ListDisputes returns the caller's disputes, or all for an admin.
func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var disputes []dispute.Dispute
	var err error
	if p.Role == RoleAdmin {
		disputes, err = h.Disputes.List(r.Context())
	} else {
		disputes, err = h.Disputes.ListByUser(r.Context(), p.Subject)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]DisputeDTO, len(disputes))
	for i := range disputes {
		dtos[i] = toDisputeDTO(&disputes[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReviewDispute moves an open dispute under review.
func (h *Handler) ReviewDispute(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	d, err := h.Disputes.Review(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeDTO(d))
}

// ResolveDispute records the resolution and stamps resolved_at.
func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	var req ResolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	d, err := h.Disputes.Resolve(r.Context(), ref, req.Resolution)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeDTO(d))
}

// CloseDispute closes a dispute unconditionally.
func (h *Handler) CloseDispute(w http.ResponseWriter, r *http.Request) {
	ref, ok := pathRef(w, r)
	if !ok {
		return
	}
	d, err := h.Disputes.Close(r.Context(), ref)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeDTO(d))
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// AddCommission appends a rate entry to the ledger.
func (h *Handler) AddCommission(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req AddCommissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	pct, err := parseDecimalField("rate_pct", req.RatePct)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "effective_from: expected YYYY-MM-DD")
		return
	}

	setting, err := h.Rates.Add(r.Context(), pct, effectiveFrom, req.Note, p.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommissionDTO(*setting))
}

// ListCommissions returns the full rate history.
func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Rates.History(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]CommissionDTO, len(settings))
	for i, s := range settings {
		dtos[i] = toCommissionDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// pathRef extracts and validates the {ref} path parameter. Writes a 400
// and returns false on a malformed reference.
func pathRef(w http.ResponseWriter, r *http.Request) (core.Ref, bool) {
	ref := core.Ref(chi.URLParam(r, "ref"))
	if !ref.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_argument", "ref: malformed reference")
		return "", false
	}
	return ref, true
}

func parseDecimalField(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Decimal{}, core.InvalidArgf(field, "must not be empty")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, core.InvalidArgf(field, "not a valid decimal: %q", value)
	}
	return d, nil
}

func parseTimeField(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, core.InvalidArgf(field, "expected RFC 3339 timestamp, got %q", value)
	}
	return t, nil
}

// writeDomainError maps a domain error kind to an HTTP status. Internal
// errors are logged and their detail withheld from the body.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case core.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case core.IsPreconditionFailed(err):
		writeError(w, http.StatusPreconditionFailed, "precondition_failed", err.Error())
	case core.IsInvalidArgument(err):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	default:
		h.Log.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}
