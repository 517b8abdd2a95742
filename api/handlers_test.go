/*
handlers_test.go - HTTP-level tests for the charter marketplace API

Drives the full router with httptest: authentication, role gates,
ownership isolation, the end-to-end booking flow and the error-body
contract.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistajets/charter-engine/booking"
	"github.com/vistajets/charter-engine/dispute"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/rates"
	"github.com/vistajets/charter-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const testSecret = "test-secret"

func newTestRouter(t *testing.T) http.Handler {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	members := membership.NewService(store, store, nil)
	require.NoError(t, members.SeedDefaultTiers(context.Background()))
	registry := fleet.NewRegistry(store, nil, nil)
	ledger := rates.NewLedger(store, decimal.Decimal{}, nil)
	bookings := booking.NewService(store, store, nil, decimal.Decimal{}, nil, nil)
	disputes := dispute.NewTracker(store, bookings, nil)

	h := NewHandler(members, registry, bookings, disputes, ledger, store, nil, nil)
	return NewRouter(h, testSecret, []string{"*"})
}

// mintToken issues an HS256 token the way the external identity provider
// would.
func mintToken(t *testing.T, sub, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do issues a request and decodes the JSON response into out (if non-nil).
func do(t *testing.T, router http.Handler, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// =============================================================================
// AUTHENTICATION AND ROLES
// =============================================================================

func TestAuth_MissingAndMalformedTokens(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/bookings/", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorBody(t, rec).Error)

	rec = do(t, router, http.MethodGet, "/api/bookings/", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongSecretRejected(t *testing.T) {
	router := newTestRouter(t)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "client-1", "role": "admin",
	})
	signed, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/api/bookings/", signed, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoles_AdminRoutesRejectClients(t *testing.T) {
	router := newTestRouter(t)
	client := mintToken(t, "client-1", RoleClient)

	rec := do(t, router, http.MethodGet, "/api/admin/commissions", client, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorBody(t, rec).Error)
}

func TestRoles_ClientsCannotRegisterAircraft(t *testing.T) {
	router := newTestRouter(t)
	client := mintToken(t, "client-1", RoleClient)

	rec := do(t, router, http.MethodPost, "/api/aircraft/", client, RegisterAircraftRequest{
		RegistrationNumber:       "N100VJ",
		HourlyRateUSD:            "10000",
		MaintenanceIntervalHours: "500",
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTiers_PublicWithoutToken(t *testing.T) {
	router := newTestRouter(t)

	var tiers []TierDTO
	rec := do(t, router, http.MethodGet, "/api/tiers", "", nil, &tiers)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tiers, 3)
	names := make([]string, len(tiers))
	for i, tier := range tiers {
		names[i] = tier.Name
	}
	assert.ElementsMatch(t, []string{"basic", "premium", "corporate"}, names)
}

// =============================================================================
// END-TO-END BOOKING FLOW
// =============================================================================

func TestFlow_SubscribeRegisterBookConfirmDispute(t *testing.T) {
	// The full marketplace lifecycle through the HTTP surface:
	// commission set, client subscribed, aircraft registered and approved,
	// booking priced and confirmed, dispute raised and resolved.

	router := newTestRouter(t)
	admin := mintToken(t, "admin-1", RoleAdmin)
	owner := mintToken(t, "owner-1", RoleOwner)
	client := mintToken(t, "client-1", RoleClient)

	// Admin sets a 12% commission effective well in the past.
	var commission CommissionDTO
	rec := do(t, router, http.MethodPost, "/api/admin/commissions", admin, AddCommissionRequest{
		RatePct:       "12",
		EffectiveFrom: "2020-01-01",
		Note:          "launch rate",
	}, &commission)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "12", commission.RatePct)
	assert.Equal(t, "admin-1", commission.SetBy)

	// Client subscribes to premium, annual.
	var m MembershipDTO
	rec = do(t, router, http.MethodPost, "/api/memberships/subscribe", client, SubscribeRequest{
		Tier: "premium", BillingCycle: "annual",
	}, &m)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "active", m.Status)
	assert.Equal(t, "5000.00", m.AmountPaidUSD)
	assert.True(t, m.IsActive)

	// Owner registers a $10,000/hr aircraft; admin approves it.
	var a AircraftDTO
	rec = do(t, router, http.MethodPost, "/api/aircraft/", owner, RegisterAircraftRequest{
		Category:                 "heavy_jet",
		Manufacturer:             "Gulfstream",
		Model:                    "G650",
		RegistrationNumber:       "N100VJ",
		PassengerCapacity:        14,
		HourlyRateUSD:            "10000",
		MaintenanceIntervalHours: "500",
	}, &a)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", a.Status)
	assert.False(t, a.Approved)

	rec = do(t, router, http.MethodPost, "/api/admin/aircraft/"+a.Ref+"/approve", admin, nil, &a)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, a.Approved)
	assert.True(t, a.Eligible)

	// Client books two hours: 10000 * 0.85 * 2 = 17000, 12% commission.
	var b BookingDTO
	rec = do(t, router, http.MethodPost, "/api/bookings/", client, CreateBookingRequest{
		AircraftRef:    a.Ref,
		TripType:       "one_way",
		Origin:         "TEB",
		Destination:    "PBI",
		DepartureAt:    "2026-09-04T14:00:00Z",
		PassengerCount: 4,
		EstimatedHours: "2",
	}, &b)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", b.Status)
	assert.Equal(t, "pending", b.PaymentStatus)
	assert.Equal(t, "17000.00", b.GrossAmountUSD)
	assert.Equal(t, "2040.00", b.CommissionUSD)
	assert.Equal(t, "14960.00", b.NetOwnerUSD)
	assert.Equal(t, "15", b.DiscountAppliedPct)
	assert.Equal(t, "12", b.CommissionPct)

	// Admin confirms the external payment.
	rec = do(t, router, http.MethodPost, "/api/payments/confirm", admin, ConfirmPaymentRequest{
		BookingRef: b.Ref, ProcessorID: "ch_3NxA",
	}, &b)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", b.Status)
	assert.Equal(t, "paid", b.PaymentStatus)

	// Client sees the membership and booking payments.
	var records []PaymentDTO
	rec = do(t, router, http.MethodGet, "/api/payments", client, nil, &records)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, records, 2)

	// Client raises a dispute; booking flips to disputed.
	var d DisputeDTO
	rec = do(t, router, http.MethodPost, "/api/bookings/"+b.Ref+"/disputes", client, OpenDisputeRequest{
		Subject: "Catering missing", Description: "No catering was loaded.",
	}, &d)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "open", d.Status)

	rec = do(t, router, http.MethodGet, "/api/bookings/"+b.Ref, client, nil, &b)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disputed", b.Status)

	// Admin works the dispute to resolution.
	rec = do(t, router, http.MethodPost, "/api/admin/disputes/"+d.Ref+"/review", admin, nil, &d)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reviewing", d.Status)

	rec = do(t, router, http.MethodPost, "/api/admin/disputes/"+d.Ref+"/resolve", admin, ResolveDisputeRequest{
		Resolution: "Catering fee refunded",
	}, &d)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "resolved", d.Status)
	assert.NotEmpty(t, d.ResolvedAt)

	rec = do(t, router, http.MethodPost, "/api/admin/disputes/"+d.Ref+"/close", admin, nil, &d)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", d.Status)
}

// =============================================================================
// ERROR CONTRACT
// =============================================================================

func TestErrors_BookingWithoutMembership(t *testing.T) {
	router := newTestRouter(t)
	admin := mintToken(t, "admin-1", RoleAdmin)
	owner := mintToken(t, "owner-1", RoleOwner)
	client := mintToken(t, "client-1", RoleClient)

	var a AircraftDTO
	rec := do(t, router, http.MethodPost, "/api/aircraft/", owner, RegisterAircraftRequest{
		RegistrationNumber:       "N200VJ",
		HourlyRateUSD:            "8000",
		MaintenanceIntervalHours: "500",
	}, &a)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/admin/aircraft/"+a.Ref+"/approve", admin, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/bookings/", client, CreateBookingRequest{
		AircraftRef:    a.Ref,
		TripType:       "one_way",
		Origin:         "TEB",
		Destination:    "PBI",
		DepartureAt:    "2026-09-04T14:00:00Z",
		PassengerCount: 2,
		EstimatedHours: "2",
	}, nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	body := errorBody(t, rec)
	assert.Equal(t, "precondition_failed", body.Error)
	assert.Contains(t, body.Message, "membership")
}

func TestErrors_UnknownTierIs404(t *testing.T) {
	router := newTestRouter(t)
	client := mintToken(t, "client-1", RoleClient)

	rec := do(t, router, http.MethodPost, "/api/memberships/subscribe", client, SubscribeRequest{
		Tier: "platinum", BillingCycle: "monthly",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorBody(t, rec).Error)
}

func TestErrors_MalformedDecimalIs400(t *testing.T) {
	router := newTestRouter(t)
	owner := mintToken(t, "owner-1", RoleOwner)

	rec := do(t, router, http.MethodPost, "/api/aircraft/", owner, RegisterAircraftRequest{
		RegistrationNumber:       "N300VJ",
		HourlyRateUSD:            "ten thousand",
		MaintenanceIntervalHours: "500",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", errorBody(t, rec).Error)
}

func TestErrors_MalformedRefIs400(t *testing.T) {
	router := newTestRouter(t)
	admin := mintToken(t, "admin-1", RoleAdmin)

	rec := do(t, router, http.MethodPost, "/api/admin/aircraft/not-a-uuid/approve", admin, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrors_DuplicateRegistrationIs409(t *testing.T) {
	router := newTestRouter(t)
	owner := mintToken(t, "owner-1", RoleOwner)

	req := RegisterAircraftRequest{
		RegistrationNumber:       "N400VJ",
		HourlyRateUSD:            "6000",
		MaintenanceIntervalHours: "300",
	}
	rec := do(t, router, http.MethodPost, "/api/aircraft/", owner, req, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/aircraft/", owner, req, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorBody(t, rec).Error)
}

// =============================================================================
// OWNERSHIP ISOLATION
// =============================================================================

func TestIsolation_ClientsCannotSeeOthersBookings(t *testing.T) {
	router := newTestRouter(t)
	admin := mintToken(t, "admin-1", RoleAdmin)
	owner := mintToken(t, "owner-1", RoleOwner)
	alice := mintToken(t, "alice", RoleClient)
	bob := mintToken(t, "bob", RoleClient)

	rec := do(t, router, http.MethodPost, "/api/memberships/subscribe", alice, SubscribeRequest{
		Tier: "basic", BillingCycle: "monthly",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var a AircraftDTO
	rec = do(t, router, http.MethodPost, "/api/aircraft/", owner, RegisterAircraftRequest{
		RegistrationNumber:       "N500VJ",
		HourlyRateUSD:            "5000",
		MaintenanceIntervalHours: "400",
	}, &a)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/admin/aircraft/"+a.Ref+"/approve", admin, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var b BookingDTO
	rec = do(t, router, http.MethodPost, "/api/bookings/", alice, CreateBookingRequest{
		AircraftRef:    a.Ref,
		TripType:       "one_way",
		Origin:         "TEB",
		Destination:    "MIA",
		DepartureAt:    "2026-09-10T09:00:00Z",
		PassengerCount: 1,
		EstimatedHours: "3",
	}, &b)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Bob gets a 404, not a 403: the booking's existence is not disclosed.
	rec = do(t, router, http.MethodGet, "/api/bookings/"+b.Ref, bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/bookings/"+b.Ref+"/cancel", bob, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The admin sees it.
	rec = do(t, router, http.MethodGet, "/api/bookings/"+b.Ref, admin, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaintenance_RecordAndListOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	owner := mintToken(t, "owner-1", RoleOwner)

	var a AircraftDTO
	rec := do(t, router, http.MethodPost, "/api/aircraft/", owner, RegisterAircraftRequest{
		RegistrationNumber:       "N700VJ",
		HourlyRateUSD:            "5000",
		MaintenanceIntervalHours: "400",
	}, &a)
	require.Equal(t, http.StatusCreated, rec.Code)

	var l MaintenanceLogDTO
	rec = do(t, router, http.MethodPost, "/api/aircraft/"+a.Ref+"/maintenance", owner, RecordMaintenanceRequest{
		Type:          "routine",
		FlightHoursAt: "120",
		CostUSD:       "4500.00",
		Technician:    "J. Alvarez",
	}, &l)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "completed", l.Status, "status defaults to completed")

	var logs []MaintenanceLogDTO
	rec = do(t, router, http.MethodGet, "/api/aircraft/"+a.Ref+"/maintenance", owner, nil, &logs)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, logs, 1)
	assert.Equal(t, "4500.00", logs[0].CostUSD)
}

func TestIsolation_OwnersCannotAccrueOnOthersAircraft(t *testing.T) {
	router := newTestRouter(t)
	owner := mintToken(t, "owner-1", RoleOwner)
	rival := mintToken(t, "owner-2", RoleOwner)

	var a AircraftDTO
	rec := do(t, router, http.MethodPost, "/api/aircraft/", owner, RegisterAircraftRequest{
		RegistrationNumber:       "N600VJ",
		HourlyRateUSD:            "5000",
		MaintenanceIntervalHours: "400",
	}, &a)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/aircraft/"+a.Ref+"/hours", rival, AccrueHoursRequest{Hours: "10"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
