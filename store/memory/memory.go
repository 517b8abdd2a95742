/*
Package memory provides the in-memory implementation of the storage
interfaces, for tests and dev mode.

Semantics mirror store/sqlite: the same NotFound/Conflict mapping, the
same tie-break on commission settings, the same newest-first list
ordering. WithTx serializes under the store lock and rolls the booking
table back if the transaction function fails.
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/booking"
	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/dispute"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/payments"
	"github.com/vistajets/charter-engine/rates"
)

// Store implements all storage interfaces in memory.
type Store struct {
	mu sync.RWMutex

	tiers       map[string]membership.Tier          // by name
	memberships map[string]membership.Membership    // by client_id
	commissions []rates.Setting                     // append order
	nextSeq     int64
	aircraft    map[core.Ref]fleet.Aircraft         // by ref
	regNumbers  map[string]core.Ref                 // registration number -> ref
	maintenance map[core.Ref][]fleet.MaintenanceLog // by aircraft ref
	bookings    map[core.Ref]booking.Booking        // by ref
	disputes    map[core.Ref]dispute.Dispute        // by ref
	payments    []payments.Record                   // append order
}

func New() *Store {
	return &Store{
		tiers:       make(map[string]membership.Tier),
		memberships: make(map[string]membership.Membership),
		nextSeq:     1,
		aircraft:    make(map[core.Ref]fleet.Aircraft),
		regNumbers:  make(map[string]core.Ref),
		maintenance: make(map[core.Ref][]fleet.MaintenanceLog),
		bookings:    make(map[core.Ref]booking.Booking),
		disputes:    make(map[core.Ref]dispute.Dispute),
	}
}

// =============================================================================
// TIER + MEMBERSHIP STORE (membership.Store)
// =============================================================================

func (s *Store) SaveTier(_ context.Context, t membership.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tiers[t.Name]; ok {
		t.Ref = existing.Ref
	}
	s.tiers[t.Name] = t
	return nil
}

func (s *Store) TierByName(_ context.Context, name string) (*membership.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tierByNameLocked(name)
}

func (s *Store) tierByNameLocked(name string) (*membership.Tier, error) {
	t, ok := s.tiers[name]
	if !ok {
		return nil, core.NotFoundf("tier", name)
	}
	return &t, nil
}

func (s *Store) ListTiers(_ context.Context) ([]membership.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tiers := make([]membership.Tier, 0, len(s.tiers))
	for _, t := range s.tiers {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MonthlyFeeUSD.LessThan(tiers[j].MonthlyFeeUSD)
	})
	return tiers, nil
}

func (s *Store) UpsertMembership(_ context.Context, m *membership.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.memberships[m.ClientID]; ok {
		m.Ref = existing.Ref
		m.CreatedAt = existing.CreatedAt
	}
	s.memberships[m.ClientID] = *m
	return nil
}

func (s *Store) MembershipByClient(_ context.Context, clientID string) (*membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.membershipByClientLocked(clientID)
}

func (s *Store) membershipByClientLocked(clientID string) (*membership.Membership, error) {
	m, ok := s.memberships[clientID]
	if !ok {
		return nil, core.NotFoundf("membership", clientID)
	}
	return &m, nil
}

func (s *Store) ListMemberships(_ context.Context) ([]membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]membership.Membership, 0, len(s.memberships))
	for _, m := range s.memberships {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].CreatedAt.After(members[j].CreatedAt)
	})
	return members, nil
}

// =============================================================================
// COMMISSION STORE (rates.Store)
// =============================================================================

func (s *Store) AppendCommission(_ context.Context, setting *rates.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	setting.Seq = s.nextSeq
	s.nextSeq++
	s.commissions = append(s.commissions, *setting)
	return nil
}

func (s *Store) EffectiveCommission(_ context.Context, at time.Time) (*rates.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effectiveCommissionLocked(at)
}

func (s *Store) effectiveCommissionLocked(at time.Time) (*rates.Setting, error) {
	var best *rates.Setting
	for i := range s.commissions {
		c := &s.commissions[i]
		if c.EffectiveFrom.After(at) {
			continue
		}
		if best == nil || c.EffectiveFrom.After(best.EffectiveFrom) ||
			(c.EffectiveFrom.Equal(best.EffectiveFrom) && c.Seq > best.Seq) {
			best = c
		}
	}
	if best == nil {
		return nil, nil
	}
	out := *best
	return &out, nil
}

func (s *Store) ListCommissions(_ context.Context) ([]rates.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := make([]rates.Setting, len(s.commissions))
	copy(settings, s.commissions)
	sort.Slice(settings, func(i, j int) bool {
		if !settings[i].EffectiveFrom.Equal(settings[j].EffectiveFrom) {
			return settings[i].EffectiveFrom.After(settings[j].EffectiveFrom)
		}
		return settings[i].Seq > settings[j].Seq
	})
	return settings, nil
}

// =============================================================================
// FLEET STORE (fleet.Store)
// =============================================================================

func (s *Store) InsertAircraft(_ context.Context, a *fleet.Aircraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.regNumbers[a.RegistrationNumber]; ok {
		return core.Conflictf("registration number %q is already registered", a.RegistrationNumber)
	}
	s.aircraft[a.Ref] = *a
	s.regNumbers[a.RegistrationNumber] = a.Ref
	return nil
}

func (s *Store) UpdateAircraft(_ context.Context, a *fleet.Aircraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.aircraft[a.Ref]; !ok {
		return core.NotFoundf("aircraft", a.Ref.String())
	}
	s.aircraft[a.Ref] = *a
	return nil
}

func (s *Store) AircraftByRef(_ context.Context, ref core.Ref) (*fleet.Aircraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aircraftByRefLocked(ref)
}

func (s *Store) aircraftByRefLocked(ref core.Ref) (*fleet.Aircraft, error) {
	a, ok := s.aircraft[ref]
	if !ok {
		return nil, core.NotFoundf("aircraft", ref.String())
	}
	return &a, nil
}

func (s *Store) ListAircraftByOwner(_ context.Context, ownerID string) ([]fleet.Aircraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []fleet.Aircraft
	for _, a := range s.aircraft {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sortAircraft(out)
	return out, nil
}

func (s *Store) ListAircraft(_ context.Context) ([]fleet.Aircraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fleet.Aircraft, 0, len(s.aircraft))
	for _, a := range s.aircraft {
		out = append(out, a)
	}
	sortAircraft(out)
	return out, nil
}

func sortAircraft(aircraft []fleet.Aircraft) {
	sort.Slice(aircraft, func(i, j int) bool {
		return aircraft[i].CreatedAt.After(aircraft[j].CreatedAt)
	})
}

func (s *Store) AddFlightHours(_ context.Context, ref core.Ref, hours decimal.Decimal) (*fleet.Aircraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.aircraft[ref]
	if !ok {
		return nil, core.NotFoundf("aircraft", ref.String())
	}
	a.TotalFlightHours = a.TotalFlightHours.Add(hours)
	a.UpdatedAt = time.Now().UTC()
	s.aircraft[ref] = a
	return &a, nil
}

func (s *Store) SaveMaintenanceLog(_ context.Context, l fleet.MaintenanceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maintenance[l.AircraftRef] = append(s.maintenance[l.AircraftRef], l)
	return nil
}

func (s *Store) ListMaintenanceLogs(_ context.Context, aircraftRef core.Ref) ([]fleet.MaintenanceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]fleet.MaintenanceLog, len(s.maintenance[aircraftRef]))
	copy(logs, s.maintenance[aircraftRef])
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].PerformedAt.After(logs[j].PerformedAt)
	})
	return logs, nil
}

// =============================================================================
// BOOKING STORE (booking.Store)
// =============================================================================

// WithTx serializes booking creation under the store lock. The booking
// table is snapshotted first and restored if fn fails, so a failed
// transaction leaves no partial write.
func (s *Store) WithTx(_ context.Context, fn func(tx booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[core.Ref]booking.Booking, len(s.bookings))
	for k, v := range s.bookings {
		snapshot[k] = v
	}

	if err := fn(&bookingTx{store: s}); err != nil {
		s.bookings = snapshot
		return err
	}
	return nil
}

// bookingTx runs against the already-locked store.
type bookingTx struct {
	store *Store
}

func (t *bookingTx) MembershipByClient(_ context.Context, clientID string) (*membership.Membership, error) {
	return t.store.membershipByClientLocked(clientID)
}

func (t *bookingTx) TierByName(_ context.Context, name string) (*membership.Tier, error) {
	return t.store.tierByNameLocked(name)
}

func (t *bookingTx) AircraftByRef(_ context.Context, ref core.Ref) (*fleet.Aircraft, error) {
	return t.store.aircraftByRefLocked(ref)
}

func (t *bookingTx) EffectiveCommission(_ context.Context, at time.Time) (*rates.Setting, error) {
	return t.store.effectiveCommissionLocked(at)
}

func (t *bookingTx) InsertBooking(_ context.Context, b *booking.Booking) error {
	t.store.bookings[b.Ref] = *b
	return nil
}

func (s *Store) BookingByRef(_ context.Context, ref core.Ref) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[ref]
	if !ok {
		return nil, core.NotFoundf("booking", ref.String())
	}
	return &b, nil
}

func (s *Store) UpdateBooking(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[b.Ref]; !ok {
		return core.NotFoundf("booking", b.Ref.String())
	}
	s.bookings[b.Ref] = *b
	return nil
}

func (s *Store) ListBookingsByClient(_ context.Context, clientID string) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []booking.Booking
	for _, b := range s.bookings {
		if b.ClientID == clientID {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (s *Store) ListBookings(_ context.Context) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]booking.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sortBookings(out)
	return out, nil
}

func sortBookings(bookings []booking.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}

// =============================================================================
// DISPUTE STORE (dispute.Store)
// =============================================================================

func (s *Store) SaveDispute(_ context.Context, d *dispute.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disputes[d.Ref] = *d
	return nil
}

func (s *Store) UpdateDispute(_ context.Context, d *dispute.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.disputes[d.Ref]; !ok {
		return core.NotFoundf("dispute", d.Ref.String())
	}
	s.disputes[d.Ref] = *d
	return nil
}

func (s *Store) DisputeByRef(_ context.Context, ref core.Ref) (*dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.disputes[ref]
	if !ok {
		return nil, core.NotFoundf("dispute", ref.String())
	}
	return &d, nil
}

func (s *Store) ListDisputesByUser(_ context.Context, userID string) ([]dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dispute.Dispute
	for _, d := range s.disputes {
		if d.RaisedBy == userID {
			out = append(out, d)
		}
	}
	sortDisputes(out)
	return out, nil
}

func (s *Store) ListDisputes(_ context.Context) ([]dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]dispute.Dispute, 0, len(s.disputes))
	for _, d := range s.disputes {
		out = append(out, d)
	}
	sortDisputes(out)
	return out, nil
}

func sortDisputes(disputes []dispute.Dispute) {
	sort.Slice(disputes, func(i, j int) bool {
		return disputes[i].CreatedAt.After(disputes[j].CreatedAt)
	})
}

// =============================================================================
// PAYMENT STORE (payments.Store)
// =============================================================================

func (s *Store) SavePayment(_ context.Context, r payments.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments = append(s.payments, r)
	return nil
}

func (s *Store) ListPaymentsByUser(_ context.Context, userID string) ([]payments.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []payments.Record
	for _, r := range s.payments {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortPayments(out)
	return out, nil
}

func (s *Store) ListPayments(_ context.Context) ([]payments.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]payments.Record, len(s.payments))
	copy(out, s.payments)
	sortPayments(out)
	return out, nil
}

func sortPayments(records []payments.Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
