/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  One store implements every package's persistence contract. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  membership.Store  tiers + membership upsert
  rates.Store       append-only commission settings
  fleet.Store       aircraft + maintenance logs + atomic hour accrual
  booking.Store     booking rows + the creation transaction (WithTx)
  dispute.Store     dispute rows
  payments.Store    append-only payment records

KEY TABLES:
  tiers                Named plans, unique on name
  memberships          One row per client, unique on client_id
  commission_settings  Append-only; AUTOINCREMENT seq breaks
                       effective_from ties toward the latest append
  aircraft             Unique on registration_number
  maintenance_logs     Append-only event log per aircraft
  bookings             The transactional ledger
  disputes             Many per booking
  payments             Append-only payment events

DECIMALS & TIMES:
  Monetary and percentage fields are stored as TEXT (exact decimal
  strings), never REAL. Times are RFC 3339 UTC; nullable times are NULL.

CONCURRENCY:
  sync.RWMutex for in-process serialization; WithTx additionally wraps the
  booking-creation sequence in one SQL transaction so eligibility re-check
  and insert commit or roll back together. Flight-hour accrual is a
  read-modify-write inside its own transaction under the write lock.

WAL MODE:
  SQLite is opened with WAL for better read concurrency and crash
  recovery.

USAGE:
  store, err := sqlite.New("./data/charter.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/memory/memory.go: In-memory implementation for tests and dev mode
  - booking/service.go: The transaction this store serializes
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/booking"
	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/dispute"
	"github.com/vistajets/charter-engine/fleet"
	"github.com/vistajets/charter-engine/membership"
	"github.com/vistajets/charter-engine/payments"
	"github.com/vistajets/charter-engine/rates"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Membership tiers
	CREATE TABLE IF NOT EXISTS tiers (
		ref TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		description TEXT,
		monthly_fee_usd TEXT NOT NULL,
		annual_fee_usd TEXT NOT NULL,
		hourly_discount_pct TEXT NOT NULL,
		priority_booking INTEGER NOT NULL DEFAULT 0,
		dedicated_support INTEGER NOT NULL DEFAULT 0,
		exclusive_listings INTEGER NOT NULL DEFAULT 0,
		max_monthly_bookings INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Memberships: one row per client, upserted on re-subscribe
	CREATE TABLE IF NOT EXISTS memberships (
		ref TEXT PRIMARY KEY,
		client_id TEXT NOT NULL UNIQUE,
		tier_name TEXT NOT NULL,
		status TEXT NOT NULL,
		cycle TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		auto_renew INTEGER NOT NULL DEFAULT 0,
		amount_paid_usd TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Commission settings (append-only); seq breaks effective_from ties
	CREATE TABLE IF NOT EXISTS commission_settings (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		ref TEXT NOT NULL UNIQUE,
		rate_pct TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		note TEXT,
		set_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commission_effective
		ON commission_settings(effective_from DESC, seq DESC);

	-- Aircraft registry
	CREATE TABLE IF NOT EXISTS aircraft (
		ref TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		category TEXT,
		manufacturer TEXT,
		model TEXT,
		registration_number TEXT NOT NULL UNIQUE,
		passenger_capacity INTEGER NOT NULL DEFAULT 0,
		hourly_rate_usd TEXT NOT NULL,
		status TEXT NOT NULL,
		approved INTEGER NOT NULL DEFAULT 0,
		total_flight_hours TEXT NOT NULL,
		maintenance_interval_hours TEXT NOT NULL,
		last_maintenance_hours TEXT NOT NULL,
		insurance_expiry TEXT,
		airworthiness_expiry TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_aircraft_owner
		ON aircraft(owner_id);

	-- Maintenance event log (append-only)
	CREATE TABLE IF NOT EXISTS maintenance_logs (
		ref TEXT PRIMARY KEY,
		aircraft_ref TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		flight_hours_at TEXT NOT NULL,
		cost_usd TEXT NOT NULL,
		technician TEXT,
		notes TEXT,
		performed_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maintenance_aircraft
		ON maintenance_logs(aircraft_ref, performed_at DESC);

	-- Bookings: the transactional ledger
	CREATE TABLE IF NOT EXISTS bookings (
		ref TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		aircraft_ref TEXT NOT NULL,
		membership_ref TEXT NOT NULL,
		trip_type TEXT NOT NULL,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		departure_at TEXT NOT NULL,
		return_at TEXT,
		passenger_count INTEGER NOT NULL,
		estimated_hours TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		hourly_rate_usd TEXT NOT NULL,
		discount_applied_pct TEXT NOT NULL,
		commission_pct TEXT NOT NULL,
		gross_amount_usd TEXT NOT NULL,
		commission_usd TEXT NOT NULL,
		net_owner_usd TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_client
		ON bookings(client_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_bookings_aircraft
		ON bookings(aircraft_ref);

	-- Disputes: many per booking
	CREATE TABLE IF NOT EXISTS disputes (
		ref TEXT PRIMARY KEY,
		booking_ref TEXT NOT NULL,
		raised_by TEXT NOT NULL,
		subject TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		resolution TEXT,
		resolved_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_disputes_booking
		ON disputes(booking_ref);
	CREATE INDEX IF NOT EXISTS idx_disputes_raised_by
		ON disputes(raised_by);

	-- Payment records (append-only)
	CREATE TABLE IF NOT EXISTS payments (
		ref TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		booking_ref TEXT,
		membership_ref TEXT,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		amount_usd TEXT NOT NULL,
		currency TEXT NOT NULL,
		processor_id TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_user
		ON payments(user_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx so row helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TIER STORE (membership.Store)
// =============================================================================

// SaveTier inserts or updates a tier, keyed on name.
func (s *Store) SaveTier(ctx context.Context, t membership.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tiers (ref, name, display_name, description, monthly_fee_usd,
			annual_fee_usd, hourly_discount_pct, priority_booking, dedicated_support,
			exclusive_listings, max_monthly_bookings, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			description = excluded.description,
			monthly_fee_usd = excluded.monthly_fee_usd,
			annual_fee_usd = excluded.annual_fee_usd,
			hourly_discount_pct = excluded.hourly_discount_pct,
			priority_booking = excluded.priority_booking,
			dedicated_support = excluded.dedicated_support,
			exclusive_listings = excluded.exclusive_listings,
			max_monthly_bookings = excluded.max_monthly_bookings,
			active = excluded.active
	`

	_, err := s.db.ExecContext(ctx, query,
		t.Ref.String(), t.Name, t.DisplayName, t.Description,
		t.MonthlyFeeUSD.String(), t.AnnualFeeUSD.String(), t.HourlyDiscountPct.String(),
		t.PriorityBooking, t.DedicatedSupport, t.ExclusiveListings,
		t.MaxMonthlyBookings, t.Active,
	)
	return err
}

const tierColumns = `ref, name, display_name, description, monthly_fee_usd,
	annual_fee_usd, hourly_discount_pct, priority_booking, dedicated_support,
	exclusive_listings, max_monthly_bookings, active`

// TierByName retrieves a tier by its unique name.
func (s *Store) TierByName(ctx context.Context, name string) (*membership.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tierByName(ctx, s.db, name)
}

func (s *Store) tierByName(ctx context.Context, q querier, name string) (*membership.Tier, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+tierColumns+" FROM tiers WHERE name = ?", name)

	t, err := scanTier(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("tier", name)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTiers returns all tiers ordered by monthly fee.
func (s *Store) ListTiers(ctx context.Context) ([]membership.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tierColumns+" FROM tiers ORDER BY CAST(monthly_fee_usd AS REAL)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []membership.Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *t)
	}
	return tiers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTier(row rowScanner) (*membership.Tier, error) {
	var t membership.Tier
	var ref string
	var description sql.NullString
	var monthly, annual, discount string

	err := row.Scan(&ref, &t.Name, &t.DisplayName, &description,
		&monthly, &annual, &discount,
		&t.PriorityBooking, &t.DedicatedSupport, &t.ExclusiveListings,
		&t.MaxMonthlyBookings, &t.Active)
	if err != nil {
		return nil, err
	}

	t.Ref = core.Ref(ref)
	t.Description = description.String
	t.MonthlyFeeUSD = parseDecimal(monthly)
	t.AnnualFeeUSD = parseDecimal(annual)
	t.HourlyDiscountPct = parseDecimal(discount)
	return &t, nil
}

// =============================================================================
// MEMBERSHIP STORE (membership.Store)
// =============================================================================

// UpsertMembership inserts or, keyed on client_id, replaces the client's
// row. The existing row's ref and created_at survive a re-subscribe; the
// stored values are copied back into m.
func (s *Store) UpsertMembership(ctx context.Context, m *membership.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO memberships (ref, client_id, tier_name, status, cycle,
			start_date, end_date, auto_renew, amount_paid_usd, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			tier_name = excluded.tier_name,
			status = excluded.status,
			cycle = excluded.cycle,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			auto_renew = excluded.auto_renew,
			amount_paid_usd = excluded.amount_paid_usd,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		m.Ref.String(), m.ClientID, m.TierName, string(m.Status), string(m.Cycle),
		formatTime(m.StartDate), nullTime(m.EndDate), m.AutoRenew,
		m.AmountPaidUSD.String(), formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return err
	}

	var ref, createdAt string
	err = s.db.QueryRowContext(ctx,
		"SELECT ref, created_at FROM memberships WHERE client_id = ?", m.ClientID,
	).Scan(&ref, &createdAt)
	if err != nil {
		return err
	}
	m.Ref = core.Ref(ref)
	m.CreatedAt = parseTime(createdAt)
	return nil
}

const membershipColumns = `ref, client_id, tier_name, status, cycle,
	start_date, end_date, auto_renew, amount_paid_usd, created_at, updated_at`

// MembershipByClient retrieves the client's membership row.
func (s *Store) MembershipByClient(ctx context.Context, clientID string) (*membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.membershipByClient(ctx, s.db, clientID)
}

func (s *Store) membershipByClient(ctx context.Context, q querier, clientID string) (*membership.Membership, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE client_id = ?", clientID)

	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("membership", clientID)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMemberships returns all membership rows, newest first.
func (s *Store) ListMemberships(ctx context.Context) ([]membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+membershipColumns+" FROM memberships ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []membership.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func scanMembership(row rowScanner) (*membership.Membership, error) {
	var m membership.Membership
	var ref, status, cycle, startDate, amountPaid, createdAt, updatedAt string
	var endDate sql.NullString

	err := row.Scan(&ref, &m.ClientID, &m.TierName, &status, &cycle,
		&startDate, &endDate, &m.AutoRenew, &amountPaid, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	m.Ref = core.Ref(ref)
	m.Status = membership.Status(status)
	m.Cycle = membership.Cycle(cycle)
	m.StartDate = parseTime(startDate)
	m.EndDate = parseNullTime(endDate)
	m.AmountPaidUSD = parseDecimal(amountPaid)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

// =============================================================================
// COMMISSION STORE (rates.Store)
// =============================================================================

// AppendCommission persists a rate entry and fills in its sequence number.
// The table is append-only; there is no update or delete path.
func (s *Store) AppendCommission(ctx context.Context, setting *rates.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO commission_settings (ref, rate_pct, effective_from, note, set_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		setting.Ref.String(), setting.RatePct.String(), formatTime(setting.EffectiveFrom),
		setting.Note, setting.SetBy, formatTime(setting.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append commission setting: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	setting.Seq = seq
	return nil
}

const commissionColumns = `seq, ref, rate_pct, effective_from, note, set_by, created_at`

// EffectiveCommission returns the entry in effect at the given time:
// latest effective_from <= at, ties broken by latest seq. Nil if no entry
// qualifies.
func (s *Store) EffectiveCommission(ctx context.Context, at time.Time) (*rates.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.effectiveCommission(ctx, s.db, at)
}

func (s *Store) effectiveCommission(ctx context.Context, q querier, at time.Time) (*rates.Setting, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+commissionColumns+`
		FROM commission_settings
		WHERE effective_from <= ?
		ORDER BY effective_from DESC, seq DESC
		LIMIT 1`,
		formatTime(at),
	)

	setting, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return setting, nil
}

// ListCommissions returns the full history, newest effective_from first.
func (s *Store) ListCommissions(ctx context.Context) ([]rates.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commissionColumns+`
		FROM commission_settings
		ORDER BY effective_from DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []rates.Setting
	for rows.Next() {
		setting, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, *setting)
	}
	return settings, rows.Err()
}

func scanCommission(row rowScanner) (*rates.Setting, error) {
	var setting rates.Setting
	var ref, ratePct, effectiveFrom, createdAt string
	var note, setBy sql.NullString

	err := row.Scan(&setting.Seq, &ref, &ratePct, &effectiveFrom, &note, &setBy, &createdAt)
	if err != nil {
		return nil, err
	}

	setting.Ref = core.Ref(ref)
	setting.RatePct = parseDecimal(ratePct)
	setting.EffectiveFrom = parseTime(effectiveFrom)
	setting.Note = note.String
	setting.SetBy = setBy.String
	setting.CreatedAt = parseTime(createdAt)
	return &setting, nil
}

// =============================================================================
// FLEET STORE (fleet.Store)
// =============================================================================

// InsertAircraft persists a new aircraft. A duplicate registration number
// fails with Conflict.
func (s *Store) InsertAircraft(ctx context.Context, a *fleet.Aircraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO aircraft (ref, owner_id, category, manufacturer, model,
			registration_number, passenger_capacity, hourly_rate_usd, status, approved,
			total_flight_hours, maintenance_interval_hours, last_maintenance_hours,
			insurance_expiry, airworthiness_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.Ref.String(), a.OwnerID, a.Category, a.Manufacturer, a.Model,
		a.RegistrationNumber, a.PassengerCapacity, a.HourlyRateUSD.String(),
		string(a.Status), a.Approved,
		a.TotalFlightHours.String(), a.MaintenanceIntervalHours.String(),
		a.LastMaintenanceHours.String(),
		nullTime(a.InsuranceExpiry), nullTime(a.AirworthinessExpiry),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.Conflictf("registration number %q is already registered", a.RegistrationNumber)
		}
		return fmt.Errorf("failed to insert aircraft: %w", err)
	}
	return nil
}

// UpdateAircraft overwrites the aircraft row.
func (s *Store) UpdateAircraft(ctx context.Context, a *fleet.Aircraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE aircraft SET
			category = ?, manufacturer = ?, model = ?, passenger_capacity = ?,
			hourly_rate_usd = ?, status = ?, approved = ?,
			total_flight_hours = ?, maintenance_interval_hours = ?,
			last_maintenance_hours = ?, insurance_expiry = ?, airworthiness_expiry = ?,
			updated_at = ?
		WHERE ref = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		a.Category, a.Manufacturer, a.Model, a.PassengerCapacity,
		a.HourlyRateUSD.String(), string(a.Status), a.Approved,
		a.TotalFlightHours.String(), a.MaintenanceIntervalHours.String(),
		a.LastMaintenanceHours.String(),
		nullTime(a.InsuranceExpiry), nullTime(a.AirworthinessExpiry),
		formatTime(a.UpdatedAt), a.Ref.String(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("aircraft", a.Ref.String())
	}
	return nil
}

const aircraftColumns = `ref, owner_id, category, manufacturer, model,
	registration_number, passenger_capacity, hourly_rate_usd, status, approved,
	total_flight_hours, maintenance_interval_hours, last_maintenance_hours,
	insurance_expiry, airworthiness_expiry, created_at, updated_at`

// AircraftByRef retrieves one aircraft.
func (s *Store) AircraftByRef(ctx context.Context, ref core.Ref) (*fleet.Aircraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.aircraftByRef(ctx, s.db, ref)
}

func (s *Store) aircraftByRef(ctx context.Context, q querier, ref core.Ref) (*fleet.Aircraft, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+aircraftColumns+" FROM aircraft WHERE ref = ?", ref.String())

	a, err := scanAircraft(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("aircraft", ref.String())
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAircraftByOwner returns the owner's aircraft, newest first.
func (s *Store) ListAircraftByOwner(ctx context.Context, ownerID string) ([]fleet.Aircraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAircraft(ctx,
		"SELECT "+aircraftColumns+" FROM aircraft WHERE owner_id = ? ORDER BY created_at DESC",
		ownerID)
}

// ListAircraft returns the full registry, newest first.
func (s *Store) ListAircraft(ctx context.Context) ([]fleet.Aircraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAircraft(ctx,
		"SELECT "+aircraftColumns+" FROM aircraft ORDER BY created_at DESC")
}

func (s *Store) queryAircraft(ctx context.Context, query string, args ...any) ([]fleet.Aircraft, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fleetRows []fleet.Aircraft
	for rows.Next() {
		a, err := scanAircraft(rows)
		if err != nil {
			return nil, err
		}
		fleetRows = append(fleetRows, *a)
	}
	return fleetRows, rows.Err()
}

// AddFlightHours increments total_flight_hours atomically: the read and
// the write run in one transaction under the write lock, so concurrent
// accruals from multiple operational sources never lose an update.
func (s *Store) AddFlightHours(ctx context.Context, ref core.Ref, hours decimal.Decimal) (*fleet.Aircraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	a, err := s.aircraftByRef(ctx, sqlTx, ref)
	if err != nil {
		return nil, err
	}

	a.TotalFlightHours = a.TotalFlightHours.Add(hours)
	a.UpdatedAt = time.Now().UTC()
	_, err = sqlTx.ExecContext(ctx,
		"UPDATE aircraft SET total_flight_hours = ?, updated_at = ? WHERE ref = ?",
		a.TotalFlightHours.String(), formatTime(a.UpdatedAt), ref.String())
	if err != nil {
		return nil, err
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

func scanAircraft(row rowScanner) (*fleet.Aircraft, error) {
	var a fleet.Aircraft
	var ref, hourlyRate, status, totalHours, intervalHours, lastMaintHours string
	var createdAt, updatedAt string
	var category, manufacturer, model sql.NullString
	var insuranceExpiry, airworthinessExpiry sql.NullString

	err := row.Scan(&ref, &a.OwnerID, &category, &manufacturer, &model,
		&a.RegistrationNumber, &a.PassengerCapacity, &hourlyRate, &status, &a.Approved,
		&totalHours, &intervalHours, &lastMaintHours,
		&insuranceExpiry, &airworthinessExpiry, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Ref = core.Ref(ref)
	a.Category = category.String
	a.Manufacturer = manufacturer.String
	a.Model = model.String
	a.HourlyRateUSD = parseDecimal(hourlyRate)
	a.Status = fleet.Status(status)
	a.TotalFlightHours = parseDecimal(totalHours)
	a.MaintenanceIntervalHours = parseDecimal(intervalHours)
	a.LastMaintenanceHours = parseDecimal(lastMaintHours)
	a.InsuranceExpiry = parseNullTime(insuranceExpiry)
	a.AirworthinessExpiry = parseNullTime(airworthinessExpiry)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

// SaveMaintenanceLog appends a maintenance event row.
func (s *Store) SaveMaintenanceLog(ctx context.Context, l fleet.MaintenanceLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance_logs (ref, aircraft_ref, type, status,
			flight_hours_at, cost_usd, technician, notes, performed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Ref.String(), l.AircraftRef.String(), string(l.Type), string(l.Status),
		l.FlightHoursAt.String(), l.CostUSD.String(), l.Technician, l.Notes,
		formatTime(l.PerformedAt), formatTime(l.CreatedAt),
	)
	return err
}

// ListMaintenanceLogs returns the aircraft's maintenance log, newest first.
func (s *Store) ListMaintenanceLogs(ctx context.Context, aircraftRef core.Ref) ([]fleet.MaintenanceLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, aircraft_ref, type, status, flight_hours_at, cost_usd,
			technician, notes, performed_at, created_at
		FROM maintenance_logs
		WHERE aircraft_ref = ?
		ORDER BY performed_at DESC`,
		aircraftRef.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []fleet.MaintenanceLog
	for rows.Next() {
		var l fleet.MaintenanceLog
		var ref, aRef, typ, status, hoursAt, cost, performedAt, createdAt string
		var technician, notes sql.NullString
		if err := rows.Scan(&ref, &aRef, &typ, &status, &hoursAt, &cost,
			&technician, &notes, &performedAt, &createdAt); err != nil {
			return nil, err
		}
		l.Ref = core.Ref(ref)
		l.AircraftRef = core.Ref(aRef)
		l.Type = fleet.MaintenanceType(typ)
		l.Status = fleet.MaintenanceStatus(status)
		l.FlightHoursAt = parseDecimal(hoursAt)
		l.CostUSD = parseDecimal(cost)
		l.Technician = technician.String
		l.Notes = notes.String
		l.PerformedAt = parseTime(performedAt)
		l.CreatedAt = parseTime(createdAt)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// =============================================================================
// BOOKING STORE (booking.Store)
// =============================================================================

// WithTx runs the booking-creation sequence in one SQL transaction under
// the write lock: the membership gate, the eligibility re-check, the rate
// resolution and the insert commit or roll back together.
func (s *Store) WithTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&bookingTx{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type bookingTx struct {
	tx     *sql.Tx
	parent *Store
}

func (t *bookingTx) MembershipByClient(ctx context.Context, clientID string) (*membership.Membership, error) {
	return t.parent.membershipByClient(ctx, t.tx, clientID)
}

func (t *bookingTx) TierByName(ctx context.Context, name string) (*membership.Tier, error) {
	return t.parent.tierByName(ctx, t.tx, name)
}

func (t *bookingTx) AircraftByRef(ctx context.Context, ref core.Ref) (*fleet.Aircraft, error) {
	return t.parent.aircraftByRef(ctx, t.tx, ref)
}

func (t *bookingTx) EffectiveCommission(ctx context.Context, at time.Time) (*rates.Setting, error) {
	return t.parent.effectiveCommission(ctx, t.tx, at)
}

func (t *bookingTx) InsertBooking(ctx context.Context, b *booking.Booking) error {
	return t.parent.insertBooking(ctx, t.tx, b)
}

func (s *Store) insertBooking(ctx context.Context, q querier, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (ref, client_id, aircraft_ref, membership_ref,
			trip_type, origin, destination, departure_at, return_at,
			passenger_count, estimated_hours, status, payment_status,
			hourly_rate_usd, discount_applied_pct, commission_pct,
			gross_amount_usd, commission_usd, net_owner_usd,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		b.Ref.String(), b.ClientID, b.AircraftRef.String(), b.MembershipRef.String(),
		string(b.Trip.Type), b.Trip.Origin, b.Trip.Destination,
		formatTime(b.Trip.DepartureAt), nullTime(b.Trip.ReturnAt),
		b.Trip.PassengerCount, b.Trip.EstimatedHours.String(),
		string(b.Status), string(b.PaymentStatus),
		b.HourlyRateUSD.String(), b.DiscountAppliedPct.String(), b.CommissionPct.String(),
		b.GrossAmountUSD.String(), b.CommissionUSD.String(), b.NetOwnerUSD.String(),
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

const bookingColumns = `ref, client_id, aircraft_ref, membership_ref,
	trip_type, origin, destination, departure_at, return_at,
	passenger_count, estimated_hours, status, payment_status,
	hourly_rate_usd, discount_applied_pct, commission_pct,
	gross_amount_usd, commission_usd, net_owner_usd, created_at, updated_at`

// BookingByRef retrieves one booking.
func (s *Store) BookingByRef(ctx context.Context, ref core.Ref) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE ref = ?", ref.String())

	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("booking", ref.String())
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBooking overwrites the booking's mutable fields and re-persists
// the monetary triad together, as one row write.
func (s *Store) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE bookings SET
			status = ?, payment_status = ?,
			commission_pct = ?, gross_amount_usd = ?, commission_usd = ?, net_owner_usd = ?,
			updated_at = ?
		WHERE ref = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(b.Status), string(b.PaymentStatus),
		b.CommissionPct.String(), b.GrossAmountUSD.String(),
		b.CommissionUSD.String(), b.NetOwnerUSD.String(),
		formatTime(b.UpdatedAt), b.Ref.String(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("booking", b.Ref.String())
	}
	return nil
}

// ListBookingsByClient returns the client's bookings, newest first.
func (s *Store) ListBookingsByClient(ctx context.Context, clientID string) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBookings(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE client_id = ? ORDER BY created_at DESC",
		clientID)
}

// ListBookings returns all bookings, newest first.
func (s *Store) ListBookings(ctx context.Context) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryBookings(ctx,
		"SELECT "+bookingColumns+" FROM bookings ORDER BY created_at DESC")
}

func (s *Store) queryBookings(ctx context.Context, query string, args ...any) ([]booking.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*booking.Booking, error) {
	var b booking.Booking
	var ref, aircraftRef, membershipRef, tripType, departureAt string
	var estimatedHours, status, paymentStatus string
	var hourlyRate, discount, commissionPct, gross, commission, net string
	var createdAt, updatedAt string
	var returnAt sql.NullString

	err := row.Scan(&ref, &b.ClientID, &aircraftRef, &membershipRef,
		&tripType, &b.Trip.Origin, &b.Trip.Destination, &departureAt, &returnAt,
		&b.Trip.PassengerCount, &estimatedHours, &status, &paymentStatus,
		&hourlyRate, &discount, &commissionPct,
		&gross, &commission, &net, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	b.Ref = core.Ref(ref)
	b.AircraftRef = core.Ref(aircraftRef)
	b.MembershipRef = core.Ref(membershipRef)
	b.Trip.Type = booking.TripType(tripType)
	b.Trip.DepartureAt = parseTime(departureAt)
	b.Trip.ReturnAt = parseNullTime(returnAt)
	b.Trip.EstimatedHours = parseDecimal(estimatedHours)
	b.Status = booking.Status(status)
	b.PaymentStatus = booking.PaymentStatus(paymentStatus)
	b.HourlyRateUSD = parseDecimal(hourlyRate)
	b.DiscountAppliedPct = parseDecimal(discount)
	b.CommissionPct = parseDecimal(commissionPct)
	b.GrossAmountUSD = parseDecimal(gross)
	b.CommissionUSD = parseDecimal(commission)
	b.NetOwnerUSD = parseDecimal(net)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

// =============================================================================
// DISPUTE STORE (dispute.Store)
// =============================================================================

// SaveDispute inserts a dispute row.
func (s *Store) SaveDispute(ctx context.Context, d *dispute.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disputes (ref, booking_ref, raised_by, subject, description,
			status, resolution, resolved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Ref.String(), d.BookingRef.String(), d.RaisedBy, d.Subject, d.Description,
		string(d.Status), d.Resolution, nullTime(d.ResolvedAt),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	return err
}

// UpdateDispute overwrites the dispute's mutable fields.
func (s *Store) UpdateDispute(ctx context.Context, d *dispute.Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE disputes SET
			status = ?, resolution = ?, resolved_at = ?, updated_at = ?
		WHERE ref = ?`,
		string(d.Status), d.Resolution, nullTime(d.ResolvedAt),
		formatTime(d.UpdatedAt), d.Ref.String(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFoundf("dispute", d.Ref.String())
	}
	return nil
}

const disputeColumns = `ref, booking_ref, raised_by, subject, description,
	status, resolution, resolved_at, created_at, updated_at`

// DisputeByRef retrieves one dispute.
func (s *Store) DisputeByRef(ctx context.Context, ref core.Ref) (*dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+disputeColumns+" FROM disputes WHERE ref = ?", ref.String())

	d, err := scanDispute(row)
	if err == sql.ErrNoRows {
		return nil, core.NotFoundf("dispute", ref.String())
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDisputesByUser returns disputes raised by one user, newest first.
func (s *Store) ListDisputesByUser(ctx context.Context, userID string) ([]dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryDisputes(ctx,
		"SELECT "+disputeColumns+" FROM disputes WHERE raised_by = ? ORDER BY created_at DESC",
		userID)
}

// ListDisputes returns all disputes, newest first.
func (s *Store) ListDisputes(ctx context.Context) ([]dispute.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryDisputes(ctx,
		"SELECT "+disputeColumns+" FROM disputes ORDER BY created_at DESC")
}

func (s *Store) queryDisputes(ctx context.Context, query string, args ...any) ([]dispute.Dispute, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disputes []dispute.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, *d)
	}
	return disputes, rows.Err()
}

func scanDispute(row rowScanner) (*dispute.Dispute, error) {
	var d dispute.Dispute
	var ref, bookingRef, status, createdAt, updatedAt string
	var description, resolution, resolvedAt sql.NullString

	err := row.Scan(&ref, &bookingRef, &d.RaisedBy, &d.Subject, &description,
		&status, &resolution, &resolvedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	d.Ref = core.Ref(ref)
	d.BookingRef = core.Ref(bookingRef)
	d.Description = description.String
	d.Status = dispute.Status(status)
	d.Resolution = resolution.String
	d.ResolvedAt = parseNullTime(resolvedAt)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// =============================================================================
// PAYMENT STORE (payments.Store)
// =============================================================================

// SavePayment appends a payment record.
func (s *Store) SavePayment(ctx context.Context, r payments.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (ref, user_id, booking_ref, membership_ref, type,
			status, amount_usd, currency, processor_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Ref.String(), r.UserID,
		nullString(r.BookingRef.String()), nullString(r.MembershipRef.String()),
		string(r.Type), string(r.Status), r.AmountUSD.String(), r.Currency,
		r.ProcessorID, r.Description, formatTime(r.CreatedAt),
	)
	return err
}

const paymentColumns = `ref, user_id, booking_ref, membership_ref, type,
	status, amount_usd, currency, processor_id, description, created_at`

// ListPaymentsByUser returns one user's payment records, newest first.
func (s *Store) ListPaymentsByUser(ctx context.Context, userID string) ([]payments.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE user_id = ? ORDER BY created_at DESC",
		userID)
}

// ListPayments returns all payment records, newest first.
func (s *Store) ListPayments(ctx context.Context) ([]payments.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments ORDER BY created_at DESC")
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]payments.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []payments.Record
	for rows.Next() {
		var r payments.Record
		var ref, typ, status, amount, createdAt string
		var bookingRef, membershipRef, processorID, description sql.NullString
		if err := rows.Scan(&ref, &r.UserID, &bookingRef, &membershipRef, &typ,
			&status, &amount, &r.Currency, &processorID, &description, &createdAt); err != nil {
			return nil, err
		}
		r.Ref = core.Ref(ref)
		r.BookingRef = core.Ref(bookingRef.String)
		r.MembershipRef = core.Ref(membershipRef.String)
		r.Type = payments.Type(typ)
		r.Status = payments.Status(status)
		r.AmountUSD = parseDecimal(amount)
		r.ProcessorID = processorID.String
		r.Description = description.String
		r.CreatedAt = parseTime(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseNullTime(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	return parseTime(ns.String)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
