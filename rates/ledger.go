/*
Package rates is the commission Rate Ledger.

PURPOSE:
  Holds the time-ordered history of marketplace commission percentages and
  resolves "the rate in effect" for any moment. The ledger is append-only:
  entries are never mutated or deleted, and correcting a rate means
  appending a new entry with a later effective date.

RESOLUTION:
  The effective rate at time T is the rate of the most recent entry with
  effective_from <= T; ties on effective_from break toward the latest
  creation order (store sequence id). With no qualifying entry the system
  default applies.

Appending a rate never retroactively touches existing bookings: the booking
ledger snapshots the resolved percentage at creation time.
*/
package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
	"github.com/vistajets/charter-engine/pricing"
)

// DefaultRatePct is the commission applied when the ledger has no entry
// effective at the requested time.
var DefaultRatePct = decimal.NewFromInt(10)

// Setting is one immutable ledger entry.
type Setting struct {
	Ref           core.Ref
	Seq           int64 // store-assigned creation order, breaks effective_from ties
	RatePct       decimal.Decimal
	EffectiveFrom time.Time
	Note          string
	SetBy         string
	CreatedAt     time.Time
}

// Store is the persistence contract for commission settings.
// Append-only: there is no update or delete.
type Store interface {
	// AppendCommission persists the entry and fills in Seq.
	AppendCommission(ctx context.Context, s *Setting) error

	// EffectiveCommission returns the entry in effect at the given time,
	// or nil if no entry qualifies.
	EffectiveCommission(ctx context.Context, at time.Time) (*Setting, error)

	// ListCommissions returns all entries, newest effective_from first.
	ListCommissions(ctx context.Context) ([]Setting, error)
}

// Ledger resolves and appends commission rates.
type Ledger struct {
	store      Store
	defaultPct decimal.Decimal
	clock      core.Clock
}

// NewLedger creates a rate ledger. A zero defaultPct falls back to
// DefaultRatePct.
func NewLedger(store Store, defaultPct decimal.Decimal, clock core.Clock) *Ledger {
	if defaultPct.IsZero() {
		defaultPct = DefaultRatePct
	}
	if clock == nil {
		clock = core.UTCNow
	}
	return &Ledger{store: store, defaultPct: defaultPct, clock: clock}
}

// Add appends a new rate entry. The only validation is 0 <= pct <= 100.
func (l *Ledger) Add(ctx context.Context, pct decimal.Decimal, effectiveFrom time.Time, note, setBy string) (*Setting, error) {
	if err := pricing.ValidatePct("rate_pct", pct); err != nil {
		return nil, err
	}
	s := &Setting{
		Ref:           core.NewRef(),
		RatePct:       pct,
		EffectiveFrom: core.DateOf(effectiveFrom),
		Note:          note,
		SetBy:         setBy,
		CreatedAt:     l.clock(),
	}
	if err := l.store.AppendCommission(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolve returns the commission percentage in effect at the given time.
func (l *Ledger) Resolve(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	s, err := l.store.EffectiveCommission(ctx, at)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if s == nil {
		return l.defaultPct, nil
	}
	return s.RatePct, nil
}

// History returns the full append-only history.
func (l *Ledger) History(ctx context.Context) ([]Setting, error) {
	return l.store.ListCommissions(ctx)
}
