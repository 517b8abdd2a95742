/*
Package pricing computes the monetary triad for a charter booking.

PURPOSE:
  A single pure function turns an hourly rate, a duration, a membership
  discount and a commission rate into {gross, commission, net}. No I/O,
  no clock, no state - callers resolve those inputs first.

INVARIANTS:
  1. gross      = round2(hourly_rate x (1 - discount/100) x hours)
  2. commission = round2(gross x commission/100)
  3. net        = gross - commission  (derived, never rounded on its own)
  4. commission + net == gross, exactly, for every valid input

Rounding is half-up to 2 decimal places and is applied exactly once to
gross and once to commission. Net is subtraction only, so the triad can
never drift apart. All values are decimal.Decimal; float64 must not touch
any of the three fields.
*/
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
)

var hundred = decimal.NewFromInt(100)

// Quote is the computed monetary triad for one booking.
type Quote struct {
	GrossUSD      decimal.Decimal
	CommissionUSD decimal.Decimal
	NetOwnerUSD   decimal.Decimal
}

// Price computes a Quote.
//
//	effective_rate = hourlyRate x (1 - discountPct/100)
//	gross          = round2(effective_rate x hours)
//	commission     = round2(gross x commissionPct/100)
//	net            = gross - commission
func Price(hourlyRate, hours, discountPct, commissionPct decimal.Decimal) Quote {
	effectiveRate := hourlyRate.Mul(decimal.NewFromInt(1).Sub(discountPct.Div(hundred)))
	gross := round2(effectiveRate.Mul(hours))
	commission := round2(gross.Mul(commissionPct).Div(hundred))
	return Quote{
		GrossUSD:      gross,
		CommissionUSD: commission,
		NetOwnerUSD:   gross.Sub(commission),
	}
}

// Recompute re-derives commission and net from a gross amount and a
// commission percentage. The booking ledger calls this on every save that
// touches either input so the triad is always persisted together.
func Recompute(gross, commissionPct decimal.Decimal) (commission, net decimal.Decimal) {
	commission = round2(gross.Mul(commissionPct).Div(hundred))
	return commission, gross.Sub(commission)
}

// ValidatePct checks a percentage field is within [0, 100].
func ValidatePct(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return core.InvalidArgf(field, "must be between 0 and 100, got %s", pct)
	}
	return nil
}

// round2 rounds half-up to two decimal places. decimal.Round rounds half
// away from zero, which is half-up for the non-negative amounts handled
// here.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
