/*
Package payments records externally-confirmed payment events.

The engine is not a payment processor: it never touches card data and does
not reconcile against Stripe. A PaymentRecord is the durable note that some
external source reported "payment succeeded for reference X" - emitted as a
side effect of subscribing and of booking payment confirmation.
*/
package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vistajets/charter-engine/core"
)

type Type string

const (
	TypeMembership Type = "membership"
	TypeBooking    Type = "booking"
	TypeRefund     Type = "refund"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Record is one payment event.
type Record struct {
	Ref           core.Ref
	UserID        string
	BookingRef    core.Ref // empty unless Type is booking/refund
	MembershipRef core.Ref // empty unless Type is membership
	Type          Type
	Status        Status
	AmountUSD     decimal.Decimal
	Currency      string
	ProcessorID   string // external processor reference, recorded verbatim
	Description   string
	CreatedAt     time.Time
}

// Store persists payment records. Append-only.
type Store interface {
	SavePayment(ctx context.Context, r Record) error
	ListPaymentsByUser(ctx context.Context, userID string) ([]Record, error)
	ListPayments(ctx context.Context) ([]Record, error)
}
