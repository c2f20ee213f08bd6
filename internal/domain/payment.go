package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enumerates provider-side lifecycle states for a payment.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusHeld      PaymentStatus = "HELD"
	PaymentStatusCaptured  PaymentStatus = "CAPTURED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment tracks the buyer's charge at the payment provider. HELD means
// the buyer has been charged but the funds are not yet the organizer's;
// CAPTURED means the transfer is irrevocable.
type Payment struct {
	ID                string
	OrderID           string
	ProviderPaymentID string
	Amount            decimal.Decimal
	Status            PaymentStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusInitiated: {PaymentStatusHeld, PaymentStatusFailed},
	PaymentStatusHeld:      {PaymentStatusCaptured, PaymentStatusRefunded},
	PaymentStatusCaptured:  {},
	PaymentStatusRefunded:  {},
	PaymentStatusFailed:    {},
}

// CanTransitionTo reports whether the status change is allowed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
