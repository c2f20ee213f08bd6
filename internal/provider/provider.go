// Package provider abstracts the external payment provider. The core
// treats provider calls as synchronous success/failure; retries and
// dispute handling live on the provider side.
package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// Request identifies one provider-side money movement.
type Request struct {
	ProviderPaymentID string
	Amount            decimal.Decimal
	Currency          string
}

// PaymentProvider performs capture and refund against held funds.
type PaymentProvider interface {
	// Capture converts a held authorization into an irrevocable
	// transfer to the beneficiary.
	Capture(ctx context.Context, req Request) error
	// Refund reverses a held authorization back to the buyer.
	Refund(ctx context.Context, req Request) error
}
