package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundStatus enumerates outcomes of a refund attempt.
type RefundStatus string

const (
	RefundStatusIssued RefundStatus = "ISSUED"
	RefundStatusFailed RefundStatus = "FAILED"
)

// Refund records a reversal of an order's payment, authorized by the
// ticket's organizer. At most one issued refund exists per order; the
// record is immutable after creation.
type Refund struct {
	ID         string
	OrderID    string
	IssuedByID string
	Amount     decimal.Decimal
	Reason     string
	Status     RefundStatus
	CreatedAt  time.Time
}
