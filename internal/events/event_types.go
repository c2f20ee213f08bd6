package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderCreated    EventType = "order_created"
	EventTicketValidated EventType = "ticket_validated"
	EventEscrowReleased  EventType = "escrow_released"
	EventRefundIssued    EventType = "refund_issued"
)

// Actor encapsulates actor metadata for an event. The ID is empty when
// the event originated from the settlement worker.
type Actor struct {
	Role      domain.AccountRole `json:"role,omitempty"`
	AccountID *string            `json:"account_id,omitempty"`
	System    string             `json:"system,omitempty"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	OrderID   string      `json:"order_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderCreatedPayload payload.
type OrderCreatedPayload struct {
	BuyerID       string          `json:"buyer_id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// TicketValidatedPayload payload. OrderID is the active order on the
// ticket at validation time; the settlement worker releases it.
type TicketValidatedPayload struct {
	OrganizerID string `json:"organizer_id"`
}

// EscrowReleasedPayload payload.
type EscrowReleasedPayload struct {
	EscrowID      string          `json:"escrow_id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// RefundIssuedPayload payload.
type RefundIssuedPayload struct {
	RefundID   string          `json:"refund_id"`
	IssuedByID string          `json:"issued_by_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
}
