package domain

import "time"

// OrderEventKind enumerates audit entry kinds for an order aggregate.
type OrderEventKind string

const (
	OrderEventCreated   OrderEventKind = "CREATED"
	OrderEventReleased  OrderEventKind = "RELEASED"
	OrderEventRefunded  OrderEventKind = "REFUNDED"
	OrderEventValidated OrderEventKind = "TICKET_VALIDATED"
)

// OrderEvent is an audit trail entry written in the same transaction as
// the state change it describes.
type OrderEvent struct {
	ID        string
	OrderID   string
	ActorID   *string
	Kind      OrderEventKind
	OldValue  map[string]any
	NewValue  map[string]any
	CreatedAt time.Time
}
