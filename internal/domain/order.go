package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates buyer-side lifecycle states for an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusReleased  OrderStatus = "RELEASED"
	OrderStatusRefunded  OrderStatus = "REFUNDED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is the aggregate root of a purchase. Payment and Escrow refer
// back to it by identifier only; the order never holds object pointers
// to them.
type Order struct {
	ID        string
	BuyerID   string
	TicketID  string
	Amount    decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the order can no longer change state. A
// ticket with only terminal orders may be sold again.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusRefunded || s == OrderStatusCancelled
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusReleased, OrderStatusRefunded, OrderStatusCancelled},
	OrderStatusReleased:  {},
	OrderStatusRefunded:  {},
	OrderStatusCancelled: {},
}

// CanTransitionTo reports whether the status change is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
