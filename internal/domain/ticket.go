package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates lifecycle states for sale tickets.
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "AVAILABLE"
	TicketStatusSold      TicketStatus = "SOLD"
	TicketStatusValidated TicketStatus = "VALIDATED"
	TicketStatusRefunded  TicketStatus = "REFUNDED"
)

// Ticket is a single admission listed by an organizer. The organizer is
// the beneficiary of escrowed funds once the ticket is validated.
type Ticket struct {
	ID          string
	EventRef    string
	OrganizerID string
	Price       decimal.Decimal
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusAvailable: {TicketStatusSold},
	TicketStatusSold:      {TicketStatusValidated, TicketStatusRefunded},
	TicketStatusValidated: {TicketStatusRefunded},
	TicketStatusRefunded:  {},
}

// CanTransitionTo reports whether the status change is allowed.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, candidate := range ticketTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
