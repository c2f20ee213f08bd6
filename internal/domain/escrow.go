package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EscrowStatus enumerates lifecycle states for escrowed funds.
type EscrowStatus string

const (
	EscrowStatusHolding  EscrowStatus = "HOLDING"
	EscrowStatusReleased EscrowStatus = "RELEASED"
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
)

// Escrow holds the order amount on behalf of the beneficiary organizer
// until the ticket is validated. Release is gated strictly on
// validation; it never happens on elapsed time or buyer claim.
type Escrow struct {
	ID            string
	OrderID       string
	BeneficiaryID string
	Amount        decimal.Decimal
	Status        EscrowStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusHolding:  {EscrowStatusReleased, EscrowStatusRefunded},
	EscrowStatusReleased: {},
	EscrowStatusRefunded: {},
}

// CanTransitionTo reports whether the status change is allowed.
func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	for _, candidate := range escrowTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}
