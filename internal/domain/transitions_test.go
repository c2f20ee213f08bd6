package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketTransitions(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		allowed  bool
	}{
		{TicketStatusAvailable, TicketStatusSold, true},
		{TicketStatusSold, TicketStatusValidated, true},
		{TicketStatusSold, TicketStatusRefunded, true},
		{TicketStatusValidated, TicketStatusRefunded, true},
		{TicketStatusAvailable, TicketStatusValidated, false},
		{TicketStatusAvailable, TicketStatusRefunded, false},
		{TicketStatusValidated, TicketStatusSold, false},
		{TicketStatusRefunded, TicketStatusAvailable, false},
		{TicketStatusRefunded, TicketStatusSold, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPaid, OrderStatusReleased, true},
		{OrderStatusPaid, OrderStatusRefunded, true},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusReleased, OrderStatusRefunded, false},
		{OrderStatusRefunded, OrderStatusPaid, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusRefunded.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusPaid.Terminal())
	assert.False(t, OrderStatusReleased.Terminal())
}

func TestPaymentTransitions(t *testing.T) {
	cases := []struct {
		from, to PaymentStatus
		allowed  bool
	}{
		{PaymentStatusInitiated, PaymentStatusHeld, true},
		{PaymentStatusInitiated, PaymentStatusFailed, true},
		{PaymentStatusHeld, PaymentStatusCaptured, true},
		{PaymentStatusHeld, PaymentStatusRefunded, true},
		{PaymentStatusCaptured, PaymentStatusRefunded, false},
		{PaymentStatusRefunded, PaymentStatusHeld, false},
		{PaymentStatusFailed, PaymentStatusHeld, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEscrowTransitions(t *testing.T) {
	cases := []struct {
		from, to EscrowStatus
		allowed  bool
	}{
		{EscrowStatusHolding, EscrowStatusReleased, true},
		{EscrowStatusHolding, EscrowStatusRefunded, true},
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusRefunded, EscrowStatusReleased, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}
