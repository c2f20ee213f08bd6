package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/events"
)

// placeOrder runs the purchase flow and returns the parties and the
// created aggregate.
func placeOrder(t *testing.T, f *fixture, price decimal.Decimal) (buyer, organizer *domain.Account, ticket *domain.Ticket, detail *OrderDetail) {
	t.Helper()
	buyer = f.addAccount(domain.AccountRoleBuyer)
	organizer = f.addAccount(domain.AccountRoleOrganizer)
	ticket = f.addTicket(organizer.ID, price, domain.TicketStatusAvailable)

	var err error
	detail, err = f.orders.CreateOrder(context.Background(), buyer.ID, ticket.ID, price, "")
	require.NoError(t, err)
	return buyer, organizer, ticket, detail
}

func TestReleaseEscrowAfterValidation(t *testing.T) {
	ctx := context.Background()
	price := decimal.RequireFromString("80.00")

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)

	_, err := f.tickets.ValidateTicket(ctx, ticket.ID, organizer.ID)
	require.NoError(t, err)

	result, err := f.settlements.ReleaseEscrow(ctx, detail.Order.ID, organizer.ID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusReleased, result.Order.Status)
	assert.Equal(t, domain.EscrowStatusReleased, result.Escrow.Status)
	assert.Equal(t, organizer.ID, result.Escrow.BeneficiaryID)

	assert.Equal(t, domain.OrderStatusReleased, f.store.orders[detail.Order.ID].Status)
	assert.Equal(t, domain.PaymentStatusCaptured, f.store.payments[detail.Payment.ID].Status)
	assert.Equal(t, domain.EscrowStatusReleased, f.store.escrows[detail.Escrow.ID].Status)
	assert.Equal(t, domain.TicketStatusValidated, f.store.tickets[ticket.ID].Status)

	assert.Equal(t, 1, f.provider.captures)
	assert.Equal(t, detail.Payment.ProviderPaymentID, f.provider.lastRequest.ProviderPaymentID)
	assert.True(t, f.provider.lastRequest.Amount.Equal(price))
	assert.Equal(t, "USD", f.provider.lastRequest.Currency)
}

func TestReleaseEscrowRequiresValidatedTicket(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(35)

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)

	_, err := f.settlements.ReleaseEscrow(ctx, detail.Order.ID, organizer.ID, "")
	assertDomainCode(t, err, "INVALID_STATE")

	// Nothing moves before the ticket is validated.
	assert.Equal(t, domain.OrderStatusPaid, f.store.orders[detail.Order.ID].Status)
	assert.Equal(t, domain.PaymentStatusHeld, f.store.payments[detail.Payment.ID].Status)
	assert.Equal(t, domain.EscrowStatusHolding, f.store.escrows[detail.Escrow.ID].Status)
	assert.Equal(t, domain.TicketStatusSold, f.store.tickets[ticket.ID].Status)
	assert.Equal(t, 0, f.provider.captures)
}

func TestReleaseEscrowUnknownOrder(t *testing.T) {
	f := newFixture()
	_, err := f.settlements.ReleaseEscrow(context.Background(), "missing-order", "", "")
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestReleaseEscrowWithoutEscrowRow(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	order := &domain.Order{
		BuyerID:  "buyer",
		TicketID: "ticket",
		Amount:   decimal.NewFromInt(10),
		Status:   domain.OrderStatusPaid,
	}
	require.NoError(t, (&memOrders{f.store}).Create(ctx, order))

	_, err := f.settlements.ReleaseEscrow(ctx, order.ID, "", "")
	assertDomainCode(t, err, "INVALID_STATE")
}

func TestReleaseEscrowProviderFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(70)

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)
	_, err := f.tickets.ValidateTicket(ctx, ticket.ID, organizer.ID)
	require.NoError(t, err)

	f.provider.captureErr = errors.New("capture declined")

	_, err = f.settlements.ReleaseEscrow(ctx, detail.Order.ID, organizer.ID, "")
	assertDomainCode(t, err, "TRANSACTION_FAILED")

	assert.Equal(t, domain.OrderStatusPaid, f.store.orders[detail.Order.ID].Status)
	assert.Equal(t, domain.PaymentStatusHeld, f.store.payments[detail.Payment.ID].Status)
	assert.Equal(t, domain.EscrowStatusHolding, f.store.escrows[detail.Escrow.ID].Status)
	assert.Equal(t, 1, f.provider.captures)
}

func TestReleaseEscrowTwice(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(25)

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)
	_, err := f.tickets.ValidateTicket(ctx, ticket.ID, organizer.ID)
	require.NoError(t, err)

	_, err = f.settlements.ReleaseEscrow(ctx, detail.Order.ID, organizer.ID, "")
	require.NoError(t, err)

	_, err = f.settlements.ReleaseEscrow(ctx, detail.Order.ID, organizer.ID, "")
	assertDomainCode(t, err, "INVALID_STATE")

	// The payment was captured exactly once.
	assert.Equal(t, 1, f.provider.captures)
	assert.Equal(t, domain.OrderStatusReleased, f.store.orders[detail.Order.ID].Status)
}

func TestReleaseEscrowPublishesSystemActorForWorker(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(12)

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)
	_, err := f.tickets.ValidateTicket(ctx, ticket.ID, organizer.ID)
	require.NoError(t, err)

	var published []events.Event
	f.dispatcher.Subscribe(events.EventEscrowReleased, func(ctx context.Context, event events.Event) error {
		published = append(published, event)
		return nil
	})

	// Empty triggeredBy models the settlement worker.
	_, err = f.settlements.ReleaseEscrow(ctx, detail.Order.ID, "", "")
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, detail.Order.ID, published[0].OrderID)
	assert.Equal(t, "settlement", published[0].Actor.System)
	assert.Nil(t, published[0].Actor.AccountID)
}
