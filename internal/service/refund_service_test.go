package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketfair/escrow-service/internal/domain"
)

func TestIssueRefundBeforeValidation(t *testing.T) {
	ctx := context.Background()
	price := decimal.RequireFromString("45.50")

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)

	refund, err := f.refunds.IssueRefund(ctx, detail.Order.ID, organizer.ID, "event cancelled", "")
	require.NoError(t, err)

	assert.Equal(t, domain.RefundStatusIssued, refund.Status)
	assert.Equal(t, organizer.ID, refund.IssuedByID)
	assert.Equal(t, "event cancelled", refund.Reason)
	assert.True(t, refund.Amount.Equal(price))

	// The whole aggregate flips to refunded in one step.
	assert.Equal(t, domain.OrderStatusRefunded, f.store.orders[detail.Order.ID].Status)
	assert.Equal(t, domain.PaymentStatusRefunded, f.store.payments[detail.Payment.ID].Status)
	assert.Equal(t, domain.EscrowStatusRefunded, f.store.escrows[detail.Escrow.ID].Status)
	assert.Equal(t, domain.TicketStatusRefunded, f.store.tickets[ticket.ID].Status)

	assert.Equal(t, 1, f.provider.refunds)
	assert.Equal(t, detail.Payment.ProviderPaymentID, f.provider.lastRequest.ProviderPaymentID)
}

func TestIssueRefundByNonOrganizerForbidden(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(50)

	f := newFixture()
	buyer, _, ticket, detail := placeOrder(t, f, price)
	other := f.addAccount(domain.AccountRoleOrganizer)

	for _, intruder := range []string{other.ID, buyer.ID} {
		_, err := f.refunds.IssueRefund(ctx, detail.Order.ID, intruder, "not mine", "")
		assertDomainCode(t, err, "FORBIDDEN")
	}

	// No state moved and the provider was never called.
	assert.Equal(t, domain.OrderStatusPaid, f.store.orders[detail.Order.ID].Status)
	assert.Equal(t, domain.PaymentStatusHeld, f.store.payments[detail.Payment.ID].Status)
	assert.Equal(t, domain.EscrowStatusHolding, f.store.escrows[detail.Escrow.ID].Status)
	assert.Equal(t, domain.TicketStatusSold, f.store.tickets[ticket.ID].Status)
	assert.Empty(t, f.store.refunds)
	assert.Equal(t, 0, f.provider.refunds)
}

func TestIssueRefundTwice(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(18)

	f := newFixture()
	_, organizer, _, detail := placeOrder(t, f, price)

	_, err := f.refunds.IssueRefund(ctx, detail.Order.ID, organizer.ID, "duplicate shipment", "")
	require.NoError(t, err)

	_, err = f.refunds.IssueRefund(ctx, detail.Order.ID, organizer.ID, "duplicate shipment", "")
	assertDomainCode(t, err, "INVALID_STATE")

	assert.Len(t, f.store.refunds, 1)
	assert.Equal(t, 1, f.provider.refunds)
}

func TestIssueRefundAfterReleaseRejected(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(90)

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)

	_, err := f.tickets.ValidateTicket(ctx, ticket.ID, organizer.ID)
	require.NoError(t, err)
	_, err = f.settlements.ReleaseEscrow(ctx, detail.Order.ID, organizer.ID, "")
	require.NoError(t, err)

	// Released funds are never clawed back.
	_, err = f.refunds.IssueRefund(ctx, detail.Order.ID, organizer.ID, "changed my mind", "")
	assertDomainCode(t, err, "INVALID_STATE")

	assert.Equal(t, domain.OrderStatusReleased, f.store.orders[detail.Order.ID].Status)
	assert.Equal(t, domain.PaymentStatusCaptured, f.store.payments[detail.Payment.ID].Status)
	assert.Equal(t, 0, f.provider.refunds)
}

func TestIssueRefundProviderFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(33)

	f := newFixture()
	_, organizer, ticket, detail := placeOrder(t, f, price)

	f.provider.refundErr = errors.New("refund rejected")

	_, err := f.refunds.IssueRefund(ctx, detail.Order.ID, organizer.ID, "venue flooded", "")
	assertDomainCode(t, err, "TRANSACTION_FAILED")

	assert.Equal(t, domain.OrderStatusPaid, f.store.orders[detail.Order.ID].Status)
	assert.Equal(t, domain.PaymentStatusHeld, f.store.payments[detail.Payment.ID].Status)
	assert.Equal(t, domain.EscrowStatusHolding, f.store.escrows[detail.Escrow.ID].Status)
	assert.Equal(t, domain.TicketStatusSold, f.store.tickets[ticket.ID].Status)
	assert.Empty(t, f.store.refunds)
}

func TestIssueRefundUnknownOrder(t *testing.T) {
	f := newFixture()
	organizer := f.addAccount(domain.AccountRoleOrganizer)

	_, err := f.refunds.IssueRefund(context.Background(), "missing-order", organizer.ID, "", "")
	assertDomainCode(t, err, "NOT_FOUND")
}

func TestIssueRefundRecordsAudit(t *testing.T) {
	ctx := context.Background()
	price := decimal.NewFromInt(22)

	f := newFixture()
	_, organizer, _, detail := placeOrder(t, f, price)

	_, err := f.refunds.IssueRefund(ctx, detail.Order.ID, organizer.ID, "speaker cancelled", "")
	require.NoError(t, err)

	var refundAudits []*domain.OrderEvent
	for _, event := range f.store.events {
		if event.Kind == domain.OrderEventRefunded {
			refundAudits = append(refundAudits, event)
		}
	}
	require.Len(t, refundAudits, 1)
	assert.Equal(t, detail.Order.ID, refundAudits[0].OrderID)
	require.NotNil(t, refundAudits[0].ActorID)
	assert.Equal(t, organizer.ID, *refundAudits[0].ActorID)
	assert.Equal(t, "speaker cancelled", refundAudits[0].NewValue["reason"])
}
