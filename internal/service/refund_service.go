package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/events"
	"github.com/ticketfair/escrow-service/internal/observability"
	"github.com/ticketfair/escrow-service/internal/provider"
	"github.com/ticketfair/escrow-service/internal/repository"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// RefundService reverses an order's payment, escrow, ticket and order
// together. Only the ticket's organizer may authorize a refund, and
// only while the escrow (when present) is still holding; claw-back of
// released funds is routed to the provider's dispute process instead.
type RefundService struct {
	tx          repository.TxRunner
	provider    provider.PaymentProvider
	currency    string
	idempotency *IdempotencyStore
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// RefundDependencies bundles collaborators for the refund service.
type RefundDependencies struct {
	TxRunner    repository.TxRunner
	Provider    provider.PaymentProvider
	Currency    string
	Idempotency *IdempotencyStore
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRefundService constructs the service.
func NewRefundService(deps RefundDependencies) *RefundService {
	return &RefundService{
		tx:          deps.TxRunner,
		provider:    deps.Provider,
		currency:    deps.Currency,
		idempotency: deps.Idempotency,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// IssueRefund invalidates payment, escrow, ticket and order together
// and records the refund. A second refund of the same order observes
// the refunded status and fails with InvalidState.
func (s *RefundService) IssueRefund(ctx context.Context, orderID, organizerID, reason, idemKey string) (*domain.Refund, error) {
	if idemKey != "" && s.idempotency != nil {
		if seenOrder, err := s.idempotency.Lookup(ctx, opIssueRefund, organizerID, idemKey); err == nil && seenOrder != "" {
			return s.loadIssued(ctx, seenOrder)
		}
	}

	var refund *domain.Refund
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if _, err := repos.Accounts.GetByID(ctx, organizerID); err != nil {
			return notFoundOr(err, "organizer")
		}

		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order")
		}
		if order.Status == domain.OrderStatusRefunded {
			return apperrors.NewInvalidState("order already refunded", nil)
		}

		ticket, err := repos.Tickets.GetByID(ctx, order.TicketID)
		if err != nil {
			return notFoundOr(err, "ticket")
		}
		if ticket.OrganizerID != organizerID {
			return apperrors.NewForbidden("only the ticket organizer may issue a refund")
		}

		payment, err := repos.Payments.GetByOrder(ctx, orderID)
		if err != nil {
			return invalidStateOr(err, "order has no payment")
		}
		if payment.Status == domain.PaymentStatusRefunded {
			return apperrors.NewInvalidState("payment already refunded", nil)
		}
		if payment.Status != domain.PaymentStatusHeld {
			return apperrors.NewInvalidState("payment is not held", map[string]any{"payment_status": payment.Status})
		}

		escrow, err := repos.Escrows.GetByOrder(ctx, orderID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if escrow != nil && escrow.Status != domain.EscrowStatusHolding {
			// Released funds are never clawed back here.
			return apperrors.NewInvalidState("escrow is not holding", map[string]any{"escrow_status": escrow.Status})
		}

		refundReq := provider.Request{
			ProviderPaymentID: payment.ProviderPaymentID,
			Amount:            payment.Amount,
			Currency:          s.currency,
		}
		if err := s.provider.Refund(ctx, refundReq); err != nil {
			return apperrors.NewTransactionFailure(err)
		}

		created := &domain.Refund{
			OrderID:    order.ID,
			IssuedByID: organizerID,
			Amount:     payment.Amount,
			Reason:     reason,
			Status:     domain.RefundStatusIssued,
		}
		if err := repos.Refunds.Create(ctx, created); err != nil {
			return err
		}

		if err := repos.Payments.UpdateStatusIf(ctx, payment.ID, domain.PaymentStatusHeld, domain.PaymentStatusRefunded); err != nil {
			return conflictAsInvalidState(err)
		}
		if escrow != nil {
			if err := repos.Escrows.UpdateStatusIf(ctx, escrow.ID, domain.EscrowStatusHolding, domain.EscrowStatusRefunded); err != nil {
				return conflictAsInvalidState(err)
			}
		}
		if !ticket.Status.CanTransitionTo(domain.TicketStatusRefunded) {
			return apperrors.NewInvalidState("ticket cannot be refunded", map[string]any{"ticket_status": ticket.Status})
		}
		if err := repos.Tickets.UpdateStatusIf(ctx, ticket.ID, ticket.Status, domain.TicketStatusRefunded); err != nil {
			return conflictAsInvalidState(err)
		}
		if err := repos.Orders.UpdateStatusIf(ctx, order.ID, order.Status, domain.OrderStatusRefunded); err != nil {
			return conflictAsInvalidState(err)
		}

		audit := &domain.OrderEvent{
			OrderID:  order.ID,
			ActorID:  &organizerID,
			Kind:     domain.OrderEventRefunded,
			OldValue: map[string]any{
				"order_status":   order.Status,
				"payment_status": domain.PaymentStatusHeld,
				"ticket_status":  ticket.Status,
			},
			NewValue: map[string]any{
				"order_status":   domain.OrderStatusRefunded,
				"payment_status": domain.PaymentStatusRefunded,
				"ticket_status":  domain.TicketStatusRefunded,
				"reason":         reason,
			},
		}
		if err := repos.OrderEvents.Create(ctx, audit); err != nil {
			return err
		}

		refund = created
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation(opIssueRefund, refundOutcome(err))
		return nil, wrapTxErr(err)
	}

	if idemKey != "" && s.idempotency != nil {
		if err := s.idempotency.Record(ctx, opIssueRefund, organizerID, idemKey, orderID); err != nil {
			s.logger.Warn("idempotency record failed", zap.Error(err))
		}
	}
	s.metrics.RecordOperation(opIssueRefund, "success")
	s.logger.Info("refund issued",
		zap.String("order_id", orderID),
		zap.String("refund_id", refund.ID),
		zap.String("organizer_id", organizerID))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventRefundIssued,
		OrderID: orderID,
		Actor:   accountActor(domain.AccountRoleOrganizer, organizerID),
		Payload: events.RefundIssuedPayload{
			RefundID:   refund.ID,
			IssuedByID: organizerID,
			Amount:     refund.Amount,
			Reason:     reason,
		},
	})
	return refund, nil
}

func (s *RefundService) loadIssued(ctx context.Context, orderID string) (*domain.Refund, error) {
	var refund *domain.Refund
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		loaded, err := repos.Refunds.GetIssuedByOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "refund")
		}
		refund = loaded
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return refund, nil
}

func refundOutcome(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "FORBIDDEN" {
		return "forbidden"
	}
	return "failure"
}
