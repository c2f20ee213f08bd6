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

// SettlementService releases escrowed funds to the organizer once the
// ticket has been validated.
type SettlementService struct {
	tx          repository.TxRunner
	provider    provider.PaymentProvider
	currency    string
	idempotency *IdempotencyStore
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// SettlementDependencies bundles collaborators for the settlement service.
type SettlementDependencies struct {
	TxRunner    repository.TxRunner
	Provider    provider.PaymentProvider
	Currency    string
	Idempotency *IdempotencyStore
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewSettlementService constructs the service.
func NewSettlementService(deps SettlementDependencies) *SettlementService {
	return &SettlementService{
		tx:          deps.TxRunner,
		provider:    deps.Provider,
		currency:    deps.Currency,
		idempotency: deps.Idempotency,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// ReleaseEscrow captures the held payment and releases the escrow to
// its beneficiary. Release is gated strictly on ticket validation; it
// never happens on elapsed time or buyer claim. triggeredBy is the
// account that initiated the release, or empty when the settlement
// worker did.
func (s *SettlementService) ReleaseEscrow(ctx context.Context, orderID, triggeredBy, idemKey string) (*ReleaseResult, error) {
	if idemKey != "" && s.idempotency != nil {
		if seenOrder, err := s.idempotency.Lookup(ctx, opReleaseEscrow, triggeredBy, idemKey); err == nil && seenOrder != "" {
			return s.loadResult(ctx, seenOrder)
		}
	}

	var result *ReleaseResult
	var beneficiaryID string
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order")
		}

		escrow, err := repos.Escrows.GetByOrder(ctx, orderID)
		if err != nil {
			return invalidStateOr(err, "order has no escrow")
		}
		if escrow.Status != domain.EscrowStatusHolding {
			return apperrors.NewInvalidState("escrow is not holding", map[string]any{"escrow_status": escrow.Status})
		}

		payment, err := repos.Payments.GetByOrder(ctx, orderID)
		if err != nil {
			return invalidStateOr(err, "order has no payment")
		}
		if payment.Status != domain.PaymentStatusHeld {
			return apperrors.NewInvalidState("payment is not held", map[string]any{"payment_status": payment.Status})
		}

		ticket, err := repos.Tickets.GetByID(ctx, order.TicketID)
		if err != nil {
			return notFoundOr(err, "ticket")
		}
		if ticket.Status != domain.TicketStatusValidated {
			return apperrors.NewInvalidState("ticket is not validated", map[string]any{"ticket_status": ticket.Status})
		}

		captureReq := provider.Request{
			ProviderPaymentID: payment.ProviderPaymentID,
			Amount:            payment.Amount,
			Currency:          s.currency,
		}
		if err := s.provider.Capture(ctx, captureReq); err != nil {
			return apperrors.NewTransactionFailure(err)
		}

		if err := repos.Payments.UpdateStatusIf(ctx, payment.ID, domain.PaymentStatusHeld, domain.PaymentStatusCaptured); err != nil {
			return conflictAsInvalidState(err)
		}
		if err := repos.Escrows.UpdateStatusIf(ctx, escrow.ID, domain.EscrowStatusHolding, domain.EscrowStatusReleased); err != nil {
			return conflictAsInvalidState(err)
		}
		if err := repos.Orders.UpdateStatusIf(ctx, order.ID, domain.OrderStatusPaid, domain.OrderStatusReleased); err != nil {
			return conflictAsInvalidState(err)
		}

		audit := &domain.OrderEvent{
			OrderID:  order.ID,
			ActorID:  optionalActor(triggeredBy),
			Kind:     domain.OrderEventReleased,
			OldValue: map[string]any{
				"order_status":   order.Status,
				"payment_status": payment.Status,
				"escrow_status":  escrow.Status,
			},
			NewValue: map[string]any{
				"order_status":   domain.OrderStatusReleased,
				"payment_status": domain.PaymentStatusCaptured,
				"escrow_status":  domain.EscrowStatusReleased,
			},
		}
		if err := repos.OrderEvents.Create(ctx, audit); err != nil {
			return err
		}

		order.Status = domain.OrderStatusReleased
		escrow.Status = domain.EscrowStatusReleased
		beneficiaryID = escrow.BeneficiaryID
		result = &ReleaseResult{Order: order, Escrow: escrow}
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation(opReleaseEscrow, "failure")
		return nil, wrapTxErr(err)
	}

	if idemKey != "" && s.idempotency != nil {
		if err := s.idempotency.Record(ctx, opReleaseEscrow, triggeredBy, idemKey, orderID); err != nil {
			s.logger.Warn("idempotency record failed", zap.Error(err))
		}
	}
	s.metrics.RecordOperation(opReleaseEscrow, "success")
	s.logger.Info("escrow released",
		zap.String("order_id", orderID),
		zap.String("escrow_id", result.Escrow.ID),
		zap.String("beneficiary_id", beneficiaryID))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:    events.EventEscrowReleased,
		OrderID: orderID,
		Actor:   releaseActor(triggeredBy),
		Payload: events.EscrowReleasedPayload{
			EscrowID:      result.Escrow.ID,
			BeneficiaryID: beneficiaryID,
			Amount:        result.Escrow.Amount,
		},
	})
	return result, nil
}

func (s *SettlementService) loadResult(ctx context.Context, orderID string) (*ReleaseResult, error) {
	var result *ReleaseResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order")
		}
		escrow, err := repos.Escrows.GetByOrder(ctx, orderID)
		if err != nil {
			return invalidStateOr(err, "order has no escrow")
		}
		result = &ReleaseResult{Order: order, Escrow: escrow}
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return result, nil
}

func invalidStateOr(err error, message string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewInvalidState(message, nil)
	}
	return err
}

func conflictAsInvalidState(err error) error {
	if errors.Is(err, repository.ErrStateConflict) {
		return apperrors.NewInvalidState("order state changed concurrently", nil)
	}
	return err
}

func optionalActor(accountID string) *string {
	if accountID == "" {
		return nil
	}
	return &accountID
}

func releaseActor(triggeredBy string) events.Actor {
	if triggeredBy == "" {
		return systemActor()
	}
	return events.Actor{AccountID: &triggeredBy}
}
