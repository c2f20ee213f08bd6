package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/events"
	"github.com/ticketfair/escrow-service/internal/observability"
	"github.com/ticketfair/escrow-service/internal/repository"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// OrderService creates orders: it reserves a ticket and opens the
// payment and escrow for it in one atomic unit.
type OrderService struct {
	tx          repository.TxRunner
	idempotency *IdempotencyStore
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	TxRunner    repository.TxRunner
	Idempotency *IdempotencyStore
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	return &OrderService{
		tx:          deps.TxRunner,
		idempotency: deps.Idempotency,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// CreateOrder reserves the ticket for the buyer and creates the order
// with its payment (held) and escrow (holding). Either everything is
// committed or nothing is; a racing buyer on the same ticket fails
// cleanly with InvalidState.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID, ticketID string, amount decimal.Decimal, idemKey string) (*OrderDetail, error) {
	if replay, err := s.replayIfSeen(ctx, buyerID, idemKey); err == nil && replay != nil {
		return replay, nil
	}

	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount must be positive", nil)
	}

	var detail *OrderDetail
	var beneficiaryID string
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		buyer, err := repos.Accounts.GetByID(ctx, buyerID)
		if err != nil {
			return notFoundOr(err, "buyer")
		}
		if buyer.Role != domain.AccountRoleBuyer {
			return apperrors.NewNotFound("buyer", nil)
		}

		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket")
		}
		if ticket.Status != domain.TicketStatusAvailable {
			return apperrors.NewInvalidState("ticket is not available", map[string]any{"ticket_status": ticket.Status})
		}
		if !amount.Equal(ticket.Price) {
			return apperrors.NewValidationError("amount does not match ticket price", map[string]any{"price": ticket.Price.String()})
		}

		// Guarded update: exactly one concurrent buyer observes
		// AVAILABLE and wins the ticket.
		if err := repos.Tickets.UpdateStatusIf(ctx, ticket.ID, domain.TicketStatusAvailable, domain.TicketStatusSold); err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				return apperrors.NewInvalidState("ticket is not available", nil)
			}
			return err
		}

		order := &domain.Order{
			BuyerID:  buyerID,
			TicketID: ticket.ID,
			Amount:   amount,
			Status:   domain.OrderStatusPaid,
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}

		payment := &domain.Payment{
			OrderID:           order.ID,
			ProviderPaymentID: generateProviderRef(),
			Amount:            amount,
			Status:            domain.PaymentStatusHeld,
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}

		escrow := &domain.Escrow{
			OrderID:       order.ID,
			BeneficiaryID: ticket.OrganizerID,
			Amount:        amount,
			Status:        domain.EscrowStatusHolding,
		}
		if err := repos.Escrows.Create(ctx, escrow); err != nil {
			return err
		}

		audit := &domain.OrderEvent{
			OrderID:  order.ID,
			ActorID:  &buyerID,
			Kind:     domain.OrderEventCreated,
			OldValue: map[string]any{"ticket_status": domain.TicketStatusAvailable},
			NewValue: map[string]any{
				"ticket_status":  domain.TicketStatusSold,
				"order_status":   order.Status,
				"payment_status": payment.Status,
				"escrow_status":  escrow.Status,
			},
		}
		if err := repos.OrderEvents.Create(ctx, audit); err != nil {
			return err
		}

		beneficiaryID = ticket.OrganizerID
		detail = &OrderDetail{Order: order, Payment: payment, Escrow: escrow}
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation(opCreateOrder, "failure")
		return nil, wrapTxErr(err)
	}

	s.rememberKey(ctx, opCreateOrder, buyerID, idemKey, detail.Order.ID)
	s.metrics.RecordOperation(opCreateOrder, "success")
	s.logger.Info("order created",
		zap.String("order_id", detail.Order.ID),
		zap.String("ticket_id", ticketID),
		zap.String("buyer_id", buyerID),
		zap.String("amount", amount.String()))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventOrderCreated,
		OrderID:  detail.Order.ID,
		TicketID: ticketID,
		Actor:    accountActor(domain.AccountRoleBuyer, buyerID),
		Payload: events.OrderCreatedPayload{
			BuyerID:       buyerID,
			BeneficiaryID: beneficiaryID,
			Amount:        amount,
		},
	})
	return detail, nil
}

// GetOrder loads the order aggregate for its buyer or for the ticket's
// organizer.
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID string) (*OrderDetail, error) {
	var detail *OrderDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		loaded, err := loadOrderDetail(ctx, repos, orderID)
		if err != nil {
			return err
		}
		ticket, err := repos.Tickets.GetByID(ctx, loaded.Order.TicketID)
		if err != nil {
			return notFoundOr(err, "ticket")
		}
		if loaded.Order.BuyerID != requesterID && ticket.OrganizerID != requesterID {
			return apperrors.NewForbidden("not a party to this order")
		}
		detail = loaded
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return detail, nil
}

// ListOrderEvents returns the order's audit trail, visible to the same
// parties as the order itself.
func (s *OrderService) ListOrderEvents(ctx context.Context, orderID, requesterID string, limit, offset int) ([]domain.OrderEvent, error) {
	var entries []domain.OrderEvent
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order")
		}
		ticket, err := repos.Tickets.GetByID(ctx, order.TicketID)
		if err != nil {
			return notFoundOr(err, "ticket")
		}
		if order.BuyerID != requesterID && ticket.OrganizerID != requesterID {
			return apperrors.NewForbidden("not a party to this order")
		}
		entries, err = repos.OrderEvents.ListByOrder(ctx, orderID, limit, offset)
		return err
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}
	return entries, nil
}

func (s *OrderService) replayIfSeen(ctx context.Context, buyerID, idemKey string) (*OrderDetail, error) {
	if idemKey == "" || s.idempotency == nil {
		return nil, nil
	}
	orderID, err := s.idempotency.Lookup(ctx, opCreateOrder, buyerID, idemKey)
	if err != nil {
		s.logger.Warn("idempotency lookup failed", zap.Error(err))
		return nil, err
	}
	if orderID == "" {
		return nil, nil
	}
	var detail *OrderDetail
	txErr := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		loaded, err := loadOrderDetail(ctx, repos, orderID)
		if err != nil {
			return err
		}
		detail = loaded
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return detail, nil
}

func (s *OrderService) rememberKey(ctx context.Context, operation, accountID, idemKey, orderID string) {
	if idemKey == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Record(ctx, operation, accountID, idemKey, orderID); err != nil {
		s.logger.Warn("idempotency record failed", zap.Error(err))
	}
}

// loadOrderDetail reads the full aggregate for one order. Payment and
// escrow are optional rows; a missing one is represented as nil rather
// than an error so callers can apply their own precondition checks.
func loadOrderDetail(ctx context.Context, repos *repository.Repositories, orderID string) (*OrderDetail, error) {
	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order")
	}
	detail := &OrderDetail{Order: order}

	payment, err := repos.Payments.GetByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	detail.Payment = payment
	if errors.Is(err, pgx.ErrNoRows) {
		detail.Payment = nil
	}

	escrow, err := repos.Escrows.GetByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	detail.Escrow = escrow
	if errors.Is(err, pgx.ErrNoRows) {
		detail.Escrow = nil
	}

	return detail, nil
}
