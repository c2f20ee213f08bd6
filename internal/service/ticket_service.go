package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/events"
	"github.com/ticketfair/escrow-service/internal/observability"
	"github.com/ticketfair/escrow-service/internal/repository"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// TicketService lets organizers list tickets for sale and mark sold
// tickets as validated. Validation here stands in for the external
// check-in subsystem, which is the sole writer of the VALIDATED status;
// the settlement core only ever reads it.
type TicketService struct {
	repos      *repository.Repositories
	tx         repository.TxRunner
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Repos      *repository.Repositories
	TxRunner   repository.TxRunner
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		repos:      deps.Repos,
		tx:         deps.TxRunner,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// CreateTicket lists a new ticket as available.
func (s *TicketService) CreateTicket(ctx context.Context, organizerID, eventRef string, price decimal.Decimal) (*domain.Ticket, error) {
	organizer, err := s.repos.Accounts.GetByID(ctx, organizerID)
	if err != nil {
		return nil, notFoundOr(err, "organizer")
	}
	if organizer.Role != domain.AccountRoleOrganizer {
		return nil, apperrors.NewForbidden("organizer role required")
	}
	if strings.TrimSpace(eventRef) == "" {
		return nil, apperrors.NewValidationError("event_ref required", nil)
	}
	if !price.IsPositive() {
		return nil, apperrors.NewValidationError("price must be positive", nil)
	}

	ticket := &domain.Ticket{
		EventRef:    strings.TrimSpace(eventRef),
		OrganizerID: organizerID,
		Price:       price,
		Status:      domain.TicketStatusAvailable,
	}
	if err := s.repos.Tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.logger.Info("ticket listed",
		zap.String("ticket_id", ticket.ID),
		zap.String("organizer_id", organizerID),
		zap.String("event_ref", ticket.EventRef))
	return ticket, nil
}

// ListTickets returns the organizer's tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, organizerID string, limit, offset int) ([]domain.Ticket, error) {
	return s.repos.Tickets.ListByOrganizer(ctx, organizerID, limit, offset)
}

// ValidateTicket marks a sold ticket as validated, e.g. after a scan at
// the venue. The guarded update serializes racing validations.
func (s *TicketService) ValidateTicket(ctx context.Context, ticketID, organizerID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	var orderID string
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		loaded, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket")
		}
		if loaded.OrganizerID != organizerID {
			return apperrors.NewForbidden("only the ticket organizer may validate it")
		}
		if loaded.Status != domain.TicketStatusSold {
			return apperrors.NewInvalidState("ticket is not sold", map[string]any{"ticket_status": loaded.Status})
		}
		if err := repos.Tickets.UpdateStatusIf(ctx, loaded.ID, domain.TicketStatusSold, domain.TicketStatusValidated); err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				return apperrors.NewInvalidState("ticket is not sold", nil)
			}
			return err
		}

		order, err := repos.Orders.GetActiveByTicket(ctx, ticketID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if order != nil {
			orderID = order.ID
			audit := &domain.OrderEvent{
				OrderID:  order.ID,
				ActorID:  &organizerID,
				Kind:     domain.OrderEventValidated,
				OldValue: map[string]any{"ticket_status": domain.TicketStatusSold},
				NewValue: map[string]any{"ticket_status": domain.TicketStatusValidated},
			}
			if err := repos.OrderEvents.Create(ctx, audit); err != nil {
				return err
			}
		}

		loaded.Status = domain.TicketStatusValidated
		ticket = loaded
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation(opValidateTicket, "failure")
		return nil, wrapTxErr(err)
	}

	s.metrics.RecordOperation(opValidateTicket, "success")
	s.logger.Info("ticket validated",
		zap.String("ticket_id", ticketID),
		zap.String("order_id", orderID))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketValidated,
		OrderID:  orderID,
		TicketID: ticketID,
		Actor:    accountActor(domain.AccountRoleOrganizer, organizerID),
		Payload:  events.TicketValidatedPayload{OrganizerID: organizerID},
	})
	return ticket, nil
}
