package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ticketfair/escrow-service/internal/config"
	"github.com/ticketfair/escrow-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventOrderCreated, n.handleOrderCreated)
	n.dispatcher.Subscribe(events.EventTicketValidated, n.handleTicketValidated)
	n.dispatcher.Subscribe(events.EventEscrowReleased, n.handleEscrowReleased)
	n.dispatcher.Subscribe(events.EventRefundIssued, n.handleRefundIssued)
}

func (n *NotificationService) handleOrderCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("OrderCreated", zap.String("order_id", event.OrderID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketValidated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketValidated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEscrowReleased(ctx context.Context, event events.Event) error {
	n.logger.Info("EscrowReleased", zap.String("order_id", event.OrderID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRefundIssued(ctx context.Context, event events.Event) error {
	n.logger.Info("RefundIssued", zap.String("order_id", event.OrderID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("order_id", event.OrderID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("order_id", event.OrderID),
		zap.String("event_type", string(event.Type)))
}
