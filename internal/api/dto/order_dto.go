package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/service"
)

// CreateTicketRequest payload for listing a ticket.
type CreateTicketRequest struct {
	EventRef string          `json:"event_ref"`
	Price    decimal.Decimal `json:"price"`
}

// CreateOrderRequest payload for purchasing a ticket.
type CreateOrderRequest struct {
	TicketID string          `json:"ticket_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// RefundRequest payload for issuing a refund.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// TicketResponse wire representation of a ticket.
type TicketResponse struct {
	ID          string          `json:"id"`
	EventRef    string          `json:"event_ref"`
	OrganizerID string          `json:"organizer_id"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderResponse wire representation of an order with its nested
// payment and escrow.
type OrderResponse struct {
	ID        string           `json:"id"`
	BuyerID   string           `json:"buyer_id"`
	TicketID  string           `json:"ticket_id"`
	Amount    decimal.Decimal  `json:"amount"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	Payment   *PaymentResponse `json:"payment,omitempty"`
	Escrow    *EscrowResponse  `json:"escrow,omitempty"`
}

// PaymentResponse wire representation of a payment.
type PaymentResponse struct {
	ID                string          `json:"id"`
	ProviderPaymentID string          `json:"provider_payment_id"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
}

// EscrowResponse wire representation of an escrow.
type EscrowResponse struct {
	ID            string          `json:"id"`
	BeneficiaryID string          `json:"beneficiary_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
}

// RefundResponse wire representation of a refund.
type RefundResponse struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	IssuedByID string          `json:"issued_by_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ReleaseResponse wire representation of a release result.
type ReleaseResponse struct {
	Order  OrderResponse  `json:"order"`
	Escrow EscrowResponse `json:"escrow"`
}

// OrderEventResponse wire representation of an audit trail entry.
type OrderEventResponse struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	ActorID   *string        `json:"actor_id,omitempty"`
	OldValue  map[string]any `json:"old_value,omitempty"`
	NewValue  map[string]any `json:"new_value,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// FromOrderEvent maps an audit trail entry.
func FromOrderEvent(event *domain.OrderEvent) OrderEventResponse {
	return OrderEventResponse{
		ID:        event.ID,
		Kind:      string(event.Kind),
		ActorID:   event.ActorID,
		OldValue:  event.OldValue,
		NewValue:  event.NewValue,
		CreatedAt: event.CreatedAt,
	}
}

// FromTicket maps a domain ticket.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		EventRef:    ticket.EventRef,
		OrganizerID: ticket.OrganizerID,
		Price:       ticket.Price,
		Status:      string(ticket.Status),
		CreatedAt:   ticket.CreatedAt,
	}
}

// FromOrderDetail maps an order aggregate.
func FromOrderDetail(detail *service.OrderDetail) OrderResponse {
	resp := OrderResponse{
		ID:        detail.Order.ID,
		BuyerID:   detail.Order.BuyerID,
		TicketID:  detail.Order.TicketID,
		Amount:    detail.Order.Amount,
		Status:    string(detail.Order.Status),
		CreatedAt: detail.Order.CreatedAt,
	}
	if detail.Payment != nil {
		resp.Payment = &PaymentResponse{
			ID:                detail.Payment.ID,
			ProviderPaymentID: detail.Payment.ProviderPaymentID,
			Amount:            detail.Payment.Amount,
			Status:            string(detail.Payment.Status),
		}
	}
	if detail.Escrow != nil {
		resp.Escrow = fromEscrow(detail.Escrow)
	}
	return resp
}

// FromReleaseResult maps a release result.
func FromReleaseResult(result *service.ReleaseResult) ReleaseResponse {
	return ReleaseResponse{
		Order: OrderResponse{
			ID:        result.Order.ID,
			BuyerID:   result.Order.BuyerID,
			TicketID:  result.Order.TicketID,
			Amount:    result.Order.Amount,
			Status:    string(result.Order.Status),
			CreatedAt: result.Order.CreatedAt,
		},
		Escrow: *fromEscrow(result.Escrow),
	}
}

// FromRefund maps a domain refund.
func FromRefund(refund *domain.Refund) RefundResponse {
	return RefundResponse{
		ID:         refund.ID,
		OrderID:    refund.OrderID,
		IssuedByID: refund.IssuedByID,
		Amount:     refund.Amount,
		Reason:     refund.Reason,
		Status:     string(refund.Status),
		CreatedAt:  refund.CreatedAt,
	}
}

func fromEscrow(escrow *domain.Escrow) *EscrowResponse {
	return &EscrowResponse{
		ID:            escrow.ID,
		BeneficiaryID: escrow.BeneficiaryID,
		Amount:        escrow.Amount,
		Status:        string(escrow.Status),
	}
}
