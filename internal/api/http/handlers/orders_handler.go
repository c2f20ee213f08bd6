package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketfair/escrow-service/internal/api/dto"
	"github.com/ticketfair/escrow-service/internal/auth"
	"github.com/ticketfair/escrow-service/internal/service"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

const idempotencyHeader = "Idempotency-Key"

// OrdersHandler exposes the three settlement operations plus aggregate
// reads.
type OrdersHandler struct {
	orders      *service.OrderService
	settlements *service.SettlementService
	refunds     *service.RefundService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orders *service.OrderService, settlements *service.SettlementService, refunds *service.RefundService) *OrdersHandler {
	return &OrdersHandler{orders: orders, settlements: settlements, refunds: refunds}
}

// CreateOrder POST /orders.
func (h *OrdersHandler) CreateOrder(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}

	detail, err := h.orders.CreateOrder(c.UserContext(), principal.Account.ID, req.TicketID, req.Amount, c.Get(idempotencyHeader))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromOrderDetail(detail)})
}

// GetOrder GET /orders/:id.
func (h *OrdersHandler) GetOrder(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.orders.GetOrder(c.UserContext(), c.Params("id"), principal.Account.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromOrderDetail(detail)})
}

// ListOrderEvents GET /orders/:id/events.
func (h *OrdersHandler) ListOrderEvents(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)

	entries, err := h.orders.ListOrderEvents(c.UserContext(), c.Params("id"), principal.Account.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.OrderEventResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.FromOrderEvent(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ReleaseEscrow POST /orders/:id/release.
func (h *OrdersHandler) ReleaseEscrow(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.settlements.ReleaseEscrow(c.UserContext(), c.Params("id"), principal.Account.ID, c.Get(idempotencyHeader))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromReleaseResult(result)})
}

// IssueRefund POST /orders/:id/refund.
func (h *OrdersHandler) IssueRefund(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RefundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	refund, err := h.refunds.IssueRefund(c.UserContext(), c.Params("id"), principal.Account.ID, req.Reason, c.Get(idempotencyHeader))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromRefund(refund)})
}
