package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketfair/escrow-service/internal/api/dto"
	"github.com/ticketfair/escrow-service/internal/auth"
	"github.com/ticketfair/escrow-service/internal/service"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// TicketsHandler manages organizer ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.Account.ID, req.EventRef, req.Price)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	tickets, err := h.tickets.ListTickets(c.UserContext(), principal.Account.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ValidateTicket POST /tickets/:id/validate.
func (h *TicketsHandler) ValidateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.ValidateTicket(c.UserContext(), c.Params("id"), principal.Account.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

func parseInt(val string, fallback int) int {
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
