package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ticketfair/escrow-service/internal/api/dto"
	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/service"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// AccountsHandler manages registration and login endpoints.
type AccountsHandler struct {
	auth *service.AuthService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(authService *service.AuthService) *AccountsHandler {
	return &AccountsHandler{auth: authService}
}

// Register POST /auth/register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return apperrors.NewValidationError("name, email, password, role required", nil)
	}

	role := domain.AccountRole(strings.ToUpper(req.Role))
	account, token, exp, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password, role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		AccountID: account.ID,
		Role:      string(account.Role),
		Token:     token,
		ExpiresAt: exp,
	}})
}

// Login POST /auth/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	account, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		AccountID: account.ID,
		Role:      string(account.Role),
		Token:     token,
		ExpiresAt: exp,
	}})
}
