package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketfair/escrow-service/internal/domain"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.AccountRole) fiber.Handler {
	allowedSet := make(map[domain.AccountRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Account == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Account.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a caller is authenticated regardless of role.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}
