package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ticketfair/escrow-service/internal/api/http/handlers"
	"github.com/ticketfair/escrow-service/internal/auth"
	"github.com/ticketfair/escrow-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Tickets        *handlers.TicketsHandler
	Orders         *handlers.OrdersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/auth/register", cfg.Accounts.Register)
	app.Post("/auth/login", cfg.Accounts.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", auth.RequireRole(domain.AccountRoleOrganizer), cfg.Tickets.CreateTicket)
	tickets.Get("", auth.RequireRole(domain.AccountRoleOrganizer), cfg.Tickets.ListTickets)
	tickets.Post("/:id/validate", auth.RequireRole(domain.AccountRoleOrganizer), cfg.Tickets.ValidateTicket)

	orders := app.Group("/orders", cfg.AuthMiddleware.Handle)
	orders.Post("", auth.RequireRole(domain.AccountRoleBuyer), cfg.Orders.CreateOrder)
	orders.Get("/:id", auth.RequireAuthenticated(), cfg.Orders.GetOrder)
	orders.Get("/:id/events", auth.RequireAuthenticated(), cfg.Orders.ListOrderEvents)
	orders.Post("/:id/release", auth.RequireAuthenticated(), cfg.Orders.ReleaseEscrow)
	orders.Post("/:id/refund", auth.RequireRole(domain.AccountRoleOrganizer), cfg.Orders.IssueRefund)
}
