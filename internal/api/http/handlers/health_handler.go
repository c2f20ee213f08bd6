package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketfair/escrow-service/internal/persistence"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	pg    *persistence.Postgres
	redis *persistence.Redis
}

// NewHealthHandler constructs handler.
func NewHealthHandler(pg *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{pg: pg, redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if h.pg != nil && h.pg.Pool != nil {
		if err := h.pg.Pool.Ping(c.UserContext()); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	} else {
		checks["postgres"] = "not configured"
	}

	if err := h.redis.Ping(c.UserContext()); err != nil {
		checks["redis"] = err.Error()
	} else {
		checks["redis"] = "ok"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "checks": checks})
	}
	return c.JSON(fiber.Map{"status": "ok", "checks": checks})
}
