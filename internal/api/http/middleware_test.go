package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketfair/escrow-service/internal/observability"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

func TestRequestTimeoutReachesHandlers(t *testing.T) {
	app := fiber.New()
	app.Use(requestTimeoutMiddleware(2 * time.Second))

	var hasDeadline bool
	var remaining time.Duration
	app.Get("/orders", func(c *fiber.Ctx) error {
		// Handlers pass c.UserContext() to services, so the deadline
		// set by the middleware must be visible there.
		deadline, ok := c.UserContext().Deadline()
		hasDeadline = ok
		if ok {
			remaining = time.Until(deadline)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, hasDeadline)
	assert.Positive(t, remaining)
	assert.LessOrEqual(t, remaining, 2*time.Second)
}

func TestErrorMiddlewareMapsDomainErrors(t *testing.T) {
	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), observability.NewMetrics()))
	app.Get("/orders/:id", func(c *fiber.Ctx) error {
		return apperrors.NewForbidden("not a party to this order")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/orders/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "FORBIDDEN", payload.Error.Code)
	assert.Equal(t, "not a party to this order", payload.Error.Message)
}
