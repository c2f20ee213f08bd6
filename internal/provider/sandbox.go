package provider

import (
	"context"

	"go.uber.org/zap"
)

// Sandbox is a no-network provider that accepts every operation. Used
// in development and as the default when no provider is configured.
type Sandbox struct {
	logger *zap.Logger
}

// NewSandbox creates the sandbox provider.
func NewSandbox(logger *zap.Logger) *Sandbox {
	return &Sandbox{logger: logger}
}

// Capture always succeeds.
func (s *Sandbox) Capture(ctx context.Context, req Request) error {
	s.logger.Debug("sandbox capture",
		zap.String("provider_payment_id", req.ProviderPaymentID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency))
	return nil
}

// Refund always succeeds.
func (s *Sandbox) Refund(ctx context.Context, req Request) error {
	s.logger.Debug("sandbox refund",
		zap.String("provider_payment_id", req.ProviderPaymentID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", req.Currency))
	return nil
}
