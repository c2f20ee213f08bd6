package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ticketfair/escrow-service/internal/events"
	"github.com/ticketfair/escrow-service/internal/repository"
	"github.com/ticketfair/escrow-service/internal/service"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// EscrowReleaser is the slice of the settlement service the worker
// needs.
type EscrowReleaser interface {
	ReleaseEscrow(ctx context.Context, orderID, triggeredBy, idemKey string) (*service.ReleaseResult, error)
}

// SettlementWorker releases escrows for validated tickets. It reacts to
// ticket_validated events and additionally sweeps on a timer so escrows
// whose event was lost (e.g. a crash between commit and publish) still
// settle.
type SettlementWorker struct {
	settlements EscrowReleaser
	escrows     repository.EscrowRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	interval    time.Duration
	batchSize   int
}

// NewSettlementWorker constructs the worker.
func NewSettlementWorker(settlements EscrowReleaser, escrows repository.EscrowRepository, dispatcher events.Dispatcher, logger *zap.Logger, interval time.Duration, batchSize int) *SettlementWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SettlementWorker{
		settlements: settlements,
		escrows:     escrows,
		dispatcher:  dispatcher,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
	}
}

// Start registers the event handler and launches the sweep loop. It
// returns immediately; the loop stops when ctx is cancelled.
func (w *SettlementWorker) Start(ctx context.Context) {
	if w.dispatcher != nil {
		w.dispatcher.Subscribe(events.EventTicketValidated, w.handleTicketValidated)
	}
	go w.sweepLoop(ctx)
}

func (w *SettlementWorker) handleTicketValidated(ctx context.Context, event events.Event) error {
	if event.OrderID == "" {
		return nil
	}
	w.release(ctx, event.OrderID)
	return nil
}

func (w *SettlementWorker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SettlementWorker) sweep(ctx context.Context) {
	orderIDs, err := w.escrows.ListReleasableOrders(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("settlement sweep query failed", zap.Error(err))
		return
	}
	for _, orderID := range orderIDs {
		w.release(ctx, orderID)
	}
}

func (w *SettlementWorker) release(ctx context.Context, orderID string) {
	_, err := w.settlements.ReleaseEscrow(ctx, orderID, "", "")
	if err == nil {
		return
	}
	// A concurrent release or refund already moved the escrow on; that
	// is not a worker failure.
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "INVALID_STATE" {
		w.logger.Debug("escrow no longer releasable", zap.String("order_id", orderID))
		return
	}
	w.logger.Error("escrow release failed", zap.String("order_id", orderID), zap.Error(err))
}
