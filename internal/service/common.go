package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/events"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// Operation names used for metrics and idempotency keys.
const (
	opCreateOrder    = "create_order"
	opReleaseEscrow  = "release_escrow"
	opIssueRefund    = "issue_refund"
	opValidateTicket = "validate_ticket"
)

// OrderDetail is the order aggregate as returned to callers. Payment
// and Escrow are owned by the order via identifier reference only.
type OrderDetail struct {
	Order   *domain.Order
	Payment *domain.Payment
	Escrow  *domain.Escrow
}

// ReleaseResult is returned by a successful escrow release.
type ReleaseResult struct {
	Order  *domain.Order
	Escrow *domain.Escrow
}

func generateProviderRef() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// notFoundOr maps a missing row to a NotFound for the named resource
// and passes every other storage error through.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

// wrapTxErr keeps domain errors intact and classifies everything else
// that escaped the transaction as a TransactionFailure.
func wrapTxErr(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewTransactionFailure(err)
}

func accountActor(role domain.AccountRole, accountID string) events.Actor {
	return events.Actor{Role: role, AccountID: &accountID}
}

func systemActor() events.Actor {
	return events.Actor{System: "settlement"}
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
