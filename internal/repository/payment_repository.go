package repository

import (
	"context"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// PaymentRepository encapsulates payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error)
	// UpdateStatusIf transitions the payment only when its current
	// status matches from; it returns ErrStateConflict when no row
	// matched.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.PaymentStatus) error
}

type paymentRepository struct {
	db DBTX
}

// NewPaymentRepository instantiates repository.
func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (order_id, provider_payment_id, amount, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		payment.OrderID,
		payment.ProviderPaymentID,
		payment.Amount,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *paymentRepository) GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	const query = `
        SELECT id, order_id, provider_payment_id, amount, status, created_at, updated_at
        FROM payments WHERE order_id=$1`
	var payment domain.Payment
	if err := r.db.QueryRow(ctx, query, orderID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.ProviderPaymentID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	const query = `
        UPDATE payments SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3`
	cmd, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}
