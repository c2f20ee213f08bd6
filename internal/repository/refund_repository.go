package repository

import (
	"context"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// RefundRepository encapsulates refund persistence. Refund rows are
// immutable after creation; there is no update method.
type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	GetIssuedByOrder(ctx context.Context, orderID string) (*domain.Refund, error)
}

type refundRepository struct {
	db DBTX
}

// NewRefundRepository instantiates repository.
func NewRefundRepository(db DBTX) RefundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	const query = `
        INSERT INTO refunds (order_id, issued_by_id, amount, reason, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		refund.OrderID,
		refund.IssuedByID,
		refund.Amount,
		refund.Reason,
		refund.Status,
	).Scan(&refund.ID, &refund.CreatedAt)
}

func (r *refundRepository) GetIssuedByOrder(ctx context.Context, orderID string) (*domain.Refund, error) {
	const query = `
        SELECT id, order_id, issued_by_id, amount, reason, status, created_at
        FROM refunds WHERE order_id=$1 AND status='ISSUED'`
	var refund domain.Refund
	if err := r.db.QueryRow(ctx, query, orderID).Scan(
		&refund.ID,
		&refund.OrderID,
		&refund.IssuedByID,
		&refund.Amount,
		&refund.Reason,
		&refund.Status,
		&refund.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &refund, nil
}
