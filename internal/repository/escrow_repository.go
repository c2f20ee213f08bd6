package repository

import (
	"context"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// EscrowRepository encapsulates escrow persistence.
type EscrowRepository interface {
	Create(ctx context.Context, escrow *domain.Escrow) error
	GetByOrder(ctx context.Context, orderID string) (*domain.Escrow, error)
	// UpdateStatusIf transitions the escrow only when its current status
	// matches from; it returns ErrStateConflict when no row matched.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.EscrowStatus) error
	// ListReleasableOrders returns order IDs whose escrow is still
	// holding while the underlying ticket is already validated. Used by
	// the settlement sweep.
	ListReleasableOrders(ctx context.Context, limit int) ([]string, error)
}

type escrowRepository struct {
	db DBTX
}

// NewEscrowRepository instantiates repository.
func NewEscrowRepository(db DBTX) EscrowRepository {
	return &escrowRepository{db: db}
}

func (r *escrowRepository) Create(ctx context.Context, escrow *domain.Escrow) error {
	const query = `
        INSERT INTO escrows (order_id, beneficiary_id, amount, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		escrow.OrderID,
		escrow.BeneficiaryID,
		escrow.Amount,
		escrow.Status,
	).Scan(&escrow.ID, &escrow.CreatedAt, &escrow.UpdatedAt)
}

func (r *escrowRepository) GetByOrder(ctx context.Context, orderID string) (*domain.Escrow, error) {
	const query = `
        SELECT id, order_id, beneficiary_id, amount, status, created_at, updated_at
        FROM escrows WHERE order_id=$1`
	var escrow domain.Escrow
	if err := r.db.QueryRow(ctx, query, orderID).Scan(
		&escrow.ID,
		&escrow.OrderID,
		&escrow.BeneficiaryID,
		&escrow.Amount,
		&escrow.Status,
		&escrow.CreatedAt,
		&escrow.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *escrowRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.EscrowStatus) error {
	const query = `
        UPDATE escrows SET status=$1, updated_at=NOW()
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

func (r *escrowRepository) ListReleasableOrders(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT e.order_id
        FROM escrows e
        JOIN orders o ON o.id = e.order_id
        JOIN tickets t ON t.id = o.ticket_id
        WHERE e.status = 'HOLDING' AND t.status = 'VALIDATED'
        ORDER BY e.created_at
        LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var orderID string
		if err := rows.Scan(&orderID); err != nil {
			return nil, err
		}
		result = append(result, orderID)
	}
	return result, rows.Err()
}
