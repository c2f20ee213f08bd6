package repository

import (
	"context"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetActiveByTicket returns the single non-terminal order for a
	// ticket, if any.
	GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Order, error)
	// UpdateStatusIf transitions the order only when its current status
	// matches from; it returns ErrStateConflict when no row matched.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus) error
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
        INSERT INTO orders (buyer_id, ticket_id, amount, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		order.BuyerID,
		order.TicketID,
		order.Amount,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const query = `
        SELECT id, buyer_id, ticket_id, amount, status, created_at, updated_at
        FROM orders WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *orderRepository) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Order, error) {
	const query = `
        SELECT id, buyer_id, ticket_id, amount, status, created_at, updated_at
        FROM orders
        WHERE ticket_id=$1 AND status NOT IN ('REFUNDED','CANCELLED')`
	return r.fetchSingle(ctx, query, ticketID)
}

func (r *orderRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var order domain.Order
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&order.ID,
		&order.BuyerID,
		&order.TicketID,
		&order.Amount,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.OrderStatus) error {
	const query = `
        UPDATE orders SET status=$1, updated_at=NOW()
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
