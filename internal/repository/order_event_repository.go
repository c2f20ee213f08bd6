package repository

import (
	"context"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// OrderEventRepository encapsulates the order audit trail. Entries are
// written inside the same transaction as the state change they record.
type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderEvent) error
	ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]domain.OrderEvent, error)
}

type orderEventRepository struct {
	db DBTX
}

// NewOrderEventRepository instantiates repository.
func NewOrderEventRepository(db DBTX) OrderEventRepository {
	return &orderEventRepository{db: db}
}

func (r *orderEventRepository) Create(ctx context.Context, event *domain.OrderEvent) error {
	const query = `
        INSERT INTO order_events (order_id, actor_id, kind, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		event.OrderID,
		event.ActorID,
		event.Kind,
		event.OldValue,
		event.NewValue,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *orderEventRepository) ListByOrder(ctx context.Context, orderID string, limit, offset int) ([]domain.OrderEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, order_id, actor_id, kind, old_value, new_value, created_at
        FROM order_events WHERE order_id=$1
        ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, orderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OrderEvent
	for rows.Next() {
		var event domain.OrderEvent
		if err := rows.Scan(
			&event.ID,
			&event.OrderID,
			&event.ActorID,
			&event.Kind,
			&event.OldValue,
			&event.NewValue,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
