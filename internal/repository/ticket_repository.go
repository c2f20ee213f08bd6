package repository

import (
	"context"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// TicketRepository encapsulates sale ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByOrganizer(ctx context.Context, organizerID string, limit, offset int) ([]domain.Ticket, error)
	// UpdateStatusIf transitions the ticket only when its current status
	// matches from; it returns ErrStateConflict when no row matched.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.TicketStatus) error
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (event_ref, organizer_id, price, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.EventRef,
		ticket.OrganizerID,
		ticket.Price,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, event_ref, organizer_id, price, status, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.EventRef,
		&ticket.OrganizerID,
		&ticket.Price,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByOrganizer(ctx context.Context, organizerID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, event_ref, organizer_id, price, status, created_at, updated_at
        FROM tickets WHERE organizer_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, organizerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.EventRef,
			&ticket.OrganizerID,
			&ticket.Price,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status=$1, updated_at=NOW()
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
