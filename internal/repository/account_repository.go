package repository

import (
	"context"

	"github.com/ticketfair/escrow-service/internal/domain"
)

// AccountRepository encapsulates buyer/organizer account persistence.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

type accountRepository struct {
	db DBTX
}

// NewAccountRepository instantiates repository.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (name, email, password_hash, role, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.Status,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, name, email, password_hash, role, status, created_at, updated_at
        FROM accounts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
        SELECT id, name, email, password_hash, role, status, created_at, updated_at
        FROM accounts WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
