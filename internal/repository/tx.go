package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles the per-entity repositories bound to a single
// database handle. Inside WithinTx the handle is the transaction, so
// all reads and writes of one operation commit or roll back together.
type Repositories struct {
	Accounts    AccountRepository
	Tickets     TicketRepository
	Orders      OrderRepository
	Payments    PaymentRepository
	Escrows     EscrowRepository
	Refunds     RefundRepository
	OrderEvents OrderEventRepository
}

// NewRepositories binds all repositories to the given handle.
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Accounts:    NewAccountRepository(db),
		Tickets:     NewTicketRepository(db),
		Orders:      NewOrderRepository(db),
		Payments:    NewPaymentRepository(db),
		Escrows:     NewEscrowRepository(db),
		Refunds:     NewRefundRepository(db),
		OrderEvents: NewOrderEventRepository(db),
	}
}

// TxRunner executes a function inside one storage transaction. The
// transaction handle is passed explicitly via the repository bundle
// rather than through an ambient context.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

type pgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner creates a TxRunner backed by a pgx pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgxTxRunner{pool: pool}
}

// WithinTx begins a transaction, runs fn against transaction-bound
// repositories and commits. Any error from fn rolls everything back;
// the caller observes either the pre-call or the fully-committed state.
func (r *pgxTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback is a no-op once the transaction committed.
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
