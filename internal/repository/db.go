package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStateConflict is returned when a guarded update matched no rows:
// the row's status was changed by a concurrent writer between the read
// and the write. The losing caller must treat the operation as failed.
var ErrStateConflict = errors.New("entity state changed concurrently")

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
// Repositories are bound to one handle; binding them to a transaction
// scopes every read and write to that transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
