package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// beginTx starts a transaction on the executor. Pools and pgxmock both
// satisfy pgBeginner; a repository already scoped to a transaction does not.
func beginTx(ctx context.Context, exec pgExecutor) (pgx.Tx, error) {
	beginner, ok := exec.(pgBeginner)
	if !ok {
		return nil, fmt.Errorf("executor does not support transactions")
	}
	tx, err := beginner.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

var _ pgBeginner = (*pgxpool.Pool)(nil)
