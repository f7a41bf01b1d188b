package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// WithTx runs fn in a read-committed transaction and commits when fn returns nil.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn TxFunc) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}

// WithLockedTx is WithTx holding the transaction-scoped advisory lock key, so
// processes running the same body wait for each other.
func WithLockedTx(ctx context.Context, pool *pgxpool.Pool, key int64, fn TxFunc) error {
	return WithTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return fmt.Errorf("platform/db: advisory lock %d: %w", key, err)
		}
		return fn(ctx, tx)
	})
}
