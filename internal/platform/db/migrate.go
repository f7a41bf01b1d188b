package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate.
func Schema() string { return schema }

// migrateLockKey serialises Migrate between the API server and the worker.
const migrateLockKey int64 = 0x75736167

// Migrate creates missing tables in a single transaction. Every statement is
// idempotent so it runs on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	err := WithLockedTx(ctx, pool, migrateLockKey, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("platform/db: migrate: %w", err)
	}
	return nil
}
