// Package pgstore implements the remote store on PostgreSQL. Writes announce
// themselves on the Redis change feed; subscribers re-read the table when a
// notification arrives, from this process or any other.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/cache"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

const probeTimeout = 3 * time.Second

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store is the PostgreSQL backed remote.Store.
type Store struct {
	pool   *pgxpool.Pool
	feed   *cache.Feed
	logger *slog.Logger
}

var _ remote.Store = (*Store)(nil)

// New builds a store on pool. feed may be nil, in which case subscriptions
// never fire.
func New(pool *pgxpool.Pool, feed *cache.Feed, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, feed: feed, logger: logger}
}

// TestConnection pings the database.
func (s *Store) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.pool.Ping(ctx) == nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) notify(ctx context.Context, entity catalog.Entity) {
	if err := s.feed.Publish(ctx, string(entity)); err != nil {
		s.logger.Warn("publish change", slog.String("entity", string(entity)), slog.Any("error", err))
	}
}

// classify turns a driver error into a typed error.
func classify(op string, entity catalog.Entity, err error) error {
	if err == nil {
		return nil
	}
	var typed *shared.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.E(shared.KindNotFound, op, string(entity), shared.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.E(shared.KindDuplicate, op, string(entity), fmt.Errorf("%s: %w", pgErr.ConstraintName, shared.ErrDuplicate))
		case "23502", "23514", "22P02":
			return shared.E(shared.KindValidation, op, string(entity), err)
		}
	}
	var netErr net.Error
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return shared.E(shared.KindConnectivity, op, string(entity), err)
	}
	if op == "list" {
		return shared.E(shared.KindRemoteRead, op, string(entity), err)
	}
	return shared.E(shared.KindRemoteWrite, op, string(entity), err)
}

// tableDef describes how one entity maps onto SQL.
type tableDef[T catalog.Record] struct {
	entity    catalog.Entity
	listSQL   string
	deleteSQL string
	scan      func(pgx.Row) (T, error)
	keyArg    func(string) (any, error)
	create    func(context.Context, dbtx, T) (T, error)
	update    func(context.Context, dbtx, any, T) (T, error)
}

type table[T catalog.Record] struct {
	store *Store
	def   tableDef[T]
}

func (t table[T]) List(ctx context.Context) ([]T, error) {
	rows, err := t.store.pool.Query(ctx, t.def.listSQL)
	if err != nil {
		return nil, classify("list", t.def.entity, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := t.def.scan(rows)
		if err != nil {
			return nil, classify("list", t.def.entity, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", t.def.entity, err)
	}
	return out, nil
}

func (t table[T]) Create(ctx context.Context, rec T) (T, error) {
	created, err := t.def.create(ctx, t.store.pool, rec)
	if err != nil {
		var zero T
		return zero, classify("create", t.def.entity, err)
	}
	t.store.notify(ctx, t.def.entity)
	return created, nil
}

func (t table[T]) Update(ctx context.Context, key string, rec T) (T, error) {
	var zero T
	arg, err := t.def.keyArg(key)
	if err != nil {
		return zero, classify("update", t.def.entity, err)
	}
	updated, err := t.def.update(ctx, t.store.pool, arg, rec)
	if err != nil {
		return zero, classify("update", t.def.entity, err)
	}
	t.store.notify(ctx, t.def.entity)
	return updated, nil
}

func (t table[T]) Delete(ctx context.Context, key string) error {
	arg, err := t.def.keyArg(key)
	if err != nil {
		return classify("delete", t.def.entity, err)
	}
	tag, err := t.store.pool.Exec(ctx, t.def.deleteSQL, arg)
	if err != nil {
		return classify("delete", t.def.entity, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "delete", string(t.def.entity), shared.ErrNotFound)
	}
	t.store.notify(ctx, t.def.entity)
	return nil
}

// Subscribe re-reads the table on every change notification and delivers the
// result through a hub, so a slow reader only ever sees the newest snapshot.
func (t table[T]) Subscribe(ctx context.Context) (<-chan []T, remote.Unsubscribe, error) {
	notifications, stop, err := t.store.feed.Listen(ctx, string(t.def.entity))
	if err != nil {
		return nil, nil, classify("subscribe", t.def.entity, err)
	}
	hub := remote.NewHub[T]()
	ch, unsubscribe := hub.Subscribe(ctx)
	go func() {
		defer unsubscribe()
		for range notifications {
			items, err := t.List(ctx)
			if err != nil {
				t.store.logger.Warn("refetch after change", slog.String("entity", string(t.def.entity)), slog.Any("error", err))
				continue
			}
			hub.Publish(items)
		}
	}()
	return ch, func() {
		stop()
		unsubscribe()
	}, nil
}

func stringKey(key string) (any, error) { return key, nil }
