package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/usagereg/usagereg/internal/api"
	"github.com/usagereg/usagereg/internal/auth"
	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/cache"
	"github.com/usagereg/usagereg/internal/platform/db"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/remote/memstore"
	"github.com/usagereg/usagereg/internal/remote/pgstore"
	"github.com/usagereg/usagereg/internal/shared"
	"github.com/usagereg/usagereg/internal/synchronizer"
)

// Runtime holds the long-lived collaborators both binaries share.
type Runtime struct {
	Redis *redis.Client
	Pool  *pgxpool.Pool
	Store remote.Store
	Auth  *auth.Service
	Sync  *synchronizer.Synchronizer
}

// RuntimeOptions tunes Bootstrap.
type RuntimeOptions struct {
	Recorder synchronizer.Recorder
	// RequireStore fails instead of degrading when the store is unreachable.
	RequireStore bool
}

// Bootstrap connects Redis and the remote store and builds the synchronizer
// and auth service. It does not start the synchronizer.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Redis: redisClient}

	var repo auth.Repository
	switch {
	case cfg.StoreDriver == DriverMemory:
		logger.Info("using in-memory store")
		rt.Store = memstore.NewSeeded(catalog.DefaultSeed())
	case cfg.PGDSN == "":
		logger.Warn("no database configured, starting with sample data")
	default:
		if opts.RequireStore {
			rt.Pool, err = db.New(ctx, cfg.PGDSN, cfg.PGConnectTimeout)
		} else {
			rt.Pool, err = db.Open(cfg.PGDSN, cfg.PGConnectTimeout)
		}
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		if cfg.PGMigrate {
			if err := db.Migrate(ctx, rt.Pool); err != nil {
				if opts.RequireStore {
					_ = rt.Close()
					return nil, err
				}
				logger.Warn("schema migration skipped", slog.Any("error", err))
			}
		}
		rt.Store = pgstore.New(rt.Pool, cache.NewFeed(redisClient), logger)
		repo = auth.NewRepository(rt.Pool)
	}

	store := rt.Store
	if store != nil {
		store = remote.WithRetry(store, cfg.Backoff())
	}
	if repo == nil {
		repo = auth.NewMemoryRepository(func(code string) (string, bool) {
			u, ok := rt.Sync.FindUserByBadge(code)
			return u.Name, ok
		})
	}

	rt.Auth = auth.NewService(repo, auth.NewSessionStore(redisClient), auth.Config{
		Secret: cfg.JWTSecret,
		TTL:    cfg.SessionTTL,
	}, logger)

	display, err := cfg.Location()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Sync = synchronizer.New(synchronizer.Options{
		Store:    store,
		Seed:     catalog.DefaultSeed(),
		Accounts: rt.Auth,
		Confirm:  synchronizer.ConfirmFunc(api.Confirm),
		Logger:   logger,
		Recorder: opts.Recorder,
		Display:  display,
	})

	if cfg.AdminEmail != "" {
		err := rt.Auth.CreateAccount(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName, catalog.RoleAdmin)
		switch {
		case err == nil:
			logger.Info("admin account created", slog.String("email", cfg.AdminEmail))
		case shared.IsKind(err, shared.KindDuplicate):
		default:
			logger.Warn("admin account not created", slog.Any("error", err))
		}
	}
	return rt, nil
}

// Close tears the runtime down in reverse order.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Sync != nil {
		errs = append(errs, rt.Sync.Close())
	}
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	} else if rt.Pool != nil {
		rt.Pool.Close()
	}
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	return errors.Join(errs...)
}
