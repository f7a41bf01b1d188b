package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByBadge(ctx context.Context, badgeID string) (*Account, error)
	CreateAccount(ctx context.Context, acc Account) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `a.id, a.email, a.password_hash, a.display_name, a.level, a.created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acc   Account
		level string
	)
	if err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.DisplayName, &level, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	acc.Level = catalog.ParseRole(level)
	return &acc, nil
}

// FindByEmail fetches an account by e-mail, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE lower(a.email) = lower($1)`, email)
	return scanAccount(row)
}

// FindByBadge resolves a badge to the account of its holder. The badge row
// names the account by e-mail when known, else by display name.
func (r *PGRepository) FindByBadge(ctx context.Context, badgeID string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM user_badges b
		JOIN accounts a
		  ON (b.user_email <> '' AND lower(a.email) = lower(b.user_email))
		  OR a.display_name = b.user_name
		WHERE b.badge_id = $1
		ORDER BY (lower(a.email) = lower(b.user_email)) DESC
		LIMIT 1`, badgeID)
	return scanAccount(row)
}

// CreateAccount inserts an account and returns its id.
func (r *PGRepository) CreateAccount(ctx context.Context, acc Account) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, display_name, level)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, acc.Email, acc.PasswordHash, acc.DisplayName, string(acc.Level)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.E(shared.KindDuplicate, "create", "accounts", fmt.Errorf("e-mail %q: %w", acc.Email, shared.ErrDuplicate))
		}
		return 0, fmt.Errorf("auth: create account: %w", err)
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
