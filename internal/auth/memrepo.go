package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/usagereg/usagereg/internal/shared"
)

// BadgeHolder resolves a badge code to the name of the user holding it.
type BadgeHolder func(badgeID string) (string, bool)

// MemoryRepository keeps accounts in process. It backs the memory store
// driver, where no database holds the accounts table.
type MemoryRepository struct {
	holder BadgeHolder

	mu       sync.RWMutex
	accounts []Account
	nextID   int64
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty repository. holder may be nil, in which
// case badge sign-in always fails.
func NewMemoryRepository(holder BadgeHolder) *MemoryRepository {
	return &MemoryRepository{holder: holder}
}

// FindByEmail fetches an account by e-mail, case-insensitively.
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acc := range r.accounts {
		if strings.EqualFold(acc.Email, email) {
			found := acc
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByBadge resolves the badge holder and matches the account by display name.
func (r *MemoryRepository) FindByBadge(_ context.Context, badgeID string) (*Account, error) {
	if r.holder == nil {
		return nil, shared.ErrNotFound
	}
	name, ok := r.holder(badgeID)
	if !ok {
		return nil, shared.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acc := range r.accounts {
		if acc.DisplayName == name {
			found := acc
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

// CreateAccount stores acc and returns its id.
func (r *MemoryRepository) CreateAccount(_ context.Context, acc Account) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if strings.EqualFold(existing.Email, acc.Email) {
			return 0, shared.E(shared.KindDuplicate, "create", "accounts", fmt.Errorf("e-mail %q: %w", acc.Email, shared.ErrDuplicate))
		}
	}
	r.nextID++
	acc.ID = r.nextID
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	r.accounts = append(r.accounts, acc)
	return acc.ID, nil
}
