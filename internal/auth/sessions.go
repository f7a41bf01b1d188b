package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks live session ids in Redis so signed tokens can be
// revoked before they expire.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, prefix: "usagereg:session:"}
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

// Save marks id as live for ttl.
func (s *SessionStore) Save(ctx context.Context, id string, accountID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(id), strconv.FormatInt(accountID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("auth: save session: %w", err)
	}
	return nil
}

// Active reports whether id is still live.
func (s *SessionStore) Active(ctx context.Context, id string) (bool, error) {
	err := s.client.Get(ctx, s.key(id)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth: load session: %w", err)
	}
	return true, nil
}

// Revoke removes id. Revoking an unknown id is not an error.
func (s *SessionStore) Revoke(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: revoke session: %w", err)
	}
	return nil
}
