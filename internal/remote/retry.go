package remote

import (
	"context"
	"time"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/shared"
)

// Backoff describes exponential retry of remote calls.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultBackoff is used when the configuration does not override it.
var DefaultBackoff = Backoff{Attempts: 3, Base: 100 * time.Millisecond, Max: 2 * time.Second}

// Do runs fn until it succeeds, fails with a non-retryable error, the attempts
// are exhausted or ctx is done.
func (b Backoff) Do(ctx context.Context, retryable func(error) bool, fn func(context.Context) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := b.Base
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !retryable(err) || i == attempts-1 {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return err
}

// readRetryable retries any transient read failure.
func readRetryable(err error) bool {
	return shared.KindOf(err).Retryable()
}

// writeRetryable only retries failures that happened before the write reached
// the server, so a retried create cannot insert twice.
func writeRetryable(err error) bool {
	return shared.KindOf(err) == shared.KindConnectivity
}

// WithRetry wraps every table of s with b.
func WithRetry(s Store, b Backoff) Store {
	return &retryStore{Store: s, backoff: b}
}

type retryStore struct {
	Store
	backoff Backoff
}

func (s *retryStore) Users() Table[catalog.User] {
	return retryTable[catalog.User]{inner: s.Store.Users(), backoff: s.backoff}
}

func (s *retryStore) Products() Table[catalog.Product] {
	return retryTable[catalog.Product]{inner: s.Store.Products(), backoff: s.backoff}
}

func (s *retryStore) Categories() Table[catalog.Category] {
	return retryTable[catalog.Category]{inner: s.Store.Categories(), backoff: s.backoff}
}

func (s *retryStore) Locations() Table[catalog.Location] {
	return retryTable[catalog.Location]{inner: s.Store.Locations(), backoff: s.backoff}
}

func (s *retryStore) Purposes() Table[catalog.Purpose] {
	return retryTable[catalog.Purpose]{inner: s.Store.Purposes(), backoff: s.backoff}
}

func (s *retryStore) Registrations() Table[catalog.Registration] {
	return retryTable[catalog.Registration]{inner: s.Store.Registrations(), backoff: s.backoff}
}

type retryTable[T any] struct {
	inner   Table[T]
	backoff Backoff
}

func (t retryTable[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := t.backoff.Do(ctx, readRetryable, func(ctx context.Context) error {
		var err error
		out, err = t.inner.List(ctx)
		return err
	})
	return out, err
}

func (t retryTable[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	err := t.backoff.Do(ctx, writeRetryable, func(ctx context.Context) error {
		var err error
		out, err = t.inner.Create(ctx, rec)
		return err
	})
	return out, err
}

func (t retryTable[T]) Update(ctx context.Context, key string, rec T) (T, error) {
	var out T
	err := t.backoff.Do(ctx, writeRetryable, func(ctx context.Context) error {
		var err error
		out, err = t.inner.Update(ctx, key, rec)
		return err
	})
	return out, err
}

func (t retryTable[T]) Delete(ctx context.Context, key string) error {
	return t.backoff.Do(ctx, writeRetryable, func(ctx context.Context) error {
		return t.inner.Delete(ctx, key)
	})
}

func (t retryTable[T]) Subscribe(ctx context.Context) (<-chan []T, Unsubscribe, error) {
	return t.inner.Subscribe(ctx)
}
