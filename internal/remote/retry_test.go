package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagereg/usagereg/internal/shared"
)

func TestBackoffRetriesTransientErrors(t *testing.T) {
	b := Backoff{Attempts: 3, Base: time.Millisecond}
	calls := 0
	err := b.Do(context.Background(), readRetryable, func(context.Context) error {
		calls++
		if calls < 3 {
			return shared.E(shared.KindRemoteRead, "list", "products", errors.New("timeout"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffStopsOnPermanentError(t *testing.T) {
	b := Backoff{Attempts: 5, Base: time.Millisecond}
	calls := 0
	err := b.Do(context.Background(), readRetryable, func(context.Context) error {
		calls++
		return shared.E(shared.KindValidation, "create", "products", shared.ErrRequiredField)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWritesRetryOnlyBeforeReachingServer(t *testing.T) {
	assert.True(t, writeRetryable(shared.E(shared.KindConnectivity, "create", "users", errors.New("dial"))))
	assert.False(t, writeRetryable(shared.E(shared.KindRemoteWrite, "create", "users", errors.New("constraint"))))
}

func TestBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := Backoff{Attempts: 3, Base: time.Hour}
	calls := 0
	err := b.Do(ctx, readRetryable, func(context.Context) error {
		calls++
		return shared.E(shared.KindRemoteRead, "list", "users", errors.New("down"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
