package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubKeepsOnlyLatestPendingSnapshot(t *testing.T) {
	hub := NewHub[string]()
	ch, unsubscribe := hub.Subscribe(context.Background())
	defer unsubscribe()

	hub.Publish([]string{"a"})
	hub.Publish([]string{"a", "b"})

	got := <-ch
	assert.Equal(t, []string{"a", "b"}, got)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %v", extra)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	ch, unsubscribe := hub.Subscribe(ctx)
	require.Equal(t, 1, hub.Len())

	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Len())

	unsubscribe()
	hub.Publish([]int{1})
}
