package memstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/shared"
)

func TestNewSeededSplitsBadges(t *testing.T) {
	store := NewSeeded(catalog.DefaultSeed())
	ctx := context.Background()

	users, err := store.Users().List(ctx)
	require.NoError(t, err)
	for _, u := range users {
		assert.Empty(t, u.BadgeCode)
	}

	badges, err := store.Badges().List(ctx)
	require.NoError(t, err)
	assert.Len(t, badges, 3)
	assert.Equal(t, catalog.Badge{BadgeID: "BADGE001", UserName: "Jan Janssen"}, badges[0])
}

func TestProductCreateAssignsServerFields(t *testing.T) {
	store := New()
	fixed := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })

	created, err := store.Products().Create(context.Background(), catalog.Product{Name: "Fin Oil", QRCode: "FO001"})
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID)
	assert.Equal(t, fixed, created.CreatedAt)

	_, err = store.Products().Create(context.Background(), catalog.Product{Name: "Other", QRCode: "FO001"})
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindDuplicate))
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUserRenameMovesBadge(t *testing.T) {
	store := NewSeeded(catalog.DefaultSeed())
	ctx := context.Background()

	_, err := store.Users().Update(ctx, "Jan Janssen", catalog.User{Name: "Jan Janssens", Role: catalog.RoleAdmin})
	require.NoError(t, err)

	badges, err := store.Badges().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jan Janssens", badges[0].UserName)

	require.NoError(t, store.Users().Delete(ctx, "Jan Janssens"))
	badges, err = store.Badges().List(ctx)
	require.NoError(t, err)
	assert.Len(t, badges, 2)
}

func TestFaultInjection(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.FailOn("create", catalog.EntityLocations, errors.New("boom"))
	_, err := store.Locations().Create(ctx, "Hal 3")
	assert.True(t, shared.IsKind(err, shared.KindRemoteWrite))
	assert.Equal(t, 1, store.Calls("create", catalog.EntityLocations))

	store.FailOn("create", catalog.EntityLocations, nil)
	_, err = store.Locations().Create(ctx, "Hal 3")
	require.NoError(t, err)

	store.SetOffline(true)
	assert.False(t, store.TestConnection(ctx))
	_, err = store.Locations().List(ctx)
	assert.True(t, shared.IsKind(err, shared.KindConnectivity))
}

func TestSubscribeReceivesPostWriteSnapshot(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe, err := store.Purposes().Subscribe(ctx)
	require.NoError(t, err)
	defer unsubscribe()

	_, err = store.Purposes().Create(context.Background(), "Training")
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, []catalog.Purpose{"Training"}, got)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestClearingBadgePublishesUsers(t *testing.T) {
	store := NewSeeded(catalog.DefaultSeed())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe, err := store.Users().Subscribe(ctx)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.Badges().DeleteByUser(context.Background(), "Jan Janssen"))

	select {
	case got := <-ch:
		assert.NotEmpty(t, got)
	case <-time.After(time.Second):
		t.Fatal("no users snapshot after badge delete")
	}
	badges, err := store.Badges().List(context.Background())
	require.NoError(t, err)
	for _, b := range badges {
		assert.NotEqual(t, "Jan Janssen", b.UserName)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	url, err := store.Blobs().Upload(ctx, "7", "tds.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "mem://attachments/7/"))

	blob, err := store.Blobs().Open(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "tds.pdf", blob.Name)
	assert.Equal(t, int64(8), blob.Size)
	require.NoError(t, blob.Body.Close())

	require.NoError(t, store.Blobs().Delete(ctx, url))
	assert.Equal(t, 0, store.BlobCount())
	assert.True(t, shared.IsKind(store.Blobs().Delete(ctx, url), shared.KindNotFound))
}
