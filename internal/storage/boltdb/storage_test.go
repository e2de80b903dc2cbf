package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

func TestStorage_Credentials_Lifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	// Nothing stored yet
	_, err := store.GetCredentials(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	creds := &storage.Credentials{
		ServerURL: "https://dav.example.com",
		Username:  "ana",
		Password:  "s3cret",
	}
	require.NoError(t, store.SaveCredentials(ctx, creds))

	got, err := store.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	require.NoError(t, store.DeleteCredentials(ctx))
	_, err = store.GetCredentials(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestStorage_LastSyncTime(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	// Zero before the first cycle
	last, err := store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.SaveLastSyncTime(ctx, now))

	last, err = store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(last))
}

func TestStorage_ClosedErrors(t *testing.T) {
	store := createTestStorage(t)
	require.NoError(t, store.Close())
	store.db = nil

	ctx := context.Background()

	_, err := store.GetBaseline(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	err = store.SaveBaseline(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = store.GetMapping(ctx, "x")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = store.GetCredentials(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
