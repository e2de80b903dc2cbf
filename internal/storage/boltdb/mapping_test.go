package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

func TestStorage_Mapping_SaveAndGet(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	mapping := &storage.Mapping{
		UID:              "uid-1",
		LocalID:          "block-abc",
		RemoteHref:       "/calendars/user/tasks/uid-1.ics",
		ETag:             `"12345"`,
		LastSyncedLocal:  now,
		LastSyncedRemote: now,
	}

	require.NoError(t, store.SaveMapping(ctx, mapping))

	got, err := store.GetMapping(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, mapping, got)
}

func TestStorage_Mapping_NotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetMapping(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrMappingNotFound)
}

func TestStorage_Mapping_EmptyUIDRejected(t *testing.T) {
	store := createTestStorage(t)

	err := store.SaveMapping(context.Background(), &storage.Mapping{})
	assert.Error(t, err)
}

func TestStorage_Mapping_Delete(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &storage.Mapping{UID: "uid-1", RemoteHref: "/x.ics"}))
	require.NoError(t, store.DeleteMapping(ctx, "uid-1"))

	_, err := store.GetMapping(ctx, "uid-1")
	assert.ErrorIs(t, err, storage.ErrMappingNotFound)

	// Deleting again is a no-op
	assert.NoError(t, store.DeleteMapping(ctx, "uid-1"))
}

func TestStorage_Mapping_List(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &storage.Mapping{UID: "a", RemoteHref: "/a.ics"}))
	require.NoError(t, store.SaveMapping(ctx, &storage.Mapping{UID: "b", RemoteHref: "/b.ics"}))

	mappings, err := store.ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, 2)
}

func TestStorage_Mapping_Replace(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &storage.Mapping{UID: "a", ETag: `"1"`}))
	require.NoError(t, store.SaveMapping(ctx, &storage.Mapping{UID: "a", ETag: `"2"`}))

	got, err := store.GetMapping(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `"2"`, got.ETag)
}
