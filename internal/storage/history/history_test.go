package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStorage(t *testing.T) *Storage {
	t.Helper()

	storage, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, storage.Close())
	})

	return storage
}

func sampleCycle() *Cycle {
	return &Cycle{
		StartedAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt:    time.Date(2025, 3, 1, 10, 0, 2, 0, time.UTC),
		Success:       true,
		Strategy:      "local_wins",
		Message:       "sync completed",
		CreatedRemote: 2,
		UpdatedLocal:  1,
		Conflicts:     1,
	}
}

func TestRecordCycle(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	cycle := sampleCycle()
	conflicts := []Conflict{
		{UID: "abc", LocalTitle: "Local edit", RemoteTitle: "Remote edit", Resolution: "local_wins"},
	}

	err := storage.RecordCycle(ctx, cycle, conflicts)
	require.NoError(t, err)
	assert.NotZero(t, cycle.ID)

	cycles, err := storage.ListCycles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	got := cycles[0]
	assert.Equal(t, cycle.ID, got.ID)
	assert.True(t, got.Success)
	assert.False(t, got.DryRun)
	assert.Equal(t, "local_wins", got.Strategy)
	assert.Equal(t, "sync completed", got.Message)
	assert.Equal(t, 2, got.CreatedRemote)
	assert.Equal(t, 1, got.UpdatedLocal)
	assert.Equal(t, 1, got.Conflicts)
	assert.Equal(t, cycle.StartedAt, got.StartedAt)
	assert.Equal(t, cycle.FinishedAt, got.FinishedAt)
}

func TestRecordCycle_NoConflicts(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	cycle := sampleCycle()
	cycle.Conflicts = 0

	err := storage.RecordCycle(ctx, cycle, nil)
	require.NoError(t, err)

	conflicts, err := storage.ListConflicts(ctx, cycle.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestListCycles_NewestFirstWithLimit(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cycle := sampleCycle()
		cycle.StartedAt = cycle.StartedAt.Add(time.Duration(i) * time.Hour)
		require.NoError(t, storage.RecordCycle(ctx, cycle, nil))
	}

	cycles, err := storage.ListCycles(ctx, 3)
	require.NoError(t, err)
	require.Len(t, cycles, 3)

	// Newest (highest id) first.
	assert.Greater(t, cycles[0].ID, cycles[1].ID)
	assert.Greater(t, cycles[1].ID, cycles[2].ID)
}

func TestListCycles_Empty(t *testing.T) {
	storage := createTestStorage(t)

	cycles, err := storage.ListCycles(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestListConflicts(t *testing.T) {
	storage := createTestStorage(t)
	ctx := context.Background()

	first := sampleCycle()
	require.NoError(t, storage.RecordCycle(ctx, first, []Conflict{
		{UID: "a", LocalTitle: "A local", RemoteTitle: "A remote", Resolution: "remote_wins"},
		{UID: "b", LocalTitle: "B local", RemoteTitle: "B remote", Resolution: "remote_wins", FirstSync: true},
	}))

	second := sampleCycle()
	require.NoError(t, storage.RecordCycle(ctx, second, []Conflict{
		{UID: "c", Resolution: "local_wins"},
	}))

	conflicts, err := storage.ListConflicts(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)

	assert.Equal(t, "a", conflicts[0].UID)
	assert.Equal(t, first.ID, conflicts[0].CycleID)
	assert.False(t, conflicts[0].FirstSync)
	assert.Equal(t, "b", conflicts[1].UID)
	assert.True(t, conflicts[1].FirstSync)

	conflicts, err = storage.ListConflicts(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "c", conflicts[0].UID)
}
