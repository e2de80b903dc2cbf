package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

// createTestStorage creates a temporary storage for tests.
func createTestStorage(t *testing.T) *Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func testTask(uid, title string) models.Task {
	return models.Task{
		UID:      uid,
		Title:    title,
		Status:   models.StatusTodo,
		Priority: models.PriorityMedium,
		Due:      models.NewDate(2024, time.September, 1),
		Tags:     []string{"test"},
	}
}

func TestStorage_Baseline_EmptyByDefault(t *testing.T) {
	store := createTestStorage(t)

	tasks, err := store.GetBaseline(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestStorage_Baseline_SaveAndGet(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saved := []models.Task{testTask("a", "first"), testTask("b", "second")}
	require.NoError(t, store.SaveBaseline(ctx, saved))

	got, err := store.GetBaseline(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byUID := map[string]models.Task{}
	for _, task := range got {
		byUID[task.UID] = task
	}
	assert.True(t, saved[0].Equal(ptr(byUID["a"])))
	assert.True(t, saved[1].Equal(ptr(byUID["b"])))
}

func TestStorage_Baseline_WholesaleReplace(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBaseline(ctx, []models.Task{testTask("a", "old"), testTask("b", "old")}))
	require.NoError(t, store.SaveBaseline(ctx, []models.Task{testTask("c", "new")}))

	got, err := store.GetBaseline(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].UID)
}

func TestStorage_Baseline_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.SaveBaseline(ctx, []models.Task{testTask("a", "persisted")}))
	require.NoError(t, store.Close())

	reopened, err := New(ctx, dbPath)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	got, err := reopened.GetBaseline(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].Title)
}

func ptr(task models.Task) *models.Task {
	return &task
}
