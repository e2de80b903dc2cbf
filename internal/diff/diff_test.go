package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

func task(uid, title string) models.Task {
	return models.Task{
		UID:      uid,
		Title:    title,
		Status:   models.StatusTodo,
		Priority: models.PriorityNone,
	}
}

func TestDiff_AllEmpty(t *testing.T) {
	cs := Diff(nil, nil, nil, StrategyLocalWins)
	assert.True(t, cs.Empty())
}

func TestDiff_Idempotence(t *testing.T) {
	// diff(B, B, B, *) must be empty for any strategy: this is what
	// makes re-running sync with no new edits a no-op.
	baseline := []models.Task{task("a", "one"), task("b", "two"), task("c", "three")}

	for _, strategy := range []Strategy{StrategyLocalWins, StrategyRemoteWins} {
		cs := Diff(baseline, baseline, baseline, strategy)
		assert.True(t, cs.Empty(), "strategy %s", strategy)
	}
}

func TestDiff_LocalOnly_CreatesRemote(t *testing.T) {
	local := []models.Task{task("a", "new local task")}

	cs := Diff(local, nil, nil, StrategyLocalWins)

	require.Len(t, cs.ToRemote, 1)
	assert.Equal(t, ChangeCreate, cs.ToRemote[0].Type)
	assert.Equal(t, "a", cs.ToRemote[0].Task.UID)
	assert.Nil(t, cs.ToRemote[0].Previous)
	assert.Empty(t, cs.ToLocal)
	assert.Empty(t, cs.Conflicts)
}

func TestDiff_RemoteOnly_CreatesLocal(t *testing.T) {
	remote := []models.Task{task("a", "new remote task")}

	cs := Diff(nil, remote, nil, StrategyRemoteWins)

	require.Len(t, cs.ToLocal, 1)
	assert.Equal(t, ChangeCreate, cs.ToLocal[0].Type)
	assert.Empty(t, cs.ToRemote)
}

func TestDiff_NoDuplicateConvergence(t *testing.T) {
	// Run 1: brand new local task, empty remote, empty baseline.
	taskA := task("a", "task A")
	cs := Diff([]models.Task{taskA}, nil, nil, StrategyLocalWins)

	require.Len(t, cs.ToRemote, 1)
	assert.Equal(t, ChangeCreate, cs.ToRemote[0].Type)
	assert.Empty(t, cs.ToLocal)

	// Run 2: the create was applied and the baseline persisted. The
	// same task on all three sides must not produce a duplicate.
	all := []models.Task{taskA}
	cs = Diff(all, all, all, StrategyLocalWins)
	assert.True(t, cs.Empty())
}

func TestDiff_UpdatePropagation(t *testing.T) {
	baseline := []models.Task{task("a", "Old")}
	local := []models.Task{task("a", "New")}
	remote := []models.Task{task("a", "Old")}

	cs := Diff(local, remote, baseline, StrategyLocalWins)

	require.Len(t, cs.ToRemote, 1)
	change := cs.ToRemote[0]
	assert.Equal(t, ChangeUpdate, change.Type)
	assert.Equal(t, "New", change.Task.Title)
	require.NotNil(t, change.Previous)
	assert.Equal(t, "Old", change.Previous.Title)
	assert.Empty(t, cs.ToLocal)
	assert.Empty(t, cs.Conflicts)
}

func TestDiff_RemoteUpdatePropagation(t *testing.T) {
	baseline := []models.Task{task("a", "Old")}
	local := []models.Task{task("a", "Old")}
	remote := []models.Task{task("a", "Newer")}

	cs := Diff(local, remote, baseline, StrategyLocalWins)

	require.Len(t, cs.ToLocal, 1)
	assert.Equal(t, ChangeUpdate, cs.ToLocal[0].Type)
	assert.Equal(t, "Newer", cs.ToLocal[0].Task.Title)
	assert.Empty(t, cs.ToRemote)
}

func TestDiff_Conflict_RemoteWins(t *testing.T) {
	baseline := []models.Task{task("a", "Base")}
	local := []models.Task{task("a", "L")}
	remote := []models.Task{task("a", "R")}

	cs := Diff(local, remote, baseline, StrategyRemoteWins)

	require.Len(t, cs.Conflicts, 1)
	conflict := cs.Conflicts[0]
	assert.Equal(t, "a", conflict.UID)
	assert.Equal(t, "L", conflict.Local.Title)
	assert.Equal(t, "R", conflict.Remote.Title)
	require.NotNil(t, conflict.Base)
	assert.Equal(t, "Base", conflict.Base.Title)

	require.Len(t, cs.ToLocal, 1)
	assert.Equal(t, ChangeUpdate, cs.ToLocal[0].Type)
	assert.Equal(t, "R", cs.ToLocal[0].Task.Title)
	assert.Empty(t, cs.ToRemote)
}

func TestDiff_Conflict_LocalWins(t *testing.T) {
	baseline := []models.Task{task("a", "Base")}
	local := []models.Task{task("a", "L")}
	remote := []models.Task{task("a", "R")}

	cs := Diff(local, remote, baseline, StrategyLocalWins)

	require.Len(t, cs.Conflicts, 1)
	require.Len(t, cs.ToRemote, 1)
	assert.Equal(t, "L", cs.ToRemote[0].Task.Title)
	assert.Empty(t, cs.ToLocal)
}

func TestDiff_ConflictSymmetry(t *testing.T) {
	// Both strategies must report the identical conflicts list; only
	// the resolving change differs.
	baseline := []models.Task{task("a", "Base"), task("b", "Same")}
	local := []models.Task{task("a", "L"), task("b", "Same")}
	remote := []models.Task{task("a", "R"), task("b", "Same")}

	localWins := Diff(local, remote, baseline, StrategyLocalWins)
	remoteWins := Diff(local, remote, baseline, StrategyRemoteWins)

	assert.Equal(t, localWins.Conflicts, remoteWins.Conflicts)
	require.Len(t, localWins.Conflicts, 1)
}

func TestDiff_RemoteDeletion(t *testing.T) {
	// In local and baseline, gone from remote: remote deleted it.
	baseline := []models.Task{task("a", "doomed")}
	local := []models.Task{task("a", "doomed")}

	cs := Diff(local, nil, baseline, StrategyLocalWins)

	require.Len(t, cs.ToLocal, 1)
	assert.Equal(t, ChangeDelete, cs.ToLocal[0].Type)
	assert.Equal(t, "a", cs.ToLocal[0].Task.UID)
	assert.Empty(t, cs.ToRemote)
}

func TestDiff_LocalDeletion(t *testing.T) {
	baseline := []models.Task{task("a", "doomed")}
	remote := []models.Task{task("a", "doomed")}

	cs := Diff(nil, remote, baseline, StrategyLocalWins)

	require.Len(t, cs.ToRemote, 1)
	assert.Equal(t, ChangeDelete, cs.ToRemote[0].Type)
	assert.Empty(t, cs.ToLocal)
}

func TestDiff_BothDeleted_SilentDrop(t *testing.T) {
	baseline := []models.Task{task("a", "gone on both sides")}

	cs := Diff(nil, nil, baseline, StrategyLocalWins)
	assert.True(t, cs.Empty())
}

func TestDiff_FirstSyncOverlap(t *testing.T) {
	// Present on both sides with no baseline. Identical copies are a
	// no-op; diverged copies resolve through the strategy and are
	// recorded as a conflict with no base version.
	local := []models.Task{task("same", "identical"), task("diff", "local view")}
	remote := []models.Task{task("same", "identical"), task("diff", "remote view")}

	cs := Diff(local, remote, nil, StrategyRemoteWins)

	require.Len(t, cs.Conflicts, 1)
	assert.Equal(t, "diff", cs.Conflicts[0].UID)
	assert.Nil(t, cs.Conflicts[0].Base)

	require.Len(t, cs.ToLocal, 1)
	assert.Equal(t, "remote view", cs.ToLocal[0].Task.Title)
	assert.Empty(t, cs.ToRemote)
}

func TestDiff_TagReorderIsAChange(t *testing.T) {
	base := task("a", "tagged")
	base.Tags = []string{"x", "y"}

	changed := base.Clone()
	changed.Tags = []string{"y", "x"}

	cs := Diff([]models.Task{*changed}, []models.Task{base}, []models.Task{base}, StrategyLocalWins)

	require.Len(t, cs.ToRemote, 1)
	assert.Equal(t, ChangeUpdate, cs.ToRemote[0].Type)
	assert.Equal(t, []string{"y", "x"}, cs.ToRemote[0].Task.Tags)
}

func TestDiff_DeterministicOrder(t *testing.T) {
	local := []models.Task{task("zz", "z"), task("aa", "a"), task("mm", "m")}

	cs := Diff(local, nil, nil, StrategyLocalWins)

	require.Len(t, cs.ToRemote, 3)
	assert.Equal(t, "aa", cs.ToRemote[0].Task.UID)
	assert.Equal(t, "mm", cs.ToRemote[1].Task.UID)
	assert.Equal(t, "zz", cs.ToRemote[2].Task.UID)
}

func TestDiff_MixedScenario(t *testing.T) {
	baseline := []models.Task{
		task("keep", "unchanged"),
		task("edit-local", "old"),
		task("del-remote", "going"),
		task("del-both", "gone"),
	}
	local := []models.Task{
		task("keep", "unchanged"),
		task("edit-local", "new title"),
		task("del-remote", "going"),
		task("new-local", "fresh"),
	}
	remote := []models.Task{
		task("keep", "unchanged"),
		task("edit-local", "old"),
	}

	cs := Diff(local, remote, baseline, StrategyLocalWins)

	// new-local created remotely, edit-local updated remotely
	require.Len(t, cs.ToRemote, 2)
	assert.Equal(t, ChangeUpdate, cs.ToRemote[0].Type) // edit-local
	assert.Equal(t, ChangeCreate, cs.ToRemote[1].Type) // new-local

	// del-remote deleted locally
	require.Len(t, cs.ToLocal, 1)
	assert.Equal(t, ChangeDelete, cs.ToLocal[0].Type)
	assert.Equal(t, "del-remote", cs.ToLocal[0].Task.UID)

	assert.Empty(t, cs.Conflicts)
}
