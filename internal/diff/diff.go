// Package diff implements the three-way reconciliation algorithm: given
// the current local snapshot, the current remote snapshot and the last
// agreed baseline, it classifies every task by its presence pattern and
// produces the change lists each side must apply to converge.
//
// Diff is deterministic and side-effect free; running it with three
// identical inputs yields an empty changeset, which is what makes repeat
// sync cycles idempotent.
package diff

import (
	"sort"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

// Strategy selects which side wins when both sides changed the same task.
type Strategy string

const (
	StrategyLocalWins  Strategy = "local_wins"  // local edit overwrites the remote one
	StrategyRemoteWins Strategy = "remote_wins" // remote edit overwrites the local one
)

// Valid reports whether the strategy is one of the known values.
func (s Strategy) Valid() bool {
	return s == StrategyLocalWins || s == StrategyRemoteWins
}

// ChangeType classifies one change.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is one operation a side must apply. Previous carries the
// baseline version and is set only for updates, so the receiving side
// knows which version it is replacing.
type Change struct {
	Type     ChangeType   `json:"type"`
	Task     models.Task  `json:"task"`
	Previous *models.Task `json:"previous,omitempty"`
}

// Conflict records a double edit: both sides changed the same task since
// the baseline. It is recorded even when the strategy auto-resolves it,
// so callers can surface or persist it for auditing.
type Conflict struct {
	UID    string       `json:"uid"`
	Local  models.Task  `json:"local"`
	Remote models.Task  `json:"remote"`
	Base   *models.Task `json:"base,omitempty"` // nil for the first-sync overlap case
}

// Changeset is the complete output of one diff invocation.
type Changeset struct {
	ToLocal   []Change   `json:"to_local"`
	ToRemote  []Change   `json:"to_remote"`
	Conflicts []Conflict `json:"conflicts"`
}

// Empty reports whether the changeset contains no changes and no
// conflicts.
func (c *Changeset) Empty() bool {
	return len(c.ToLocal) == 0 && len(c.ToRemote) == 0 && len(c.Conflicts) == 0
}

// Diff computes the changeset that converges local and remote given the
// last agreed baseline. Output order is deterministic: changes appear in
// lexicographic UID order regardless of input order.
func Diff(local, remote, baseline []models.Task, strategy Strategy) Changeset {
	localIdx := indexByUID(local)
	remoteIdx := indexByUID(remote)
	baseIdx := indexByUID(baseline)

	uids := unionUIDs(localIdx, remoteIdx, baseIdx)

	var cs Changeset
	for _, uid := range uids {
		l, inLocal := localIdx[uid]
		r, inRemote := remoteIdx[uid]
		b, inBase := baseIdx[uid]

		switch {
		case inLocal && inRemote:
			if !inBase {
				// Both sides have the task but there is no agreed
				// baseline: the ambiguous first-sync overlap. Without
				// deletion evidence this is indistinguishable from a
				// double edit, so it resolves through the same strategy
				// and is recorded as a conflict with no base version.
				if l.Equal(&r) {
					continue
				}
				cs.addConflict(uid, l, r, nil, strategy)
				continue
			}

			localChanged := !l.Equal(&b)
			remoteChanged := !r.Equal(&b)
			switch {
			case localChanged && remoteChanged:
				base := b
				cs.addConflict(uid, l, r, &base, strategy)
			case localChanged:
				prev := b
				cs.ToRemote = append(cs.ToRemote, Change{Type: ChangeUpdate, Task: l, Previous: &prev})
			case remoteChanged:
				prev := b
				cs.ToLocal = append(cs.ToLocal, Change{Type: ChangeUpdate, Task: r, Previous: &prev})
			}

		case inLocal && !inRemote:
			if inBase {
				// Present at the last sync, gone from the remote now:
				// the remote side deleted it.
				cs.ToLocal = append(cs.ToLocal, Change{Type: ChangeDelete, Task: l})
			} else {
				cs.ToRemote = append(cs.ToRemote, Change{Type: ChangeCreate, Task: l})
			}

		case !inLocal && inRemote:
			if inBase {
				cs.ToRemote = append(cs.ToRemote, Change{Type: ChangeDelete, Task: r})
			} else {
				cs.ToLocal = append(cs.ToLocal, Change{Type: ChangeCreate, Task: r})
			}

		default:
			// Baseline only: both sides deleted independently. The
			// entry simply drops out of the next baseline.
		}
	}

	return cs
}

// addConflict records the conflict and pushes the losing side's update
// to the winner's counterpart, per the strategy.
func (c *Changeset) addConflict(uid string, local, remote models.Task, base *models.Task, strategy Strategy) {
	c.Conflicts = append(c.Conflicts, Conflict{UID: uid, Local: local, Remote: remote, Base: base})

	if strategy == StrategyLocalWins {
		c.ToRemote = append(c.ToRemote, Change{Type: ChangeUpdate, Task: local, Previous: base})
	} else {
		c.ToLocal = append(c.ToLocal, Change{Type: ChangeUpdate, Task: remote, Previous: base})
	}
}

func indexByUID(tasks []models.Task) map[string]models.Task {
	idx := make(map[string]models.Task, len(tasks))
	for _, task := range tasks {
		idx[task.UID] = task
	}
	return idx
}

func unionUIDs(indexes ...map[string]models.Task) []string {
	seen := make(map[string]struct{})
	var uids []string
	for _, idx := range indexes {
		for uid := range idx {
			if _, ok := seen[uid]; ok {
				continue
			}
			seen[uid] = struct{}{}
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids
}
