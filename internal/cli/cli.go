// Package cli implements the tasksync commands. Each command is a
// RunXxx function taking its dependencies explicitly, so commands can
// be tested with fakes and wired up in main.
package cli

import (
	"context"
	"fmt"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage/history"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/sync"
)

// Syncer runs one reconciliation cycle.
type Syncer interface {
	Sync(ctx context.Context, opts sync.Options) (*sync.Result, error)
}

// HistoryStore is the audit-trail surface the commands need.
type HistoryStore interface {
	RecordCycle(ctx context.Context, cycle *history.Cycle, conflicts []history.Conflict) error
	ListCycles(ctx context.Context, limit int) ([]*history.Cycle, error)
	ListConflicts(ctx context.Context, cycleID int64) ([]*history.Conflict, error)
}

// CheckFunc verifies a set of credentials against the CalDAV server.
type CheckFunc func(ctx context.Context, serverURL, calendarPath, username, password string) error

func PrintUsage() {
	fmt.Println("tasksync - sync Obsidian-style Markdown tasks with a CalDAV server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tasksync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version           Show version information")
	fmt.Println("  --config PATH       Config file (default: ~/.tasksync/config.toml)")
	fmt.Println("  --db PATH           State database, overrides config state_path")
	fmt.Println("  --history-db PATH   History database, overrides config history_path")
	fmt.Println("  --dry-run           With sync: report changes without applying them")
	fmt.Println("  -n N                With history: show the last N cycles (default: 10)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init         Write a starter config file")
	fmt.Println("  login        Store CalDAV credentials after verifying them")
	fmt.Println("  logout       Delete stored credentials")
	fmt.Println("  status       Show configuration, credentials and last sync")
	fmt.Println("  sync         Run one reconciliation cycle")
	fmt.Println("  history      Show recent sync cycles and their conflicts")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tasksync init")
	fmt.Println("  tasksync login")
	fmt.Println("  tasksync sync --dry-run")
	fmt.Println("  tasksync sync")
	fmt.Println("  tasksync history -n 5")
}
