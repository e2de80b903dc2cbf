// Package history keeps an audit trail of sync cycles in SQLite. Unlike
// the state database, the history is append-only: every cycle and every
// conflict it detected gets a row, queryable later from the CLI.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Cycle is one recorded sync cycle.
type Cycle struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	DryRun     bool
	Strategy   string
	Message    string

	CreatedLocal  int
	UpdatedLocal  int
	DeletedLocal  int
	CreatedRemote int
	UpdatedRemote int
	DeletedRemote int

	Conflicts     int
	SkippedRemote int
	FailedChanges int
}

// Conflict is one recorded double edit, tied to the cycle that found it.
type Conflict struct {
	ID          int64
	CycleID     int64
	UID         string
	LocalTitle  string
	RemoteTitle string
	Resolution  string
	FirstSync   bool
}

// Storage is the SQLite history store.
type Storage struct {
	db *sql.DB
}

// New opens (or creates) the history database at dbPath and applies
// pending migrations. Use ":memory:" for tests.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	// SQLite allows a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	storage := &Storage{db: db}
	if err := storage.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) runMigrations() error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// RecordCycle inserts a cycle and its conflicts in one transaction and
// fills in cycle.ID.
func (s *Storage) RecordCycle(ctx context.Context, cycle *Cycle, conflicts []Conflict) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO sync_cycles (
			started_at, finished_at, success, dry_run, strategy, message,
			created_local, updated_local, deleted_local,
			created_remote, updated_remote, deleted_remote,
			conflicts, skipped_remote, failed_changes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		cycle.StartedAt.Unix(),
		cycle.FinishedAt.Unix(),
		boolToInt(cycle.Success),
		boolToInt(cycle.DryRun),
		cycle.Strategy,
		cycle.Message,
		cycle.CreatedLocal,
		cycle.UpdatedLocal,
		cycle.DeletedLocal,
		cycle.CreatedRemote,
		cycle.UpdatedRemote,
		cycle.DeletedRemote,
		cycle.Conflicts,
		cycle.SkippedRemote,
		cycle.FailedChanges,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}

	cycleID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get cycle id: %w", err)
	}
	cycle.ID = cycleID

	conflictQuery := `
		INSERT INTO sync_conflicts (
			cycle_id, uid, local_title, remote_title, resolution, first_sync
		) VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, conflict := range conflicts {
		_, err := tx.ExecContext(ctx, conflictQuery,
			cycleID,
			conflict.UID,
			conflict.LocalTitle,
			conflict.RemoteTitle,
			conflict.Resolution,
			boolToInt(conflict.FirstSync),
		)
		if err != nil {
			return fmt.Errorf("failed to insert conflict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ListCycles returns the most recent cycles, newest first. limit <= 0
// means no limit.
func (s *Storage) ListCycles(ctx context.Context, limit int) ([]*Cycle, error) {
	query := `
		SELECT id, started_at, finished_at, success, dry_run, strategy, message,
		       created_local, updated_local, deleted_local,
		       created_remote, updated_remote, deleted_remote,
		       conflicts, skipped_remote, failed_changes
		FROM sync_cycles
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*Cycle
	for rows.Next() {
		cycle := &Cycle{}
		var success, dryRun int
		var startedAt, finishedAt int64

		err := rows.Scan(
			&cycle.ID,
			&startedAt,
			&finishedAt,
			&success,
			&dryRun,
			&cycle.Strategy,
			&cycle.Message,
			&cycle.CreatedLocal,
			&cycle.UpdatedLocal,
			&cycle.DeletedLocal,
			&cycle.CreatedRemote,
			&cycle.UpdatedRemote,
			&cycle.DeletedRemote,
			&cycle.Conflicts,
			&cycle.SkippedRemote,
			&cycle.FailedChanges,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}

		cycle.Success = intToBool(success)
		cycle.DryRun = intToBool(dryRun)
		cycle.StartedAt = time.Unix(startedAt, 0).UTC()
		cycle.FinishedAt = time.Unix(finishedAt, 0).UTC()
		cycles = append(cycles, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return cycles, nil
}

// ListConflicts returns the conflicts recorded for one cycle.
func (s *Storage) ListConflicts(ctx context.Context, cycleID int64) ([]*Conflict, error) {
	query := `
		SELECT id, cycle_id, uid, local_title, remote_title, resolution, first_sync
		FROM sync_conflicts
		WHERE cycle_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*Conflict
	for rows.Next() {
		conflict := &Conflict{}
		var firstSync int

		err := rows.Scan(
			&conflict.ID,
			&conflict.CycleID,
			&conflict.UID,
			&conflict.LocalTitle,
			&conflict.RemoteTitle,
			&conflict.Resolution,
			&firstSync,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict: %w", err)
		}

		conflict.FirstSync = intToBool(firstSync)
		conflicts = append(conflicts, conflict)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return conflicts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
