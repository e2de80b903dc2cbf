package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/caldav"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/cli"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/config"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/iocli"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/remote"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage/boltdb"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage/history"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/sync"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/vault"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Config file (default: "+config.DefaultConfigFile+")")
	dbPath := flag.String("db", "", "State database, overrides config state_path")
	historyPath := flag.String("history-db", "", "History database, overrides config history_path")
	dryRun := flag.Bool("dry-run", false, "With sync: report changes without applying them")
	historyN := flag.Int("n", 10, "With history: number of cycles to show")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	ctx := context.Background()
	io := iocli.NewStdio()

	// init only writes the config template; nothing else to wire.
	if command == "init" {
		if err := cli.RunInit(io, *configPath); err != nil {
			fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *dbPath != "" {
		cfg.StatePath = *dbPath
	}
	if *historyPath != "" {
		cfg.HistoryPath = *historyPath
	}

	logger := newLogger(cfg.LogLevel)

	switch command {
	case "login":
		if err := cfg.Validate(); err != nil {
			fatal(err)
		}
		state := openState(ctx, cfg)
		defer closeState(state, logger)

		if err := cli.RunLogin(ctx, io, cfg, state, checkCalDAV); err != nil {
			fatal(err)
		}

	case "logout":
		state := openState(ctx, cfg)
		defer closeState(state, logger)

		if err := cli.RunLogout(ctx, io, state); err != nil {
			fatal(err)
		}

	case "status":
		if err := cfg.Validate(); err != nil {
			fatal(err)
		}
		state := openState(ctx, cfg)
		defer closeState(state, logger)

		if err := cli.RunStatus(ctx, io, cfg, state, state, state); err != nil {
			fatal(err)
		}

	case "sync":
		if err := cfg.Validate(); err != nil {
			fatal(err)
		}
		state := openState(ctx, cfg)
		defer closeState(state, logger)

		creds, err := state.GetCredentials(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrAuthNotFound) {
				fatal(fmt.Errorf("not authenticated, run 'tasksync login' first"))
			}
			fatal(err)
		}

		client, err := caldav.NewClient(creds.ServerURL, cfg.Server.CalendarPath, creds.Username, creds.Password)
		if err != nil {
			fatal(err)
		}

		hist := openHistory(ctx, cfg)
		defer func() {
			if err := hist.Close(); err != nil {
				logger.Error("failed to close history database", "error", err)
			}
		}()

		local := vault.NewStore(cfg.VaultDir(), cfg.Vault.InboxFile, logger)
		adapter := remote.New(client, state, logger)
		service := sync.NewService(local, adapter, state, state, cfg.Strategy(), logger)

		if err := cli.RunSync(ctx, io, service, hist, cfg.Sync.Strategy, *dryRun); err != nil {
			fatal(err)
		}

	case "history":
		hist := openHistory(ctx, cfg)
		defer func() {
			if err := hist.Close(); err != nil {
				logger.Error("failed to close history database", "error", err)
			}
		}()

		if err := cli.RunHistory(ctx, io, hist, *historyN); err != nil {
			fatal(err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		cli.PrintUsage()
		os.Exit(1)
	}
}

// checkCalDAV verifies credentials by issuing a PROPFIND against the
// calendar collection.
func checkCalDAV(ctx context.Context, serverURL, calendarPath, username, password string) error {
	client, err := caldav.NewClient(serverURL, calendarPath, username, password)
	if err != nil {
		return err
	}
	return client.Check(ctx)
}

func openState(ctx context.Context, cfg *config.Config) *boltdb.Storage {
	path, err := cfg.StateFile()
	if err != nil {
		fatal(err)
	}
	state, err := boltdb.New(ctx, path)
	if err != nil {
		fatal(fmt.Errorf("failed to open state database: %w", err))
	}
	return state
}

func closeState(state *boltdb.Storage, logger *slog.Logger) {
	if err := state.Close(); err != nil {
		logger.Error("failed to close state database", "error", err)
	}
}

func openHistory(ctx context.Context, cfg *config.Config) *history.Storage {
	path, err := cfg.HistoryFile()
	if err != nil {
		fatal(err)
	}
	hist, err := history.New(ctx, path)
	if err != nil {
		fatal(fmt.Errorf("failed to open history database: %w", err))
	}
	return hist
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printVersion() {
	fmt.Printf("tasksync\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
