package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/config"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/iocli"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

// RunLogin prompts for credentials, verifies them against the server
// from the config and stores them on success.
func RunLogin(ctx context.Context, io iocli.IO, cfg *config.Config, auth storage.AuthStorage, check CheckFunc) error {
	io.Println("=== Login ===")
	io.Println()
	io.Printf("Server: %s\n", cfg.Server.URL)
	io.Println()

	username, err := io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if username == "" {
		return errors.New("username cannot be empty")
	}

	password, err := io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	io.Println()
	io.Println("Verifying credentials...")

	if err := check(ctx, cfg.Server.URL, cfg.Server.CalendarPath, username, password); err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	creds := &storage.Credentials{
		ServerURL: cfg.Server.URL,
		Username:  username,
		Password:  password,
	}
	if err := auth.SaveCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	io.Println()
	io.Println("✓ Login successful!")
	io.Printf("Credentials for %s stored.\n", username)

	return nil
}

// RunLogout deletes the stored credentials.
func RunLogout(ctx context.Context, io iocli.IO, auth storage.AuthStorage) error {
	io.Println("=== Logout ===")

	if err := auth.DeleteCredentials(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	io.Println("✓ Stored credentials deleted.")

	return nil
}
