package storage

import "context"

//go:generate moq -out auth_mock.go . AuthStorage

// Credentials holds the CalDAV account the tool talks to. They are
// written by the login command and cleared by logout. The bolt file
// carrying them is created with 0600 permissions.
type Credentials struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// AuthStorage persists CalDAV credentials between invocations.
type AuthStorage interface {
	// SaveCredentials stores the credentials, replacing any previous set.
	SaveCredentials(ctx context.Context, creds *Credentials) error

	// GetCredentials returns the stored credentials.
	// Returns ErrAuthNotFound when none are stored.
	GetCredentials(ctx context.Context) (*Credentials, error)

	// DeleteCredentials removes stored credentials (logout).
	DeleteCredentials(ctx context.Context) error
}
