package storage

import "errors"

// Common storage errors
var (
	// ErrAuthNotFound indicates that no credentials are stored
	ErrAuthNotFound = errors.New("credentials not found")

	// ErrMappingNotFound indicates that a uid has no identifier mapping
	ErrMappingNotFound = errors.New("identifier mapping not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
