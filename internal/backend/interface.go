// Package backend selects the Entity Store the binaries run on.
package backend

import (
	"context"

	"spendwise/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyFunc reports whether the store can serve requests.
type ReadyFunc func(ctx context.Context) error

// Result contains the store and the hooks owned by its backend.
type Result struct {
	Store   services.Store
	Ready   ReadyFunc
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	// Create opens the store described by config.
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	DatabaseURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
