package backend

import (
	"context"
	"time"

	"moneta/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the loaded ledger and optional cleanup function
type BackendResult struct {
	Type    BackendType
	Ledger  *ledger.Ledger
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration
type Factory interface {
	// CreateLedger builds a ledger for the configured backend and loads its
	// initial state.
	CreateLedger(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Remote specific
	APIURL   string
	Email    string
	Password string
	// Register creates the account before logging in.
	Register bool

	// Local specific
	DBPath string

	UndoWindow time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	LocalBackend  BackendType = "local"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, LocalBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
