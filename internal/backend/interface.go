package backend

import (
	"context"

	"expenses/internal/ports"
	"expenses/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the configured record store, the service built on
// it and the function that releases both.
type BackendResult struct {
	Store   ports.Store
	Service *services.ExpenseService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Notifications, shared by every backend. Empty AMQPURL disables them.
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
