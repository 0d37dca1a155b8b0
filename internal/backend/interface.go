package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/ledger"
	"fintrack/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is everything a process needs to serve the ledger.
type BackendResult struct {
	Repository ledger.Repository
	// Broker is nil when AMQP fan-out is disabled.
	Broker *amqp.Client
	// Exporter is the Google Sheets client, or an in-memory one when
	// no spreadsheet is configured.
	Exporter sheets.TransactionExporter
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string

	// Origin identifies this process on the change exchange.
	Origin       string
	AMQPURL      string
	AMQPExchange string

	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
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
