// Package backend builds the configured ledger storage.
package backend

import (
	"context"

	"fundtracker/internal/ledger"
	gsheet "fundtracker/internal/sheets/google"
	"fundtracker/internal/storage/postgres"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready backend and its cleanup, which may be nil.
type Result struct {
	Backend ledger.Backend
	Cleanup CleanupFunc
	// Describe is a short human label such as "csv data/transactions.csv".
	Describe string
}

// Close runs Cleanup when present.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds everything any backend needs; only the fields of Type are
// read.
type Config struct {
	Type Type

	DataDirectory string
	DataFile      string
	SQLiteDBPath  string
	Postgres      postgres.Config
	Sheets        gsheet.Config
}

// Type names a storage backend.
type Type string

const (
	MemoryBackend   Type = "memory"
	CSVBackend      Type = "csv"
	JSONBackend     Type = "json"
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
	SheetsBackend   Type = "sheets"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, CSVBackend, JSONBackend, SQLiteBackend, PostgresBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
