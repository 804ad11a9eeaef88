package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gsheet "fundtracker/internal/sheets/google"
	"fundtracker/internal/sheets/memory"
	"fundtracker/internal/storage"
	"fundtracker/internal/storage/csvfile"
	"fundtracker/internal/storage/jsonfile"
	"fundtracker/internal/storage/postgres"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With("component", "backend"),
	}
}

func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemory(config)
	case CSVBackend:
		return f.createCSV(config)
	case JSONBackend:
		return f.createJSON(config)
	case SQLiteBackend:
		return f.createSQLite(config)
	case PostgresBackend:
		return f.createPostgres(ctx, config)
	case SheetsBackend:
		return f.createSheets(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemory(config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &Result{Backend: store, Describe: "memory"}, nil
}

func (f *DefaultFactory) createCSV(config Config) (*Result, error) {
	if err := ensureDir(config.DataFile); err != nil {
		return nil, err
	}
	f.logger.Info("Initialized CSV backend", "path", config.DataFile)
	return &Result{Backend: csvfile.New(config.DataFile), Describe: "csv " + config.DataFile}, nil
}

func (f *DefaultFactory) createJSON(config Config) (*Result, error) {
	if err := ensureDir(config.DataFile); err != nil {
		return nil, err
	}
	f.logger.Info("Initialized JSON backend", "path", config.DataFile)
	return &Result{Backend: jsonfile.New(config.DataFile), Describe: "json " + config.DataFile}, nil
}

func (f *DefaultFactory) createSQLite(config Config) (*Result, error) {
	if err := ensureDir(config.SQLiteDBPath); err != nil {
		return nil, err
	}
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Backend: repo, Cleanup: repo.Close, Describe: "sqlite " + config.SQLiteDBPath}, nil
}

func (f *DefaultFactory) createPostgres(ctx context.Context, config Config) (*Result, error) {
	pg, err := postgres.New(ctx, config.Postgres, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres backend: %w", err)
	}
	f.logger.Info("Initialized postgres backend", "host", config.Postgres.Host, "database", config.Postgres.Database)
	return &Result{Backend: pg, Cleanup: pg.Close, Describe: "postgres"}, nil
}

func (f *DefaultFactory) createSheets(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, config.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", cli.SheetName())
	return &Result{Backend: cli, Describe: "sheets " + cli.SheetName()}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return nil
}
