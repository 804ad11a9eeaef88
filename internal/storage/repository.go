// Package storage keeps the ledger in a SQLite database. The file
// backends live in the csvfile and jsonfile subpackages and the
// PostgreSQL one in postgres.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"fundtracker/internal/core"
	"fundtracker/internal/ledger"

	_ "modernc.org/sqlite"
)

const (
	selectTransactions = `SELECT seq, date, description, category, amount_cents, method, notes
FROM transactions ORDER BY seq`
	deleteTransactions = `DELETE FROM transactions`
	insertTransaction  = `INSERT INTO transactions (seq, date, description, category, amount_cents, method, notes)
VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// SQLiteRepository is a ledger.Backend. The schema is created by
// migrations when the repository is opened, so Load never reports
// missing storage.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps the rewrite transaction and readers
	// from fighting over the database lock.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "component", "storage", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Load(ctx context.Context) ([]ledger.Record, error) {
	rows, err := r.db.QueryContext(ctx, selectTransactions)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		var (
			seq, cents int64
			rec        ledger.Record
		)
		if err := rows.Scan(&seq, &rec.Date, &rec.Description, &rec.Category, &cents, &rec.Method, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.Seq = strconv.FormatInt(seq, 10)
		rec.Amount = core.Money{Cents: cents}.Plain()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Save replaces the table content inside one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, txs []core.Transaction) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, deleteTransactions); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	stmt, err := dbtx.PrepareContext(ctx, insertTransaction)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx, t.Seq, t.Date.String(), t.Description, t.Category, t.Amount.Cents, t.Method, t.Notes); err != nil {
			return fmt.Errorf("insert transaction %d: %w", t.Seq, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite", "component", "storage", "count", len(txs))
	return nil
}
