// Package postgres keeps the ledger in a PostgreSQL table.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
)

//go:embed 001_create_transactions.sql
var migrationSQL string

const table = "fund_transactions"

// Config holds the PostgreSQL connection settings. DSN, when set, wins
// over the individual fields.
type Config struct {
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxPoolSize int
}

type Backend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ ledger.Backend = (*Backend)(nil)

// New connects, pings and applies the schema.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres")

	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 4
	}

	connStr := cfg.DSN
	if connStr == "" {
		connStr = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("executing migration: %w", err)
	}

	logger.Info("Connected to PostgreSQL", "host", poolConfig.ConnConfig.Host, "database", poolConfig.ConnConfig.Database)
	return &Backend{pool: pool, logger: logger}, nil
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *Backend) Load(ctx context.Context) ([]ledger.Record, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT seq, date, description, category, amount_cents, method, notes FROM `+table+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		var (
			seq   int64
			date  time.Time
			cents int64
			rec   ledger.Record
		)
		if err := rows.Scan(&seq, &date, &rec.Description, &rec.Category, &cents, &rec.Method, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		rec.Seq = strconv.FormatInt(seq, 10)
		rec.Date = date.Format(core.DateLayout)
		rec.Amount = core.Money{Cents: cents}.Plain()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Save replaces the table inside one transaction using COPY.
func (b *Backend) Save(ctx context.Context, txs []core.Transaction) error {
	dbtx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback(ctx)

	if _, err := dbtx.Exec(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	copied, err := dbtx.CopyFrom(ctx,
		pgx.Identifier{table},
		[]string{"seq", "date", "description", "category", "amount_cents", "method", "notes"},
		pgx.CopyFromSlice(len(txs), func(i int) ([]any, error) {
			t := txs[i]
			return []any{int32(t.Seq), t.Date.Time, t.Description, t.Category, t.Amount.Cents, t.Method, t.Notes}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy transactions: %w", err)
	}
	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	b.logger.DebugContext(ctx, "Ledger saved to PostgreSQL", "count", copied)
	return nil
}
