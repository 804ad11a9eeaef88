// Package worker keeps a secondary copy of the ledger in step with the
// primary backend, driven by ledger change messages.
package worker

import (
	"context"
	"fmt"
	"sync"

	"fundtracker/internal/amqp"
	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
	applog "fundtracker/internal/log"
)

// Mirror copies the primary ledger into a mirror backend. Each message
// triggers a full reload and rewrite, so lost or reordered messages only
// delay the mirror. Messages from the same source at or below the last
// mirrored version are skipped.
type Mirror struct {
	primary ledger.Backend
	mirror  ledger.Backend
	catalog core.Catalog
	logger  *applog.Logger

	mu          sync.Mutex
	lastSource  string
	lastVersion uint64
	syncs       int
}

func NewMirror(primary, mirror ledger.Backend, catalog core.Catalog, logger *applog.Logger) *Mirror {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Mirror{
		primary: primary,
		mirror:  mirror,
		catalog: catalog,
		logger:  logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerChanged is an amqp.Handler.
func (m *Mirror) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.Source == m.lastSource && msg.Version <= m.lastVersion {
		m.logger.DebugContext(ctx, "Skipping stale ledger change",
			applog.FieldOperation, applog.OpMirror,
			applog.FieldVersion, msg.Version,
			"mirrored_version", m.lastVersion)
		return nil
	}

	count, err := m.syncLocked(ctx)
	if err != nil {
		return err
	}
	if msg.Source != m.lastSource || msg.Version > m.lastVersion {
		m.lastSource, m.lastVersion = msg.Source, msg.Version
	}

	m.logger.InfoContext(ctx, "Ledger mirrored",
		applog.FieldOperation, applog.OpMirror,
		"op", msg.Op,
		applog.FieldSeq, msg.Seq,
		applog.FieldVersion, msg.Version,
		applog.FieldCount, count)
	return nil
}

// Sync mirrors the ledger unconditionally. The worker calls it on start
// to recover from missed messages.
func (m *Mirror) Sync(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncLocked(ctx)
}

func (m *Mirror) syncLocked(ctx context.Context) (int, error) {
	// A throwaway store reuses load-time decoding, dropping and
	// renumbering, so the mirror sees exactly what the server sees.
	store := ledger.NewStore(m.primary, m.catalog, ledger.WithLogger(m.logger.Slog()))
	res, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load primary ledger: %w", err)
	}
	if res.Dropped > 0 {
		m.logger.WarnContext(ctx, "Primary ledger has malformed rows",
			applog.FieldOperation, applog.OpMirror, "dropped", res.Dropped)
	}

	txs := store.Snapshot()
	if err := m.mirror.Save(ctx, txs); err != nil {
		return 0, core.StorageWrite(fmt.Errorf("save mirror: %w", err))
	}
	m.syncs++
	return len(txs), nil
}

// Syncs reports how many full copies have been written.
func (m *Mirror) Syncs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}
