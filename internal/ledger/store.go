// Package ledger owns the ordered transaction collection and its
// persistence. Every mutation builds the next state, saves it through
// the Backend and only then makes it visible.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"fundtracker/internal/core"
)

type Store struct {
	mu      sync.RWMutex
	backend Backend
	catalog core.Catalog
	logger  *slog.Logger

	txs      []core.Transaction
	version  uint64
	lastLoad LoadResult
}

// LoadResult describes a completed Load.
type LoadResult struct {
	Count       int
	Dropped     int
	Initialized bool
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns an empty store. Call Load to read persisted data.
func NewStore(backend Backend, catalog core.Catalog, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		catalog: catalog,
		logger:  slog.Default().With("component", "ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory ledger with the persisted one. Missing
// storage is initialized empty. Malformed rows are dropped and counted;
// survivors keep their persisted order and are renumbered from 1.
func (s *Store) Load(ctx context.Context) (LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNoStorage) {
		if err := s.backend.Save(ctx, nil); err != nil {
			return LoadResult{}, core.StorageWrite(fmt.Errorf("initialize storage: %w", err))
		}
		s.txs = nil
		s.version++
		s.lastLoad = LoadResult{Initialized: true}
		s.logger.InfoContext(ctx, "Initialized empty ledger storage", "operation", "load")
		return s.lastLoad, nil
	}
	if err != nil {
		return LoadResult{}, core.StorageRead(err)
	}

	txs := make([]core.Transaction, 0, len(records))
	dropped := 0
	for i, rec := range records {
		tx, err := DecodeRow(rec)
		if err != nil {
			dropped++
			s.logger.WarnContext(ctx, "Dropping malformed ledger row",
				"operation", "load", "row", i+1, "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Seq < txs[j].Seq })
	renumber(txs)

	s.txs = txs
	s.version++
	s.lastLoad = LoadResult{Count: len(txs), Dropped: dropped}
	s.logger.InfoContext(ctx, "Ledger loaded", "operation", "load", "count", len(txs), "dropped", dropped)
	return s.lastLoad, nil
}

// LastLoad returns the result of the most recent successful Load.
func (s *Store) LastLoad() LoadResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLoad
}

// Append validates the draft and stores it as the last transaction.
func (s *Store) Append(ctx context.Context, d core.Draft) (core.Transaction, error) {
	d = d.Normalize()
	if err := d.Validate(s.catalog); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := core.Transaction{Seq: len(s.txs) + 1, Draft: d}
	next := make([]core.Transaction, len(s.txs), len(s.txs)+1)
	copy(next, s.txs)
	next = append(next, tx)

	if err := s.commit(ctx, next); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Update replaces every editable field of transaction seq.
func (s *Store) Update(ctx context.Context, seq int, d core.Draft) ([]core.Transaction, error) {
	d = d.Normalize()
	if err := d.Validate(s.catalog); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(seq)
	if err != nil {
		return nil, err
	}
	next := cloneTxs(s.txs)
	next[i].Draft = d

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return cloneTxs(next), nil
}

// Delete removes transaction seq and renumbers the rest densely.
func (s *Store) Delete(ctx context.Context, seq int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(seq)
	if err != nil {
		return nil, err
	}
	next := make([]core.Transaction, 0, len(s.txs)-1)
	next = append(next, s.txs[:i]...)
	next = append(next, s.txs[i+1:]...)
	renumber(next)

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return cloneTxs(next), nil
}

// Get returns transaction seq.
func (s *Store) Get(seq int) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := s.indexOf(seq)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.txs[i], nil
}

// Snapshot returns a copy of the ledger in sequence order.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTxs(s.txs)
}

// View returns a snapshot together with the version it belongs to.
func (s *Store) View() ([]core.Transaction, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTxs(s.txs), s.version
}

// Version increases on every successful Load and mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Catalog() core.Catalog { return s.catalog }

// Close releases the backend when it holds resources.
func (s *Store) Close() error {
	if c, ok := s.backend.(Closer); ok {
		return c.Close()
	}
	return nil
}

// commit must be called with mu held.
func (s *Store) commit(ctx context.Context, next []core.Transaction) error {
	if err := s.backend.Save(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger", "operation", "save", "error", err)
		return core.StorageWrite(err)
	}
	s.txs = next
	s.version++
	return nil
}

func (s *Store) indexOf(seq int) (int, error) {
	if seq < 1 || seq > len(s.txs) {
		return -1, core.NotFound("transaction %d not found", seq)
	}
	// seq is dense, so the position is seq-1.
	return seq - 1, nil
}

func renumber(txs []core.Transaction) {
	for i := range txs {
		txs[i].Seq = i + 1
	}
}

func cloneTxs(in []core.Transaction) []core.Transaction {
	if in == nil {
		return nil
	}
	out := make([]core.Transaction, len(in))
	copy(out, in)
	return out
}
