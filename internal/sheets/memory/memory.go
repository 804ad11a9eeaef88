// Package memory is an in-process ledger backend for tests and demos.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
)

// SeedFile is read by NewFromFiles.
const SeedFile = "seed_transactions.csv"

type Store struct {
	mu          sync.Mutex
	initialized bool
	records     []ledger.Record
	saves       int
	saveErr     error
}

var _ ledger.Backend = (*Store)(nil)

// New returns a backend with no storage; the first Load initializes it.
func New() *Store {
	return &Store{}
}

// NewWithRecords returns a backend holding raw rows, malformed or not.
func NewWithRecords(records []ledger.Record) *Store {
	return &Store{initialized: true, records: append([]ledger.Record(nil), records...)}
}

// NewFromFiles seeds the backend from base/seed_transactions.csv when
// that file exists and parses.
func NewFromFiles(base string) *Store {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if err != nil {
		return New()
	}
	defer f.Close()
	recs, err := ledger.ReadCSV(f)
	if err != nil {
		return New()
	}
	return NewWithRecords(recs)
}

func (s *Store) Load(_ context.Context) ([]ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ledger.ErrNoStorage
	}
	return append([]ledger.Record(nil), s.records...), nil
}

func (s *Store) Save(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.initialized = true
	s.records = ledger.EncodeAll(txs)
	s.saves++
	return nil
}

// FailSaves makes every following Save return err; nil restores normal
// behaviour.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves counts successful saves.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Records returns a copy of the persisted rows.
func (s *Store) Records() []ledger.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Record(nil), s.records...)
}
