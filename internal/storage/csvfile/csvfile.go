// Package csvfile keeps the ledger in a CSV file with a header row.
package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
)

type Backend struct {
	path string
}

var _ ledger.Backend = (*Backend)(nil)

func New(path string) *Backend {
	return &Backend{path: path}
}

func (b *Backend) Path() string { return b.path }

func (b *Backend) Load(_ context.Context) ([]ledger.Record, error) {
	f, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ledger.ErrNoStorage
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", b.path, err)
	}
	defer f.Close()

	recs, err := ledger.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return recs, nil
}

// Save writes a temporary file next to the target and renames it over
// the old one, so readers see either the old or the new ledger.
func (b *Backend) Save(_ context.Context, txs []core.Transaction) error {
	var buf bytes.Buffer
	if err := ledger.WriteCSV(&buf, txs); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := renameio.WriteFile(b.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}
