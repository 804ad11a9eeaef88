// Package jsonfile keeps the ledger in a JSON array of objects keyed by
// the ledger column names.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

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

type entry struct {
	SequenceNumber int    `json:"SequenceNumber"`
	Date           string `json:"Date"`
	Description    string `json:"Description"`
	Category       string `json:"Category"`
	Amount         string `json:"Amount"`
	Method         string `json:"Method"`
	Notes          string `json:"Notes,omitempty"`
}

func (b *Backend) Load(_ context.Context) ([]ledger.Record, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ledger.ErrNoStorage
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	// Elements are decoded one by one so a bad element drops one row
	// rather than failing the whole file.
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}

	cols, err := ledger.HeaderColumns(ledger.Header)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Record, 0, len(elements))
	for i, element := range elements {
		var obj map[string]any
		dec := json.NewDecoder(bytes.NewReader(element))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil || obj == nil {
			if err == nil {
				err = errors.New("not an object")
			}
			out = append(out, ledger.Record{Err: fmt.Errorf("element %d: %w", i+1, err)})
			continue
		}
		row := make([]string, len(ledger.Header))
		for key, value := range obj {
			if idx := columnIndex(key); idx >= 0 {
				row[idx] = stringify(value)
			}
		}
		if strings.TrimSpace(row[0]) == "" {
			row[0] = strconv.Itoa(i + 1)
		}
		out = append(out, cols.Record(row, i+1))
	}
	return out, nil
}

func (b *Backend) Save(_ context.Context, txs []core.Transaction) error {
	entries := make([]entry, len(txs))
	for i, t := range txs {
		entries[i] = entry{
			SequenceNumber: t.Seq,
			Date:           t.Date.String(),
			Description:    t.Description,
			Category:       t.Category,
			Amount:         t.Amount.Plain(),
			Method:         t.Method,
			Notes:          t.Notes,
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := renameio.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}

func columnIndex(key string) int {
	for i, h := range ledger.Header {
		if strings.EqualFold(h, key) {
			return i
		}
	}
	return -1
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
