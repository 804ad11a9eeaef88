package ledger

import (
	"context"
	"errors"

	"fundtracker/internal/core"
)

// ErrNoStorage is returned by Backend.Load when nothing has been
// persisted yet. The store then initializes the backend with an empty
// ledger.
var ErrNoStorage = errors.New("ledger storage does not exist")

// Backend persists the whole ledger. Reads may yield malformed rows;
// writes always receive validated, densely numbered transactions and
// must replace the previous content without ever leaving fewer rows
// behind on failure.
type Backend interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, txs []core.Transaction) error
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}
