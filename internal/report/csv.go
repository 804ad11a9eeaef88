package report

import (
	"io"

	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
)

// WriteTransactionsCSV exports the ledger in the persisted column layout.
func WriteTransactionsCSV(w io.Writer, txs []core.Transaction) error {
	return ledger.WriteCSV(w, txs)
}
