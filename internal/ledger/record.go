package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"fundtracker/internal/core"
)

// Header is the persisted column order.
var Header = []string{"SequenceNumber", "Date", "Description", "Category", "Amount", "Method", "Notes"}

// Record is one persisted row, as text, before validation.
type Record struct {
	Seq         string
	Date        string
	Description string
	Category    string
	Amount      string
	Method      string
	Notes       string

	// Err is set when the row could not be read at all.
	Err error
}

// EncodeRow renders a transaction in the persisted text form.
func EncodeRow(tx core.Transaction) Record {
	return Record{
		Seq:         strconv.Itoa(tx.Seq),
		Date:        tx.Date.String(),
		Description: tx.Description,
		Category:    tx.Category,
		Amount:      tx.Amount.Plain(),
		Method:      tx.Method,
		Notes:       tx.Notes,
	}
}

// DecodeRow parses a record. Rows with an unparseable sequence number,
// date or amount, or a negative amount, are malformed. Category and
// method are not checked against the catalog here.
func DecodeRow(r Record) (core.Transaction, error) {
	if r.Err != nil {
		return core.Transaction{}, r.Err
	}
	seq, err := strconv.Atoi(strings.TrimSpace(r.Seq))
	if err != nil || seq < 0 {
		return core.Transaction{}, fmt.Errorf("sequence %q: %w", r.Seq, core.ErrInvalidSeq)
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", r.Date, err)
	}
	amount, err := core.ParseAmount(r.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", r.Amount, err)
	}
	return core.Transaction{
		Seq: seq,
		Draft: core.Draft{
			Date:        date,
			Description: r.Description,
			Amount:      amount,
			Category:    strings.TrimSpace(r.Category),
			Method:      strings.TrimSpace(r.Method),
			Notes:       r.Notes,
		}.Normalize(),
	}, nil
}

// Strings returns the record in Header order.
func (r Record) Strings() []string {
	return []string{r.Seq, r.Date, r.Description, r.Category, r.Amount, r.Method, r.Notes}
}

// EncodeAll encodes a whole ledger.
func EncodeAll(txs []core.Transaction) []Record {
	out := make([]Record, len(txs))
	for i, tx := range txs {
		out[i] = EncodeRow(tx)
	}
	return out
}
