package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"fundtracker/internal/core"
)

// Columns maps header names to positions. Headers are matched case
// insensitively and ignoring spaces, so exports with
// "Date, Description, Amount, Category, Method" columns load too.
type Columns struct {
	seq, date, description, category, amount, method, notes int
}

// HeaderColumns resolves a header row. Date, Description, Category and
// Amount are required; a missing SequenceNumber column means rows are
// numbered by position.
func HeaderColumns(header []string) (Columns, error) {
	c := Columns{seq: -1, date: -1, description: -1, category: -1, amount: -1, method: -1, notes: -1}
	for i, h := range header {
		switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", "")) {
		case "sequencenumber", "seq", "sequence":
			c.seq = i
		case "date":
			c.date = i
		case "description":
			c.description = i
		case "category":
			c.category = i
		case "amount":
			c.amount = i
		case "method", "paymentmethod":
			c.method = i
		case "notes":
			c.notes = i
		}
	}
	var missing []string
	for name, idx := range map[string]int{"Date": c.date, "Description": c.description, "Category": c.category, "Amount": c.amount} {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return c, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// Record extracts a record from a row; position is the 1-based data
// row index used when there is no sequence column.
func (c Columns) Record(row []string, position int) Record {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}
	seq := get(c.seq)
	if c.seq < 0 {
		seq = strconv.Itoa(position)
	}
	return Record{
		Seq:         seq,
		Date:        get(c.date),
		Description: get(c.description),
		Category:    get(c.category),
		Amount:      get(c.amount),
		Method:      get(c.method),
		Notes:       get(c.notes),
	}
}

// RecordsFromTable converts a header-first table (CSV file, sheet
// range) into records. Blank rows are skipped. An empty table yields no
// records.
func RecordsFromTable(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols, err := HeaderColumns(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, cols.Record(row, i+1))
	}
	return out, nil
}

// TableFromTransactions renders the header plus one row per transaction.
func TableFromTransactions(txs []core.Transaction) [][]string {
	rows := make([][]string, 0, len(txs)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, tx := range txs {
		rows = append(rows, EncodeRow(tx).Strings())
	}
	return rows
}

// ReadCSV parses CSV content with a header row. A line the CSV reader
// rejects becomes a record carrying the parse error, and reading goes
// on with the next line.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := HeaderColumns(header)
	if err != nil {
		return nil, err
	}

	var out []Record
	for position := 1; ; position++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			out = append(out, Record{Err: fmt.Errorf("csv line %d: %w", perr.Line, perr.Err)})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(row) {
			continue
		}
		out = append(out, cols.Record(row, position))
	}
}

// WriteCSV writes the header and all transactions.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(TableFromTransactions(txs)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
