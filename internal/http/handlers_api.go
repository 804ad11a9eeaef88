package http

import (
	"net/http"

	"fundtracker/internal/core"
	"fundtracker/internal/summary"
)

type TransactionJSON struct {
	Seq         int    `json:"seq"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Method      string `json:"method"`
	Notes       string `json:"notes,omitempty"`
}

type TransactionListJSON struct {
	Transactions []TransactionJSON `json:"transactions"`
	Version      uint64            `json:"version"`
}

type SummaryRowJSON struct {
	Category    string `json:"category"`
	Period      string `json:"period"`
	Budget      string `json:"budget"`
	Used        string `json:"used"`
	Remaining   string `json:"remaining"`
	PercentUsed string `json:"percent_used"`
	Total       bool   `json:"total,omitempty"`
}

type UnmappedJSON struct {
	Category string `json:"category"`
	Period   string `json:"period"`
	Amount   string `json:"amount"`
	Count    int    `json:"count"`
}

type SummaryJSON struct {
	Partition string           `json:"partition"`
	Rows      []SummaryRowJSON `json:"rows"`
	Unmapped  []UnmappedJSON   `json:"unmapped"`
}

func toTransactionJSON(tx core.Transaction) TransactionJSON {
	return TransactionJSON{
		Seq:         tx.Seq,
		Date:        tx.Date.Format(core.DateLayout),
		Description: tx.Description,
		Amount:      tx.Amount.Plain(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Method:      tx.Method,
		Notes:       tx.Notes,
	}
}

func toTransactionList(txs []core.Transaction, version uint64) TransactionListJSON {
	out := TransactionListJSON{Transactions: make([]TransactionJSON, 0, len(txs)), Version: version}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, toTransactionJSON(tx))
	}
	return out
}

func toSummaryJSON(rep summary.Report) SummaryJSON {
	out := SummaryJSON{
		Partition: rep.Partition.String(),
		Rows:      make([]SummaryRowJSON, 0, len(rep.Rows)),
		Unmapped:  make([]UnmappedJSON, 0, len(rep.Unmapped)),
	}
	for _, row := range rep.Rows {
		out.Rows = append(out.Rows, SummaryRowJSON{
			Category:    row.Category,
			Period:      row.Period.Label(),
			Budget:      row.Budget.Plain(),
			Used:        row.Used.Plain(),
			Remaining:   row.Remaining.Plain(),
			PercentUsed: row.PercentUsed.StringFixed(2),
			Total:       row.Synthetic,
		})
	}
	for _, u := range rep.Unmapped {
		out.Unmapped = append(out.Unmapped, UnmappedJSON{
			Category: u.Category,
			Period:   u.Period.Label(),
			Amount:   u.Amount.Plain(),
			Count:    u.Count,
		})
	}
	return out
}

func (s *Server) handleAPIListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toTransactionList(s.ledger.Transactions(), s.ledger.Version()))
}

func (s *Server) parseAPIDraft(r *http.Request) (core.Draft, error) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		return core.Draft{}, err
	}
	return ParseDraft(parser.Get, s.opts.Now())
}

func (s *Server) handleAPICreateTransaction(w http.ResponseWriter, r *http.Request) {
	draft, err := s.parseAPIDraft(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	tx, err := s.ledger.Append(ctx, draft)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handleAPIUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	seq, err := ParseSeq(r.PathValue("seq"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	draft, err := s.parseAPIDraft(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	txs, err := s.ledger.Update(ctx, seq, draft)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionList(txs, s.ledger.Version()))
}

func (s *Server) handleAPIDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	seq, err := ParseSeq(r.PathValue("seq"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	txs, err := s.ledger.Delete(ctx, seq)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionList(txs, s.ledger.Version()))
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseSummaryOptions(r.URL.Query())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	writeJSON(w, http.StatusOK, toSummaryJSON(s.ledger.Summary(ctx, opts)))
}
