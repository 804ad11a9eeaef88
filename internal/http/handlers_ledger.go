package http

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fundtracker/internal/core"
	applog "fundtracker/internal/log"
	"fundtracker/internal/report"
	"fundtracker/internal/summary"
)

type partitionOption struct {
	Value    string
	Label    string
	Selected bool
}

var partitionLabels = []struct {
	p     summary.Partition
	label string
}{
	{summary.PartitionNone, "Whole period"},
	{summary.PartitionYear, "By year"},
	{summary.PartitionYearQuarter, "By quarter"},
}

func partitionOptions(selected summary.Partition) []partitionOption {
	out := make([]partitionOption, 0, len(partitionLabels))
	for _, pl := range partitionLabels {
		out = append(out, partitionOption{Value: pl.p.String(), Label: pl.label, Selected: pl.p == selected})
	}
	return out
}

type indexView struct {
	User        string
	Categories  []core.CategoryBudget
	Methods     []string
	Today       string
	Currency    string
	TotalBudget core.Money
	Partitions  []partitionOption
	Dropped     int
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cat := s.ledger.Catalog()
	view := indexView{
		Categories:  cat.Categories,
		Methods:     cat.Methods,
		Today:       s.opts.Now().Format(core.DateLayout),
		Currency:    s.opts.CurrencyLabel,
		TotalBudget: cat.TotalBudget(),
		Partitions:  partitionOptions(summary.PartitionNone),
		Dropped:     s.ledger.LastLoad().Dropped,
	}
	if sess, ok := SessionFromContext(r.Context()); ok {
		view.User = sess.User
	}
	s.render(w, r, http.StatusOK, "index.html", view)
}

type summaryRowView struct {
	Cells     []string
	Total     bool
	Overspent bool
}

type unmappedView struct {
	Category string
	Period   string
	Amount   core.Money
	Count    int
}

type summaryView struct {
	Partition  string
	Partitions []partitionOption
	Header     []string
	Rows       []summaryRowView
	Unmapped   []unmappedView
	Currency   string
	HasSpend   bool
	PDFURL     template.URL
	UsageURL   template.URL
	ShareURL   template.URL
}

func newSummaryView(rep summary.Report, opts summary.Options, currency string) summaryView {
	cells := report.SummaryCells(rep)
	view := summaryView{
		Partition:  opts.Partition.String(),
		Partitions: partitionOptions(opts.Partition),
		Header:     report.SummaryHeader(rep),
		Currency:   currency,
	}
	q := summaryQuery(opts)
	view.PDFURL = template.URL("/reports/summary.pdf?" + q)
	view.UsageURL = template.URL("/reports/usage.png?" + q)
	view.ShareURL = template.URL("/reports/share.png?" + q)
	for i, row := range rep.Rows {
		view.Rows = append(view.Rows, summaryRowView{
			Cells:     cells[i],
			Total:     row.Synthetic,
			Overspent: row.Remaining.Cents < 0,
		})
		if row.Used.Cents > 0 {
			view.HasSpend = true
		}
	}
	for _, u := range rep.Unmapped {
		view.Unmapped = append(view.Unmapped, unmappedView{
			Category: u.Category,
			Period:   u.Period.Label(),
			Amount:   u.Amount,
			Count:    u.Count,
		})
	}
	return view
}

// summaryQuery echoes options back as a query string for report links.
func summaryQuery(opts summary.Options) string {
	q := url.Values{"partition": {opts.Partition.String()}}
	if opts.Split != summary.SplitNone {
		q.Set("split", opts.Split.String())
	}
	if len(opts.Years) > 0 {
		years := make([]string, len(opts.Years))
		for i, y := range opts.Years {
			years[i] = strconv.Itoa(y)
		}
		q.Set("years", strings.Join(years, ","))
	}
	return q.Encode()
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseSummaryOptions(r.URL.Query())
	if err != nil {
		uiError(err).Write(w)
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	rep := s.ledger.Summary(ctx, opts)
	s.render(w, r, http.StatusOK, "summary.html", newSummaryView(rep, opts, s.opts.CurrencyLabel))
}

type transactionView struct {
	core.Transaction
	DateText string
	Known    bool
}

type transactionsView struct {
	Rows       []transactionView
	Categories []core.CategoryBudget
	Methods    []string
	Currency   string
	Total      core.Money
}

func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	cat := s.ledger.Catalog()
	txs := s.ledger.Transactions()
	view := transactionsView{
		Categories: cat.Categories,
		Methods:    cat.Methods,
		Currency:   s.opts.CurrencyLabel,
	}
	for _, tx := range txs {
		view.Rows = append(view.Rows, transactionView{
			Transaction: tx,
			DateText:    tx.Date.Format(core.DateLayout),
			Known:       cat.HasCategory(tx.Category),
		})
		view.Total.Cents += tx.Amount.Cents
	}
	s.render(w, r, http.StatusOK, "transactions.html", view)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		uiError(err).Write(w)
		return
	}
	draft, err := ParseDraft(parser.Get, s.opts.Now())
	if err != nil {
		uiError(err).Write(w)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	tx, err := s.ledger.Append(ctx, draft)
	if err != nil {
		uiError(err).Write(w)
		return
	}

	msg := fmt.Sprintf("Transaction #%d saved", tx.Seq)
	NewHTMXResponse().
		TriggerLedgerChanged(applog.OpAppend, tx.Seq, s.ledger.Version()).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		uiError(err).Write(w)
		return
	}
	seq, err := ParseSeq(parser.Get("seq"))
	if err != nil {
		uiError(err).Write(w)
		return
	}
	draft, err := ParseDraft(parser.Get, s.opts.Now())
	if err != nil {
		uiError(err).Write(w)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	if _, err := s.ledger.Update(ctx, seq, draft); err != nil {
		uiError(err).Write(w)
		return
	}

	msg := fmt.Sprintf("Transaction #%d updated", seq)
	NewHTMXResponse().
		TriggerLedgerChanged(applog.OpUpdate, seq, s.ledger.Version()).
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		uiError(err).Write(w)
		return
	}
	seq, err := ParseSeq(parser.Get("seq"))
	if err != nil {
		uiError(err).Write(w)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	remaining, err := s.ledger.Delete(ctx, seq)
	if err != nil {
		uiError(err).Write(w)
		return
	}

	msg := fmt.Sprintf("Transaction #%d deleted, %d left", seq, len(remaining))
	NewHTMXResponse().
		TriggerLedgerChanged(applog.OpDelete, 0, s.ledger.Version()).
		TriggerSuccessNotification(msg).
		BodyHTML(`<div class="success">` + msg + `</div>`).
		Write(w)
}
