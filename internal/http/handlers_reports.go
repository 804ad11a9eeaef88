package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fundtracker/internal/core"
	applog "fundtracker/internal/log"
	"fundtracker/internal/report"
	"fundtracker/internal/summary"
)

// writeDownload buffers the rendered body so a failure can still be
// reported with a proper status.
func (s *Server) writeDownload(w http.ResponseWriter, r *http.Request, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		if errors.Is(err, report.ErrNoChartData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		applog.LogError(r.Context(), applog.FromContext(r.Context()), "report render failed", err,
			applog.ComponentReport, applog.OpRender, applog.LogFields{"file": filename})
		http.Error(w, "report could not be generated", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) reportSummary(w http.ResponseWriter, r *http.Request) (summary.Report, bool) {
	opts, err := ParseSummaryOptions(r.URL.Query())
	if err != nil {
		http.Error(w, core.MessageOf(err), StatusFor(core.KindOf(err)))
		return summary.Report{}, false
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()
	return s.ledger.Summary(ctx, opts), true
}

func (s *Server) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.reportSummary(w, r)
	if !ok {
		return
	}
	doc := report.Document{
		GeneratedAt:   s.opts.Now(),
		CurrencyLabel: s.opts.CurrencyLabel,
		Summary:       rep,
		Transactions:  s.ledger.Transactions(),
	}
	s.writeDownload(w, r, "application/pdf", "fund-summary.pdf", func(out io.Writer) error {
		return report.WritePDF(out, doc)
	})
}

func (s *Server) handleUsageChart(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.reportSummary(w, r)
	if !ok {
		return
	}
	s.writeDownload(w, r, "image/png", "", func(out io.Writer) error {
		return report.RenderUsageChart(out, rep)
	})
}

func (s *Server) handleShareChart(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.reportSummary(w, r)
	if !ok {
		return
	}
	s.writeDownload(w, r, "image/png", "", func(out io.Writer) error {
		return report.RenderShareChart(out, rep)
	})
}

func (s *Server) handleTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	txs := s.ledger.Transactions()
	s.writeDownload(w, r, "text/csv; charset=utf-8", "transactions.csv", func(out io.Writer) error {
		return report.WriteTransactionsCSV(out, txs)
	})
}
