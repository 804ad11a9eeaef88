package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"fundtracker/internal/core"
	"fundtracker/internal/summary"
)

// Document is everything a PDF report shows.
type Document struct {
	Title         string
	GeneratedAt   time.Time
	CurrencyLabel string
	Summary       summary.Report
	Transactions  []core.Transaction
}

const (
	pageMargin = 12.0
	lineHeight = 6.0
)

// WritePDF lays out the summary, a usage chart when there is spend, the
// transaction list and any unmapped spend.
func WritePDF(w io.Writer, doc Document) error {
	if doc.Title == "" {
		doc.Title = "Fund disbursement report"
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreationDate(doc.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	generated := "Generated " + doc.GeneratedAt.Format("2006-01-02 15:04")
	if doc.CurrencyLabel != "" {
		generated += " | amounts in " + doc.CurrencyLabel
	}
	pdf.CellFormat(0, lineHeight, tr(generated), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Budget summary")
	header := SummaryHeader(doc.Summary)
	writeGrid(pdf, tr, header, SummaryCells(doc.Summary), summaryWidths(len(header)))

	var png bytes.Buffer
	switch err := RenderUsageChart(&png, doc.Summary); {
	case err == nil:
		pdf.Ln(4)
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("usage", opts, &png)
		pdf.ImageOptions("usage", pageMargin, pdf.GetY(), 186, 0, true, opts, 0, "")
	case errors.Is(err, ErrNoChartData):
	default:
		return fmt.Errorf("render usage chart: %w", err)
	}

	pdf.Ln(4)
	section(pdf, fmt.Sprintf("Transactions (%d)", len(doc.Transactions)))
	rows := make([][]string, 0, len(doc.Transactions))
	for _, tx := range doc.Transactions {
		rows = append(rows, []string{
			fmt.Sprint(tx.Seq), tx.Date.String(), tx.Description, tx.Category, tx.Method, tx.Amount.String(),
		})
	}
	writeGrid(pdf, tr,
		[]string{"#", "Date", "Description", "Category", "Method", "Amount"},
		rows,
		[]float64{10, 22, 58, 44, 28, 24})

	if len(doc.Summary.Unmapped) > 0 {
		pdf.Ln(4)
		section(pdf, "Spend on categories without a budget")
		unmapped := make([][]string, 0, len(doc.Summary.Unmapped))
		for _, u := range doc.Summary.Unmapped {
			unmapped = append(unmapped, []string{u.Category, u.Period.Label(), fmt.Sprint(u.Count), u.Amount.String()})
		}
		writeGrid(pdf, tr, []string{"Category", "Period", "Count", "Amount"}, unmapped, []float64{80, 36, 30, 40})
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func summaryWidths(n int) []float64 {
	if n == 5 {
		return []float64{66, 32, 32, 32, 24}
	}
	return []float64{56, 22, 30, 30, 30, 18}
}

func writeGrid(pdf *gofpdf.Fpdf, tr func(string) string, header []string, rows [][]string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], lineHeight+1, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for i, cell := range row {
			align := "L"
			if i == len(row)-1 || i > 0 && looksNumeric(cell) {
				align = "R"
			}
			pdf.CellFormat(widths[i], lineHeight, tr(fit(pdf, cell, widths[i])), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fit truncates s so it stays inside a cell of width w.
func fit(pdf *gofpdf.Fpdf, s string, w float64) string {
	limit := w - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != ',' && c != '.' && c != '%' && c != '-' {
			return false
		}
	}
	return true
}
