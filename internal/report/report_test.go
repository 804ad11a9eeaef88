package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundtracker/internal/core"
	"fundtracker/internal/summary"
)

func sampleTransactions() []core.Transaction {
	mk := func(seq int, y, m, d int, desc, cat string, units int64) core.Transaction {
		return core.Transaction{Seq: seq, Draft: core.Draft{
			Date: core.NewDate(y, m, d), Description: desc, Amount: core.Units(units),
			Category: cat, Method: "Cheque",
		}}
	}
	return []core.Transaction{
		mk(1, 2024, 1, 15, "Billboards", "Marketing/Advertisement", 250_000),
		mk(2, 2024, 4, 2, "Fuel top-up", "PSO Fuel Card", 40_000),
		mk(3, 2025, 2, 9, "Legacy kit", "Old Category", 1_000),
	}
}

func sampleReport(p summary.Partition) summary.Report {
	return summary.Summarize(sampleTransactions(), core.DefaultCatalog().Categories, summary.Options{Partition: p})
}

func TestWriteSummaryTable_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, sampleReport(summary.PartitionNone), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Marketing/Advertisement")
	assert.Contains(t, out, "3,000,000.00")
	assert.Contains(t, out, "8.33%")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "Old Category (Total): 1,000.00 in 1 transaction(s)")
	assert.NotContains(t, out, "Period")
}

func TestWriteSummaryTable_MarkdownWithPeriods(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, sampleReport(summary.PartitionYearQuarter), FormatMarkdown))

	out := buf.String()
	assert.Contains(t, out, "Period")
	assert.Contains(t, out, "2024-Q2")
	first := strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(first, "|"), "markdown rows start with a pipe: %q", first)
	assert.NotContains(t, out, "+-")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("html")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCharts(t *testing.T) {
	r := sampleReport(summary.PartitionNone)

	var bar bytes.Buffer
	require.NoError(t, RenderUsageChart(&bar, r))
	assert.True(t, bytes.HasPrefix(bar.Bytes(), []byte("\x89PNG")))

	var pie bytes.Buffer
	require.NoError(t, RenderShareChart(&pie, r))
	assert.True(t, bytes.HasPrefix(pie.Bytes(), []byte("\x89PNG")))
}

func TestChartsWithoutSpend(t *testing.T) {
	empty := summary.Summarize(nil, core.DefaultCatalog().Categories, summary.Options{})

	var buf bytes.Buffer
	assert.ErrorIs(t, RenderUsageChart(&buf, empty), ErrNoChartData)
	assert.ErrorIs(t, RenderShareChart(&buf, empty), ErrNoChartData)
	assert.Zero(t, buf.Len())
}

func TestWritePDF(t *testing.T) {
	doc := Document{
		Title:         "Fund report",
		GeneratedAt:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		CurrencyLabel: "Rs",
		Summary:       sampleReport(summary.PartitionYear),
		Transactions:  sampleTransactions(),
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, doc))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestWritePDF_EmptyLedger(t *testing.T) {
	doc := Document{Summary: summary.Summarize(nil, core.DefaultCatalog().Categories, summary.Options{})}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, doc))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteTransactionsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, sampleTransactions()[:1]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "SequenceNumber,Date,Description,Category,Amount,Method,Notes", lines[0])
	assert.Equal(t, "1,2024-01-15,Billboards,Marketing/Advertisement,250000.00,Cheque,", lines[1])
}
