// Package report renders summaries and ledgers as tables, charts, PDF
// and CSV.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"fundtracker/internal/core"
	"fundtracker/internal/summary"
)

// Format selects the table style.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", core.Invalid(fmt.Errorf("unknown report format %q", s))
	}
}

// SummaryHeader returns the column titles for a report.
func SummaryHeader(r summary.Report) []string {
	if r.Partition == summary.PartitionNone {
		return []string{"Category", "Budget", "Used", "Remaining", "Used %"}
	}
	return []string{"Category", "Period", "Budget", "Used", "Remaining", "Used %"}
}

// SummaryCells formats each row as strings matching SummaryHeader.
func SummaryCells(r summary.Report) [][]string {
	out := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		cells := []string{row.Category}
		if r.Partition != summary.PartitionNone {
			cells = append(cells, row.Period.Label())
		}
		cells = append(cells,
			row.Budget.String(),
			row.Used.String(),
			row.Remaining.String(),
			Percent(row),
		)
		out = append(out, cells)
	}
	return out
}

// Percent renders PercentUsed with two decimals.
func Percent(row summary.Row) string {
	return row.PercentUsed.StringFixed(2) + "%"
}

// WriteSummaryTable writes the report rows and, below them, any spend
// on categories missing from the budget table.
func WriteSummaryTable(w io.Writer, r summary.Report, format Format) error {
	header := SummaryHeader(r)
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	align := make([]int, len(header))
	for i := range align {
		align[i] = tablewriter.ALIGN_RIGHT
	}
	align[0] = tablewriter.ALIGN_LEFT
	if r.Partition != summary.PartitionNone {
		align[1] = tablewriter.ALIGN_LEFT
	}
	table.SetColumnAlignment(align)

	if format == FormatMarkdown {
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	}

	table.AppendBulk(SummaryCells(r))
	table.Render()

	if len(r.Unmapped) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Spend on categories without a budget:"); err != nil {
		return err
	}
	for _, u := range r.Unmapped {
		if _, err := fmt.Fprintf(w, "  %s (%s): %s in %d transaction(s)\n",
			u.Category, u.Period.Label(), u.Amount, u.Count); err != nil {
			return err
		}
	}
	return nil
}
