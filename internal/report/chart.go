package report

import (
	"errors"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"fundtracker/internal/core"
	"fundtracker/internal/summary"
)

// ErrNoChartData is returned when nothing has been spent yet.
var ErrNoChartData = errors.New("no spend to chart")

const (
	chartWidth  = 900
	chartHeight = 420
)

// RenderUsageChart draws a PNG bar chart of the amount used per category.
func RenderUsageChart(w io.Writer, r summary.Report) error {
	totals := r.UsedByCategory()
	if !anySpend(totals) {
		return ErrNoChartData
	}

	bars := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		bars = append(bars, chart.Value{Label: t.Category, Value: t.Used.Float()})
	}

	bc := chart.BarChart{
		Title: "Amount used per category",
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 60,
		Bars:     bars,
	}
	bc.YAxis.ValueFormatter = func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return core.Money{Cents: int64(f * 100)}.String()
		}
		return ""
	}
	return bc.Render(chart.PNG, w)
}

// RenderShareChart draws a PNG pie of each category's share of total
// spend. Categories with no spend are left out.
func RenderShareChart(w io.Writer, r summary.Report) error {
	totals := r.UsedByCategory()
	values := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		if t.Used.Cents > 0 {
			values = append(values, chart.Value{Label: t.Category, Value: t.Used.Float()})
		}
	}
	if len(values) == 0 {
		return ErrNoChartData
	}

	pc := chart.PieChart{
		Title:  "Share of spend",
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}
	return pc.Render(chart.PNG, w)
}

func anySpend(totals []summary.CategoryTotal) bool {
	for _, t := range totals {
		if t.Used.Cents > 0 {
			return true
		}
	}
	return false
}
