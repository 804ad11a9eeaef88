// Package summary computes budget consumption per category, optionally
// sliced by year or quarter. Summarize is pure: it never mutates its
// inputs and the same inputs always give the same report.
package summary

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"fundtracker/internal/core"
)

// TotalLabel names both the unpartitioned period and the synthetic
// grand-total row.
const TotalLabel = "Total"

var hundred = decimal.NewFromInt(100)

type Options struct {
	Partition Partition
	// Years restricts and completes the year axis. Transactions outside
	// these years are ignored; with PartitionYearQuarter every quarter of
	// each year is reported.
	Years []int
	Split Split
}

type Row struct {
	Category    string
	Period      Period
	Budget      core.Money
	Used        core.Money
	Remaining   core.Money
	PercentUsed decimal.Decimal
	// Synthetic marks the grand-total row.
	Synthetic bool
}

// Unmapped is spend recorded against a category missing from the
// budget table.
type Unmapped struct {
	Category string
	Period   Period
	Amount   core.Money
	Count    int
}

type Report struct {
	Partition Partition
	Rows      []Row
	Unmapped  []Unmapped
}

// Summarize builds one row per (category, period) in budget-table order
// then ascending period. Only PartitionNone gets a trailing Total row.
func Summarize(txs []core.Transaction, budgets []core.CategoryBudget, opts Options) Report {
	years := normalizeYears(opts.Years)
	inRange := func(d core.Date) bool {
		if len(years) == 0 {
			return true
		}
		_, found := slices.BinarySearch(years, d.Year())
		return found
	}

	known := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		known[b.Name] = true
	}

	type key struct {
		category string
		period   Period
	}
	used := make(map[key]int64)
	unmapped := make(map[key]*Unmapped)

	for _, tx := range txs {
		if !inRange(tx.Date) {
			continue
		}
		p := periodOf(opts.Partition, tx.Date)
		k := key{tx.Category, p}
		if known[tx.Category] {
			used[k] += tx.Amount.Cents
			continue
		}
		u, ok := unmapped[k]
		if !ok {
			u = &Unmapped{Category: tx.Category, Period: p}
			unmapped[k] = u
		}
		u.Amount.Cents += tx.Amount.Cents
		u.Count++
	}

	periods := reportPeriods(opts.Partition, years, txs, inRange)

	report := Report{Partition: opts.Partition}
	var totalBudget, totalUsed int64
	for _, b := range budgets {
		shares := splitBudget(b.Budget.Cents, len(periods), opts.Split)
		for i, p := range periods {
			u := used[key{b.Name, p}]
			report.Rows = append(report.Rows, newRow(b.Name, p, shares[i], u))
			totalBudget += shares[i]
			totalUsed += u
		}
	}
	if opts.Partition == PartitionNone {
		total := newRow(TotalLabel, Period{}, totalBudget, totalUsed)
		total.Synthetic = true
		report.Rows = append(report.Rows, total)
	}

	for _, u := range unmapped {
		report.Unmapped = append(report.Unmapped, *u)
	}
	sort.Slice(report.Unmapped, func(i, j int) bool {
		a, b := report.Unmapped[i], report.Unmapped[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Period.less(b.Period)
	})
	return report
}

func newRow(category string, p Period, budget, used int64) Row {
	return Row{
		Category:    category,
		Period:      p,
		Budget:      core.Money{Cents: budget},
		Used:        core.Money{Cents: used},
		Remaining:   core.Money{Cents: budget - used},
		PercentUsed: Percent(used, budget),
	}
}

// Percent is used/budget*100 rounded half-up to two decimals, and zero
// for a zero budget.
func Percent(used, budget int64) decimal.Decimal {
	if budget == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(used).Mul(hundred).DivRound(decimal.NewFromInt(budget), 2)
}

func normalizeYears(years []int) []int {
	if len(years) == 0 {
		return nil
	}
	out := slices.Clone(years)
	slices.Sort(out)
	return slices.Compact(out)
}

// reportPeriods lists the partitions to report. Years come from the
// options or from every in-range transaction, mapped or not, so an
// unmapped-only year still shows the known categories at zero.
func reportPeriods(p Partition, years []int, txs []core.Transaction, inRange func(core.Date) bool) []Period {
	switch p {
	case PartitionNone:
		return []Period{{}}
	case PartitionYear:
		if len(years) > 0 {
			out := make([]Period, len(years))
			for i, y := range years {
				out[i] = Period{Year: y}
			}
			return out
		}
	case PartitionYearQuarter:
		if len(years) > 0 {
			out := make([]Period, 0, len(years)*4)
			for _, y := range years {
				for q := 1; q <= 4; q++ {
					out = append(out, Period{Year: y, Quarter: q})
				}
			}
			return out
		}
	}
	seen := make(map[Period]bool)
	for _, tx := range txs {
		if inRange(tx.Date) {
			seen[periodOf(p, tx.Date)] = true
		}
	}
	out := make([]Period, 0, len(seen))
	for period := range seen {
		out = append(out, period)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

func splitBudget(budget int64, n int, split Split) []int64 {
	shares := make([]int64, n)
	if n == 0 {
		return shares
	}
	if split != SplitEven {
		for i := range shares {
			shares[i] = budget
		}
		return shares
	}
	base, rem := budget/int64(n), budget%int64(n)
	for i := range shares {
		shares[i] = base
		if int64(i) < rem {
			shares[i]++
		}
	}
	return shares
}

// Total returns the synthetic grand-total row when present.
func (r Report) Total() (Row, bool) {
	if n := len(r.Rows); n > 0 && r.Rows[n-1].Synthetic {
		return r.Rows[n-1], true
	}
	return Row{}, false
}

// CategoryRows returns the non-synthetic rows.
func (r Report) CategoryRows() []Row {
	if _, ok := r.Total(); ok {
		return r.Rows[:len(r.Rows)-1]
	}
	return r.Rows
}

// UsedByCategory sums used per category across periods, in row order.
func (r Report) UsedByCategory() []CategoryTotal {
	var out []CategoryTotal
	index := make(map[string]int)
	for _, row := range r.CategoryRows() {
		i, ok := index[row.Category]
		if !ok {
			i = len(out)
			index[row.Category] = i
			out = append(out, CategoryTotal{Category: row.Category})
		}
		out[i].Used.Cents += row.Used.Cents
	}
	return out
}

// CategoryTotal is a per-category aggregate used by charts.
type CategoryTotal struct {
	Category string
	Used     core.Money
}
