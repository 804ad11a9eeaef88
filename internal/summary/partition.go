package summary

import (
	"fmt"
	"strconv"
	"strings"

	"fundtracker/internal/core"
)

// Partition selects the time slicing of a summary.
type Partition int

const (
	PartitionNone Partition = iota
	PartitionYear
	PartitionYearQuarter
)

func (p Partition) String() string {
	switch p {
	case PartitionYear:
		return "year"
	case PartitionYearQuarter:
		return "quarter"
	default:
		return "none"
	}
}

// ParsePartition accepts "none", "year" and "quarter". Empty means none.
func ParsePartition(s string) (Partition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "total":
		return PartitionNone, nil
	case "year", "yearly":
		return PartitionYear, nil
	case "quarter", "year_quarter", "yearquarter":
		return PartitionYearQuarter, nil
	}
	return PartitionNone, core.Invalid(fmt.Errorf("unknown partition %q", s))
}

// Split decides how a category budget is spread over partitions.
type Split int

const (
	// SplitNone gives every partition row the full category budget.
	SplitNone Split = iota
	// SplitEven divides the budget across the reported partitions.
	SplitEven
)

func (s Split) String() string {
	if s == SplitEven {
		return "even"
	}
	return "none"
}

// ParseSplit accepts "none" and "even".
func ParseSplit(s string) (Split, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SplitNone, nil
	case "even":
		return SplitEven, nil
	}
	return SplitNone, core.Invalid(fmt.Errorf("unknown split %q", s))
}

// Period identifies one partition. The zero value is the whole range.
type Period struct {
	Year    int
	Quarter int
}

// Label renders "Total", "2024" or "2024-Q2".
func (p Period) Label() string {
	switch {
	case p.Year == 0:
		return TotalLabel
	case p.Quarter == 0:
		return strconv.Itoa(p.Year)
	default:
		return fmt.Sprintf("%d-Q%d", p.Year, p.Quarter)
	}
}

func (p Period) less(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Quarter < o.Quarter
}

func periodOf(p Partition, d core.Date) Period {
	switch p {
	case PartitionYear:
		return Period{Year: d.Year()}
	case PartitionYearQuarter:
		return Period{Year: d.Year(), Quarter: d.Quarter()}
	default:
		return Period{}
	}
}
