package core

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryBudget is one row of the budget table.
type CategoryBudget struct {
	Name   string
	Budget Money
}

// Catalog is the fixed, ordered budget table plus the accepted payment
// methods. It is loaded once and never mutated.
type Catalog struct {
	Categories []CategoryBudget
	Methods    []string
}

// DefaultCatalog returns the fund's standard allocation.
func DefaultCatalog() Catalog {
	return Catalog{
		Categories: []CategoryBudget{
			{Name: "Marketing/Advertisement", Budget: Units(3_000_000)},
			{Name: "Gear and Expenses", Budget: Units(500_000)},
			{Name: "PSO Fuel Card", Budget: Units(500_000)},
			{Name: "Tournament Winning Prize", Budget: Units(1_000_000)},
			{Name: "International Tournament Support", Budget: Units(1_000_000)},
		},
		Methods: []string{"Bank Transfer", "Cheque", "Fuel Card Update"},
	}
}

// Budget returns the allocation for name.
func (c Catalog) Budget(name string) (Money, bool) {
	for _, cb := range c.Categories {
		if cb.Name == name {
			return cb.Budget, true
		}
	}
	return Money{}, false
}

func (c Catalog) HasCategory(name string) bool {
	_, ok := c.Budget(name)
	return ok
}

func (c Catalog) HasMethod(name string) bool {
	for _, m := range c.Methods {
		if m == name {
			return true
		}
	}
	return false
}

// CategoryNames returns names in table order.
func (c Catalog) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cb := range c.Categories {
		names[i] = cb.Name
	}
	return names
}

func (c Catalog) TotalBudget() Money {
	var total Money
	for _, cb := range c.Categories {
		total.Cents += cb.Budget.Cents
	}
	return total
}

func (c Catalog) Validate() error {
	var problems []string
	if len(c.Categories) == 0 {
		problems = append(problems, "at least one category is required")
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cb := range c.Categories {
		if strings.TrimSpace(cb.Name) == "" {
			problems = append(problems, fmt.Sprintf("category %d has an empty name", i+1))
			continue
		}
		if seen[cb.Name] {
			problems = append(problems, fmt.Sprintf("duplicate category %q", cb.Name))
		}
		seen[cb.Name] = true
		if cb.Budget.Cents < 0 {
			problems = append(problems, fmt.Sprintf("category %q has a negative budget", cb.Name))
		}
	}
	if len(c.Methods) == 0 {
		problems = append(problems, "at least one payment method is required")
	}
	seenMethod := make(map[string]bool, len(c.Methods))
	for _, m := range c.Methods {
		if strings.TrimSpace(m) == "" {
			problems = append(problems, "empty payment method")
			continue
		}
		if seenMethod[m] {
			problems = append(problems, fmt.Sprintf("duplicate payment method %q", m))
		}
		seenMethod[m] = true
	}
	if len(problems) > 0 {
		return NewError(KindConfiguration, "invalid budget table:\n- "+strings.Join(problems, "\n- "), nil)
	}
	return nil
}

type catalogFile struct {
	Categories []struct {
		Name   string          `json:"name"`
		Budget decimal.Decimal `json:"budget"`
	} `json:"categories"`
	Methods []string `json:"methods"`
}

// LoadCatalogFile reads a budget table from JSON. Budgets may be JSON
// numbers or strings. When the file omits methods the default ones are
// kept.
func LoadCatalogFile(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, NewError(KindConfiguration, "read budgets file", err)
	}
	var f catalogFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return Catalog{}, NewError(KindConfiguration, "parse budgets file", err)
	}
	c := Catalog{Methods: f.Methods}
	for _, entry := range f.Categories {
		c.Categories = append(c.Categories, CategoryBudget{
			Name:   strings.TrimSpace(entry.Name),
			Budget: Money{Cents: entry.Budget.Shift(2).Round(0).IntPart()},
		})
	}
	if len(c.Methods) == 0 {
		c.Methods = DefaultCatalog().Methods
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
