package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var dayPattern = regexp.MustCompile(`\d+`)

// ParseDay extracts the first integer embedded in a free-text date such as
// "3rd" or "due 15". It reports false when the text has no digits.
func ParseDay(date string) (int, bool) {
	m := dayPattern.FindString(date)
	if m == "" {
		return 0, false
	}
	day, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return day, true
}

// WeekIndexForDay returns the index of the bucket containing day, or -1.
func WeekIndexForDay(weeks []WeekRange, day int) int {
	for i, w := range weeks {
		if w.Contains(day) {
			return i
		}
	}
	return -1
}

// IsWeeklyCategory reports whether a variable-cost category gets a weekly
// column. Transport and travel are budgeted monthly only.
func IsWeeklyCategory(category string) bool {
	c := strings.ToLower(category)
	return strings.TrimSpace(c) != "" &&
		!strings.Contains(c, "transport") &&
		!strings.Contains(c, "travel")
}

// WeeklyCategories lists the weekly columns in first-seen order with
// duplicates collapsed.
func WeeklyCategories(costs []VariableCostEntry) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(costs))
	for _, c := range costs {
		name := strings.TrimSpace(c.Category)
		if !IsWeeklyCategory(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Allocation is the week-by-week placement of a month's ledgers.
type Allocation struct {
	Weeks []WeekRange
	// Payments holds the payments-due lines for each week: fixed costs
	// first, then unplanned expenses, each in ledger order.
	Payments [][]PaymentLine
	// FixedEstimates sums the estimated fixed costs falling in each week.
	FixedEstimates []decimal.Decimal
	// PaidActuals sums the paid fixed costs and paid unplanned expenses
	// falling in each week.
	PaidActuals []decimal.Decimal
	// Categories are the weekly columns, WeeklyEstimates their per-week share.
	Categories      []string
	WeeklyEstimates map[string]decimal.Decimal
}

// Allocate places fixed costs and unplanned expenses into the week holding
// their day and spreads each weekly category's estimate evenly across weeks.
// Entries without a day inside the month are left out of every week.
func Allocate(rec MonthRecord) Allocation {
	weeks := Partition(rec.Year, rec.Month)
	a := Allocation{
		Weeks:           weeks,
		Payments:        make([][]PaymentLine, len(weeks)),
		FixedEstimates:  make([]decimal.Decimal, len(weeks)),
		PaidActuals:     make([]decimal.Decimal, len(weeks)),
		Categories:      WeeklyCategories(rec.VariableCosts),
		WeeklyEstimates: map[string]decimal.Decimal{},
	}
	for i := range weeks {
		a.FixedEstimates[i] = decimal.Zero
		a.PaidActuals[i] = decimal.Zero
	}

	for _, fc := range rec.FixedCosts {
		i := weekFor(weeks, fc.Date)
		if i < 0 {
			continue
		}
		a.Payments[i] = append(a.Payments[i], PaymentLine{
			Category: fc.Category,
			Amount:   fc.EstimatedAmount,
			Card:     fc.Card,
			Paid:     fc.Paid,
		})
		a.FixedEstimates[i] = a.FixedEstimates[i].Add(fc.EstimatedAmount)
		if fc.Paid {
			a.PaidActuals[i] = a.PaidActuals[i].Add(fc.PaidAmount())
		}
	}

	for _, ue := range rec.UnplannedExpenses {
		i := weekFor(weeks, ue.Date)
		if i < 0 {
			continue
		}
		a.Payments[i] = append(a.Payments[i], PaymentLine{
			Category: ue.Name,
			Amount:   ue.Amount,
			Card:     ue.Card,
			Paid:     ue.Paid,
		})
		if ue.Paid {
			a.PaidActuals[i] = a.PaidActuals[i].Add(ue.Amount)
		}
	}

	if n := len(weeks); n > 0 {
		count := decimal.NewFromInt(int64(n))
		for _, c := range rec.VariableCosts {
			name := strings.TrimSpace(c.Category)
			if !IsWeeklyCategory(name) {
				continue
			}
			if _, ok := a.WeeklyEstimates[name]; ok {
				continue
			}
			a.WeeklyEstimates[name] = c.EstimatedAmount.Div(count)
		}
	}
	return a
}

func weekFor(weeks []WeekRange, date string) int {
	day, ok := ParseDay(date)
	if !ok {
		return -1
	}
	return WeekIndexForDay(weeks, day)
}

// PaidAmount is what a paid fixed cost contributes to its week's actual:
// the recorded actual amount, or the estimate when no actual was entered.
func (e FixedCostEntry) PaidAmount() decimal.Decimal {
	if e.ActualAmount.IsPositive() {
		return e.ActualAmount
	}
	return e.EstimatedAmount
}
