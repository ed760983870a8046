package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Recompute refreshes every derived field of rec in place and returns the
// month's totals. Running it twice on the same input gives the same result.
//
// Week cells are realigned to the month's buckets, weekly columns are rebuilt
// from the variable-cost ledger (keeping any expression already entered for a
// category), estimates and values are re-evaluated, auto-generated
// payments-due text is regenerated, and each weekly category's actual amount
// is overwritten with the sum of its column.
func Recompute(rec *MonthRecord) Summary {
	return recompute(rec, false)
}

// RecomputeForce is Recompute that also replaces custom payments-due text.
func RecomputeForce(rec *MonthRecord) Summary {
	return recompute(rec, true)
}

func recompute(rec *MonthRecord, force bool) Summary {
	alloc := Allocate(*rec)
	rec.WeeklyBreakdown = alignWeeks(rec.WeeklyBreakdown, alloc.Weeks)

	columnTotals := make(map[string]decimal.Decimal, len(alloc.Categories))
	for _, c := range alloc.Categories {
		columnTotals[c] = decimal.Zero
	}

	for i := range rec.WeeklyBreakdown {
		w := &rec.WeeklyBreakdown[i]

		expressions := make(map[string]string, len(w.Cells))
		for _, c := range w.Cells {
			expressions[strings.TrimSpace(c.Category)] = c.Expression
		}

		cells := make([]CategoryCell, 0, len(alloc.Categories))
		estimate := alloc.FixedEstimates[i]
		actual := alloc.PaidActuals[i]
		for _, cat := range alloc.Categories {
			expr := strings.TrimSpace(expressions[cat])
			cell := CategoryCell{
				Category:   cat,
				Estimate:   alloc.WeeklyEstimates[cat],
				Expression: expr,
				Value:      EvaluateExpression(expr),
			}
			cells = append(cells, cell)
			estimate = estimate.Add(cell.Estimate)
			actual = actual.Add(cell.Value)
			columnTotals[cat] = columnTotals[cat].Add(cell.Value)
		}
		w.Cells = cells
		w.Estimate = estimate
		w.Actual = actual

		if force || IsAutoGenerated(w.PaymentsDue) {
			w.PaymentsDue = FormatPaymentsDue(alloc.Payments[i])
		}
		w.PaymentsDueCustom = !IsAutoGenerated(w.PaymentsDue)
	}

	assigned := map[string]bool{}
	for i := range rec.VariableCosts {
		name := strings.TrimSpace(rec.VariableCosts[i].Category)
		total, ok := columnTotals[name]
		if !ok || assigned[name] {
			continue
		}
		rec.VariableCosts[i].ActualAmount = total
		assigned[name] = true
	}

	return Summarize(*rec)
}

// alignWeeks returns one cell per bucket, reusing existing cells whose range
// matches so user input survives.
func alignWeeks(existing []WeekCell, weeks []WeekRange) []WeekCell {
	byRange := make(map[WeekRange]WeekCell, len(existing))
	for _, w := range existing {
		byRange[w.Range()] = w
	}
	out := newWeekCells(weeks)
	for i, r := range weeks {
		if prev, ok := byRange[r]; ok {
			out[i].PaymentsDue = prev.PaymentsDue
			out[i].Cells = prev.Cells
		}
	}
	return out
}
