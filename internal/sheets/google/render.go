package google

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func num(d decimal.Decimal) any {
	return d.Round(2).InexactFloat64()
}

func totalsRow(label string, t core.Totals) []any {
	return []any{label, num(t.Estimated), num(t.Actual), num(t.Difference())}
}

// RenderMonth lays a month out as sheet rows: a title, the summary block,
// the weekly breakdown and then every ledger.
func RenderMonth(rec core.MonthRecord, s core.Summary) [][]any {
	rows := [][]any{
		{fmt.Sprintf("%s %d", rec.MonthName, rec.Year)},
		{},
		{"Summary", "Estimated", "Actual", "Difference"},
		totalsRow("Income", s.Income),
		totalsRow("Fixed costs", s.FixedCosts),
		totalsRow("Variable costs", s.VariableCosts),
		totalsRow("Unplanned expenses", s.Unplanned),
		totalsRow("Pots", s.Pots),
		totalsRow("Total expenses", s.Expenses),
		totalsRow("Grand savings", s.GrandSavings),
		{},
	}

	rows = append(rows, weeklyRows(rec)...)
	rows = append(rows, []any{})

	rows = append(rows, []any{"Income", "Estimated", "Actual", "Date", "Description", "Comments"})
	for _, e := range rec.IncomeSources {
		rows = append(rows, []any{e.Source, num(e.Estimated), num(e.Actual), e.Date, e.Description, e.Comments})
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Fixed costs", "Estimated", "Actual", "Date", "Card", "Paid", "Comments"})
	for _, e := range rec.FixedCosts {
		rows = append(rows, []any{e.Category, num(e.EstimatedAmount), num(e.ActualAmount), e.Date, e.Card, e.Paid, e.Comments})
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Variable costs", "Estimated", "Actual", "Comments"})
	for _, e := range rec.VariableCosts {
		rows = append(rows, []any{e.Category, num(e.EstimatedAmount), num(e.ActualAmount), e.Comments})
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Unplanned expenses", "Amount", "Date", "Card", "Paid", "Comments"})
	for _, e := range rec.UnplannedExpenses {
		rows = append(rows, []any{e.Name, num(e.Amount), e.Date, e.Card, e.Paid, e.Comments})
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Pots", "Estimated", "Actual"})
	for _, e := range rec.Pots {
		rows = append(rows, []any{e.Category, num(e.EstimatedAmount), num(e.ActualAmount)})
	}
	return rows
}

// weeklyRows renders the breakdown table: one column per weekly category,
// each cell in the saved "Estimate: £X / = expr" text form.
func weeklyRows(rec core.MonthRecord) [][]any {
	categories := core.WeeklyCategories(rec.VariableCosts)

	header := []any{"Week", "Dates", "Payments due"}
	for _, c := range categories {
		header = append(header, c)
	}
	header = append(header, "Estimate", "Actual")
	rows := [][]any{header}

	for i, w := range rec.WeeklyBreakdown {
		byCategory := make(map[string]core.CategoryCell, len(w.Cells))
		for _, c := range w.Cells {
			byCategory[c.Category] = c
		}
		row := []any{i + 1, w.DateRange, w.PaymentsDue}
		for _, c := range categories {
			cell := byCategory[c]
			row = append(row, core.FormatCellText(cell.Estimate, cell.Expression))
		}
		row = append(row, num(w.Estimate), num(w.Actual))
		rows = append(rows, row)
	}
	return rows
}
