package core

import "github.com/shopspring/decimal"

// Totals pairs an estimated and an actual figure.
type Totals struct {
	Estimated decimal.Decimal `json:"estimated"`
	Actual    decimal.Decimal `json:"actual"`
}

func (t Totals) add(est, act decimal.Decimal) Totals {
	return Totals{Estimated: t.Estimated.Add(est), Actual: t.Actual.Add(act)}
}

func (t Totals) sub(o Totals) Totals {
	return Totals{Estimated: t.Estimated.Sub(o.Estimated), Actual: t.Actual.Sub(o.Actual)}
}

// Difference returns actual minus estimated.
func (t Totals) Difference() decimal.Decimal {
	return t.Actual.Sub(t.Estimated)
}

func zeroTotals() Totals {
	return Totals{Estimated: decimal.Zero, Actual: decimal.Zero}
}

// Summary holds the period totals of a month.
type Summary struct {
	Income        Totals `json:"income"`
	FixedCosts    Totals `json:"fixedCosts"`
	VariableCosts Totals `json:"variableCosts"`
	Unplanned     Totals `json:"unplannedExpenses"`
	Pots          Totals `json:"pots"`
	// Expenses is fixed + variable + unplanned, each counted once.
	Expenses     Totals `json:"expenses"`
	Weekly       Totals `json:"weekly"`
	GrandSavings Totals `json:"grandSavings"`
}

// Summarize sums every ledger of rec. It reads derived fields as they are,
// so call Recompute first when the record has been edited.
func Summarize(rec MonthRecord) Summary {
	s := Summary{
		Income:        zeroTotals(),
		FixedCosts:    zeroTotals(),
		VariableCosts: zeroTotals(),
		Unplanned:     zeroTotals(),
		Pots:          zeroTotals(),
		Weekly:        zeroTotals(),
	}
	for _, e := range rec.IncomeSources {
		s.Income = s.Income.add(e.Estimated, e.Actual)
	}
	for _, e := range rec.FixedCosts {
		s.FixedCosts = s.FixedCosts.add(e.EstimatedAmount, e.ActualAmount)
	}
	for _, e := range rec.VariableCosts {
		s.VariableCosts = s.VariableCosts.add(e.EstimatedAmount, e.ActualAmount)
	}
	for _, e := range rec.UnplannedExpenses {
		s.Unplanned = s.Unplanned.add(e.Amount, e.Amount)
	}
	for _, e := range rec.Pots {
		s.Pots = s.Pots.add(e.EstimatedAmount, e.ActualAmount)
	}
	for _, w := range rec.WeeklyBreakdown {
		s.Weekly = s.Weekly.add(w.Estimate, w.Actual)
	}

	s.Expenses = zeroTotals().
		add(s.FixedCosts.Estimated, s.FixedCosts.Actual).
		add(s.VariableCosts.Estimated, s.VariableCosts.Actual).
		add(s.Unplanned.Estimated, s.Unplanned.Actual)
	s.GrandSavings = s.Income.sub(s.Expenses).sub(s.Pots)
	return s
}
