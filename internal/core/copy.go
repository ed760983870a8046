package core

import "github.com/shopspring/decimal"

// CopyPlan builds a new month from the planning ledgers of src: income,
// fixed costs, variable costs and pots. Actual amounts and paid flags are
// reset; unplanned expenses and weekly expressions belong to src only.
func CopyPlan(src MonthRecord, year, month int) (MonthRecord, error) {
	dst, err := NewMonthRecord(year, month)
	if err != nil {
		return MonthRecord{}, err
	}

	for _, e := range src.IncomeSources {
		e.Actual = decimal.Zero
		dst.IncomeSources = append(dst.IncomeSources, e)
	}
	for _, e := range src.FixedCosts {
		e.ActualAmount = decimal.Zero
		e.Paid = false
		dst.FixedCosts = append(dst.FixedCosts, e)
	}
	for _, e := range src.VariableCosts {
		e.ActualAmount = decimal.Zero
		dst.VariableCosts = append(dst.VariableCosts, e)
	}
	for _, e := range src.Pots {
		e.ActualAmount = decimal.Zero
		dst.Pots = append(dst.Pots, e)
	}

	Recompute(&dst)
	return dst, nil
}
