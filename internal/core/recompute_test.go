package core

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustMonth(t *testing.T, year, month int) MonthRecord {
	t.Helper()
	rec, err := NewMonthRecord(year, month)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestRecomputeRentScenario(t *testing.T) {
	rec := mustMonth(t, 2025, 1)
	rec.FixedCosts = append(rec.FixedCosts, FixedCostEntry{
		Category:        "Rent",
		EstimatedAmount: dec("1400"),
		Date:            "3rd",
		Paid:            true,
	})
	Recompute(&rec)

	if !rec.WeeklyBreakdown[0].Actual.Equal(dec("1400")) {
		t.Fatalf("week 1 actual = %s, want 1400", rec.WeeklyBreakdown[0].Actual)
	}
	for i, w := range rec.WeeklyBreakdown[1:] {
		if !w.Actual.IsZero() {
			t.Fatalf("week %d actual = %s, want 0", i+2, w.Actual)
		}
	}
	if !strings.Contains(rec.WeeklyBreakdown[0].PaymentsDue, "Rent: £1400.00 ✓") {
		t.Fatalf("payments due: %q", rec.WeeklyBreakdown[0].PaymentsDue)
	}
}

func TestPaidFixedCostUsesActualAmount(t *testing.T) {
	tests := []struct {
		name   string
		actual string
		want   string
	}{
		{"actual recorded", "1385.50", "1385.50"},
		{"no actual falls back to estimate", "0", "1400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustMonth(t, 2025, 1)
			rec.FixedCosts = append(rec.FixedCosts,
				FixedCostEntry{Category: "Rent", EstimatedAmount: dec("1400"), ActualAmount: dec(tt.actual), Date: "3rd", Paid: true},
				FixedCostEntry{Category: "Gym", EstimatedAmount: dec("30"), ActualAmount: dec("35"), Date: "4th"},
			)
			Recompute(&rec)

			week := rec.WeeklyBreakdown[0]
			if !week.Actual.Equal(dec(tt.want)) {
				t.Fatalf("week 1 actual = %s, want %s", week.Actual, tt.want)
			}
			if !week.Estimate.Equal(dec("1430")) {
				t.Fatalf("week 1 estimate = %s, want 1430", week.Estimate)
			}
		})
	}
}

func TestAllocateByDay(t *testing.T) {
	for month := 1; month <= 12; month++ {
		rec := mustMonth(t, 2025, month)
		rec.FixedCosts = append(rec.FixedCosts, FixedCostEntry{Category: "Council tax", EstimatedAmount: dec("150"), Date: "15th"})
		a := Allocate(rec)
		idx := WeekIndexForDay(a.Weeks, 15)
		for i, lines := range a.Payments {
			if (i == idx) != (len(lines) == 1) {
				t.Fatalf("month %d: week %d has %d lines, day 15 is in week %d", month, i, len(lines), idx)
			}
		}
	}
}

func TestAllocateSkipsUndatedEntries(t *testing.T) {
	rec := mustMonth(t, 2025, 4)
	rec.FixedCosts = append(rec.FixedCosts,
		FixedCostEntry{Category: "Insurance", EstimatedAmount: dec("20"), Date: "monthly"},
		FixedCostEntry{Category: "Phone", EstimatedAmount: dec("20"), Date: "45th"},
	)
	a := Allocate(rec)
	for i, lines := range a.Payments {
		if len(lines) != 0 {
			t.Fatalf("week %d got %v", i, lines)
		}
	}
}

func TestWeeklyCategories(t *testing.T) {
	costs := []VariableCostEntry{
		{Category: "Groceries"},
		{Category: "Public Transport"},
		{Category: "Eating out"},
		{Category: "Groceries"},
		{Category: "TRAVEL"},
	}
	got := WeeklyCategories(costs)
	if len(got) != 2 || got[0] != "Groceries" || got[1] != "Eating out" {
		t.Fatalf("got %v", got)
	}
}

func TestCategoryEstimateRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		year, month int
		amount      string
	}{
		{2025, 1, "100"},
		{2023, 2, "100"},
		{2025, 6, "123.45"},
	} {
		rec := mustMonth(t, tc.year, tc.month)
		rec.VariableCosts = append(rec.VariableCosts, VariableCostEntry{Category: "Groceries", EstimatedAmount: dec(tc.amount)})
		Recompute(&rec)

		total := decimal.Zero
		for _, w := range rec.WeeklyBreakdown {
			total = total.Add(w.Cells[0].Estimate)
		}
		if total.Sub(dec(tc.amount)).Abs().GreaterThan(dec("0.000001")) {
			t.Fatalf("%d-%02d: weekly estimates sum to %s, want %s", tc.year, tc.month, total, tc.amount)
		}
	}
}

func TestGrandSavings(t *testing.T) {
	rec := mustMonth(t, 2025, 3)
	rec.IncomeSources = append(rec.IncomeSources, IncomeEntry{Source: "Salary", Estimated: dec("5050")})
	rec.FixedCosts = append(rec.FixedCosts,
		FixedCostEntry{Category: "Rent", EstimatedAmount: dec("1400"), Date: "1"},
		FixedCostEntry{Category: "Gym", EstimatedAmount: dec("100"), Date: "20"},
	)
	rec.VariableCosts = append(rec.VariableCosts, VariableCostEntry{Category: "Groceries", EstimatedAmount: dec("400")})
	rec.UnplannedExpenses = append(rec.UnplannedExpenses, UnplannedExpenseEntry{Name: "Boiler", Amount: dec("50"), Date: "9"})
	rec.Pots = append(rec.Pots, PotEntry{Category: "Holiday", EstimatedAmount: dec("2000")})

	s := Recompute(&rec)
	want := dec("5050").Sub(dec("1400").Add(dec("100")).Add(dec("400")).Add(dec("50"))).Sub(dec("2000"))
	if !s.GrandSavings.Estimated.Equal(want) {
		t.Fatalf("grand savings = %s, want %s", s.GrandSavings.Estimated, want)
	}
	if !s.Expenses.Estimated.Equal(dec("1950")) {
		t.Fatalf("expenses = %s", s.Expenses.Estimated)
	}
}

func TestWeekEstimateExcludesUnplanned(t *testing.T) {
	rec := mustMonth(t, 2025, 1)
	rec.FixedCosts = append(rec.FixedCosts, FixedCostEntry{Category: "Rent", EstimatedAmount: dec("1000"), Date: "2"})
	rec.UnplannedExpenses = append(rec.UnplannedExpenses, UnplannedExpenseEntry{Name: "Vet", Amount: dec("80"), Date: "4", Paid: true})
	Recompute(&rec)

	w := rec.WeeklyBreakdown[0]
	if !w.Estimate.Equal(dec("1000")) {
		t.Fatalf("estimate = %s, want 1000", w.Estimate)
	}
	if !w.Actual.Equal(dec("80")) {
		t.Fatalf("actual = %s, want 80", w.Actual)
	}
	if !strings.Contains(w.PaymentsDue, "Vet: £80.00 ✓") {
		t.Fatalf("payments due: %q", w.PaymentsDue)
	}
}

func TestRecomputeDerivesVariableActual(t *testing.T) {
	rec := mustMonth(t, 2025, 1)
	rec.VariableCosts = append(rec.VariableCosts,
		VariableCostEntry{Category: "Groceries", EstimatedAmount: dec("300")},
		VariableCostEntry{Category: "Transport", EstimatedAmount: dec("60"), ActualAmount: dec("55")},
		VariableCostEntry{Category: "Groceries", EstimatedAmount: dec("10"), ActualAmount: dec("7")},
	)
	Recompute(&rec)
	if err := rec.SetCellExpression(0, "Groceries", "= 40+12.5"); err != nil {
		t.Fatal(err)
	}
	if err := rec.SetCellExpression(2, "Groceries", "30"); err != nil {
		t.Fatal(err)
	}
	if err := rec.SetCellExpression(1, "Transport", "5"); err == nil {
		t.Fatal("transport has no weekly column")
	}
	Recompute(&rec)

	if !rec.VariableCosts[0].ActualAmount.Equal(dec("82.5")) {
		t.Fatalf("groceries actual = %s", rec.VariableCosts[0].ActualAmount)
	}
	if !rec.VariableCosts[1].ActualAmount.Equal(dec("55")) {
		t.Fatalf("transport actual changed to %s", rec.VariableCosts[1].ActualAmount)
	}
	if !rec.VariableCosts[2].ActualAmount.Equal(dec("7")) {
		t.Fatalf("duplicate category actual changed to %s", rec.VariableCosts[2].ActualAmount)
	}
	if !rec.WeeklyBreakdown[0].Actual.Equal(dec("52.5")) {
		t.Fatalf("week 1 actual = %s", rec.WeeklyBreakdown[0].Actual)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	rec := mustMonth(t, 2024, 2)
	rec.IncomeSources = append(rec.IncomeSources, IncomeEntry{Source: "Salary", Estimated: dec("3000"), Actual: dec("3000")})
	rec.FixedCosts = append(rec.FixedCosts, FixedCostEntry{Category: "Rent", EstimatedAmount: dec("1200"), Date: "1st", Paid: true, Card: "Visa"})
	rec.VariableCosts = append(rec.VariableCosts, VariableCostEntry{Category: "Groceries", EstimatedAmount: dec("100")})
	Recompute(&rec)
	_ = rec.SetCellExpression(1, "Groceries", "10/3")

	first := Recompute(&rec)
	snapshot, _ := json.Marshal(rec)
	second := Recompute(&rec)
	again, _ := json.Marshal(rec)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("summary drifted:\n%s\n%s", a, b)
	}
	if string(snapshot) != string(again) {
		t.Fatalf("record drifted:\n%s\n%s", snapshot, again)
	}
}

func TestRecomputeKeepsCustomPaymentsDue(t *testing.T) {
	rec := mustMonth(t, 2025, 1)
	rec.FixedCosts = append(rec.FixedCosts, FixedCostEntry{Category: "Rent", EstimatedAmount: dec("1000"), Date: "2"})
	Recompute(&rec)
	if err := rec.SetPaymentsDue(0, "pay the window cleaner in cash"); err != nil {
		t.Fatal(err)
	}
	Recompute(&rec)
	if rec.WeeklyBreakdown[0].PaymentsDue != "pay the window cleaner in cash" || !rec.WeeklyBreakdown[0].PaymentsDueCustom {
		t.Fatalf("custom text lost: %q", rec.WeeklyBreakdown[0].PaymentsDue)
	}
	RecomputeForce(&rec)
	if !IsAutoGenerated(rec.WeeklyBreakdown[0].PaymentsDue) || rec.WeeklyBreakdown[0].PaymentsDueCustom {
		t.Fatalf("forced recompute kept custom text: %q", rec.WeeklyBreakdown[0].PaymentsDue)
	}
}

func TestRecomputeRealignsWeeks(t *testing.T) {
	rec := mustMonth(t, 2025, 1)
	rec.WeeklyBreakdown = rec.WeeklyBreakdown[:2]
	Recompute(&rec)
	if len(rec.WeeklyBreakdown) != len(Partition(2025, 1)) {
		t.Fatalf("got %d weeks", len(rec.WeeklyBreakdown))
	}
}
