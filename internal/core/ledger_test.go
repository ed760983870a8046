package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseLedger(t *testing.T) {
	if l, err := ParseLedger(" Fixed-Costs "); err != nil || l != LedgerFixedCosts {
		t.Fatalf("got %q %v", l, err)
	}
	if _, err := ParseLedger("salaries"); !errors.Is(err, ErrUnknownLedger) {
		t.Fatalf("expected ErrUnknownLedger, got %v", err)
	}
}

func TestRowOperations(t *testing.T) {
	rec := mustMonth(t, 2025, 5)

	if err := rec.AddRow(LedgerFixedCosts, json.RawMessage(`{"category":"Rent","estimatedAmount":1400,"date":"3rd"}`)); err != nil {
		t.Fatal(err)
	}
	if err := rec.AddRow(LedgerFixedCosts, json.RawMessage(`{"category":"Gym","estimatedAmount":"30"}`)); err != nil {
		t.Fatal(err)
	}
	if rec.RowCount(LedgerFixedCosts) != 2 {
		t.Fatalf("got %d rows", rec.RowCount(LedgerFixedCosts))
	}
	if err := rec.AddRow(LedgerFixedCosts, json.RawMessage(`{"category":"","estimatedAmount":1}`)); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := rec.AddRow(LedgerPots, json.RawMessage(`{"category":"Rainy day","estimatedAmount":-5}`)); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if err := rec.UpdateRow(LedgerFixedCosts, 1, json.RawMessage(`{"category":"Gym","estimatedAmount":35,"date":"20"}`)); err != nil {
		t.Fatal(err)
	}
	if !rec.FixedCosts[1].EstimatedAmount.Equal(dec("35")) {
		t.Fatalf("update not applied: %+v", rec.FixedCosts[1])
	}
	paid, err := rec.TogglePaid(LedgerFixedCosts, 0)
	if err != nil || !paid {
		t.Fatalf("toggle: %v %v", paid, err)
	}
	if _, err := rec.TogglePaid(LedgerPots, 0); err == nil {
		t.Fatal("pots have no paid flag")
	}
	if err := rec.DeleteRow(LedgerFixedCosts, 5); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if err := rec.DeleteRow(LedgerFixedCosts, 0); err != nil {
		t.Fatal(err)
	}
	if len(rec.FixedCosts) != 1 || rec.FixedCosts[0].Category != "Gym" {
		t.Fatalf("unexpected rows %+v", rec.FixedCosts)
	}
}

func TestRenameCategoryKeepsExpressions(t *testing.T) {
	rec := mustMonth(t, 2025, 1)
	if err := rec.AddRow(LedgerVariableCosts, json.RawMessage(`{"category":"Groceries","estimatedAmount":200}`)); err != nil {
		t.Fatal(err)
	}
	Recompute(&rec)
	if err := rec.SetCellExpression(0, "Groceries", "12+8"); err != nil {
		t.Fatal(err)
	}
	if err := rec.UpdateRow(LedgerVariableCosts, 0, json.RawMessage(`{"category":"Food","estimatedAmount":200}`)); err != nil {
		t.Fatal(err)
	}
	Recompute(&rec)

	cell := rec.WeeklyBreakdown[0].Cells[0]
	if cell.Category != "Food" || cell.Expression != "12+8" || !cell.Value.Equal(dec("20")) {
		t.Fatalf("unexpected cell %+v", cell)
	}
	if !rec.VariableCosts[0].ActualAmount.Equal(dec("20")) {
		t.Fatalf("actual = %s", rec.VariableCosts[0].ActualAmount)
	}
}

func TestSetCellExpressionErrors(t *testing.T) {
	rec := mustMonth(t, 2025, 1)
	if err := rec.SetCellExpression(9, "Groceries", "1"); !errors.Is(err, ErrWeekNotFound) {
		t.Fatalf("expected ErrWeekNotFound, got %v", err)
	}
	if err := rec.SetCellExpression(0, "Groceries", "1"); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCopyPlan(t *testing.T) {
	src := mustMonth(t, 2025, 1)
	src.IncomeSources = append(src.IncomeSources, IncomeEntry{Source: "Salary", Estimated: dec("3000"), Actual: dec("2990")})
	src.FixedCosts = append(src.FixedCosts, FixedCostEntry{Category: "Rent", EstimatedAmount: dec("1400"), ActualAmount: dec("1400"), Date: "3", Paid: true})
	src.VariableCosts = append(src.VariableCosts, VariableCostEntry{Category: "Groceries", EstimatedAmount: dec("300")})
	src.UnplannedExpenses = append(src.UnplannedExpenses, UnplannedExpenseEntry{Name: "Boiler", Amount: dec("90")})
	Recompute(&src)
	_ = src.SetCellExpression(0, "Groceries", "50")
	Recompute(&src)

	dst, err := CopyPlan(src, 2025, 2)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Key() != "2025-02" || len(dst.WeeklyBreakdown) != len(Partition(2025, 2)) {
		t.Fatalf("bad header %s with %d weeks", dst.Key(), len(dst.WeeklyBreakdown))
	}
	if len(dst.UnplannedExpenses) != 0 {
		t.Fatal("unplanned expenses copied")
	}
	if dst.FixedCosts[0].Paid || !dst.FixedCosts[0].ActualAmount.IsZero() || !dst.IncomeSources[0].Actual.IsZero() {
		t.Fatal("actuals not reset")
	}
	if dst.WeeklyBreakdown[0].Cells[0].Expression != "" {
		t.Fatal("weekly expressions copied")
	}

	dst.FixedCosts[0].Category = "Mortgage"
	if src.FixedCosts[0].Category != "Rent" {
		t.Fatal("copy shares storage with source")
	}
}
