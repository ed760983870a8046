package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Ledger names one of the editable row tables of a month.
type Ledger string

const (
	LedgerIncome        Ledger = "income"
	LedgerFixedCosts    Ledger = "fixed-costs"
	LedgerVariableCosts Ledger = "variable-costs"
	LedgerUnplanned     Ledger = "unplanned-expenses"
	LedgerPots          Ledger = "pots"
)

// Ledgers lists every ledger in display order.
var Ledgers = []Ledger{LedgerIncome, LedgerFixedCosts, LedgerVariableCosts, LedgerUnplanned, LedgerPots}

// ErrUnknownLedger is returned for a ledger name outside Ledgers.
var ErrUnknownLedger = errors.New("unknown ledger")

// ParseLedger validates a ledger name taken from a URL or a flag.
func ParseLedger(s string) (Ledger, error) {
	l := Ledger(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Ledgers {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLedger, s)
}

type validator interface {
	Validate() error
}

func decodeRow[T validator](raw json.RawMessage) (T, error) {
	var row T
	if err := json.Unmarshal(raw, &row); err != nil {
		return row, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}
	if err := row.Validate(); err != nil {
		return row, err
	}
	return row, nil
}

func checkIndex(n, i int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: index %d of %d", ErrRowNotFound, i, n)
	}
	return nil
}

func insertRow[T validator](rows []T, raw json.RawMessage) ([]T, error) {
	row, err := decodeRow[T](raw)
	if err != nil {
		return rows, err
	}
	return append(rows, row), nil
}

func replaceRow[T validator](rows []T, i int, raw json.RawMessage) error {
	if err := checkIndex(len(rows), i); err != nil {
		return err
	}
	row, err := decodeRow[T](raw)
	if err != nil {
		return err
	}
	rows[i] = row
	return nil
}

func removeRow[T any](rows []T, i int) ([]T, error) {
	if err := checkIndex(len(rows), i); err != nil {
		return rows, err
	}
	return append(rows[:i], rows[i+1:]...), nil
}

// AddRow decodes raw as a row of ledger l and appends it.
func (m *MonthRecord) AddRow(l Ledger, raw json.RawMessage) error {
	var err error
	switch l {
	case LedgerIncome:
		m.IncomeSources, err = insertRow(m.IncomeSources, raw)
	case LedgerFixedCosts:
		m.FixedCosts, err = insertRow(m.FixedCosts, raw)
	case LedgerVariableCosts:
		m.VariableCosts, err = insertRow(m.VariableCosts, raw)
	case LedgerUnplanned:
		m.UnplannedExpenses, err = insertRow(m.UnplannedExpenses, raw)
	case LedgerPots:
		m.Pots, err = insertRow(m.Pots, raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLedger, l)
	}
	return err
}

// UpdateRow replaces row i of ledger l. Renaming a variable-cost category
// carries its weekly expressions over to the new name.
func (m *MonthRecord) UpdateRow(l Ledger, i int, raw json.RawMessage) error {
	switch l {
	case LedgerIncome:
		return replaceRow(m.IncomeSources, i, raw)
	case LedgerFixedCosts:
		return replaceRow(m.FixedCosts, i, raw)
	case LedgerVariableCosts:
		if err := checkIndex(len(m.VariableCosts), i); err != nil {
			return err
		}
		before := strings.TrimSpace(m.VariableCosts[i].Category)
		if err := replaceRow(m.VariableCosts, i, raw); err != nil {
			return err
		}
		m.renameCategory(before, strings.TrimSpace(m.VariableCosts[i].Category))
		return nil
	case LedgerUnplanned:
		return replaceRow(m.UnplannedExpenses, i, raw)
	case LedgerPots:
		return replaceRow(m.Pots, i, raw)
	}
	return fmt.Errorf("%w: %q", ErrUnknownLedger, l)
}

// DeleteRow removes row i of ledger l.
func (m *MonthRecord) DeleteRow(l Ledger, i int) error {
	var err error
	switch l {
	case LedgerIncome:
		m.IncomeSources, err = removeRow(m.IncomeSources, i)
	case LedgerFixedCosts:
		m.FixedCosts, err = removeRow(m.FixedCosts, i)
	case LedgerVariableCosts:
		m.VariableCosts, err = removeRow(m.VariableCosts, i)
	case LedgerUnplanned:
		m.UnplannedExpenses, err = removeRow(m.UnplannedExpenses, i)
	case LedgerPots:
		m.Pots, err = removeRow(m.Pots, i)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLedger, l)
	}
	return err
}

// RowCount returns the number of rows in ledger l.
func (m MonthRecord) RowCount(l Ledger) int {
	switch l {
	case LedgerIncome:
		return len(m.IncomeSources)
	case LedgerFixedCosts:
		return len(m.FixedCosts)
	case LedgerVariableCosts:
		return len(m.VariableCosts)
	case LedgerUnplanned:
		return len(m.UnplannedExpenses)
	case LedgerPots:
		return len(m.Pots)
	}
	return 0
}

// TogglePaid flips the paid flag of a fixed cost or unplanned expense and
// returns the new state.
func (m *MonthRecord) TogglePaid(l Ledger, i int) (bool, error) {
	switch l {
	case LedgerFixedCosts:
		if err := checkIndex(len(m.FixedCosts), i); err != nil {
			return false, err
		}
		m.FixedCosts[i].Paid = !m.FixedCosts[i].Paid
		return m.FixedCosts[i].Paid, nil
	case LedgerUnplanned:
		if err := checkIndex(len(m.UnplannedExpenses), i); err != nil {
			return false, err
		}
		m.UnplannedExpenses[i].Paid = !m.UnplannedExpenses[i].Paid
		return m.UnplannedExpenses[i].Paid, nil
	}
	return false, fmt.Errorf("%w: %q has no paid flag", ErrUnknownLedger, l)
}

// renameCategory moves weekly expressions entered under from to to, unless
// another variable cost still uses from.
func (m *MonthRecord) renameCategory(from, to string) {
	if from == to || from == "" {
		return
	}
	for _, c := range m.VariableCosts {
		if strings.TrimSpace(c.Category) == from {
			return
		}
	}
	for wi := range m.WeeklyBreakdown {
		cells := m.WeeklyBreakdown[wi].Cells
		hasTarget := false
		for _, c := range cells {
			if c.Category == to {
				hasTarget = true
			}
		}
		if hasTarget {
			continue
		}
		for ci := range cells {
			if cells[ci].Category == from {
				cells[ci].Category = to
			}
		}
	}
}

func (m *MonthRecord) week(index int) (*WeekCell, error) {
	if index < 0 || index >= len(m.WeeklyBreakdown) {
		return nil, fmt.Errorf("%w: %d", ErrWeekNotFound, index)
	}
	return &m.WeeklyBreakdown[index], nil
}

// SetCellExpression stores the actual-spending expression of a weekly
// category cell. The category must have a weekly column.
func (m *MonthRecord) SetCellExpression(weekIndex int, category, expression string) error {
	w, err := m.week(weekIndex)
	if err != nil {
		return err
	}
	category = strings.TrimSpace(category)
	expression = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expression), "="))
	for i := range w.Cells {
		if w.Cells[i].Category == category {
			w.Cells[i].Expression = expression
			return nil
		}
	}
	for _, c := range WeeklyCategories(m.VariableCosts) {
		if c == category {
			w.Cells = append(w.Cells, CategoryCell{Category: category, Expression: expression})
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrCategoryNotFound, category)
}

// SetPaymentsDue stores user-edited payments-due text for a week. Text
// without the auto-generated marker is kept across recomputes; empty text
// hands the week back to the allocator.
func (m *MonthRecord) SetPaymentsDue(weekIndex int, text string) error {
	w, err := m.week(weekIndex)
	if err != nil {
		return err
	}
	w.PaymentsDue = strings.TrimSpace(text)
	w.PaymentsDueCustom = !IsAutoGenerated(w.PaymentsDue)
	return nil
}
