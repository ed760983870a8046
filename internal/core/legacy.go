package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Keys of a legacy week object that are not category columns.
const (
	legacyDateRange   = "dateRange"
	legacyPaymentsDue = "paymentsDue"
	legacyEstimate    = "estimate"
	legacyActual      = "actual"
	legacyWeekNumber  = "weekNumber"
)

// legacyMonth is the saved month document of the spreadsheet-style app:
// identical ledgers, but each week is a flat object whose extra keys are
// category names holding "Estimate: £X\n= expr" text.
type legacyMonth struct {
	Year              int                          `json:"year"`
	Month             int                          `json:"month"`
	MonthName         string                       `json:"monthName"`
	IncomeSources     []IncomeEntry                `json:"incomeSources"`
	FixedCosts        []FixedCostEntry             `json:"fixedCosts"`
	VariableCosts     []VariableCostEntry          `json:"variableCosts"`
	UnplannedExpenses []UnplannedExpenseEntry      `json:"unplannedExpenses"`
	Pots              []PotEntry                   `json:"pots"`
	WeeklyBreakdown   []map[string]json.RawMessage `json:"weeklyBreakdown"`
}

// DecodeLegacyMonth reads a legacy month document and recomputes it, so the
// derived fields come from the ledgers rather than the file. Payments-due
// text without the auto-generated marker is kept as the user's own.
func DecodeLegacyMonth(data []byte) (MonthRecord, error) {
	var doc legacyMonth
	if err := json.Unmarshal(data, &doc); err != nil {
		return MonthRecord{}, fmt.Errorf("decode legacy month: %w", err)
	}
	rec, err := NewMonthRecord(doc.Year, doc.Month)
	if err != nil {
		return MonthRecord{}, err
	}
	rec.IncomeSources = append(rec.IncomeSources, doc.IncomeSources...)
	rec.FixedCosts = append(rec.FixedCosts, doc.FixedCosts...)
	rec.VariableCosts = append(rec.VariableCosts, doc.VariableCosts...)
	rec.UnplannedExpenses = append(rec.UnplannedExpenses, doc.UnplannedExpenses...)
	rec.Pots = append(rec.Pots, doc.Pots...)
	if err := rec.Validate(); err != nil {
		return MonthRecord{}, err
	}

	weeks := make(map[WeekRange]WeekCell, len(doc.WeeklyBreakdown))
	for _, raw := range doc.WeeklyBreakdown {
		w, ok := decodeLegacyWeek(raw)
		if ok {
			weeks[w.Range()] = w
		}
	}
	for i, w := range rec.WeeklyBreakdown {
		if prev, ok := weeks[w.Range()]; ok {
			rec.WeeklyBreakdown[i].Cells = prev.Cells
			rec.WeeklyBreakdown[i].PaymentsDue = prev.PaymentsDue
		}
	}

	Recompute(&rec)
	return rec, nil
}

func decodeLegacyWeek(raw map[string]json.RawMessage) (WeekCell, bool) {
	var w WeekCell
	var label string
	if err := json.Unmarshal(raw[legacyDateRange], &label); err != nil {
		return w, false
	}
	r, ok := parseRangeLabel(label)
	if !ok {
		return w, false
	}
	w.StartDay, w.EndDay, w.DateRange = r.StartDay, r.EndDay, r.Label()
	if due, ok := raw[legacyPaymentsDue]; ok {
		var text string
		if err := json.Unmarshal(due, &text); err == nil {
			w.PaymentsDue = strings.TrimSpace(text)
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		switch k {
		case legacyDateRange, legacyPaymentsDue, legacyEstimate, legacyActual, legacyWeekNumber:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var text string
		if err := json.Unmarshal(raw[k], &text); err != nil {
			continue
		}
		_, expr := ParseCellText(text)
		w.Cells = append(w.Cells, CategoryCell{Category: strings.TrimSpace(k), Expression: expr})
	}
	return w, true
}

func parseRangeLabel(label string) (WeekRange, bool) {
	a, b, ok := strings.Cut(strings.TrimSpace(label), "-")
	if !ok {
		return WeekRange{}, false
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(a))
	end, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil || start < 1 || end < start {
		return WeekRange{}, false
	}
	return WeekRange{StartDay: start, EndDay: end}, true
}

// EncodeLegacyMonth writes rec in the legacy document shape.
func EncodeLegacyMonth(rec MonthRecord) ([]byte, error) {
	doc := legacyMonth{
		Year:              rec.Year,
		Month:             rec.Month,
		MonthName:         rec.MonthName,
		IncomeSources:     rec.IncomeSources,
		FixedCosts:        rec.FixedCosts,
		VariableCosts:     rec.VariableCosts,
		UnplannedExpenses: rec.UnplannedExpenses,
		Pots:              rec.Pots,
		WeeklyBreakdown:   make([]map[string]json.RawMessage, 0, len(rec.WeeklyBreakdown)),
	}
	for i, w := range rec.WeeklyBreakdown {
		obj := map[string]any{
			legacyWeekNumber:  i + 1,
			legacyDateRange:   w.DateRange,
			legacyPaymentsDue: w.PaymentsDue,
			legacyEstimate:    w.Estimate,
			legacyActual:      w.Actual,
		}
		for _, c := range w.Cells {
			obj[c.Category] = FormatCellText(c.Estimate, c.Expression)
		}
		raw := make(map[string]json.RawMessage, len(obj))
		for k, v := range obj {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode legacy week %d: %w", i+1, err)
			}
			raw[k] = b
		}
		doc.WeeklyBreakdown = append(doc.WeeklyBreakdown, raw)
	}
	return json.MarshalIndent(doc, "", "  ")
}
