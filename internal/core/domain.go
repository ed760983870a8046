package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinYear = 1900
	MaxYear = 2100
)

type (
	IncomeEntry struct {
		Source      string          `json:"source"`
		Estimated   decimal.Decimal `json:"estimated"`
		Actual      decimal.Decimal `json:"actual"`
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Comments    string          `json:"comments"`
	}

	FixedCostEntry struct {
		Category        string          `json:"category"`
		EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
		ActualAmount    decimal.Decimal `json:"actualAmount"`
		Date            string          `json:"date"` // free text, e.g. "3rd"
		Card            string          `json:"card"`
		Paid            bool            `json:"paid"`
		Comments        string          `json:"comments"`
	}

	// VariableCostEntry.ActualAmount is derived from the weekly cells on
	// every recompute unless the category has no weekly column.
	VariableCostEntry struct {
		Category        string          `json:"category"`
		EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
		ActualAmount    decimal.Decimal `json:"actualAmount"`
		Comments        string          `json:"comments"`
	}

	UnplannedExpenseEntry struct {
		Name     string          `json:"name"`
		Amount   decimal.Decimal `json:"amount"`
		Date     string          `json:"date"`
		Card     string          `json:"card"`
		Paid     bool            `json:"paid"`
		Comments string          `json:"comments"`
	}

	PotEntry struct {
		Category        string          `json:"category"`
		EstimatedAmount decimal.Decimal `json:"estimatedAmount"`
		ActualAmount    decimal.Decimal `json:"actualAmount"`
	}

	// CategoryCell is one variable-cost column of a week. Estimate and Value
	// are derived; Expression is what the user typed after "=".
	CategoryCell struct {
		Category   string          `json:"category"`
		Estimate   decimal.Decimal `json:"estimate"`
		Expression string          `json:"expression"`
		Value      decimal.Decimal `json:"value"`
	}

	WeekCell struct {
		StartDay          int             `json:"startDay"`
		EndDay            int             `json:"endDay"`
		DateRange         string          `json:"dateRange"`
		PaymentsDue       string          `json:"paymentsDue"`
		PaymentsDueCustom bool            `json:"paymentsDueCustom,omitempty"`
		Cells             []CategoryCell  `json:"cells"`
		Estimate          decimal.Decimal `json:"estimate"`
		Actual            decimal.Decimal `json:"actual"`
	}

	MonthRecord struct {
		Year              int                     `json:"year"`
		Month             int                     `json:"month"`
		MonthName         string                  `json:"monthName"`
		IncomeSources     []IncomeEntry           `json:"incomeSources"`
		FixedCosts        []FixedCostEntry        `json:"fixedCosts"`
		VariableCosts     []VariableCostEntry     `json:"variableCosts"`
		UnplannedExpenses []UnplannedExpenseEntry `json:"unplannedExpenses"`
		Pots              []PotEntry              `json:"pots"`
		WeeklyBreakdown   []WeekCell              `json:"weeklyBreakdown"`
	}
)

var (
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrMonthNotFound    = errors.New("month not found")
	ErrMonthExists      = errors.New("month already exists")
	ErrRowNotFound      = errors.New("row not found")
	ErrWeekNotFound     = errors.New("week not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidRow       = errors.New("invalid row")
)

// IsValidation reports whether err was caused by rejected user input rather
// than a missing month or a storage failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidYear, ErrInvalidMonth, ErrInvalidMonthKey, ErrNegativeAmount,
		ErrEmptyName, ErrInvalidRow, ErrUnknownLedger,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ValidateYearMonth checks the ranges accepted when creating a month.
func ValidateYearMonth(year, month int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidYear, year, MinYear, MaxYear)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d (must be between 1 and 12)", ErrInvalidMonth, month)
	}
	return nil
}

// MonthKey returns the storage key "YYYY-MM".
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthKey is the inverse of MonthKey.
func ParseMonthKey(key string) (year, month int, err error) {
	key = strings.TrimSpace(key)
	parts := strings.Split(key, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	if err := ValidateYearMonth(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// NewMonthRecord creates an empty month with its week buckets generated.
func NewMonthRecord(year, month int) (MonthRecord, error) {
	if err := ValidateYearMonth(year, month); err != nil {
		return MonthRecord{}, err
	}
	rec := MonthRecord{
		Year:              year,
		Month:             month,
		MonthName:         time.Month(month).String(),
		IncomeSources:     []IncomeEntry{},
		FixedCosts:        []FixedCostEntry{},
		VariableCosts:     []VariableCostEntry{},
		UnplannedExpenses: []UnplannedExpenseEntry{},
		Pots:              []PotEntry{},
	}
	rec.WeeklyBreakdown = newWeekCells(Partition(year, month))
	return rec, nil
}

// Key returns the record's storage key.
func (m MonthRecord) Key() string {
	return MonthKey(m.Year, m.Month)
}

// Clone returns a deep copy; no slice is shared with the receiver.
func (m MonthRecord) Clone() MonthRecord {
	out := m
	out.IncomeSources = append([]IncomeEntry{}, m.IncomeSources...)
	out.FixedCosts = append([]FixedCostEntry{}, m.FixedCosts...)
	out.VariableCosts = append([]VariableCostEntry{}, m.VariableCosts...)
	out.UnplannedExpenses = append([]UnplannedExpenseEntry{}, m.UnplannedExpenses...)
	out.Pots = append([]PotEntry{}, m.Pots...)
	out.WeeklyBreakdown = make([]WeekCell, len(m.WeeklyBreakdown))
	for i, w := range m.WeeklyBreakdown {
		w.Cells = append([]CategoryCell{}, w.Cells...)
		out.WeeklyBreakdown[i] = w
	}
	return out
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return fmt.Errorf("%w: name too long (max 200 characters)", ErrInvalidRow)
	}
	return nil
}

func validateAmounts(amounts ...decimal.Decimal) error {
	for _, a := range amounts {
		if a.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}

func (e IncomeEntry) Validate() error {
	if err := validateName(e.Source); err != nil {
		return fmt.Errorf("income source: %w", err)
	}
	return validateAmounts(e.Estimated, e.Actual)
}

func (e FixedCostEntry) Validate() error {
	if err := validateName(e.Category); err != nil {
		return fmt.Errorf("fixed cost category: %w", err)
	}
	return validateAmounts(e.EstimatedAmount, e.ActualAmount)
}

func (e VariableCostEntry) Validate() error {
	if err := validateName(e.Category); err != nil {
		return fmt.Errorf("variable cost category: %w", err)
	}
	return validateAmounts(e.EstimatedAmount, e.ActualAmount)
}

func (e UnplannedExpenseEntry) Validate() error {
	if err := validateName(e.Name); err != nil {
		return fmt.Errorf("unplanned expense name: %w", err)
	}
	return validateAmounts(e.Amount)
}

func (e PotEntry) Validate() error {
	if err := validateName(e.Category); err != nil {
		return fmt.Errorf("pot category: %w", err)
	}
	return validateAmounts(e.EstimatedAmount, e.ActualAmount)
}

// Validate checks the record header and every ledger row.
func (m MonthRecord) Validate() error {
	if err := ValidateYearMonth(m.Year, m.Month); err != nil {
		return err
	}
	for i, e := range m.IncomeSources {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("income row %d: %w", i, err)
		}
	}
	for i, e := range m.FixedCosts {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("fixed cost row %d: %w", i, err)
		}
	}
	for i, e := range m.VariableCosts {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("variable cost row %d: %w", i, err)
		}
	}
	for i, e := range m.UnplannedExpenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("unplanned expense row %d: %w", i, err)
		}
	}
	for i, e := range m.Pots {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("pot row %d: %w", i, err)
		}
	}
	return nil
}
