package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
)

// RolloverProcessor starts a new month from the previous month's plan when
// the calendar moves on and nobody has created it yet.
type RolloverProcessor struct {
	budget *BudgetService
}

func NewRolloverProcessor(budget *BudgetService) *RolloverProcessor {
	return &RolloverProcessor{budget: budget}
}

// previousMonth returns the year and month before year/month.
func previousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// ProcessRollover creates the month containing now when it is missing and
// the month before it exists. It reports whether a month was created.
func (p *RolloverProcessor) ProcessRollover(ctx context.Context, now time.Time) (bool, error) {
	if p.budget == nil {
		return false, fmt.Errorf("processor not properly initialized")
	}

	year, month := now.Year(), int(now.Month())
	key := core.MonthKey(year, month)

	found, err := p.budget.exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check month %s: %w", key, err)
	}
	if found {
		return false, nil
	}

	srcKey := core.MonthKey(previousMonth(year, month))
	session, err := p.budget.CopyFromMonth(ctx, srcKey, year, month)
	switch {
	case errors.Is(err, core.ErrMonthNotFound):
		slog.InfoContext(ctx, "No previous month to roll over",
			"month_key", key, "source_key", srcKey)
		return false, nil
	case errors.Is(err, core.ErrMonthExists):
		// Created concurrently by a user.
		return false, nil
	case err != nil:
		return false, fmt.Errorf("roll over %s into %s: %w", srcKey, key, err)
	}

	slog.InfoContext(ctx, "Rolled over month plan",
		"month_key", session.Key,
		"source_key", srcKey,
		"fixed_costs", len(session.Record.FixedCosts),
		"variable_costs", len(session.Record.VariableCosts))
	return true, nil
}
