// Package analytics folds store query results into monthly spending figures.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// MaxTrendMonths bounds how far back a trend may reach.
const MaxTrendMonths = 36

var hundred = decimal.NewFromInt(100)

// Source is the slice of the record store the aggregator reads.
type Source interface {
	ExpensesByDateRange(ctx context.Context, start, end string) ([]core.Expense, error)
	BudgetByMonth(ctx context.Context, month string) (core.Budget, error)
}

// CurrentMonth is the YYYY-MM month containing now.
func CurrentMonth(now time.Time) string {
	return core.MonthOf(now)
}

// Summarize computes spending against budget for month (YYYY-MM).
// A month without a budget is treated as a zero budget.
func Summarize(ctx context.Context, src Source, month string) (core.Summary, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.Summary{}, fmt.Errorf("summarize %q: %w", month, err)
	}

	start, end := core.MonthBounds(month)
	expenses, err := src.ExpensesByDateRange(ctx, start, end)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load expenses for %s: %w", month, err)
	}

	budget := decimal.Zero
	b, err := src.BudgetByMonth(ctx, month)
	switch {
	case err == nil:
		budget = b.Amount.Decimal()
	case !errors.Is(err, core.ErrNotFound):
		return core.Summary{}, fmt.Errorf("load budget for %s: %w", month, err)
	}

	spent := decimal.Zero
	totals := core.CategoryTotals{}
	for _, e := range expenses {
		amt := e.Amount.Decimal()
		spent = spent.Add(amt)
		totals = totals.Add(e.Category, amt)
	}

	return core.Summary{
		TotalSpent:       core.NewNumber(spent),
		BudgetAmount:     core.NewNumber(budget),
		BudgetRemaining:  core.NewNumber(budget.Sub(spent)),
		BudgetPercentage: Percentage(spent, budget),
		TransactionCount: len(expenses),
		CategoryTotals:   totals,
		Month:            month,
	}, nil
}

// Percentage is spent as a rounded share of budget, or 0 for a zero budget.
func Percentage(spent, budget decimal.Decimal) int64 {
	if budget.IsZero() {
		return 0
	}
	return spent.Mul(hundred).Div(budget).Round(0).IntPart()
}

// Trend totals the months consecutive months ending at end, oldest first.
func Trend(ctx context.Context, src Source, end string, months int) ([]core.TrendPoint, error) {
	if months < 1 || months > MaxTrendMonths {
		return nil, fmt.Errorf("trend length %d: must be between 1 and %d", months, MaxTrendMonths)
	}
	first, err := core.ShiftMonth(end, -(months - 1))
	if err != nil {
		return nil, err
	}

	from, _ := core.MonthBounds(first)
	_, to := core.MonthBounds(end)
	expenses, err := src.ExpensesByDateRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load expenses %s..%s: %w", first, end, err)
	}

	points := make([]core.TrendPoint, months)
	index := make(map[string]int, months)
	for i := range points {
		m, err := core.ShiftMonth(first, i)
		if err != nil {
			return nil, err
		}
		points[i] = core.TrendPoint{Month: m, Total: core.NewNumber(decimal.Zero)}
		index[m] = i
	}

	for _, e := range expenses {
		if len(e.Date) < len(core.MonthLayout) {
			continue
		}
		i, ok := index[e.Date[:len(core.MonthLayout)]]
		if !ok {
			continue
		}
		points[i].Total = core.NewNumber(points[i].Total.Add(e.Amount.Decimal()))
		points[i].Count++
	}
	return points, nil
}
