// Package store defines the record store contracts shared by the in-memory
// and SQLite backends.
package store

import (
	"context"
	"sort"

	"spendwise/internal/core"
)

type (
	// ExpenseStore holds expenses keyed by a sequential integer id.
	// Lookups of unknown ids return core.ErrNotFound.
	ExpenseStore interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
		UpdateExpense(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error)
		// DeleteExpense reports whether a record existed at id.
		DeleteExpense(ctx context.Context, id int64) (bool, error)
		// ExpensesByDateRange matches dates in [start, end] compared as strings.
		ExpensesByDateRange(ctx context.Context, start, end string) ([]core.Expense, error)
		ExpensesByCategory(ctx context.Context, c core.Category) ([]core.Expense, error)
	}

	// BudgetStore holds at most one budget per month.
	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		BudgetByMonth(ctx context.Context, month string) (core.Budget, error)
		// CreateBudget updates the existing budget for in.Month if there is one.
		CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error)
		// UpdateBudget fails with core.ErrMonthTaken when the patch moves the
		// budget onto a month another budget already owns.
		UpdateBudget(ctx context.Context, id int64, p core.BudgetPatch) (core.Budget, error)
		DeleteBudget(ctx context.Context, id int64) (bool, error)
	}

	Store interface {
		ExpenseStore
		BudgetStore
	}
)

// SortExpenses orders newest date first, then by id.
func SortExpenses(xs []core.Expense) {
	sort.SliceStable(xs, func(i, j int) bool {
		if xs[i].Date != xs[j].Date {
			return xs[i].Date > xs[j].Date
		}
		return xs[i].ID < xs[j].ID
	})
}

// SortBudgets orders newest month first. Months are zero-padded so string
// order is calendar order.
func SortBudgets(bs []core.Budget) {
	sort.SliceStable(bs, func(i, j int) bool {
		return bs[i].Month > bs[j].Month
	})
}
