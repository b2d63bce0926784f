// Package memory is the default process-local record store. Restarting the
// process discards everything.
package memory

import (
	"context"
	"sync"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	expenses      map[int64]core.Expense
	budgets       map[int64]core.Budget
	nextExpenseID int64
	nextBudgetID  int64
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock uses now to stamp CreatedAt.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:           now,
		expenses:      make(map[int64]core.Expense),
		budgets:       make(map[int64]core.Budget),
		nextExpenseID: 1,
		nextBudgetID:  1,
	}
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	return s.filterExpenses(func(core.Expense) bool { return true }), nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return cloneExpense(e), nil
}

func (s *Store) CreateExpense(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := cloneExpense(core.NewExpense(s.nextExpenseID, in, s.now()))
	s.expenses[e.ID] = e
	s.nextExpenseID++
	return cloneExpense(e), nil
}

func (s *Store) UpdateExpense(_ context.Context, id int64, p core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	e = cloneExpense(p.Apply(e))
	s.expenses[id] = e
	return cloneExpense(e), nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return false, nil
	}
	delete(s.expenses, id)
	return true, nil
}

func (s *Store) ExpensesByDateRange(_ context.Context, start, end string) ([]core.Expense, error) {
	return s.filterExpenses(func(e core.Expense) bool {
		return e.Date >= start && e.Date <= end
	}), nil
}

func (s *Store) ExpensesByCategory(_ context.Context, c core.Category) ([]core.Expense, error) {
	return s.filterExpenses(func(e core.Expense) bool {
		return e.Category == c
	}), nil
}

func (s *Store) filterExpenses(keep func(core.Expense) bool) []core.Expense {
	s.mu.Lock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if keep(e) {
			out = append(out, cloneExpense(e))
		}
	}
	s.mu.Unlock()
	store.SortExpenses(out)
	return out
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	s.mu.Unlock()
	store.SortBudgets(out)
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) BudgetByMonth(_ context.Context, month string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.budgetForMonthLocked(month); ok {
		return b, nil
	}
	return core.Budget{}, core.ErrNotFound
}

func (s *Store) CreateBudget(_ context.Context, in core.BudgetInput) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.budgetForMonthLocked(in.Month); ok {
		existing.Amount = in.Amount
		s.budgets[existing.ID] = existing
		return existing, nil
	}
	b := core.NewBudget(s.nextBudgetID, in, s.now())
	s.budgets[b.ID] = b
	s.nextBudgetID++
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, id int64, p core.BudgetPatch) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	if p.Month != nil && *p.Month != b.Month {
		if _, taken := s.budgetForMonthLocked(*p.Month); taken {
			return core.Budget{}, core.ErrMonthTaken
		}
	}
	b = p.Apply(b)
	s.budgets[id] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return false, nil
	}
	delete(s.budgets, id)
	return true, nil
}

func (s *Store) budgetForMonthLocked(month string) (core.Budget, bool) {
	for _, b := range s.budgets {
		if b.Month == month {
			return b, true
		}
	}
	return core.Budget{}, false
}

// cloneExpense detaches Notes so callers cannot mutate stored records.
func cloneExpense(e core.Expense) core.Expense {
	if e.Notes != nil {
		n := *e.Notes
		e.Notes = &n
	}
	return e
}
