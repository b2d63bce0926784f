// Package storetest holds behaviour checks every store.Store backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/store"
)

// Run checks a backend; newStore must return an empty store on each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("expense round trip", func(t *testing.T) { testExpenseRoundTrip(t, newStore(t)) })
	t.Run("expense ids are sequential", func(t *testing.T) { testSequentialIDs(t, newStore(t)) })
	t.Run("expense list order", func(t *testing.T) { testExpenseOrder(t, newStore(t)) })
	t.Run("expense partial update", func(t *testing.T) { testExpenseUpdate(t, newStore(t)) })
	t.Run("blank notes are stored as null", func(t *testing.T) { testBlankNotes(t, newStore(t)) })
	t.Run("expense delete", func(t *testing.T) { testExpenseDelete(t, newStore(t)) })
	t.Run("expense queries", func(t *testing.T) { testExpenseQueries(t, newStore(t)) })
	t.Run("budget upsert by month", func(t *testing.T) { testBudgetUpsert(t, newStore(t)) })
	t.Run("budget list order", func(t *testing.T) { testBudgetOrder(t, newStore(t)) })
	t.Run("budget update", func(t *testing.T) { testBudgetUpdate(t, newStore(t)) })
	t.Run("budget delete", func(t *testing.T) { testBudgetDelete(t, newStore(t)) })
}

func expense(desc, amount string, c core.Category, date string) core.ExpenseInput {
	return core.ExpenseInput{Description: desc, Amount: core.Amount(amount), Category: c, Date: date}
}

func testExpenseRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	notes := "with oat milk"
	in := expense("Coffee", "4.50", core.CategoryFood, "2024-03-05")
	in.Notes = &notes

	created, err := s.CreateExpense(ctx, in)
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.Description)
	assert.Equal(t, core.Amount("4.50"), got.Amount)
	assert.Equal(t, core.CategoryFood, got.Category)
	assert.Equal(t, "2024-03-05", got.Date)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)

	plain, err := s.CreateExpense(ctx, expense("Bus", "2.00", core.CategoryTransport, "2024-03-06"))
	require.NoError(t, err)
	assert.Nil(t, plain.Notes)

	_, err = s.GetExpense(ctx, 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testSequentialIDs(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, err := s.CreateExpense(ctx, expense("a", "1", core.CategoryOther, "2024-01-01"))
	require.NoError(t, err)
	b, err := s.CreateExpense(ctx, expense("b", "1", core.CategoryOther, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, a.ID+1, b.ID)

	_, err = s.DeleteExpense(ctx, b.ID)
	require.NoError(t, err)
	c, err := s.CreateExpense(ctx, expense("c", "1", core.CategoryOther, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, b.ID+1, c.ID, "ids are never reused")
}

func testExpenseOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, in := range []core.ExpenseInput{
		expense("old", "1", core.CategoryFood, "2024-01-15"),
		expense("new", "1", core.CategoryFood, "2024-03-01"),
		expense("mid", "1", core.CategoryFood, "2024-02-10"),
	} {
		_, err := s.CreateExpense(ctx, in)
		require.NoError(t, err)
	}

	list, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, descriptions(list))
}

func testExpenseUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	notes := "keep me"
	in := expense("Coffee", "4.50", core.CategoryFood, "2024-03-05")
	in.Notes = &notes
	created, err := s.CreateExpense(ctx, in)
	require.NoError(t, err)

	amt := core.Amount("5.00")
	updated, err := s.UpdateExpense(ctx, created.ID, core.ExpensePatch{Amount: &amt})
	require.NoError(t, err)
	assert.Equal(t, core.Amount("5.00"), updated.Amount)
	assert.Equal(t, "Coffee", updated.Description)
	assert.Equal(t, created.ID, updated.ID)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "keep me", *updated.Notes)

	cleared, err := s.UpdateExpense(ctx, created.ID, core.ExpensePatch{Notes: core.ClearNotes()})
	require.NoError(t, err)
	assert.Nil(t, cleared.Notes)

	got, err := s.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Amount("5.00"), got.Amount)
	assert.Nil(t, got.Notes)

	_, err = s.UpdateExpense(ctx, 4242, core.ExpensePatch{Amount: &amt})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testBlankNotes(t *testing.T, s store.Store) {
	ctx := context.Background()
	empty := ""
	in := expense("Coffee", "4.50", core.CategoryFood, "2024-03-05")
	in.Notes = &empty

	created, err := s.CreateExpense(ctx, in)
	require.NoError(t, err)
	assert.Nil(t, created.Notes)

	got, err := s.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Notes)

	updated, err := s.UpdateExpense(ctx, created.ID, core.ExpensePatch{Notes: core.SetNotes(" ")})
	require.NoError(t, err)
	assert.Nil(t, updated.Notes)

	got, err = s.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Notes)
}

func testExpenseDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	created, err := s.CreateExpense(ctx, expense("Coffee", "4.50", core.CategoryFood, "2024-03-05"))
	require.NoError(t, err)

	found, err := s.DeleteExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.DeleteExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.DeleteExpense(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, found)
}

func testExpenseQueries(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, in := range []core.ExpenseInput{
		expense("feb end", "1", core.CategoryFood, "2024-02-29"),
		expense("mar start", "2", core.CategoryTransport, "2024-03-01"),
		expense("mar end", "3", core.CategoryFood, "2024-03-31"),
		expense("apr start", "4", core.CategoryFood, "2024-04-01"),
	} {
		_, err := s.CreateExpense(ctx, in)
		require.NoError(t, err)
	}

	march, err := s.ExpensesByDateRange(ctx, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mar start", "mar end"}, descriptions(march))

	feb, err := s.ExpensesByDateRange(ctx, "2024-02-01", "2024-02-31")
	require.NoError(t, err)
	assert.Equal(t, []string{"feb end"}, descriptions(feb))

	food, err := s.ExpensesByCategory(ctx, core.CategoryFood)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feb end", "mar end", "apr start"}, descriptions(food))

	none, err := s.ExpensesByCategory(ctx, core.CategoryHealthcare)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testBudgetUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	first, err := s.CreateBudget(ctx, core.BudgetInput{Amount: "100.00", Month: "2024-03"})
	require.NoError(t, err)

	second, err := s.CreateBudget(ctx, core.BudgetInput{Amount: "250.00", Month: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, core.Amount("250.00"), second.Amount)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	list, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.Amount("250.00"), list[0].Amount)

	byMonth, err := s.BudgetByMonth(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byMonth.ID)

	_, err = s.BudgetByMonth(ctx, "2024-04")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testBudgetOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, m := range []string{"2024-02", "2024-11", "2023-12"} {
		_, err := s.CreateBudget(ctx, core.BudgetInput{Amount: "10", Month: m})
		require.NoError(t, err)
	}
	list, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	months := make([]string, 0, len(list))
	for _, b := range list {
		months = append(months, b.Month)
	}
	assert.Equal(t, []string{"2024-11", "2024-02", "2023-12"}, months)
}

func testBudgetUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	mar, err := s.CreateBudget(ctx, core.BudgetInput{Amount: "100", Month: "2024-03"})
	require.NoError(t, err)
	_, err = s.CreateBudget(ctx, core.BudgetInput{Amount: "200", Month: "2024-04"})
	require.NoError(t, err)

	amt := core.Amount("120.50")
	updated, err := s.UpdateBudget(ctx, mar.ID, core.BudgetPatch{Amount: &amt})
	require.NoError(t, err)
	assert.Equal(t, core.Amount("120.50"), updated.Amount)
	assert.Equal(t, "2024-03", updated.Month)

	taken := "2024-04"
	_, err = s.UpdateBudget(ctx, mar.ID, core.BudgetPatch{Month: &taken})
	assert.ErrorIs(t, err, core.ErrMonthTaken)

	same := "2024-03"
	_, err = s.UpdateBudget(ctx, mar.ID, core.BudgetPatch{Month: &same})
	require.NoError(t, err)

	free := "2024-05"
	moved, err := s.UpdateBudget(ctx, mar.ID, core.BudgetPatch{Month: &free})
	require.NoError(t, err)
	assert.Equal(t, "2024-05", moved.Month)

	_, err = s.UpdateBudget(ctx, 999, core.BudgetPatch{Amount: &amt})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testBudgetDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	b, err := s.CreateBudget(ctx, core.BudgetInput{Amount: "100", Month: "2024-03"})
	require.NoError(t, err)

	found, err := s.DeleteBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.DeleteBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.GetBudget(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func descriptions(xs []core.Expense) []string {
	out := make([]string, 0, len(xs))
	for _, e := range xs {
		out = append(out, e.Description)
	}
	return out
}
