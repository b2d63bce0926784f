package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	apphttp "spendwise/internal/http"
	"spendwise/internal/services"
	"spendwise/internal/store/memory"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC) }
	svc := services.NewLedgerService(memory.NewWithClock(now), services.WithClock(now))
	srv, err := apphttp.NewServer(":0", svc, apphttp.Options{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	c, err := New(ts.URL + "/")
	require.NoError(t, err)
	return c.WithHTTPClient(ts.Client())
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"localhost:8081", "ftp://host", "http://"} {
		_, err := New(u)
		assert.Error(t, err, u)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	notes := "oat milk"
	e, err := c.CreateExpense(ctx, core.ExpenseInput{
		Description: "Coffee", Amount: "4.50", Category: core.CategoryFood, Date: "2024-03-05", Notes: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID)
	require.NotNil(t, e.Notes)
	assert.Equal(t, "oat milk", *e.Notes)

	desc := "Flat white"
	e, err = c.UpdateExpense(ctx, e.ID, core.ExpensePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Flat white", e.Description)
	require.NotNil(t, e.Notes, "unset notes are left alone")

	e, err = c.UpdateExpense(ctx, e.ID, core.ExpensePatch{Notes: core.ClearNotes()})
	require.NoError(t, err)
	assert.Nil(t, e.Notes)

	list, err := c.ListExpenses(ctx, ExpenseQuery{Category: "food"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = c.ListExpenses(ctx, ExpenseQuery{StartDate: "2024-04-01", EndDate: "2024-04-30"})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, c.DeleteExpense(ctx, e.ID))

	_, err = c.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	err = c.DeleteExpense(ctx, e.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Expense not found", apiErr.Message)
}

func TestValidationErrorsCarryDetail(t *testing.T) {
	c := newClient(t)

	_, err := c.CreateExpense(context.Background(), core.ExpenseInput{
		Description: "Coffee", Amount: "4.505", Category: core.CategoryFood, Date: "2024-03-05",
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid expense data", apiErr.Message)
	assert.Contains(t, apiErr.Detail, "amount")
	assert.Contains(t, apiErr.Error(), "(400)")
}

func TestBudgetsSummaryAndTrend(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.CreateExpense(ctx, core.ExpenseInput{
		Description: "Coffee", Amount: "4.50", Category: core.CategoryFood, Date: "2024-03-05",
	})
	require.NoError(t, err)
	b, err := c.SaveBudget(ctx, core.BudgetInput{Amount: "100.00", Month: "2024-03"})
	require.NoError(t, err)

	got, err := c.BudgetByMonth(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	budgets, err := c.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Len(t, budgets, 1)

	sum, err := c.Summary(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", sum.Month)
	assert.Equal(t, "4.5", sum.TotalSpent.String())
	assert.Equal(t, "95.5", sum.BudgetRemaining.String())
	assert.Equal(t, int64(5), sum.BudgetPercentage)
	food, ok := sum.CategoryTotals.Get(core.CategoryFood)
	require.True(t, ok)
	assert.Equal(t, "4.5", food.String())

	points, err := c.Trend(ctx, "2024-03", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 1, points[1].Count)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Categories(), cats)

	require.NoError(t, c.DeleteBudget(ctx, b.ID))
	_, err = c.BudgetByMonth(ctx, "2024-03")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
