package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/store/memory"
)

type recordingPublisher struct {
	events []*amqp.ChangeEvent
	err    error
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.ChangeEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) keys() []string {
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.RoutingKey())
	}
	return out
}

func coffee() core.ExpenseInput {
	return core.ExpenseInput{Description: "Coffee", Amount: "4.50", Category: core.CategoryFood, Date: "2024-03-05"}
}

func TestLedgerServicePublishesChanges(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewLedgerService(memory.New(), WithPublisher(pub))

	e, err := svc.CreateExpense(ctx, coffee())
	require.NoError(t, err)

	amt := core.Amount("5.00")
	_, err = svc.UpdateExpense(ctx, e.ID, core.ExpensePatch{Amount: &amt})
	require.NoError(t, err)

	found, err := svc.DeleteExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = svc.DeleteExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = svc.SaveBudget(ctx, core.BudgetInput{Amount: "100", Month: "2024-03"})
	require.NoError(t, err)
	_, err = svc.SaveBudget(ctx, core.BudgetInput{Amount: "150", Month: "2024-03"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"expense.created",
		"expense.updated",
		"expense.deleted",
		"budget.created",
		"budget.updated",
	}, pub.keys())
	assert.Equal(t, "2024-03", pub.events[0].Month)
	assert.Equal(t, "4.50", pub.events[0].Amount)
	assert.Equal(t, "150", pub.events[4].Amount)

	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}

func TestLedgerServicePublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(), WithPublisher(&recordingPublisher{err: errors.New("broker down")}))

	e, err := svc.CreateExpense(ctx, coffee())
	require.NoError(t, err)

	got, err := svc.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.Description)
}

func TestLedgerServiceValidation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewLedgerService(memory.New(), WithPublisher(pub))

	bad := coffee()
	bad.Category = "rent"
	_, err := svc.CreateExpense(ctx, bad)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)

	_, err = svc.SaveBudget(ctx, core.BudgetInput{Amount: "10", Month: "2024-3"})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	_, err = svc.ListExpenses(ctx, ExpenseFilter{Category: "nope"})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)

	_, err = svc.ListExpenses(ctx, ExpenseFilter{StartDate: "2024-01-01", EndDate: "tomorrow"})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Summary(ctx, "2024-13")
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	_, err = svc.Trend(ctx, "2024-03", 100)
	assert.ErrorAs(t, err, &verr)

	assert.Empty(t, pub.events, "rejected writes publish nothing")
}

func TestLedgerServiceListFilters(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New())

	for _, in := range []core.ExpenseInput{
		{Description: "bus", Amount: "2", Category: core.CategoryTransport, Date: "2024-02-10"},
		{Description: "lunch", Amount: "12", Category: core.CategoryFood, Date: "2024-03-01"},
		{Description: "taxi", Amount: "20", Category: core.CategoryTransport, Date: "2024-03-20"},
	} {
		_, err := svc.CreateExpense(ctx, in)
		require.NoError(t, err)
	}

	all, err := svc.ListExpenses(ctx, ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	transport, err := svc.ListExpenses(ctx, ExpenseFilter{Category: "transport", StartDate: "2024-03-01", EndDate: "2024-03-31"})
	require.NoError(t, err)
	assert.Len(t, transport, 2, "category takes precedence over the date range")

	march, err := svc.ListExpenses(ctx, ExpenseFilter{StartDate: "2024-03-01", EndDate: "2024-03-31"})
	require.NoError(t, err)
	assert.Len(t, march, 2)

	halfRange, err := svc.ListExpenses(ctx, ExpenseFilter{StartDate: "2024-03-01"})
	require.NoError(t, err)
	assert.Len(t, halfRange, 3, "a half-open range is ignored")
}

func TestLedgerServiceSummaryDefaultsToCurrentMonth(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC)
	svc := NewLedgerService(memory.New(), WithClock(func() time.Time { return now }))

	_, err := svc.CreateExpense(ctx, coffee())
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", sum.Month)
	assert.Equal(t, 1, sum.TransactionCount)

	points, err := svc.Trend(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, points, DefaultTrendMonths)
	assert.Equal(t, "2023-10", points[0].Month)
	assert.Equal(t, "2024-03", points[len(points)-1].Month)
}

func TestLedgerServiceNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New())

	_, err := svc.GetExpense(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)

	desc := "x"
	_, err = svc.UpdateExpense(ctx, 42, core.ExpensePatch{Description: &desc})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.BudgetByMonth(ctx, "2024-03")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, svc.Ping(ctx))
	require.NoError(t, svc.Close())
}

// countingStore counts summary reads that reach the underlying store.
type countingStore struct {
	*memory.Store
	listed int
}

func (c *countingStore) ExpensesByDateRange(ctx context.Context, start, end string) ([]core.Expense, error) {
	c.listed++
	return c.Store.ExpensesByDateRange(ctx, start, end)
}

func TestLedgerServiceSummaryCache(t *testing.T) {
	ctx := context.Background()
	st := &countingStore{Store: memory.New()}
	svc := NewLedgerService(st)

	_, err := svc.CreateExpense(ctx, coffee())
	require.NoError(t, err)

	first, err := svc.Summary(ctx, "2024-03")
	require.NoError(t, err)
	again, err := svc.Summary(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, st.listed, "second read is served from cache")

	_, err = svc.CreateExpense(ctx, core.ExpenseInput{Description: "Tea", Amount: "2", Category: core.CategoryFood, Date: "2024-03-06"})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TransactionCount, "writes invalidate cached summaries")
	assert.Equal(t, 2, st.listed)

	uncached := NewLedgerService(st, WithSummaryCache(0, 0))
	_, err = uncached.Summary(ctx, "2024-03")
	require.NoError(t, err)
	_, err = uncached.Summary(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 4, st.listed)
}

// racingStore commits a write through the service right after the first
// summary read, as a concurrent request would.
type racingStore struct {
	*memory.Store
	write func()
}

func (r *racingStore) ExpensesByDateRange(ctx context.Context, start, end string) ([]core.Expense, error) {
	out, err := r.Store.ExpensesByDateRange(ctx, start, end)
	if r.write != nil {
		w := r.write
		r.write = nil
		w()
	}
	return out, err
}

func TestLedgerServiceSummaryNotCachedAcrossConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	st := &racingStore{Store: memory.New()}
	svc := NewLedgerService(st)
	st.write = func() {
		_, err := svc.CreateExpense(ctx, coffee())
		require.NoError(t, err)
	}

	stale, err := svc.Summary(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 0, stale.TransactionCount)

	fresh, err := svc.Summary(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.TransactionCount, "a summary read before a write is not cached past it")
}
