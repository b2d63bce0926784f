package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/analytics"
	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/store"
)

// DefaultTrendMonths is the trend length used when the caller gives none.
const DefaultTrendMonths = 6

const (
	DefaultSummaryCacheSize = 24
	DefaultSummaryCacheTTL  = 30 * time.Second
)

// EventPublisher announces committed changes. *amqp.Client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.ChangeEvent) error
}

// ExpenseFilter selects which expenses ListExpenses returns. Category wins
// over the date range; the range applies only when both ends are set.
type ExpenseFilter struct {
	Category  string
	StartDate string
	EndDate   string
}

// LedgerService is the single entry point for expense, budget and analytics
// operations. Writes hit the store first; publishing is best-effort.
type LedgerService struct {
	store     store.Store
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time

	cacheSize int
	cacheTTL  time.Duration
	summaries *cache.LRU[core.Summary]
}

// Option customises a LedgerService
type Option func(*LedgerService)

// WithPublisher sends change events after each successful write
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// WithSummaryCache sizes the per-month summary cache. Any write empties it;
// size 0 turns it off.
func WithSummaryCache(size int, ttl time.Duration) Option {
	return func(s *LedgerService) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

// WithClock overrides the time source used to resolve the current month
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(st store.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     st,
		logger:    log.Discard(),
		now:       time.Now,
		cacheSize: DefaultSummaryCacheSize,
		cacheTTL:  DefaultSummaryCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize > 0 && s.cacheTTL > 0 {
		s.summaries = cache.NewLRUWithClock[core.Summary](s.cacheSize, s.cacheTTL, s.now)
	}
	return s
}

// ListExpenses returns expenses newest first, narrowed by f.
func (s *LedgerService) ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	switch {
	case f.Category != "":
		c, err := core.ParseCategory(f.Category)
		if err != nil {
			return nil, &core.ValidationError{Field: "category", Err: core.ErrInvalidCategory}
		}
		return s.store.ExpensesByCategory(ctx, c)
	case f.StartDate != "" && f.EndDate != "":
		if err := core.ValidateDate(f.StartDate); err != nil {
			return nil, &core.ValidationError{Field: "startDate", Err: err}
		}
		if err := core.ValidateDate(f.EndDate); err != nil {
			return nil, &core.ValidationError{Field: "endDate", Err: err}
		}
		return s.store.ExpensesByDateRange(ctx, f.StartDate, f.EndDate)
	default:
		return s.store.ListExpenses(ctx)
	}
}

func (s *LedgerService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *LedgerService) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.CreateExpense(ctx, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.changed()
	s.publishExpense(ctx, amqp.ActionCreated, e)
	return e, nil
}

func (s *LedgerService) UpdateExpense(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error) {
	if err := p.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.UpdateExpense(ctx, id, p)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	s.changed()
	s.publishExpense(ctx, amqp.ActionUpdated, e)
	return e, nil
}

// DeleteExpense reports whether the expense existed.
func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	found, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense %d: %w", id, err)
	}
	if found {
		s.changed()
		s.publish(ctx, amqp.NewChangeEvent(amqp.EntityExpense, amqp.ActionDeleted, id))
	}
	return found, nil
}

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx)
}

func (s *LedgerService) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return s.store.GetBudget(ctx, id)
}

func (s *LedgerService) BudgetByMonth(ctx context.Context, month string) (core.Budget, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.Budget{}, &core.ValidationError{Field: "month", Err: err}
	}
	return s.store.BudgetByMonth(ctx, month)
}

// SaveBudget creates the budget for in.Month or replaces the amount of the
// one already there.
func (s *LedgerService) SaveBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}

	action := amqp.ActionCreated
	if _, err := s.store.BudgetByMonth(ctx, in.Month); err == nil {
		action = amqp.ActionUpdated
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Budget{}, fmt.Errorf("look up budget for %s: %w", in.Month, err)
	}

	b, err := s.store.CreateBudget(ctx, in)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.changed()
	s.publishBudget(ctx, action, b)
	return b, nil
}

func (s *LedgerService) UpdateBudget(ctx context.Context, id int64, p core.BudgetPatch) (core.Budget, error) {
	if err := p.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := s.store.UpdateBudget(ctx, id, p)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", id, err)
	}
	s.changed()
	s.publishBudget(ctx, amqp.ActionUpdated, b)
	return b, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, id int64) (bool, error) {
	found, err := s.store.DeleteBudget(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete budget %d: %w", id, err)
	}
	if found {
		s.changed()
		s.publish(ctx, amqp.NewChangeEvent(amqp.EntityBudget, amqp.ActionDeleted, id))
	}
	return found, nil
}

// Summary aggregates month, or the current month when month is empty.
func (s *LedgerService) Summary(ctx context.Context, month string) (core.Summary, error) {
	if month == "" {
		month = analytics.CurrentMonth(s.now())
	}
	if err := core.ValidateMonth(month); err != nil {
		return core.Summary{}, &core.ValidationError{Field: "month", Err: err}
	}
	if s.summaries == nil {
		return analytics.Summarize(ctx, s.store, month)
	}
	if sum, ok := s.summaries.Get(month); ok {
		return sum, nil
	}
	gen := s.summaries.Generation()
	sum, err := analytics.Summarize(ctx, s.store, month)
	if err != nil {
		return core.Summary{}, err
	}
	s.summaries.SetIfGeneration(month, sum, gen)
	return sum, nil
}

// Trend returns monthly totals ending at end (default: current month).
func (s *LedgerService) Trend(ctx context.Context, end string, months int) ([]core.TrendPoint, error) {
	if end == "" {
		end = analytics.CurrentMonth(s.now())
	}
	if err := core.ValidateMonth(end); err != nil {
		return nil, &core.ValidationError{Field: "end", Err: err}
	}
	if months == 0 {
		months = DefaultTrendMonths
	}
	if months < 1 || months > analytics.MaxTrendMonths {
		return nil, &core.ValidationError{
			Field: "months",
			Err:   fmt.Errorf("must be between 1 and %d", analytics.MaxTrendMonths),
		}
	}
	return analytics.Trend(ctx, s.store, end, months)
}

// Ping reports whether the store is reachable, for stores that can tell.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// changed runs after every committed write.
func (s *LedgerService) changed() {
	if s.summaries != nil {
		s.summaries.Purge()
	}
}

func (s *LedgerService) publishExpense(ctx context.Context, action string, e core.Expense) {
	ev := amqp.NewChangeEvent(amqp.EntityExpense, action, e.ID)
	ev.Month = e.Date[:min(len(e.Date), len(core.MonthLayout))]
	ev.Amount = e.Amount.String()
	s.publish(ctx, ev)
}

func (s *LedgerService) publishBudget(ctx context.Context, action string, b core.Budget) {
	ev := amqp.NewChangeEvent(amqp.EntityBudget, action, b.ID)
	ev.Month = b.Month
	ev.Amount = b.Amount.String()
	s.publish(ctx, ev)
}

// publish never fails the caller: the record is already committed.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.LogError(ctx, "Failed to publish change event", err, log.OpPublish,
			log.NewFields().WithRecord(ev.Entity, ev.ID))
	}
}

// Close releases the publisher connection. The store belongs to whoever
// created it.
func (s *LedgerService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close ledger service: amqp: %w", err)
		}
	}
	return nil
}
