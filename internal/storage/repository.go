// Package storage is the SQLite-backed record store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/store"

	_ "modernc.org/sqlite"
)

// MemoryDSN keeps the whole database on the single pooled connection.
const MemoryDSN = ":memory:"

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens dbPath (or an in-memory database for MemoryDSN)
// and applies the schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	dsn := dbPath
	if dbPath != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(on)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DB exposes the handle for schema inspection.
func (r *SQLiteRepository) DB() *sql.DB { return r.db }

const expenseColumns = "id, description, amount, category, date, notes, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		amount    string
		category  string
		notes     sql.NullString
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.Description, &amount, &category, &e.Date, &notes, &createdAt); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Amount(amount)
	e.Category = core.Category(category)
	if notes.Valid {
		n := notes.String
		e.Notes = &n
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = t
	return e, nil
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b         core.Budget
		amount    string
		createdAt string
	)
	if err := row.Scan(&b.ID, &amount, &b.Month, &createdAt); err != nil {
		return core.Budget{}, err
	}
	b.Amount = core.Amount(amount)
	t, err := parseTime(createdAt)
	if err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = t
	return b, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}

func nullableString(p *string) sql.NullString {
	p = core.NormalizeNotes(p)
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, where string, args ...any) ([]core.Expense, error) {
	q := "SELECT " + expenseColumns + " FROM expenses"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY date DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx, "")
}

func (r *SQLiteRepository) ExpensesByDateRange(ctx context.Context, start, end string) ([]core.Expense, error) {
	return r.queryExpenses(ctx, "date >= ? AND date <= ?", start, end)
}

func (r *SQLiteRepository) ExpensesByCategory(ctx context.Context, c core.Category) ([]core.Expense, error) {
	return r.queryExpenses(ctx, "category = ?", string(c))
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO expenses (description, amount, category, date, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING `+expenseColumns,
		in.Description, string(in.Amount), string(in.Category), in.Date, nullableString(in.Notes), formatTime(r.now()))
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"amount", e.Amount,
		"category", e.Category,
		"date", e.Date)

	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, p core.ExpensePatch) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := scanExpense(tx.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense %d: %w", id, err)
	}

	next := p.Apply(current)
	_, err = tx.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, category = ?, date = ?, notes = ? WHERE id = ?`,
		next.Description, string(next.Amount), string(next.Category), next.Date, nullableString(next.Notes), id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, "expenses", id)
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

const budgetColumns = "id, amount, month, created_at"

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+budgetColumns+" FROM budgets ORDER BY month DESC")
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return r.getBudgetWhere(ctx, "id = ?", id)
}

func (r *SQLiteRepository) BudgetByMonth(ctx context.Context, month string) (core.Budget, error) {
	return r.getBudgetWhere(ctx, "month = ?", month)
}

func (r *SQLiteRepository) getBudgetWhere(ctx context.Context, where string, arg any) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE "+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget (%s): %w", strings.TrimSuffix(where, " = ?"), err)
	}
	return b, nil
}

// CreateBudget relies on the UNIQUE(month) constraint to turn a second
// budget for a month into an amount update of the first.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO budgets (amount, month, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (month) DO UPDATE SET amount = excluded.amount
		 RETURNING `+budgetColumns,
		string(in.Amount), in.Month, formatTime(r.now()))
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget for %s: %w", in.Month, err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id int64, p core.BudgetPatch) (core.Budget, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := scanBudget(tx.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("load budget %d: %w", id, err)
	}

	next := p.Apply(current)
	if next.Month != current.Month {
		var other int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM budgets WHERE month = ? AND id <> ?", next.Month, id).Scan(&other)
		switch {
		case err == nil:
			return core.Budget{}, core.ErrMonthTaken
		case !errors.Is(err, sql.ErrNoRows):
			return core.Budget{}, fmt.Errorf("check month %s: %w", next.Month, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE budgets SET amount = ?, month = ? WHERE id = ?",
		string(next.Amount), next.Month, id); err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return core.Budget{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) (bool, error) {
	return r.deleteByID(ctx, "budgets", id)
}
