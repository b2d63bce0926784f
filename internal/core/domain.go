package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryShopping      Category = "shopping"
	CategoryHealthcare    Category = "healthcare"
	CategoryOther         Category = "other"
)

type (
	Category string

	Expense struct {
		ID          int64     `json:"id"`
		Description string    `json:"description"`
		Amount      Amount    `json:"amount"`
		Category    Category  `json:"category"`
		Date        string    `json:"date"`
		Notes       *string   `json:"notes"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// ExpenseInput is the payload for creating an expense.
	ExpenseInput struct {
		Description string   `json:"description"`
		Amount      Amount   `json:"amount"`
		Category    Category `json:"category"`
		Date        string   `json:"date"`
		Notes       *string  `json:"notes,omitempty"`
	}

	// ExpensePatch carries the subset of fields a partial update touches.
	ExpensePatch struct {
		Description *string        `json:"description,omitempty"`
		Amount      *Amount        `json:"amount,omitempty"`
		Category    *Category      `json:"category,omitempty"`
		Date        *string        `json:"date,omitempty"`
		Notes       NullableString `json:"notes"`
	}

	Budget struct {
		ID        int64     `json:"id"`
		Amount    Amount    `json:"amount"`
		Month     string    `json:"month"`
		CreatedAt time.Time `json:"createdAt"`
	}

	BudgetInput struct {
		Amount Amount `json:"amount"`
		Month  string `json:"month"`
	}

	BudgetPatch struct {
		Amount *Amount `json:"amount,omitempty"`
		Month  *string `json:"month,omitempty"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrMissingField     = errors.New("required field missing")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyDescription = errors.New("empty description")
	ErrMonthTaken       = errors.New("a budget already exists for this month")
	ErrNullField        = errors.New("must not be null")
)

// ValidationError ties a validation failure to the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Categories returns the closed set of expense categories in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryEntertainment,
		CategoryUtilities,
		CategoryShopping,
		CategoryHealthcare,
		CategoryOther,
	}
}

func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func validateCategory(c Category) error {
	if c == "" {
		return invalid("category", ErrMissingField)
	}
	if !c.IsValid() {
		return invalid("category", ErrInvalidCategory)
	}
	return nil
}

func validateDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return invalid("description", ErrEmptyDescription)
	}
	return nil
}

func validateAmount(a Amount) error {
	if a == "" {
		return invalid("amount", ErrMissingField)
	}
	if err := a.Validate(); err != nil {
		return invalid("amount", err)
	}
	return nil
}

func validateDateField(s string) error {
	if s == "" {
		return invalid("date", ErrMissingField)
	}
	if err := ValidateDate(s); err != nil {
		return invalid("date", err)
	}
	return nil
}

func validateMonthField(s string) error {
	if s == "" {
		return invalid("month", ErrMissingField)
	}
	if err := ValidateMonth(s); err != nil {
		return invalid("month", err)
	}
	return nil
}

func (in ExpenseInput) Validate() error {
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	if err := validateCategory(in.Category); err != nil {
		return err
	}
	return validateDateField(in.Date)
}

// Validate checks only the fields present in the patch.
func (p ExpensePatch) Validate() error {
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := validateCategory(*p.Category); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := validateDateField(*p.Date); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON emits only the fields the patch sets, so an unset Notes is
// omitted rather than sent as null.
func (p ExpensePatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 5)
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Amount != nil {
		m["amount"] = *p.Amount
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Date != nil {
		m["date"] = *p.Date
	}
	if p.Notes.Set {
		m["notes"] = p.Notes.Value
	}
	return json.Marshal(m)
}

// UnmarshalJSON rejects an explicit null for any field but notes, which is
// the only field a patch may clear.
func (p *ExpensePatch) UnmarshalJSON(data []byte) error {
	if err := rejectNulls(data, "description", "amount", "category", "date"); err != nil {
		return err
	}
	type plain ExpensePatch
	return json.Unmarshal(data, (*plain)(p))
}

// Apply merges the patch onto e. Fields absent from the patch are kept.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Notes.Set {
		e.Notes = NormalizeNotes(p.Notes.Value)
	}
	return e
}

func (in BudgetInput) Validate() error {
	if err := validateAmount(in.Amount); err != nil {
		return err
	}
	return validateMonthField(in.Month)
}

func (p BudgetPatch) Validate() error {
	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Month != nil {
		if err := validateMonthField(*p.Month); err != nil {
			return err
		}
	}
	return nil
}

func (p *BudgetPatch) UnmarshalJSON(data []byte) error {
	if err := rejectNulls(data, "amount", "month"); err != nil {
		return err
	}
	type plain BudgetPatch
	return json.Unmarshal(data, (*plain)(p))
}

// rejectNulls fails when an object sets one of fields to null. Keys match
// case-insensitively, as encoding/json does.
func rejectNulls(data []byte, fields ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, v := range raw {
		if string(v) != "null" {
			continue
		}
		for _, f := range fields {
			if strings.EqualFold(key, f) {
				return invalid(f, ErrNullField)
			}
		}
	}
	return nil
}

func (p BudgetPatch) Apply(b Budget) Budget {
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Month != nil {
		b.Month = *p.Month
	}
	return b
}

// NewExpense builds a stored record from a validated input.
func NewExpense(id int64, in ExpenseInput, now time.Time) Expense {
	return Expense{
		ID:          id,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Notes:       NormalizeNotes(in.Notes),
		CreatedAt:   now,
	}
}

func NewBudget(id int64, in BudgetInput, now time.Time) Budget {
	return Budget{
		ID:        id,
		Amount:    in.Amount,
		Month:     in.Month,
		CreatedAt: now,
	}
}
