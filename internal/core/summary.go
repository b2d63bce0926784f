package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryAmount is a running total for one category.
type CategoryAmount struct {
	Category Category
	Amount   Number
}

// CategoryTotals keeps per-category sums in first-occurrence order and
// encodes as a JSON object in that order.
type CategoryTotals []CategoryAmount

// Add accumulates amt into the category's entry, appending it if new.
func (ct CategoryTotals) Add(c Category, amt decimal.Decimal) CategoryTotals {
	for i := range ct {
		if ct[i].Category == c {
			ct[i].Amount = NewNumber(ct[i].Amount.Add(amt))
			return ct
		}
	}
	return append(ct, CategoryAmount{Category: c, Amount: NewNumber(amt)})
}

// Sum adds up every category total.
func (ct CategoryTotals) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, c := range ct {
		total = total.Add(c.Amount.Decimal)
	}
	return total
}

// Get returns the total for c and whether it is present.
func (ct CategoryTotals) Get(c Category) (decimal.Decimal, bool) {
	for _, e := range ct {
		if e.Category == c {
			return e.Amount.Decimal, true
		}
	}
	return decimal.Zero, false
}

func (ct CategoryTotals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range ct {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Category))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(e.Amount.Decimal.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (ct *CategoryTotals) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*ct = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("category totals: expected object, got %v", tok)
	}
	out := CategoryTotals{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("category totals: unexpected key %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("category totals: value for %q is not a number", key)
		}
		d, err := decimal.NewFromString(num.String())
		if err != nil {
			return fmt.Errorf("category totals: %w", err)
		}
		out = append(out, CategoryAmount{Category: Category(key), Amount: NewNumber(d)})
	}
	*ct = out
	return nil
}

// Summary is the derived monthly view of spending against budget.
type Summary struct {
	TotalSpent       Number         `json:"totalSpent"`
	BudgetAmount     Number         `json:"budgetAmount"`
	BudgetRemaining  Number         `json:"budgetRemaining"`
	BudgetPercentage int64          `json:"budgetPercentage"`
	TransactionCount int            `json:"transactionCount"`
	CategoryTotals   CategoryTotals `json:"categoryTotals"`
	Month            string         `json:"month"`
}

// TrendPoint is one month of a spending trend.
type TrendPoint struct {
	Month string `json:"month"`
	Total Number `json:"total"`
	Count int    `json:"count"`
}
