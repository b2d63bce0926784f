package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"4.50", true},
		{"0", true},
		{"100", true},
		{"12.3", true},
		{"", false},
		{"-1", false},
		{"1.234", false},
		{"1e3", false},
		{".5", false},
		{"abc", false},
	}
	for _, tc := range cases {
		err := Amount(tc.in).Validate()
		if tc.ok {
			assert.NoError(t, err, tc.in)
		} else {
			assert.ErrorIs(t, err, ErrInvalidAmount, tc.in)
		}
	}

	a, err := ParseAmount(" 12,34 ")
	require.NoError(t, err)
	assert.Equal(t, Amount("12.34"), a)
	assert.True(t, a.Decimal().Equal(decimal.RequireFromString("12.34")))
	assert.True(t, Amount("junk").Decimal().IsZero())
}

func TestCategoryTotalsOrderAndJSON(t *testing.T) {
	var ct CategoryTotals
	ct = ct.Add(CategoryTransport, decimal.RequireFromString("2.00"))
	ct = ct.Add(CategoryFood, decimal.RequireFromString("4.50"))
	ct = ct.Add(CategoryTransport, decimal.RequireFromString("1.25"))

	require.Len(t, ct, 2)
	assert.Equal(t, CategoryTransport, ct[0].Category)
	assert.True(t, ct.Sum().Equal(decimal.RequireFromString("7.75")))

	data, err := json.Marshal(ct)
	require.NoError(t, err)
	assert.Equal(t, `{"transport":3.25,"food":4.5}`, string(data))

	var back CategoryTotals
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	assert.Equal(t, CategoryTransport, back[0].Category)
	got, ok := back.Get(CategoryFood)
	require.True(t, ok)
	assert.Equal(t, "4.5", got.String())
}

func TestSummaryJSONUsesNumbers(t *testing.T) {
	s := Summary{
		TotalSpent:       NewNumber(decimal.RequireFromString("4.50")),
		BudgetAmount:     NewNumber(decimal.RequireFromString("100.00")),
		BudgetRemaining:  NewNumber(decimal.RequireFromString("95.50")),
		BudgetPercentage: 5,
		TransactionCount: 1,
		CategoryTotals:   CategoryTotals{}.Add(CategoryFood, decimal.RequireFromString("4.50")),
		Month:            "2024-03",
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"totalSpent": 4.5,
		"budgetAmount": 100,
		"budgetRemaining": 95.5,
		"budgetPercentage": 5,
		"transactionCount": 1,
		"categoryTotals": {"food": 4.5},
		"month": "2024-03"
	}`, string(data))

	var back Summary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.BudgetRemaining.Equal(decimal.RequireFromString("95.5")))
}

func TestMonthHelpers(t *testing.T) {
	start, end := MonthBounds("2024-02")
	assert.Equal(t, "2024-02-01", start)
	assert.Equal(t, "2024-02-31", end)

	prev, err := ShiftMonth("2024-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2023-12", prev)

	_, err = ShiftMonth("2024-1", 1)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}
