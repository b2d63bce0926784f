package core

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Amount is a non-negative currency value kept as its decimal text so it
// round-trips exactly. Arithmetic goes through Decimal.
type Amount string

// ParseAmount trims s and accepts a dot or comma decimal separator.
func ParseAmount(s string) (Amount, error) {
	a := Amount(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}

func (a Amount) Validate() error {
	if !amountPattern.MatchString(string(a)) {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the parsed value, or zero if a is not a valid amount.
func (a Amount) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(string(a))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) String() string { return string(a) }

// Number is a decimal that encodes as a bare JSON number (4.5, not "4.5").
type Number struct {
	decimal.Decimal
}

func NewNumber(d decimal.Decimal) Number { return Number{Decimal: d} }

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// NullableString distinguishes an absent JSON field from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// NormalizeNotes maps blank notes to nil so an empty string is never stored.
func NormalizeNotes(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return p
}

// SetNotes is shorthand for a patch that sets the field to s.
func SetNotes(s string) NullableString {
	return NullableString{Set: true, Value: &s}
}

// ClearNotes is a patch value that nulls the field.
func ClearNotes() NullableString {
	return NullableString{Set: true}
}
