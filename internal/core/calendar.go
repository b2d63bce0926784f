package core

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// ValidateDate requires a real calendar day in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if len(s) != len(DateLayout) {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateMonth requires YYYY-MM with a month between 01 and 12.
func ValidateMonth(s string) error {
	if len(s) != len(MonthLayout) {
		return ErrInvalidMonth
	}
	if _, err := time.Parse(MonthLayout, s); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// MonthOf formats t as YYYY-MM in t's location.
func MonthOf(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthBounds returns the inclusive lexicographic date range used to select
// a month's expenses. The upper bound is always day 31; since it is only
// compared against real ISO dates it still covers every day of the month.
func MonthBounds(month string) (start, end string) {
	return month + "-01", month + "-31"
}

// ShiftMonth moves a YYYY-MM month by delta months.
func ShiftMonth(month string, delta int) (string, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return t.AddDate(0, delta, 0).Format(MonthLayout), nil
}
