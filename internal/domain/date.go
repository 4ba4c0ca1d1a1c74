package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage form of all calendar dates.
const DateLayout = "2006-01-02"

// Date is a timezone-naive calendar date in YYYY-MM-DD form. The string
// form sorts lexicographically in chronological order, so every comparison
// in the ledger is a plain string compare. Never convert a Date to an
// instant for comparison: that is how the off-by-one-day timezone bugs
// happen.
type Date string

// ParseDate validates and normalizes a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	// Reject non-canonical forms like 2025-1-2 that time.Parse would
	// otherwise round-trip differently
	if t.Format(DateLayout) != s {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date(s), nil
}

// Today returns the current calendar date in the local timezone
func Today() Date {
	return Date(time.Now().Format(DateLayout))
}

func (d Date) String() string {
	return string(d)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d < other
}

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool {
	return d > other
}

// AddDays returns the date n calendar days after d
func (d Date) AddDays(n int) Date {
	t, _ := time.Parse(DateLayout, string(d))
	return Date(t.AddDate(0, 0, n).Format(DateLayout))
}

// Next returns the following calendar day
func (d Date) Next() Date {
	return d.AddDays(1)
}

// DaysUntil returns the number of whole days from d to other, negative when
// other is earlier
func (d Date) DaysUntil(other Date) int {
	from, _ := time.Parse(DateLayout, string(d))
	to, _ := time.Parse(DateLayout, string(other))
	return int(to.Sub(from).Hours() / 24)
}

// MinDate returns the earlier of two dates
func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}
