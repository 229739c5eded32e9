package dates

import (
	"fmt"
	"time"
)

const monthFormat = "2006-01"

// Month identifies a budgeting period with month granularity.
type Month struct {
	year  int
	month time.Month
}

func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{year: t.Year(), month: t.Month()}
}

// MonthOf returns the budgeting period containing t.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(str string) (Month, error) {
	t, err := time.Parse(monthFormat, str)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q want format %q: %w", str, monthFormat, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC).Format(monthFormat)
}

// Start returns the first day of the month at midnight UTC.
func (m Month) Start() time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the month at midnight UTC.
func (m Month) End() time.Time {
	return time.Date(m.year, m.month+1, 0, 0, 0, 0, 0, time.UTC)
}

func (m Month) Next() Month { return NewMonth(m.year, m.month+1) }
func (m Month) Prev() Month { return NewMonth(m.year, m.month-1) }

func (m Month) Before(x Month) bool {
	return m.year < x.year || (m.year == x.year && m.month < x.month)
}

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.year && t.Month() == m.month
}

// MonthsBetween counts whole calendar months from a to b, never negative.
func MonthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if months < 0 {
		return 0
	}
	return months
}
