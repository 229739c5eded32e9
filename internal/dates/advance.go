package dates

import (
	"fmt"
	"strings"
	"time"
)

type Frequency string

const (
	Daily    Frequency = "daily"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

func ParseFrequency(raw string) (Frequency, error) {
	switch strings.ToLower(raw) {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "biweekly":
		return Biweekly, nil
	case "monthly":
		return Monthly, nil
	case "yearly":
		return Yearly, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", raw)
	}
}

// Advance moves a due date forward by one frequency unit. Monthly and
// yearly steps clamp to the end of the target month, with anchorDay
// preserving the original day-of-month across short months
// (Jan 31 -> Feb 29 -> Mar 31). anchorDay <= 0 falls back to the
// current day of from.
func Advance(from time.Time, freq Frequency, anchorDay int) time.Time {
	switch freq {
	case Daily:
		return from.AddDate(0, 0, 1)
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Biweekly:
		return from.AddDate(0, 0, 14)
	case Monthly:
		return clampedMonthAdd(from, 1, anchorDay)
	case Yearly:
		return clampedMonthAdd(from, 12, anchorDay)
	default:
		return from.AddDate(0, 1, 0)
	}
}

func clampedMonthAdd(from time.Time, months, anchorDay int) time.Time {
	day := anchorDay
	if day <= 0 {
		day = from.Day()
	}
	firstOfTarget := time.Date(from.Year(), from.Month()+time.Month(months), 1, 0, 0, 0, 0, from.Location())
	lastDay := daysIn(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, from.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
