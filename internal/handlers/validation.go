package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/henriquedevops/pgbudget-sub003/internal/dates"
	"github.com/henriquedevops/pgbudget-sub003/internal/money"
)

var errInvalidAmount = errors.New("invalid amount")
var errInvalidDate = errors.New("invalid date")

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParseMinor(raw)
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return parsed, nil
}

// periodFromQuery reads ?month=YYYY-MM, defaulting to the current month.
func periodFromQuery(r *http.Request) (dates.Month, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return dates.MonthOf(time.Now().UTC()), nil
	}
	return dates.ParseMonth(raw)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
