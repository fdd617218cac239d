package model

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar day format used in flags, state and snapshots.
const DayLayout = "2006-01-02"

// Day truncates a timestamp to its UTC calendar day.
func Day(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD day in UTC.
func ParseDay(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("day is empty")
	}
	day, err := time.ParseInLocation(DayLayout, input, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", input, err)
	}
	return day, nil
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return Day(day).Format(DayLayout)
}
