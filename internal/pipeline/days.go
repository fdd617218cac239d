package pipeline

import (
	"fmt"
	"time"

	"smartscore/internal/model"
)

// SplitDays returns every calendar day in [from, to], oldest first.
func SplitDays(from, to time.Time) ([]time.Time, error) {
	from, to = model.Day(from), model.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("to day must be >= from day")
	}

	days := make([]time.Time, 0)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days, nil
}
