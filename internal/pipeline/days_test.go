package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSplitDays(t *testing.T) {
	got, err := SplitDays(date(2024, 2, 27), date(2024, 3, 1).Add(15*time.Hour))
	require.NoError(t, err)

	want := []time.Time{
		date(2024, 2, 27),
		date(2024, 2, 28),
		date(2024, 2, 29),
		date(2024, 3, 1),
	}
	assert.Equal(t, want, got)
}

func TestSplitDaysSingle(t *testing.T) {
	got, err := SplitDays(date(2024, 6, 30), date(2024, 6, 30))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 6, 30)}, got)
}

func TestSplitDaysInvalid(t *testing.T) {
	_, err := SplitDays(date(2024, 6, 30), date(2024, 6, 29))
	assert.Error(t, err)
}
