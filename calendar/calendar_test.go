package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/settlement-engine/calendar"
)

func TestDate_ClampsToMonthLength(t *testing.T) {
	cases := []struct {
		name  string
		year  int
		month time.Month
		day   int
		want  time.Time
	}{
		{"leap february", 2024, time.February, 31, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{"common february", 2023, time.February, 30, time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC)},
		{"april 31", 2024, time.April, 31, time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)},
		{"day zero", 2024, time.May, 0, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"month overflow", 2024, time.Month(13), 31, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)},
		{"month underflow", 2024, time.Month(0), 31, time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calendar.Date(tc.year, tc.month, tc.day, time.UTC))
		})
	}
}

func TestDayBoundaries(t *testing.T) {
	at := time.Date(2024, time.March, 9, 17, 45, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC), calendar.StartOfDay(at))
	assert.Equal(t, time.Date(2024, time.March, 9, 23, 59, 59, int(999*time.Millisecond), time.UTC), calendar.EndOfDay(at))
	assert.Equal(t, calendar.StartOfDay(at).AddDate(0, 0, 1), calendar.EndOfDay(at).Add(calendar.Tick))
}

func TestAddDays_KeepsMidnightAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-03-10 is the spring-forward day in New York
	from := time.Date(2024, time.March, 9, 0, 0, 0, 0, loc)

	got := calendar.AddDays(from, 2)

	assert.Equal(t, 11, got.Day())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 2, calendar.DaysBetween(from, got))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, time.January, 30, 22, 0, 0, 0, time.UTC)
	b := time.Date(2024, time.March, 1, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 31, calendar.DaysBetween(a, b))
	assert.Equal(t, -31, calendar.DaysBetween(b, a))
	assert.Equal(t, 0, calendar.DaysBetween(a, a.Add(time.Hour)))
}

func TestMonthIndex_RoundTripsAcrossYears(t *testing.T) {
	idx := calendar.MonthIndex(2024, time.January)

	y, m := calendar.FromMonthIndex(idx - 1)
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)

	y, m = calendar.FromMonthIndex(idx + 25)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.February, m)

	assert.Equal(t, -1, calendar.FloorDiv(-1, 12))
	assert.Equal(t, -2, calendar.FloorDiv(-13, 12))
	assert.Equal(t, 1, calendar.FloorDiv(12, 12))
}

func TestNthBusinessDay(t *testing.T) {
	// June 2024 starts on a Saturday
	day, clamped := calendar.NthBusinessDay(2024, time.June, 1, time.UTC)
	assert.False(t, clamped)
	assert.Equal(t, time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC), day)

	day, clamped = calendar.NthBusinessDay(2024, time.June, 5, time.UTC)
	assert.False(t, clamped)
	assert.Equal(t, 7, day.Day())

	assert.Equal(t, 20, calendar.BusinessDaysIn(2024, time.June, time.UTC))
	day, clamped = calendar.NthBusinessDay(2024, time.June, 25, time.UTC)
	assert.True(t, clamped)
	assert.Equal(t, time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC), day)
}

func TestNextWeekday(t *testing.T) {
	wed := time.Date(2024, time.July, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.July, 12, 0, 0, 0, 0, time.UTC), calendar.NextWeekday(wed, time.Friday))
	assert.Equal(t, time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC), calendar.NextWeekday(wed, time.Wednesday))
	assert.Equal(t, time.Date(2024, time.July, 16, 0, 0, 0, 0, time.UTC), calendar.NextWeekday(wed, time.Tuesday))
	assert.True(t, calendar.IsBusinessDay(wed))
	assert.False(t, calendar.IsBusinessDay(time.Date(2024, time.July, 14, 0, 0, 0, 0, time.UTC)))
}
