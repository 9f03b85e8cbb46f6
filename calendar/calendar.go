/*
Package calendar provides the date arithmetic the cycle calculator is built on.

PURPOSE:
  Every cycle boundary is a calendar day: a fixed day of the month, the n-th
  business day of a month, or a weekday. This package keeps that arithmetic in
  one place so the cycle calculator never does raw time.AddDate math on
  boundary days.

KEY CONCEPTS:
  - Day: a time truncated to midnight in its own location
  - EndOfDay: 23:59:59.999 of a day (cycles are inclusive on both ends)
  - Tick: the 1ms gap between the end of one cycle and the start of the next
  - Business day: Monday to Friday. Holidays are not considered.

CLAMPING:
  Month days are clamped to the length of the month. Day 31 in February is the
  28th (or 29th). This is what keeps "day 31" policies from spilling into the
  next month.

SEE ALSO:
  - cycle/resolve.go: Uses these helpers for boundary dates
*/
package calendar

import "time"

// Tick is the resolution of cycle boundaries. A cycle ends one Tick before the
// next one starts.
const Tick = time.Millisecond

// =============================================================================
// DAY HELPERS
// =============================================================================

// StartOfDay returns midnight of t's day, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day, in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-Tick)
}

// AddDays shifts a day by n calendar days, keeping midnight alignment across DST.
func AddDays(t time.Time, n int) time.Time {
	d := StartOfDay(t)
	return time.Date(d.Year(), d.Month(), d.Day()+n, 0, 0, 0, 0, d.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Date builds midnight of (year, month, day), clamping day into [1, DaysIn].
// Month overflow is normalized the way time.Date does it.
func Date(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := DaysIn(first.Year(), first.Month(), loc)
	if day < 1 {
		day = 1
	}
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

// DaysBetween returns the whole calendar days from one day to another.
func DaysBetween(from, to time.Time) int {
	a := StartOfDay(from)
	b := StartOfDay(to)
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// =============================================================================
// MONTH INDEX
// =============================================================================

// MonthIndex encodes (year, month) as a single integer so offsets can be added
// without caring about year boundaries.
func MonthIndex(year int, month time.Month) int {
	return year*12 + int(month-1)
}

// FromMonthIndex decodes MonthIndex. Negative remainders are floored.
func FromMonthIndex(idx int) (int, time.Month) {
	year := FloorDiv(idx, 12)
	return year, time.Month(idx-year*12) + 1
}

// FloorDiv is integer division rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// =============================================================================
// BUSINESS DAYS
// =============================================================================

// IsBusinessDay reports whether t falls Monday to Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDaysIn counts Monday to Friday days of a month.
func BusinessDaysIn(year int, month time.Month, loc *time.Location) int {
	n := 0
	days := DaysIn(year, month, loc)
	for d := 1; d <= days; d++ {
		if IsBusinessDay(time.Date(year, month, d, 0, 0, 0, 0, loc)) {
			n++
		}
	}
	return n
}

// NthBusinessDay returns the n-th business day of a month, counting from the 1st.
// When the month has fewer than n business days the last business day is
// returned and clamped is true. n must be positive.
func NthBusinessDay(year int, month time.Month, n int, loc *time.Location) (day time.Time, clamped bool) {
	days := DaysIn(year, month, loc)
	count := 0
	var last time.Time
	for d := 1; d <= days; d++ {
		t := time.Date(year, month, d, 0, 0, 0, 0, loc)
		if !IsBusinessDay(t) {
			continue
		}
		count++
		last = t
		if count == n {
			return t, false
		}
	}
	return last, true
}

// =============================================================================
// WEEKDAYS
// =============================================================================

// NextWeekday returns the first day on or after from that falls on weekday.
func NextWeekday(from time.Time, weekday time.Weekday) time.Time {
	diff := (int(weekday) - int(from.Weekday()) + 7) % 7
	return AddDays(from, diff)
}
