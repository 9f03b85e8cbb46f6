package cycle

import (
	"time"

	"github.com/warp/settlement-engine/calendar"
)

// =============================================================================
// CYCLE - Resolved window
// =============================================================================

// Cycle is an inclusive window [Start, End]. End sits one calendar.Tick before
// the Start of the following cycle.
type Cycle struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains returns true if t is within [Start, End].
func (c Cycle) Contains(t time.Time) bool {
	return !t.Before(c.Start) && !t.After(c.End)
}

// IsZeroLength is true when End does not come after Start. This happens when
// both bi-monthly days clamp onto the same short-month day.
func (c Cycle) IsZeroLength() bool {
	return !c.End.After(c.Start)
}

// Check returns ErrZeroLengthCycle for a degenerate cycle.
func (c Cycle) Check() error {
	if c.IsZeroLength() {
		return ErrZeroLengthCycle
	}
	return nil
}

// Days returns how many calendar days the cycle covers.
func (c Cycle) Days() int {
	if c.IsZeroLength() {
		return 0
	}
	return calendar.DaysBetween(c.Start, c.End) + 1
}

func (c Cycle) String() string {
	return "[" + c.Start.Format("2006-01-02") + ", " + c.End.Format("2006-01-02") + "]"
}

// =============================================================================
// RESOLVE
// =============================================================================

// Resolve returns the cycle that is offset cycles away from the one containing
// ref. Offset 0 is the current cycle, negative offsets go back in time.
// Boundaries are computed in ref's location.
func Resolve(p Policy, offset int, ref time.Time) (Cycle, error) {
	if p == nil {
		return Cycle{}, &ConfigError{Field: "policy", Reason: "no cycle policy configured"}
	}
	if err := p.Validate(); err != nil {
		return Cycle{}, err
	}

	loc := ref.Location()
	switch v := p.(type) {
	case BiMonthlyDays:
		d1, d2 := v.ordered()
		boundary := func(idx int) time.Time {
			year, month := calendar.FromMonthIndex(calendar.FloorDiv(idx, 2))
			day := d1
			if idx-calendar.FloorDiv(idx, 2)*2 == 1 {
				day = d2
			}
			return calendar.Date(year, month, day, loc)
		}
		estimate := calendar.MonthIndex(ref.Year(), ref.Month())*2 + 1
		return resolveIndexed(ref, estimate, offset, boundary), nil

	case SingleMonthlyDay:
		boundary := func(idx int) time.Time {
			year, month := calendar.FromMonthIndex(idx)
			return calendar.Date(year, month, v.Day, loc)
		}
		return resolveIndexed(ref, calendar.MonthIndex(ref.Year(), ref.Month()), offset, boundary), nil

	case NthBusinessDay:
		boundary := func(idx int) time.Time {
			year, month := calendar.FromMonthIndex(idx)
			day, _ := calendar.NthBusinessDay(year, month, v.N, loc)
			return day
		}
		return resolveIndexed(ref, calendar.MonthIndex(ref.Year(), ref.Month()), offset, boundary), nil

	case WeeklyOnDay:
		shifted := calendar.AddDays(ref, offset*7)
		closing := calendar.NextWeekday(shifted, v.Weekday)
		return Cycle{
			Start: calendar.AddDays(closing, -6),
			End:   calendar.EndOfDay(closing),
		}, nil

	default:
		return Cycle{}, &ConfigError{Field: "policy", Value: p.Kind(), Reason: "unsupported cycle policy"}
	}
}

// resolveIndexed handles every policy whose boundaries form a monotone sequence
// indexed by an integer. The index containing ref is found by walking from an
// estimate, the offset is added to the index, and both boundary dates are
// derived from it. Working on the index instead of on dates is what keeps
// month lengths and half-month positions from drifting.
func resolveIndexed(ref time.Time, estimate, offset int, boundary func(int) time.Time) Cycle {
	k := estimate
	for boundary(k).After(ref) {
		k--
	}
	for !boundary(k + 1).After(ref) {
		k++
	}
	return Cycle{
		Start: boundary(k + offset),
		End:   boundary(k + offset + 1).Add(-calendar.Tick),
	}
}

// IsBusinessDayClamped reports whether an NthBusinessDay policy falls back to
// the last business day in the given month.
func (p NthBusinessDay) IsBusinessDayClamped(year int, month time.Month, loc *time.Location) bool {
	_, clamped := calendar.NthBusinessDay(year, month, p.N, loc)
	return clamped
}
