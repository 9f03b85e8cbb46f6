/*
Package cycle resolves payment cycle boundaries.

PURPOSE:
  A salon settles its workers over recurring payment cycles. How those cycles
  are cut is a configuration choice: twice a month on two fixed days, once a
  month on a fixed day, on the n-th business day of the month, or weekly on a
  fixed weekday. This package turns that choice plus an offset into a concrete
  [Start, End] window.

KEY CONCEPTS (policy.go):
  - Policy: sealed sum type, exactly one of the four variants below
  - Offset: distance in cycles from the current one (0 = current, -1 = previous)
  - Cycle: inclusive window, End is 23:59:59.999 of the last day

POLICY VARIANTS:
  BiMonthlyDays{5, 20}     [5th, 20th) and [20th, next month's 5th)
  SingleMonthlyDay{5}      [5th, next month's 5th)
  NthBusinessDay{5}        [5th business day, next month's 5th business day)
  WeeklyOnDay{Saturday}    seven days ending on (and including) each Saturday

FAILURE SEMANTICS:
  Bad values never produce a cycle. Validate() and Resolve() return a
  *ConfigError that unwraps to ErrInvalidCycleConfig.

SEE ALSO:
  - resolve.go: Boundary algorithms
  - proration.go: Monthly amounts scaled to one cycle
  - factory/cycle.go: JSON -> Policy
*/
package cycle

import (
	"fmt"
	"time"
)

// =============================================================================
// POLICY - Sealed sum type
// =============================================================================

// Kind is the discriminant of a Policy.
type Kind string

const (
	KindBiMonthlyDays    Kind = "bimonthly_days"
	KindSingleMonthlyDay Kind = "single_monthly_day"
	KindNthBusinessDay   Kind = "nth_business_day"
	KindWeeklyOnDay      Kind = "weekly_on_day"
)

// Policy is one of BiMonthlyDays, SingleMonthlyDay, NthBusinessDay or
// WeeklyOnDay. The unexported marker keeps the set closed.
type Policy interface {
	Kind() Kind
	Validate() error
	// Key is a stable textual identity used in cache keys.
	Key() string
	isPolicy()
}

// BiMonthlyDays cuts two cycles per month on two calendar days.
type BiMonthlyDays struct {
	DayOne int
	DayTwo int
}

// SingleMonthlyDay cuts one cycle per month on a calendar day.
type SingleMonthlyDay struct {
	Day int
}

// NthBusinessDay cuts one cycle per month on the n-th Monday-to-Friday day.
type NthBusinessDay struct {
	N int
}

// WeeklyOnDay closes a cycle every week on Weekday.
type WeeklyOnDay struct {
	Weekday time.Weekday
}

func (BiMonthlyDays) isPolicy()    {}
func (SingleMonthlyDay) isPolicy() {}
func (NthBusinessDay) isPolicy()   {}
func (WeeklyOnDay) isPolicy()      {}

func (BiMonthlyDays) Kind() Kind    { return KindBiMonthlyDays }
func (SingleMonthlyDay) Kind() Kind { return KindSingleMonthlyDay }
func (NthBusinessDay) Kind() Kind   { return KindNthBusinessDay }
func (WeeklyOnDay) Kind() Kind      { return KindWeeklyOnDay }

func (p BiMonthlyDays) Key() string {
	d1, d2 := p.ordered()
	return fmt.Sprintf("%s:%d:%d", p.Kind(), d1, d2)
}

func (p SingleMonthlyDay) Key() string { return fmt.Sprintf("%s:%d", p.Kind(), p.Day) }
func (p NthBusinessDay) Key() string   { return fmt.Sprintf("%s:%d", p.Kind(), p.N) }
func (p WeeklyOnDay) Key() string      { return fmt.Sprintf("%s:%d", p.Kind(), int(p.Weekday)) }

// =============================================================================
// VALIDATION
// =============================================================================

func (p BiMonthlyDays) Validate() error {
	if err := validDay("day_one", p.DayOne); err != nil {
		return err
	}
	if err := validDay("day_two", p.DayTwo); err != nil {
		return err
	}
	if p.DayOne == p.DayTwo {
		return &ConfigError{Field: "day_two", Value: p.DayTwo, Reason: "both days of a bi-monthly cycle must differ"}
	}
	return nil
}

func (p SingleMonthlyDay) Validate() error {
	return validDay("day", p.Day)
}

func (p NthBusinessDay) Validate() error {
	if p.N <= 0 {
		return &ConfigError{Field: "n", Value: p.N, Reason: "business day index must be positive"}
	}
	return nil
}

func (p WeeklyOnDay) Validate() error {
	if p.Weekday < time.Sunday || p.Weekday > time.Saturday {
		return &ConfigError{Field: "weekday", Value: int(p.Weekday), Reason: "weekday must be between 0 (Sunday) and 6 (Saturday)"}
	}
	return nil
}

func validDay(field string, day int) error {
	if day < 1 || day > 31 {
		return &ConfigError{Field: field, Value: day, Reason: "day must be between 1 and 31"}
	}
	return nil
}

// ordered returns the two days with the smaller one first.
func (p BiMonthlyDays) ordered() (int, int) {
	if p.DayOne > p.DayTwo {
		return p.DayTwo, p.DayOne
	}
	return p.DayOne, p.DayTwo
}
