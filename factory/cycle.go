package factory

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/warp/settlement-engine/cycle"
)

// =============================================================================
// CYCLE POLICY
// =============================================================================

// CycleJSON is the stored form of a cycle policy. Values may be JSON numbers
// or numeric strings.
type CycleJSON struct {
	Kind   string         `json:"kind" validate:"required,oneof=bimonthly_days single_monthly_day nth_business_day weekly_on_day"`
	Values map[string]any `json:"values"`
}

// ParseCycle decodes and builds a cycle policy.
func (f *Factory) ParseCycle(data []byte) (cycle.Policy, error) {
	var cj CycleJSON
	if err := decode(data, &cj); err != nil {
		return nil, err
	}
	return f.CycleFromJSON(cj)
}

// CycleFromJSON builds and validates a policy. Bad kinds and values are
// reported as *cycle.ConfigError.
func (f *Factory) CycleFromJSON(cj CycleJSON) (cycle.Policy, error) {
	if err := f.Struct(cj); err != nil {
		return nil, &cycle.ConfigError{Field: "kind", Value: cj.Kind, Reason: "unknown cycle kind"}
	}

	var p cycle.Policy
	switch cycle.Kind(cj.Kind) {
	case cycle.KindBiMonthlyDays:
		one, err := intValue(cj.Values, "day_one")
		if err != nil {
			return nil, err
		}
		two, err := intValue(cj.Values, "day_two")
		if err != nil {
			return nil, err
		}
		p = cycle.BiMonthlyDays{DayOne: one, DayTwo: two}
	case cycle.KindSingleMonthlyDay:
		day, err := intValue(cj.Values, "day")
		if err != nil {
			return nil, err
		}
		p = cycle.SingleMonthlyDay{Day: day}
	case cycle.KindNthBusinessDay:
		n, err := intValue(cj.Values, "n")
		if err != nil {
			return nil, err
		}
		p = cycle.NthBusinessDay{N: n}
	case cycle.KindWeeklyOnDay:
		wd, err := intValue(cj.Values, "weekday")
		if err != nil {
			return nil, err
		}
		p = cycle.WeeklyOnDay{Weekday: time.Weekday(wd)}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// CycleToJSON is the inverse of CycleFromJSON.
func CycleToJSON(p cycle.Policy) CycleJSON {
	cj := CycleJSON{Values: map[string]any{}}
	if p == nil {
		return cj
	}
	cj.Kind = string(p.Kind())
	switch v := p.(type) {
	case cycle.BiMonthlyDays:
		cj.Values["day_one"] = v.DayOne
		cj.Values["day_two"] = v.DayTwo
	case cycle.SingleMonthlyDay:
		cj.Values["day"] = v.Day
	case cycle.NthBusinessDay:
		cj.Values["n"] = v.N
	case cycle.WeeklyOnDay:
		cj.Values["weekday"] = int(v.Weekday)
	}
	return cj
}

// intValue reads an integral value. Missing, fractional and non-numeric
// values fail closed.
func intValue(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok || raw == nil {
		return 0, &cycle.ConfigError{Field: key, Value: nil, Reason: "missing"}
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, &cycle.ConfigError{Field: key, Value: v, Reason: "not an integer"}
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &cycle.ConfigError{Field: key, Value: v, Reason: "not numeric"}
		}
		return n, nil
	default:
		return 0, &cycle.ConfigError{Field: key, Value: fmt.Sprint(raw), Reason: "not numeric"}
	}
}
