package cycle

import "github.com/shopspring/decimal"

// WeeksPerMonth is the divisor used to turn a monthly amount into a weekly one.
var WeeksPerMonth = decimal.RequireFromString("4.33")

// ProrationDivisor returns how many cycles of the policy make up one month.
func ProrationDivisor(p Policy) decimal.Decimal {
	switch p.(type) {
	case BiMonthlyDays:
		return decimal.NewFromInt(2)
	case WeeklyOnDay:
		return WeeksPerMonth
	default:
		return decimal.NewFromInt(1)
	}
}

// Prorate scales a monthly amount (salary, rent) to one cycle of the policy.
// A zero-length cycle cannot be prorated, the monthly figure is returned as is.
func Prorate(monthly decimal.Decimal, p Policy, c Cycle) decimal.Decimal {
	if c.IsZeroLength() || p == nil {
		return monthly
	}
	return monthly.Div(ProrationDivisor(p)).Round(2)
}
