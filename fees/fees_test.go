package fees_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/settlement-engine/fees"
)

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tieredSchedule() fees.Schedule {
	return fees.Schedule{
		DebitFee:       pct("1.99"),
		CreditFeeType:  fees.CreditTiered,
		FixedCreditFee: pct("3.50"),
		Tiers: []fees.Tier{
			{Installments: 1, Fee: pct("4.99")},
			{Installments: 6, Fee: pct("12.00")},
			{Installments: 12, Fee: pct("18.00")},
		},
	}
}

func assertFee(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, pct(want).Equal(got), "want %s, got %s", want, got)
}

func TestResolve_TierSelection(t *testing.T) {
	s := tieredSchedule()

	assertFee(t, "4.99", fees.Resolve(s, fees.MethodCredit, 1))
	assertFee(t, "12.00", fees.Resolve(s, fees.MethodCredit, 3))
	assertFee(t, "12.00", fees.Resolve(s, fees.MethodCredit, 6))
	assertFee(t, "18.00", fees.Resolve(s, fees.MethodCredit, 7))
	assertFee(t, "18.00", fees.Resolve(s, fees.MethodCredit, 20))
}

func TestResolve_ZeroInstallmentsTreatedAsOne(t *testing.T) {
	assertFee(t, "4.99", fees.Resolve(tieredSchedule(), fees.MethodCredit, 0))
}

func TestResolve_DebitIgnoresInstallments(t *testing.T) {
	assertFee(t, "1.99", fees.Resolve(tieredSchedule(), fees.MethodDebit, 12))
}

func TestResolve_FixedCredit(t *testing.T) {
	s := tieredSchedule()
	s.CreditFeeType = fees.CreditFixed

	assertFee(t, "3.50", fees.Resolve(s, fees.MethodCredit, 10))
}

func TestResolve_NonCardMethodsAreFree(t *testing.T) {
	s := tieredSchedule()
	for _, m := range []fees.Method{fees.MethodCash, fees.MethodPix, fees.MethodOther} {
		assert.True(t, fees.Resolve(s, m, 1).IsZero(), "%s should be free", m)
	}
}

func TestResolve_EmptyTiersFallBackToFixedFee(t *testing.T) {
	s := tieredSchedule()
	s.Tiers = nil

	assertFee(t, "3.50", fees.Resolve(s, fees.MethodCredit, 3))
}

func TestResolve_UnsortedTiersWithDuplicates(t *testing.T) {
	// GIVEN: tiers inserted out of order, 6 installments declared twice
	// THEN: the later declaration wins and selection still uses ascending order
	s := fees.Schedule{
		CreditFeeType: fees.CreditTiered,
		Tiers: []fees.Tier{
			{Installments: 12, Fee: pct("18.00")},
			{Installments: 6, Fee: pct("12.00")},
			{Installments: 1, Fee: pct("4.99")},
			{Installments: 6, Fee: pct("11.00")},
		},
	}

	assertFee(t, "11.00", fees.Resolve(s, fees.MethodCredit, 3))
	assert.Len(t, s.NormalizedTiers(), 3)
	assert.Len(t, s.Tiers, 4, "resolution must not mutate the schedule")
}

func TestAddTier_KeepsOrderAndReplaces(t *testing.T) {
	var s fees.Schedule
	s.AddTier(fees.Tier{Installments: 12, Fee: pct("18")})
	s.AddTier(fees.Tier{Installments: 1, Fee: pct("4.99")})
	s.AddTier(fees.Tier{Installments: 6, Fee: pct("12")})
	s.AddTier(fees.Tier{Installments: 6, Fee: pct("10")})

	got := make([]int, 0, len(s.Tiers))
	for _, tier := range s.Tiers {
		got = append(got, tier.Installments)
	}
	assert.Equal(t, []int{1, 6, 12}, got)
	assertFee(t, "10", s.Tiers[1].Fee)
}

func TestFeeAmount(t *testing.T) {
	s := tieredSchedule()

	assertFee(t, "12.00", fees.FeeAmount(s, fees.MethodCredit, 3, pct("100")))
	assertFee(t, "9.98", fees.FeeAmount(s, fees.MethodCredit, 1, pct("200")))
	assert.True(t, fees.FeeAmount(s, fees.MethodCash, 1, pct("100")).IsZero())
}
