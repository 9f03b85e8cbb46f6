package factory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// CYCLE POLICY
// =============================================================================

func TestParseCycle_AllKinds(t *testing.T) {
	f := factory.New()

	tests := []struct {
		name string
		json string
		want cycle.Policy
	}{
		{"bimonthly", `{"kind":"bimonthly_days","values":{"day_one":5,"day_two":20}}`, cycle.BiMonthlyDays{DayOne: 5, DayTwo: 20}},
		{"single as string", `{"kind":"single_monthly_day","values":{"day":" 5"}}`, cycle.SingleMonthlyDay{Day: 5}},
		{"business day", `{"kind":"nth_business_day","values":{"n":5}}`, cycle.NthBusinessDay{N: 5}},
		{"weekly", `{"kind":"weekly_on_day","values":{"weekday":6}}`, cycle.WeeklyOnDay{Weekday: time.Saturday}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ParseCycle([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCycle_FailsClosed(t *testing.T) {
	f := factory.New()

	for _, raw := range []string{
		`{"kind":"single_monthly_day","values":{"day":"fifth"}}`,
		`{"kind":"single_monthly_day","values":{"day":5.5}}`,
		`{"kind":"single_monthly_day","values":{}}`,
		`{"kind":"weekly_on_day","values":{"weekday":7}}`,
		`{"kind":"nth_business_day","values":{"n":0}}`,
		`{"kind":"bimonthly_days","values":{"day_one":10,"day_two":10}}`,
		`{"kind":"fortnightly","values":{}}`,
	} {
		_, err := f.ParseCycle([]byte(raw))
		assert.ErrorIs(t, err, cycle.ErrInvalidCycleConfig, raw)
	}
}

func TestCycleToJSON_RoundTrip(t *testing.T) {
	f := factory.New()
	for _, p := range []cycle.Policy{
		cycle.BiMonthlyDays{DayOne: 1, DayTwo: 16},
		cycle.SingleMonthlyDay{Day: 31},
		cycle.NthBusinessDay{N: 3},
		cycle.WeeklyOnDay{Weekday: time.Monday},
	} {
		got, err := f.CycleFromJSON(factory.CycleToJSON(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

// =============================================================================
// FEES
// =============================================================================

func TestParseFees(t *testing.T) {
	f := factory.New()

	s, err := f.ParseFees([]byte(`{
		"debit_fee": "1.99",
		"credit_fee_type": "tiered",
		"fixed_credit_fee": 3.5,
		"tiers": [
			{"installments": 12, "fee": "18"},
			{"installments": 1, "fee": "4.99"},
			{"installments": 6, "fee": "12"},
			{"installments": 6, "fee": "11"}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, fees.BearerSalon, s.FeeBearer)
	require.Len(t, s.Tiers, 3)
	assert.Equal(t, 1, s.Tiers[0].Installments)
	assert.Equal(t, "11", s.Tiers[1].Fee.String())
	assert.Equal(t, "11", fees.Resolve(s, fees.MethodCredit, 3).String())
}

func TestParseFees_Rejects(t *testing.T) {
	f := factory.New()

	for _, raw := range []string{
		`{"credit_fee_type":"weird"}`,
		`{"credit_fee_type":"fixed","debit_fee":"-1"}`,
		`{"credit_fee_type":"tiered","tiers":[{"installments":0,"fee":"2"}]}`,
		`{"credit_fee_type":"tiered","tiers":[{"installments":2,"fee":"101"}]}`,
		`{"credit_fee_type":"fixed","fee_bearer":"customer"}`,
		`not json`,
	} {
		_, err := f.ParseFees([]byte(raw))
		assert.ErrorIs(t, err, factory.ErrValidation, raw)
	}
}

// =============================================================================
// ROSTER
// =============================================================================

func TestParseProfessional(t *testing.T) {
	f := factory.New()

	p, err := f.ParseProfessional([]byte(`{
		"id": "p-1", "name": "Ana", "employment": "salaried",
		"fixed_salary": "2000", "salary_active": true,
		"commission_rate": "40",
		"commission_overrides": [{"item_id": "color", "rate": "50"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, settlement.Salaried, p.Employment)
	assert.Equal(t, settlement.SalonSource, p.SalarySource)
	require.Len(t, p.CommissionOverrides, 1)
	assert.True(t, decimal.NewFromInt(50).Equal(p.CommissionOverrides[0].Rate))
}

func TestParseProfessional_Rejects(t *testing.T) {
	f := factory.New()

	_, err := f.ParseProfessional([]byte(`{"id":"p-1","employment":"intern","commission_rate":"140"}`))
	require.ErrorIs(t, err, factory.ErrValidation)

	var vErr *factory.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "name")
	assert.Contains(t, vErr.Fields, "employment")
}

func TestValidateRoster(t *testing.T) {
	pro := func(id, source string) settlement.Professional {
		return settlement.Professional{ID: id, Name: id, Employment: settlement.Salaried, SalarySource: source}
	}

	t.Run("chains are fine", func(t *testing.T) {
		assert.NoError(t, factory.ValidateRoster([]settlement.Professional{
			pro("a", "b"), pro("b", "c"), pro("c", settlement.SalonSource), pro("d", ""),
		}))
	})

	t.Run("unknown source", func(t *testing.T) {
		err := factory.ValidateRoster([]settlement.Professional{pro("a", "ghost")})
		assert.ErrorIs(t, err, factory.ErrUnknownSalarySource)
	})

	t.Run("two node loop", func(t *testing.T) {
		err := factory.ValidateRoster([]settlement.Professional{pro("a", "b"), pro("b", "a")})
		assert.ErrorIs(t, err, factory.ErrSalarySourceCycle)
	})

	t.Run("self loop", func(t *testing.T) {
		err := factory.ValidateRoster([]settlement.Professional{pro("a", "a")})
		assert.ErrorIs(t, err, factory.ErrSalarySourceCycle)
	})

	t.Run("loop reached from a tail", func(t *testing.T) {
		err := factory.ValidateRoster([]settlement.Professional{
			pro("x", "a"), pro("a", "b"), pro("b", "c"), pro("c", "a"),
		})
		assert.ErrorIs(t, err, factory.ErrSalarySourceCycle)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		err := factory.ValidateRoster([]settlement.Professional{pro("a", ""), pro("a", "")})
		assert.ErrorIs(t, err, factory.ErrValidation)
	})
}
