package factory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/fees"
)

// =============================================================================
// FEE SCHEDULE
// =============================================================================

// FeeJSON is the stored form of a fee schedule.
type FeeJSON struct {
	DebitFee       decimal.Decimal `json:"debit_fee"`
	CreditFeeType  string          `json:"credit_fee_type" validate:"required,oneof=fixed tiered"`
	FixedCreditFee decimal.Decimal `json:"fixed_credit_fee"`
	Tiers          []TierJSON      `json:"tiers" validate:"dive"`
	FeeBearer      string          `json:"fee_bearer" validate:"omitempty,oneof=salon employee"`
}

// TierJSON is one row of the credit tier table.
type TierJSON struct {
	Installments int             `json:"installments" validate:"min=1,max=48"`
	Fee          decimal.Decimal `json:"fee"`
}

var maxPercent = decimal.NewFromInt(100)

// ParseFees decodes and builds a fee schedule.
func (f *Factory) ParseFees(data []byte) (fees.Schedule, error) {
	var fj FeeJSON
	if err := decode(data, &fj); err != nil {
		return fees.Schedule{}, err
	}
	return f.FeesFromJSON(fj)
}

// FeesFromJSON validates percentages and builds the schedule. Tiers are added
// in document order, so a repeated installment count keeps the later fee.
func (f *Factory) FeesFromJSON(fj FeeJSON) (fees.Schedule, error) {
	if err := f.Struct(fj); err != nil {
		return fees.Schedule{}, err
	}

	bad := map[string]string{}
	checkPercent(bad, "debit_fee", fj.DebitFee)
	checkPercent(bad, "fixed_credit_fee", fj.FixedCreditFee)
	for i, t := range fj.Tiers {
		checkPercent(bad, fmt.Sprintf("tiers[%d].fee", i), t.Fee)
	}
	if len(bad) > 0 {
		return fees.Schedule{}, &ValidationError{Fields: bad}
	}

	s := fees.Schedule{
		DebitFee:       fj.DebitFee,
		CreditFeeType:  fees.CreditFeeType(fj.CreditFeeType),
		FixedCreditFee: fj.FixedCreditFee,
		Tiers:          []fees.Tier{},
		FeeBearer:      fees.BearerSalon,
	}
	if fj.FeeBearer != "" {
		s.FeeBearer = fees.Bearer(fj.FeeBearer)
	}
	for _, t := range fj.Tiers {
		s.AddTier(fees.Tier{Installments: t.Installments, Fee: t.Fee})
	}
	return s, nil
}

// FeesToJSON is the inverse of FeesFromJSON.
func FeesToJSON(s fees.Schedule) FeeJSON {
	fj := FeeJSON{
		DebitFee:       s.DebitFee,
		CreditFeeType:  string(s.CreditFeeType),
		FixedCreditFee: s.FixedCreditFee,
		Tiers:          make([]TierJSON, 0, len(s.Tiers)),
		FeeBearer:      string(s.FeeBearer),
	}
	for _, t := range s.NormalizedTiers() {
		fj.Tiers = append(fj.Tiers, TierJSON{Installments: t.Installments, Fee: t.Fee})
	}
	return fj
}

func checkPercent(bad map[string]string, field string, v decimal.Decimal) {
	if v.IsNegative() || v.GreaterThan(maxPercent) {
		bad[field] = "must be between 0 and 100"
	}
}
