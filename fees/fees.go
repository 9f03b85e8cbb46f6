/*
Package fees resolves card processing fees.

PURPOSE:
  Every card payment costs the salon a percentage of the sale total. Debit
  payments have a single rate. Credit payments have either a single rate or a
  tiered table keyed by installment count.

TIER SELECTION:
  Given tiers {1: 4.99, 6: 12.00, 12: 18.00}:
    1 installment   -> 4.99   (smallest tier >= 1)
    3 installments  -> 12.00  (smallest tier >= 3)
    20 installments -> 18.00  (no tier >= 20, fall back to the largest)

  Tiers are kept sorted ascending by installment count. Two tiers declaring
  the same count collapse into the most recently added one.

FEE BEARER:
  Bearer does not change the salon-level cost line. It only decides whether
  worker payouts are charged their share of the fee (see settlement).

SEE ALSO:
  - settlement/aggregate.go: Card fee cost and worker fee deductions
  - factory/fees.go: JSON -> Schedule
*/
package fees

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TYPES
// =============================================================================

// Method is how a sale was paid.
type Method string

const (
	MethodCash   Method = "cash"
	MethodPix    Method = "pix"
	MethodDebit  Method = "debit"
	MethodCredit Method = "credit"
	MethodOther  Method = "other"
)

// Methods lists payment methods in reporting order.
var Methods = []Method{MethodCash, MethodPix, MethodDebit, MethodCredit, MethodOther}

// IsCard reports whether the method carries a processing fee.
func (m Method) IsCard() bool {
	return m == MethodDebit || m == MethodCredit
}

// CreditFeeType selects between a flat credit rate and the tier table.
type CreditFeeType string

const (
	CreditFixed  CreditFeeType = "fixed"
	CreditTiered CreditFeeType = "tiered"
)

// Bearer is who absorbs the card fee at payout time.
type Bearer string

const (
	BearerSalon    Bearer = "salon"
	BearerEmployee Bearer = "employee"
)

// Tier maps an installment threshold to a fee percentage.
type Tier struct {
	Installments int             `json:"installments"`
	Fee          decimal.Decimal `json:"fee"`
}

// Schedule is the active fee configuration. Percentages are expressed as
// numbers out of 100 (4.99 means 4.99%).
type Schedule struct {
	DebitFee       decimal.Decimal `json:"debit_fee"`
	CreditFeeType  CreditFeeType   `json:"credit_fee_type"`
	FixedCreditFee decimal.Decimal `json:"fixed_credit_fee"`
	Tiers          []Tier          `json:"tiers"`
	FeeBearer      Bearer          `json:"fee_bearer"`
}

// AddTier inserts a tier keeping ascending order. An existing tier with the
// same installment count is replaced.
func (s *Schedule) AddTier(t Tier) {
	for i := range s.Tiers {
		if s.Tiers[i].Installments == t.Installments {
			s.Tiers[i] = t
			return
		}
	}
	i := sort.Search(len(s.Tiers), func(i int) bool {
		return s.Tiers[i].Installments > t.Installments
	})
	s.Tiers = append(s.Tiers, Tier{})
	copy(s.Tiers[i+1:], s.Tiers[i:])
	s.Tiers[i] = t
}

// NormalizedTiers returns the tiers sorted ascending with duplicates resolved
// last-write-wins. The receiver is not modified.
func (s Schedule) NormalizedTiers() []Tier {
	var out Schedule
	for _, t := range s.Tiers {
		out.AddTier(t)
	}
	return out.Tiers
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolve returns the fee percentage for a payment.
func Resolve(s Schedule, method Method, installments int) decimal.Decimal {
	switch method {
	case MethodDebit:
		return s.DebitFee
	case MethodCredit:
		if s.CreditFeeType != CreditTiered {
			return s.FixedCreditFee
		}
		return resolveTier(s.NormalizedTiers(), installments, s.FixedCreditFee)
	default:
		return decimal.Zero
	}
}

func resolveTier(tiers []Tier, installments int, fallback decimal.Decimal) decimal.Decimal {
	if len(tiers) == 0 {
		return fallback
	}
	if installments < 1 {
		installments = 1
	}
	for _, t := range tiers {
		if t.Installments >= installments {
			return t.Fee
		}
	}
	return tiers[len(tiers)-1].Fee
}

// FeeAmount returns the monetary fee for a payment of total, rounded to cents.
func FeeAmount(s Schedule, method Method, installments int, total decimal.Decimal) decimal.Decimal {
	pct := Resolve(s, method, installments)
	if pct.IsZero() {
		return decimal.Zero
	}
	return total.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}
