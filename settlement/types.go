/*
Package settlement aggregates a salon's financial records over one payment cycle.

PURPOSE:
  Given a resolved cycle and snapshots of sales, advances (vales), expenses and
  the worker roster, Aggregate produces the settlement report: revenue by
  category, cost lines, payment method totals and one payout record per
  worker who had activity in the cycle.

KEY CONCEPTS IN THIS FILE (types.go):
  - Sale / LineItem: immutable checkout records; each line names its worker
  - Vale: an advance paid to a worker, recovered from the worker's payout
  - Expense: manual or derived (salary, commission, stock) cost entry
  - Professional: roster entry with employment configuration
  - StockItem / StockPurchase: unit costs for cost-of-goods and purchases

DESIGN PRINCIPLES:
  1. Pure: Aggregate reads its input and returns a value. No I/O, no clock.
  2. Precision: all money and percentages are decimal.Decimal
  3. Partial over total failure: bad references become Omissions, never errors

SEE ALSO:
  - aggregate.go: The aggregation pass
  - expenses.go: Derived expenses and the merge step
  - history.go: Walking back through past cycles
*/
package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/calendar"
	"github.com/warp/settlement-engine/fees"
)

// =============================================================================
// SALES
// =============================================================================

// ItemType classifies a line item for revenue reporting.
type ItemType string

const (
	ItemService ItemType = "service"
	ItemProduct ItemType = "product"
	ItemPackage ItemType = "package"
)

// LineItem is one worker's part of a sale. FinalPrice is the line total after
// line-level discounts. Commission, when set, is the commission amount
// resolved at checkout and takes precedence over roster rates.
type LineItem struct {
	ItemID     string           `json:"item_id"`
	Name       string           `json:"name"`
	WorkerID   string           `json:"worker_id"`
	Type       ItemType         `json:"type"`
	Quantity   int              `json:"quantity"`
	FinalPrice decimal.Decimal  `json:"final_price"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
}

// Payment describes how a sale was settled at checkout.
type Payment struct {
	Method       fees.Method `json:"method"`
	Installments int         `json:"installments"`
}

// Sale is a finalized checkout.
type Sale struct {
	ID       string          `json:"id"`
	At       time.Time       `json:"at"`
	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tip      decimal.Decimal `json:"tip"`
	Total    decimal.Decimal `json:"total"`
	Payment  Payment         `json:"payment"`
}

// =============================================================================
// ADVANCES (VALES)
// =============================================================================

type ValeStatus string

const (
	ValeActive  ValeStatus = "active"
	ValeSettled ValeStatus = "settled"
)

// InstallmentPlan spreads a vale over Count monthly installments starting at
// FirstDue. Paid is bookkeeping for the vale listing: deductions always follow
// the due schedule, so settling a vale early does not move or drop them.
type InstallmentPlan struct {
	Count    int       `json:"count"`
	FirstDue time.Time `json:"first_due"`
	Paid     int       `json:"paid"`
}

// Vale is an advance paid to a worker.
type Vale struct {
	ID         string           `json:"id"`
	EmployeeID string           `json:"employee_id"`
	At         time.Time        `json:"at"`
	Total      decimal.Decimal  `json:"total"`
	Status     ValeStatus       `json:"status"`
	Plan       *InstallmentPlan `json:"plan,omitempty"`
}

// Installment is one scheduled recovery of a vale.
type Installment struct {
	Number int
	Due    time.Time
	Amount decimal.Decimal
}

// Installments returns the vale's recovery schedule. A vale without a plan is
// recovered in full on its own date. The last installment absorbs rounding.
func (v Vale) Installments() []Installment {
	if v.Plan == nil || v.Plan.Count <= 1 {
		due := v.At
		if v.Plan != nil && !v.Plan.FirstDue.IsZero() {
			due = v.Plan.FirstDue
		}
		return []Installment{{Number: 1, Due: due, Amount: v.Total}}
	}

	count := v.Plan.Count
	first := v.Plan.FirstDue
	if first.IsZero() {
		first = v.At
	}
	each := v.Total.Div(decimal.NewFromInt(int64(count))).Round(2)
	out := make([]Installment, 0, count)
	remaining := v.Total
	for i := 0; i < count; i++ {
		amount := each
		if i == count-1 {
			amount = remaining
		}
		remaining = remaining.Sub(amount)
		due := calendar.Date(first.Year(), first.Month()+time.Month(i), first.Day(), first.Location())
		due = due.Add(first.Sub(calendar.StartOfDay(first)))
		out = append(out, Installment{Number: i + 1, Due: due, Amount: amount})
	}
	return out
}

// =============================================================================
// EXPENSES
// =============================================================================

// ExpenseSource tells manual entries apart from derived ones.
type ExpenseSource string

const (
	SourceManual     ExpenseSource = "manual"
	SourceSalary     ExpenseSource = "salary"
	SourceCommission ExpenseSource = "commission"
	SourceStock      ExpenseSource = "stock"
)

// Expense is a salon cost entry.
type Expense struct {
	ID          string          `json:"id"`
	At          time.Time       `json:"at"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Source      ExpenseSource   `json:"source"`
}

// IsDerived is true for entries recomputed from the roster, sales or stock.
func (e Expense) IsDerived() bool {
	return e.Source != "" && e.Source != SourceManual
}

// =============================================================================
// ROSTER
// =============================================================================

type EmploymentType string

const (
	Commissioned EmploymentType = "commissioned"
	Salaried     EmploymentType = "salaried"
	Rented       EmploymentType = "rented"
)

// SalonSource marks a salary paid by the salon itself.
const SalonSource = "salon"

// CommissionOverride replaces the worker's default rate for one item.
type CommissionOverride struct {
	ItemID string          `json:"item_id"`
	Rate   decimal.Decimal `json:"rate"`
}

// Professional is a roster entry. SalarySource is SalonSource (or empty) when
// the salon pays the fixed salary, otherwise the ID of the worker who does.
type Professional struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Employment          EmploymentType       `json:"employment"`
	FixedSalary         decimal.Decimal      `json:"fixed_salary"`
	RentValue           decimal.Decimal      `json:"rent_value"`
	SalaryActive        bool                 `json:"salary_active"`
	SalarySource        string               `json:"salary_source"`
	CommissionRate      decimal.Decimal      `json:"commission_rate"`
	CommissionOverrides []CommissionOverride `json:"commission_overrides,omitempty"`
}

// PaidBySalon reports whether the salon funds this worker's fixed salary.
func (p Professional) PaidBySalon() bool {
	return p.SalarySource == "" || p.SalarySource == SalonSource
}

// DrawsSalary reports whether the worker has a fixed salary in effect.
func (p Professional) DrawsSalary() bool {
	return p.Employment == Salaried && p.SalaryActive && p.FixedSalary.IsPositive()
}

// =============================================================================
// STOCK
// =============================================================================

// StockItem carries the unit cost used for cost-of-goods.
type StockItem struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// StockPurchase is a restock; its cost becomes a derived expense.
type StockPurchase struct {
	ID       string          `json:"id"`
	At       time.Time       `json:"at"`
	ItemID   string          `json:"item_id"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// Cost returns the purchase total.
func (p StockPurchase) Cost() decimal.Decimal {
	return p.UnitCost.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
