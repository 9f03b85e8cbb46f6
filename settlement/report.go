package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/fees"
)

// =============================================================================
// SETTLEMENT REPORT - Recomputed per query, never persisted
// =============================================================================

// Report is the settlement of one cycle.
type Report struct {
	Offset int         `json:"offset"`
	Cycle  cycle.Cycle `json:"cycle"`

	Revenue      Revenue         `json:"revenue"`
	Costs        Costs           `json:"costs"`
	ResaleProfit decimal.Decimal `json:"resale_profit"`
	NetProfit    decimal.Decimal `json:"net_profit"`

	SalesCount int             `json:"sales_count"`
	Tips       decimal.Decimal `json:"tips"`
	Discounts  decimal.Decimal `json:"discounts"`
	Advances   decimal.Decimal `json:"advances"`

	PaymentMethods []MethodTotal  `json:"payment_methods"`
	Workers        []WorkerRecord `json:"workers"`
	Expenses       []Expense      `json:"expenses"`
	Omissions      []Omission     `json:"omissions"`
}

// HasWorkerActivity reports whether any worker appears in the report.
func (r Report) HasWorkerActivity() bool {
	return len(r.Workers) > 0
}

// Worker returns the record for a worker ID.
func (r Report) Worker(id string) (WorkerRecord, bool) {
	for _, w := range r.Workers {
		if w.WorkerID == id {
			return w, true
		}
	}
	return WorkerRecord{}, false
}

// Revenue splits gross revenue by line item type.
type Revenue struct {
	Services decimal.Decimal `json:"services"`
	Products decimal.Decimal `json:"products"`
	Packages decimal.Decimal `json:"packages"`
	Gross    decimal.Decimal `json:"gross"`
}

// Costs lists every cost line counted against gross revenue.
type Costs struct {
	Commissions decimal.Decimal `json:"commissions"`
	Salaries    decimal.Decimal `json:"salaries"`
	Rent        decimal.Decimal `json:"rent"`
	Expenses    decimal.Decimal `json:"expenses"`
	CardFees    decimal.Decimal `json:"card_fees"`
	CostOfGoods decimal.Decimal `json:"cost_of_goods"`
	Total       decimal.Decimal `json:"total"`
}

// MethodTotal is the amount collected through one payment method.
type MethodTotal struct {
	Method fees.Method     `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// =============================================================================
// WORKER RECORD
// =============================================================================

// Deduction is a signed (negative) entry taken from a worker's payout.
type Deduction struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Ref    string          `json:"ref,omitempty"`
}

// WorkerRecord is one worker's performance and payout for the cycle.
//
//	Gross           = Commission + Salary + Tips
//	TotalDeductions = sum(Deductions)            (negative)
//	Net             = Gross + TotalDeductions
type WorkerRecord struct {
	WorkerID   string         `json:"worker_id"`
	Name       string         `json:"name"`
	Employment EmploymentType `json:"employment"`

	Sales     decimal.Decimal `json:"sales"`
	ItemsSold int             `json:"items_sold"`

	Commission decimal.Decimal `json:"commission"`
	Salary     decimal.Decimal `json:"salary"`
	Tips       decimal.Decimal `json:"tips"`
	Rent       decimal.Decimal `json:"rent"`

	Advances           decimal.Decimal `json:"advances"`
	SalaryPaidToOthers decimal.Decimal `json:"salary_paid_to_others"`
	CardFees           decimal.Decimal `json:"card_fees"`

	Deductions      []Deduction     `json:"deductions"`
	Gross           decimal.Decimal `json:"gross"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	Net             decimal.Decimal `json:"net"`
}

// hasActivity decides whether the record is reported at all.
func (w WorkerRecord) hasActivity() bool {
	return w.ItemsSold > 0 ||
		!w.Sales.IsZero() ||
		!w.Advances.IsZero() ||
		!w.Salary.IsZero() ||
		len(w.Deductions) > 0
}
