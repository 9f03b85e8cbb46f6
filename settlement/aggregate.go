/*
aggregate.go - The settlement pass

ORDER OF OPERATIONS:
  1. Filter sales, vales and expenses to the cycle window (inclusive)
  2. Revenue by line type, commission per line
  3. Card fee per debit/credit sale (always a salon cost)
  4. Cost of goods for product lines with a known unit cost
  5. Per-worker sales, commission, pro-rata tip share
  6. Vale installments due in the cycle become worker deductions
  7. Prorated fixed salaries; salaries funded by another worker become a
     deduction on the payer instead of a salon cost
  8. Worker net, dropping workers without activity
  9. Salon totals

CROSS-WORKER SALARY:
  A.SalarySource = B means B's proceeds fund A's fixed pay:

    A: Salary +1000
    B: Deduction "Salary paid to A" -1000
    Salon: Salaries cost unchanged (B pays, not the salon)

  The aggregator reads each edge once, so a cyclic configuration cannot loop
  here. Cycles are rejected at save time (factory.ValidateRoster).

UNRESOLVED REFERENCES:
  A line item, vale or salary source naming a worker absent from the roster is
  recorded as an Omission. Salon totals still include the record.
*/
package settlement

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/fees"
)

var hundred = decimal.NewFromInt(100)

// Input is everything one settlement needs. Slices are read, never modified.
type Input struct {
	Offset   int
	Cycle    cycle.Cycle
	Policy   cycle.Policy
	Sales    []Sale
	Vales    []Vale
	Expenses []Expense
	Roster   []Professional
	Fees     fees.Schedule
	Stock    []StockItem
}

// accumulator is the running state of one worker during the pass.
type accumulator struct {
	profile Professional
	record  WorkerRecord
}

// Aggregate computes the settlement report for in.Cycle. Identical input
// yields identical output.
func Aggregate(in Input) Report {
	r := Report{
		Offset:         in.Offset,
		Cycle:          in.Cycle,
		PaymentMethods: []MethodTotal{},
		Workers:        []WorkerRecord{},
		Expenses:       []Expense{},
		Omissions:      []Omission{},
	}

	workers, order := newAccumulators(in.Roster)
	unitCost := make(map[string]decimal.Decimal, len(in.Stock))
	for _, s := range in.Stock {
		unitCost[s.ItemID] = s.UnitCost
	}
	methods := make(map[fees.Method]*MethodTotal)

	// Steps 1-5: sales
	for _, sale := range in.Sales {
		if !in.Cycle.Contains(sale.At) {
			continue
		}
		r.SalesCount++
		r.Tips = r.Tips.Add(sale.Tip)
		r.Discounts = r.Discounts.Add(sale.Discount)

		mt, ok := methods[sale.Payment.Method]
		if !ok {
			mt = &MethodTotal{Method: sale.Payment.Method}
			methods[sale.Payment.Method] = mt
		}
		mt.Count++
		mt.Total = mt.Total.Add(sale.Total)

		fee := decimal.Zero
		if sale.Payment.Method.IsCard() {
			fee = fees.FeeAmount(in.Fees, sale.Payment.Method, sale.Payment.Installments, sale.Total)
			r.Costs.CardFees = r.Costs.CardFees.Add(fee)
		}

		tipShares := proRata(sale.Items, sale.Tip)
		var feeShares []decimal.Decimal
		if in.Fees.FeeBearer == fees.BearerEmployee && fee.IsPositive() {
			feeShares = proRata(sale.Items, fee)
		}

		for i, item := range sale.Items {
			switch item.Type {
			case ItemProduct:
				r.Revenue.Products = r.Revenue.Products.Add(item.FinalPrice)
				if cost, ok := unitCost[item.ItemID]; ok {
					r.Costs.CostOfGoods = r.Costs.CostOfGoods.Add(cost.Mul(decimal.NewFromInt(int64(quantity(item)))))
				}
			case ItemPackage:
				r.Revenue.Packages = r.Revenue.Packages.Add(item.FinalPrice)
			default:
				r.Revenue.Services = r.Revenue.Services.Add(item.FinalPrice)
			}

			acc, ok := workers[item.WorkerID]
			var profile *Professional
			if ok {
				profile = &acc.profile
			}
			commission := ResolveCommission(item, profile)
			r.Costs.Commissions = r.Costs.Commissions.Add(commission)

			if !ok {
				r.Omissions = append(r.Omissions, Omission{
					Kind:       OmissionUnresolvedWorker,
					RecordType: "sale",
					RecordID:   sale.ID,
					WorkerID:   item.WorkerID,
					Detail:     "line item " + item.ItemID + " excluded from worker totals",
				})
				continue
			}

			w := &acc.record
			w.Sales = w.Sales.Add(item.FinalPrice)
			w.ItemsSold += quantity(item)
			w.Commission = w.Commission.Add(commission)
			w.Tips = w.Tips.Add(tipShares[i])
			if feeShares != nil {
				w.CardFees = w.CardFees.Add(feeShares[i])
			}
		}
	}

	// Step 6: vales
	for _, v := range in.Vales {
		due := DueInCycle(v, in.Cycle)
		if due.IsZero() {
			continue
		}
		r.Advances = r.Advances.Add(due)
		acc, ok := workers[v.EmployeeID]
		if !ok {
			r.Omissions = append(r.Omissions, Omission{
				Kind:       OmissionUnresolvedWorker,
				RecordType: "vale",
				RecordID:   v.ID,
				WorkerID:   v.EmployeeID,
				Detail:     "advance excluded from worker deductions",
			})
			continue
		}
		acc.record.Advances = acc.record.Advances.Add(due)
		acc.record.Deductions = append(acc.record.Deductions, Deduction{
			Label:  "Advance",
			Amount: due.Neg(),
			Ref:    v.ID,
		})
	}

	// Step 7: fixed salaries and rent
	for _, id := range order {
		acc := workers[id]
		p := acc.profile

		if p.Employment == Rented && p.RentValue.IsPositive() {
			rent := cycle.Prorate(p.RentValue, in.Policy, in.Cycle)
			acc.record.Rent = rent
			r.Costs.Rent = r.Costs.Rent.Add(rent)
		}

		if !p.DrawsSalary() {
			continue
		}
		salary := cycle.Prorate(p.FixedSalary, in.Policy, in.Cycle)
		acc.record.Salary = acc.record.Salary.Add(salary)

		if p.PaidBySalon() {
			r.Costs.Salaries = r.Costs.Salaries.Add(salary)
			continue
		}
		payer, ok := workers[p.SalarySource]
		if !ok || p.SalarySource == p.ID {
			r.Omissions = append(r.Omissions, Omission{
				Kind:       OmissionUnresolvedWorker,
				RecordType: "salary_source",
				RecordID:   p.ID,
				WorkerID:   p.SalarySource,
				Detail:     "salary source not usable, salary charged to the salon",
			})
			r.Costs.Salaries = r.Costs.Salaries.Add(salary)
			continue
		}
		payer.record.SalaryPaidToOthers = payer.record.SalaryPaidToOthers.Add(salary)
		payer.record.Deductions = append(payer.record.Deductions, Deduction{
			Label:  "Salary paid to " + p.Name,
			Amount: salary.Neg(),
			Ref:    p.ID,
		})
	}

	// Step 8: worker net
	for _, id := range order {
		w := workers[id].record
		if w.CardFees.IsPositive() {
			w.Deductions = append(w.Deductions, Deduction{Label: "Card fees", Amount: w.CardFees.Neg()})
		}
		if !w.hasActivity() {
			continue
		}
		w.Gross = w.Commission.Add(w.Salary).Add(w.Tips)
		w.TotalDeductions = decimal.Zero
		for _, d := range w.Deductions {
			w.TotalDeductions = w.TotalDeductions.Add(d.Amount)
		}
		w.Net = w.Gross.Add(w.TotalDeductions)
		if w.Deductions == nil {
			w.Deductions = []Deduction{}
		}
		r.Workers = append(r.Workers, w)
	}

	// Step 9: expenses and totals. Derived entries are listed only: salary and
	// commission have their own cost lines, and stock enters costs as COGS when
	// sold, not when bought.
	for _, e := range in.Expenses {
		if !in.Cycle.Contains(e.At) {
			continue
		}
		r.Expenses = append(r.Expenses, e)
		if !e.IsDerived() {
			r.Costs.Expenses = r.Costs.Expenses.Add(e.Amount)
		}
	}

	r.PaymentMethods = methodTotals(methods)
	r.Revenue.Gross = r.Revenue.Services.Add(r.Revenue.Products).Add(r.Revenue.Packages)
	r.Costs.Total = r.Costs.Commissions.
		Add(r.Costs.Salaries).
		Add(r.Costs.Rent).
		Add(r.Costs.Expenses).
		Add(r.Costs.CardFees).
		Add(r.Costs.CostOfGoods)
	r.ResaleProfit = r.Revenue.Products.Sub(r.Costs.CostOfGoods)
	r.NetProfit = r.Revenue.Gross.Sub(r.Costs.Total)
	return r
}

// =============================================================================
// HELPERS
// =============================================================================

func newAccumulators(roster []Professional) (map[string]*accumulator, []string) {
	workers := make(map[string]*accumulator, len(roster))
	order := make([]string, 0, len(roster))
	for _, p := range roster {
		if _, dup := workers[p.ID]; dup {
			continue
		}
		workers[p.ID] = &accumulator{
			profile: p,
			record: WorkerRecord{
				WorkerID:   p.ID,
				Name:       p.Name,
				Employment: p.Employment,
			},
		}
		order = append(order, p.ID)
	}
	return workers, order
}

// ResolveCommission returns the commission for one line. A commission fixed at
// checkout wins; otherwise the worker's per-item override, then the worker's
// default rate, applied to the line's final price.
func ResolveCommission(item LineItem, p *Professional) decimal.Decimal {
	if item.Commission != nil {
		return *item.Commission
	}
	if p == nil {
		return decimal.Zero
	}
	rate := p.CommissionRate
	for _, o := range p.CommissionOverrides {
		if o.ItemID == item.ItemID {
			rate = o.Rate
		}
	}
	return item.FinalPrice.Mul(rate).Div(hundred).Round(2)
}

// proRata splits amount across items by each line's share of the lines' total
// final price. Lines summing to zero split evenly. The last line absorbs the
// rounding residue so shares always add up to amount.
func proRata(items []LineItem, amount decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(items))
	if len(items) == 0 || amount.IsZero() {
		return shares
	}

	base := decimal.Zero
	for _, it := range items {
		base = base.Add(it.FinalPrice)
	}

	allocated := decimal.Zero
	n := decimal.NewFromInt(int64(len(items)))
	for i, it := range items {
		if i == len(items)-1 {
			shares[i] = amount.Sub(allocated)
			break
		}
		if base.IsZero() {
			shares[i] = amount.Div(n).Round(2)
		} else {
			shares[i] = amount.Mul(it.FinalPrice).Div(base).Round(2)
		}
		allocated = allocated.Add(shares[i])
	}
	return shares
}

// DueInCycle returns how much of a vale is recovered inside c.
func DueInCycle(v Vale, c cycle.Cycle) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range v.Installments() {
		if c.Contains(inst.Due) {
			total = total.Add(inst.Amount)
		}
	}
	return total
}

func quantity(item LineItem) int {
	if item.Quantity <= 0 {
		return 1
	}
	return item.Quantity
}

func methodTotals(methods map[fees.Method]*MethodTotal) []MethodTotal {
	out := make([]MethodTotal, 0, len(methods))
	known := make(map[fees.Method]bool, len(fees.Methods))
	for _, m := range fees.Methods {
		known[m] = true
		if mt, ok := methods[m]; ok {
			out = append(out, *mt)
		}
	}
	var extra []MethodTotal
	for m, mt := range methods {
		if !known[m] {
			extra = append(extra, *mt)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Method < extra[j].Method })
	return append(out, extra...)
}
