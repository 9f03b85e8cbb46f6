package settlement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/cycle"
)

// =============================================================================
// DERIVED EXPENSES
// =============================================================================
//
// Salary, commission and stock purchase entries are recomputed per query from
// the roster, the sales and the purchase log. They are never stored: a stored
// copy would go stale as soon as the roster changes.
//
//   persisted (manual + stale derived) ──┐
//                                        ├─ MergeExpenses ─> Input.Expenses
//   DeriveExpenses(cycle, ...) ──────────┘
//

// DeriveInput is what DeriveExpenses reads.
type DeriveInput struct {
	Cycle     cycle.Cycle
	Policy    cycle.Policy
	Roster    []Professional
	Sales     []Sale
	Purchases []StockPurchase
}

// DeriveExpenses builds the automatic expense entries for one cycle:
//   - one salary accrual per salon-paid salaried worker, dated at cycle start
//   - one commission accrual per worker with commission, dated at cycle end
//   - one entry per stock purchase inside the cycle, dated at the purchase
func DeriveExpenses(in DeriveInput) []Expense {
	out := []Expense{}
	stamp := in.Cycle.Start.Format("20060102")

	for _, p := range in.Roster {
		if !p.DrawsSalary() || !p.PaidBySalon() {
			continue
		}
		out = append(out, Expense{
			ID:          fmt.Sprintf("salary:%s:%s", p.ID, stamp),
			At:          in.Cycle.Start,
			Description: "Salary " + p.Name,
			Category:    "payroll",
			Amount:      cycle.Prorate(p.FixedSalary, in.Policy, in.Cycle),
			Source:      SourceSalary,
		})
	}

	byWorker := make(map[string]*Professional, len(in.Roster))
	for i := range in.Roster {
		byWorker[in.Roster[i].ID] = &in.Roster[i]
	}
	commissions := make(map[string]decimal.Decimal)
	for _, sale := range in.Sales {
		if !in.Cycle.Contains(sale.At) {
			continue
		}
		for _, item := range sale.Items {
			p, ok := byWorker[item.WorkerID]
			if !ok {
				continue
			}
			commissions[p.ID] = commissions[p.ID].Add(ResolveCommission(item, p))
		}
	}
	for _, p := range in.Roster {
		amount, ok := commissions[p.ID]
		if !ok || amount.IsZero() {
			continue
		}
		out = append(out, Expense{
			ID:          fmt.Sprintf("commission:%s:%s", p.ID, stamp),
			At:          in.Cycle.End,
			Description: "Commission " + p.Name,
			Category:    "payroll",
			Amount:      amount,
			Source:      SourceCommission,
		})
		delete(commissions, p.ID)
	}

	for _, purchase := range in.Purchases {
		if !in.Cycle.Contains(purchase.At) {
			continue
		}
		out = append(out, Expense{
			ID:          "stock:" + purchase.ID,
			At:          purchase.At,
			Description: fmt.Sprintf("Stock %s x%d", purchase.ItemID, purchase.Quantity),
			Category:    "stock",
			Amount:      purchase.Cost(),
			Source:      SourceStock,
		})
	}
	return out
}

// MergeExpenses combines persisted entries with freshly derived ones. Derived
// entries that were persisted earlier are stale and dropped. The result is
// ordered by date, then ID.
func MergeExpenses(persisted, derived []Expense) []Expense {
	out := make([]Expense, 0, len(persisted)+len(derived))
	for _, e := range persisted {
		if e.IsDerived() {
			continue
		}
		out = append(out, e)
	}
	out = append(out, derived...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
