/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built salons that populate the database with realistic
	data. Each scenario exercises a different cycle policy and payout rule.

AVAILABLE SCENARIOS:

	solo-chair:          One commissioned stylist, monthly cycle, cash sales
	bimonthly-team:      Mixed roster, tiered card fees, tips, vales, stock
	salary-by-colleague: A receptionist whose salary is paid by a stylist
	weekly-payroll:      Weekly cycle closing on Fridays, fee borne by staff

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Store the cycle policy and fee schedule via factory JSON
 3. Save the roster
 4. Resolve the current and previous cycle windows
 5. Add sales, vales, expenses and restocks inside those windows

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "bimonthly-team"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Record endpoints
  - factory/: Policy and fee JSON
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	policyJSON string
	feesJSON   string
	load       func(s *seeder)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "solo-chair",
			Name:        "Solo Chair",
			Description: "One commissioned stylist paid on the 5th, cash and pix sales",
		},
		policyJSON: `{"kind": "single_monthly_day", "values": {"day": 5}}`,
		feesJSON:   `{"debit_fee": 1.99, "credit_fee_type": "fixed", "fixed_credit_fee": 4.99}`,
		load:       loadSoloChair,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "bimonthly-team",
			Name:        "Bi-monthly Team",
			Description: "Commissioned, salaried and chair-rental staff; tiered card fees, tips, vales and stock",
		},
		policyJSON: `{"kind": "bimonthly_days", "values": {"day_one": 5, "day_two": 20}}`,
		feesJSON: `{"debit_fee": 1.99, "credit_fee_type": "tiered", "fixed_credit_fee": 4.99,
			"tiers": [{"installments": 1, "fee": 3.5}, {"installments": 6, "fee": 7.5}, {"installments": 12, "fee": 11}]}`,
		load: loadBimonthlyTeam,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "salary-by-colleague",
			Name:        "Salary Paid by a Colleague",
			Description: "A receptionist whose fixed salary is deducted from a senior stylist's payout",
		},
		policyJSON: `{"kind": "nth_business_day", "values": {"n": 5}}`,
		feesJSON:   `{"debit_fee": 1.5, "credit_fee_type": "fixed", "fixed_credit_fee": 3.9}`,
		load:       loadSalaryByColleague,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "weekly-payroll",
			Name:        "Weekly Payroll",
			Description: "Cycles close every Friday; card fees are borne by the professional",
		},
		policyJSON: `{"kind": "weekly_on_day", "values": {"weekday": 5}}`,
		feesJSON:   `{"debit_fee": 2, "credit_fee_type": "fixed", "fixed_credit_fee": 5, "fee_bearer": "employee"}`,
		load:       loadWeeklyPayroll,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decodeValid(r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	s, ok := findScenario(req.ScenarioID)
	if !ok {
		h.writeFailure(w, fmt.Errorf("scenario %q: %w", req.ScenarioID, sqlite.ErrNotFound))
		return
	}

	if err := h.loadScenario(r.Context(), s); err != nil {
		h.writeFailure(w, err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()
	h.log.Info().Str("scenario", s.ID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"scenario": s.ID,
	})
}

// ResetDatabase clears every record and re-seeds the default settings.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		h.writeFailure(w, err)
		return
	}
	if h.defaults.Policy != nil {
		if err := h.Store.SeedDefaults(ctx, h.defaults.Policy, h.defaults.Fees); err != nil {
			h.writeFailure(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	if err := h.Engine.Invalidate(ctx); err != nil {
		h.log.Warn().Err(err).Msg("cache invalidation failed after reset")
	}
	return nil
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) error {
	if err := h.reset(ctx); err != nil {
		return err
	}

	p, err := h.Factory.ParseCycle([]byte(s.policyJSON))
	if err != nil {
		return fmt.Errorf("scenario %s policy: %w", s.ID, err)
	}
	schedule, err := h.Factory.ParseFees([]byte(s.feesJSON))
	if err != nil {
		return fmt.Errorf("scenario %s fees: %w", s.ID, err)
	}
	if err := h.Store.SetCyclePolicy(ctx, p); err != nil {
		return err
	}
	if err := h.Store.SetFeeSchedule(ctx, schedule); err != nil {
		return err
	}

	now := h.Engine.Now()
	current, err := cycle.Resolve(p, 0, now)
	if err != nil {
		return err
	}
	previous, err := cycle.Resolve(p, -1, now)
	if err != nil {
		return err
	}

	seed := &seeder{ctx: ctx, store: h.Store, current: current, previous: previous, now: now}
	s.load(seed)
	return seed.err
}

// =============================================================================
// SEEDER - Collects the first error so loaders read as a plain list
// =============================================================================

type seeder struct {
	ctx      context.Context
	store    *sqlite.Store
	current  cycle.Cycle
	previous cycle.Cycle
	now      time.Time
	seq      int
	err      error
}

func (s *seeder) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

// at places a record `hours` after the start of c, never past c.End or now.
func (s *seeder) at(c cycle.Cycle, hours int) time.Time {
	t := c.Start.Add(time.Duration(hours) * time.Hour)
	if t.After(c.End) {
		t = c.End
	}
	if t.After(s.now) {
		t = s.now
	}
	if t.Before(c.Start) {
		t = c.Start
	}
	return t
}

func (s *seeder) professional(p settlement.Professional) {
	if s.err != nil {
		return
	}
	if p.Employment == settlement.Salaried && p.SalarySource == "" {
		p.SalarySource = settlement.SalonSource
	}
	s.err = s.store.SaveProfessional(s.ctx, p)
}

func (s *seeder) sale(at time.Time, method fees.Method, installments int, tip string, items ...settlement.LineItem) {
	if s.err != nil {
		return
	}
	sale := settlement.Sale{
		ID:      s.nextID("sale"),
		At:      at,
		Items:   items,
		Tip:     money(tip),
		Payment: settlement.Payment{Method: method, Installments: installments},
	}
	for _, it := range items {
		sale.Subtotal = sale.Subtotal.Add(it.FinalPrice)
	}
	sale.Total = sale.Subtotal.Add(sale.Tip)
	s.err = s.store.AddSale(s.ctx, sale)
}

func (s *seeder) vale(at time.Time, employee, total string, installments int) {
	if s.err != nil {
		return
	}
	v := settlement.Vale{
		ID:         s.nextID("vale"),
		EmployeeID: employee,
		At:         at,
		Total:      money(total),
		Status:     settlement.ValeActive,
	}
	if installments > 1 {
		v.Plan = &settlement.InstallmentPlan{Count: installments, FirstDue: at}
	}
	s.err = s.store.AddVale(s.ctx, v)
}

func (s *seeder) expense(at time.Time, description, category, amount string) {
	if s.err != nil {
		return
	}
	s.err = s.store.AddExpense(s.ctx, settlement.Expense{
		ID:          s.nextID("exp"),
		At:          at,
		Description: description,
		Category:    category,
		Amount:      money(amount),
		Source:      settlement.SourceManual,
	})
}

func (s *seeder) stockItem(itemID, name, unitCost string) {
	if s.err != nil {
		return
	}
	s.err = s.store.SaveStockItem(s.ctx, settlement.StockItem{ItemID: itemID, Name: name, UnitCost: money(unitCost)})
}

func (s *seeder) restock(at time.Time, itemID string, quantity int, unitCost string) {
	if s.err != nil {
		return
	}
	s.err = s.store.AddStockPurchase(s.ctx, settlement.StockPurchase{
		ID:       s.nextID("restock"),
		At:       at,
		ItemID:   itemID,
		Quantity: quantity,
		UnitCost: money(unitCost),
	})
}

func money(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

func svc(worker, itemID, name, price string) settlement.LineItem {
	return settlement.LineItem{
		ItemID: itemID, Name: name, WorkerID: worker,
		Type: settlement.ItemService, Quantity: 1, FinalPrice: money(price),
	}
}

func product(worker, itemID, name string, qty int, price string) settlement.LineItem {
	return settlement.LineItem{
		ItemID: itemID, Name: name, WorkerID: worker,
		Type: settlement.ItemProduct, Quantity: qty, FinalPrice: money(price),
	}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSoloChair(s *seeder) {
	s.professional(settlement.Professional{
		ID: "ana", Name: "Ana Lima", Employment: settlement.Commissioned, CommissionRate: money("45"),
	})

	for _, c := range []cycle.Cycle{s.previous, s.current} {
		s.sale(s.at(c, 10), fees.MethodCash, 1, "", svc("ana", "cut", "Haircut", "80"))
		s.sale(s.at(c, 34), fees.MethodPix, 1, "10", svc("ana", "color", "Coloring", "220"))
		s.sale(s.at(c, 58), fees.MethodCash, 1, "", svc("ana", "brush", "Blow dry", "60"))
	}
	s.expense(s.at(s.current, 2), "Electricity bill", "utilities", "310")
}

func loadBimonthlyTeam(s *seeder) {
	s.professional(settlement.Professional{
		ID: "bia", Name: "Bia Souza", Employment: settlement.Commissioned, CommissionRate: money("40"),
		CommissionOverrides: []settlement.CommissionOverride{{ItemID: "keratin", Rate: money("30")}},
	})
	s.professional(settlement.Professional{
		ID: "caio", Name: "Caio Reis", Employment: settlement.Salaried,
		FixedSalary: money("2400"), SalaryActive: true, CommissionRate: money("10"),
	})
	s.professional(settlement.Professional{
		ID: "duda", Name: "Duda Alves", Employment: settlement.Rented, RentValue: money("900"),
	})
	s.stockItem("shampoo", "Repair shampoo", "22")

	for _, c := range []cycle.Cycle{s.previous, s.current} {
		s.sale(s.at(c, 9), fees.MethodCredit, 6, "15",
			svc("bia", "keratin", "Keratin treatment", "350"),
			product("bia", "shampoo", "Repair shampoo", 2, "90"))
		s.sale(s.at(c, 26), fees.MethodDebit, 1, "",
			svc("caio", "beard", "Beard trim", "45"))
		s.sale(s.at(c, 50), fees.MethodCredit, 1, "20",
			svc("bia", "cut", "Haircut", "90"),
			svc("caio", "wash", "Wash", "30"))
		s.sale(s.at(c, 74), fees.MethodPix, 1, "",
			svc("duda", "nails", "Manicure", "70"))
	}

	s.vale(s.at(s.previous, 30), "bia", "600", 3)
	s.vale(s.at(s.current, 5), "caio", "150", 1)
	s.restock(s.at(s.current, 3), "shampoo", 12, "23.50")
	s.expense(s.at(s.current, 1), "Rent", "facilities", "2800")
	s.expense(s.at(s.current, 6), "Towels laundry", "supplies", "180")
}

func loadSalaryByColleague(s *seeder) {
	s.professional(settlement.Professional{
		ID: "eva", Name: "Eva Martins", Employment: settlement.Commissioned, CommissionRate: money("50"),
	})
	s.professional(settlement.Professional{
		ID: "fabi", Name: "Fabi Costa", Employment: settlement.Salaried,
		FixedSalary: money("1600"), SalaryActive: true, SalarySource: "eva",
	})

	for _, c := range []cycle.Cycle{s.previous, s.current} {
		s.sale(s.at(c, 8), fees.MethodCredit, 1, "",
			svc("eva", "color", "Coloring", "480"))
		s.sale(s.at(c, 32), fees.MethodCash, 1, "25",
			svc("eva", "cut", "Haircut", "120"))
	}
	s.vale(s.at(s.current, 4), "fabi", "200", 1)
}

func loadWeeklyPayroll(s *seeder) {
	s.professional(settlement.Professional{
		ID: "gil", Name: "Gil Moura", Employment: settlement.Commissioned, CommissionRate: money("50"),
	})
	s.professional(settlement.Professional{
		ID: "hana", Name: "Hana Sato", Employment: settlement.Salaried,
		FixedSalary: money("4330"), SalaryActive: true, CommissionRate: money("5"),
	})

	for _, c := range []cycle.Cycle{s.previous, s.current} {
		s.sale(s.at(c, 10), fees.MethodCredit, 1, "",
			svc("gil", "cut", "Haircut", "100"))
		s.sale(s.at(c, 14), fees.MethodDebit, 1, "8",
			svc("gil", "cut", "Haircut", "100"),
			svc("hana", "wash", "Wash", "40"))
	}
}
