// Package memory provides an in-memory engine.Store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu sync.RWMutex

	sales     []settlement.Sale // sorted by At
	vales     []settlement.Vale
	expenses  []settlement.Expense // sorted by At
	roster    []settlement.Professional
	stock     map[string]settlement.StockItem
	purchases []settlement.StockPurchase // sorted by At
	schedule  fees.Schedule
	policy    cycle.Policy
	version   int64
}

// New returns an empty store with the given cycle policy and fee schedule.
func New(policy cycle.Policy, schedule fees.Schedule) *Store {
	return &Store{
		policy:   policy,
		schedule: schedule,
		stock:    make(map[string]settlement.StockItem),
	}
}

// -----------------------------------------------------------------------------
// Writes. Every write bumps the data version.
// -----------------------------------------------------------------------------

func (m *Store) AddSale(_ context.Context, s settlement.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.sales), func(i int) bool { return m.sales[i].At.After(s.At) })
	m.sales = append(m.sales, settlement.Sale{})
	copy(m.sales[i+1:], m.sales[i:])
	m.sales[i] = s
	m.version++
	return nil
}

func (m *Store) AddVale(_ context.Context, v settlement.Vale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vales = append(m.vales, v)
	m.version++
	return nil
}

func (m *Store) AddExpense(_ context.Context, e settlement.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.expenses), func(i int) bool { return m.expenses[i].At.After(e.At) })
	m.expenses = append(m.expenses, settlement.Expense{})
	copy(m.expenses[i+1:], m.expenses[i:])
	m.expenses[i] = e
	m.version++
	return nil
}

// SaveProfessional inserts or replaces by ID, keeping roster order.
func (m *Store) SaveProfessional(_ context.Context, p settlement.Professional) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version++
	for i := range m.roster {
		if m.roster[i].ID == p.ID {
			m.roster[i] = p
			return nil
		}
	}
	m.roster = append(m.roster, p)
	return nil
}

func (m *Store) SaveStockItem(_ context.Context, item settlement.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[item.ItemID] = item
	m.version++
	return nil
}

func (m *Store) AddStockPurchase(_ context.Context, p settlement.StockPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.purchases), func(i int) bool { return m.purchases[i].At.After(p.At) })
	m.purchases = append(m.purchases, settlement.StockPurchase{})
	copy(m.purchases[i+1:], m.purchases[i:])
	m.purchases[i] = p
	m.version++
	return nil
}

func (m *Store) SetCyclePolicy(_ context.Context, p cycle.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = p
	m.version++
	return nil
}

func (m *Store) SetFeeSchedule(_ context.Context, s fees.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedule = s
	m.version++
	return nil
}

// -----------------------------------------------------------------------------
// Providers
// -----------------------------------------------------------------------------

func (m *Store) Sales(_ context.Context, from, to time.Time) ([]settlement.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lo := sort.Search(len(m.sales), func(i int) bool { return !m.sales[i].At.Before(from) })
	hi := sort.Search(len(m.sales), func(i int) bool { return m.sales[i].At.After(to) })
	if lo >= hi {
		return []settlement.Sale{}, nil
	}
	return append([]settlement.Sale(nil), m.sales[lo:hi]...), nil
}

func (m *Store) Vales(_ context.Context) ([]settlement.Vale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]settlement.Vale{}, m.vales...), nil
}

func (m *Store) Expenses(_ context.Context, from, to time.Time) ([]settlement.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []settlement.Expense{}
	for _, e := range m.expenses {
		if !e.At.Before(from) && !e.At.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Store) Professionals(_ context.Context) ([]settlement.Professional, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]settlement.Professional{}, m.roster...), nil
}

func (m *Store) FeeSchedule(_ context.Context) (fees.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.schedule
	s.Tiers = append([]fees.Tier(nil), s.Tiers...)
	return s, nil
}

func (m *Store) CyclePolicy(_ context.Context) (cycle.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy, nil
}

func (m *Store) StockItems(_ context.Context) ([]settlement.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]settlement.StockItem, 0, len(m.stock))
	for _, item := range m.stock {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *Store) StockPurchases(_ context.Context, from, to time.Time) ([]settlement.StockPurchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []settlement.StockPurchase{}
	for _, p := range m.purchases {
		if !p.At.Before(from) && !p.At.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Store) DataVersion(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version, nil
}
