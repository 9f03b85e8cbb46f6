/*
Package engine serves cycle windows and settlement reports to callers.

PURPOSE:
  The settlement package is pure: it takes snapshots and returns a report.
  This package owns everything around it: fetching snapshots from the
  providers, resolving the cycle against the clock, merging derived
  expenses, caching finished reports and collapsing duplicate builds.

KEY CONCEPTS:
  - Provider: read-only snapshot source (sales, vales, expenses, roster,
    fee and cycle configuration, stock)
  - Service: CycleWindow / SettlementReport / BrowseHistory
  - Cache: optional Redis cache keyed by policy, cycle and data version

SEE ALSO:
  - settlement/aggregate.go: the computation itself
  - store/sqlite, store/memory: provider implementations
*/
package engine

import (
	"context"
	"time"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// PROVIDERS - Read-only snapshot sources
// =============================================================================

// SalesProvider returns finalized sales with At in [from, to].
type SalesProvider interface {
	Sales(ctx context.Context, from, to time.Time) ([]settlement.Sale, error)
}

// AdvancesProvider returns every vale. Installment plans can make an old vale
// due in the current cycle, so there is no date filter.
type AdvancesProvider interface {
	Vales(ctx context.Context) ([]settlement.Vale, error)
}

// ExpensesProvider returns persisted expenses with At in [from, to].
type ExpensesProvider interface {
	Expenses(ctx context.Context, from, to time.Time) ([]settlement.Expense, error)
}

// RosterProvider returns the professionals in display order.
type RosterProvider interface {
	Professionals(ctx context.Context) ([]settlement.Professional, error)
}

// FeeConfigProvider returns the active fee schedule.
type FeeConfigProvider interface {
	FeeSchedule(ctx context.Context) (fees.Schedule, error)
}

// CycleConfigProvider returns the active cycle policy.
type CycleConfigProvider interface {
	CyclePolicy(ctx context.Context) (cycle.Policy, error)
}

// StockProvider returns unit costs and restocks.
type StockProvider interface {
	StockItems(ctx context.Context) ([]settlement.StockItem, error)
	StockPurchases(ctx context.Context, from, to time.Time) ([]settlement.StockPurchase, error)
}

// VersionProvider returns a counter that grows on every write. Reports are
// only cached when one is available.
type VersionProvider interface {
	DataVersion(ctx context.Context) (int64, error)
}

// Store is a single backend implementing every provider.
type Store interface {
	SalesProvider
	AdvancesProvider
	ExpensesProvider
	RosterProvider
	FeeConfigProvider
	CycleConfigProvider
	StockProvider
	VersionProvider
}

// Providers groups the collaborators the service reads from. Stock and
// Version are optional.
type Providers struct {
	Sales    SalesProvider
	Advances AdvancesProvider
	Expenses ExpensesProvider
	Roster   RosterProvider
	Fees     FeeConfigProvider
	Cycle    CycleConfigProvider
	Stock    StockProvider
	Version  VersionProvider
}

// FromStore uses one backend for every provider.
func FromStore(s Store) Providers {
	return Providers{
		Sales:    s,
		Advances: s,
		Expenses: s,
		Roster:   s,
		Fees:     s,
		Cycle:    s,
		Stock:    s,
		Version:  s,
	}
}

func (p Providers) validate() error {
	switch {
	case p.Sales == nil:
		return errMissingProvider("sales")
	case p.Advances == nil:
		return errMissingProvider("advances")
	case p.Expenses == nil:
		return errMissingProvider("expenses")
	case p.Roster == nil:
		return errMissingProvider("roster")
	case p.Fees == nil:
		return errMissingProvider("fees")
	case p.Cycle == nil:
		return errMissingProvider("cycle")
	}
	return nil
}
