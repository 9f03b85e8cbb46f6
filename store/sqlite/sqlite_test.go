package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/engine"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/sqlite"
)

// The store must satisfy every provider the engine reads.
var _ engine.Store = (*sqlite.Store)(nil)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func july(day, hour int) time.Time {
	return time.Date(2024, time.July, day, hour, 0, 0, 0, time.UTC)
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSales_RangeAndOrder(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	for _, s := range []settlement.Sale{
		{ID: "late", At: july(20, 9), Total: d("30"), Payment: settlement.Payment{Method: fees.MethodPix}},
		{ID: "early", At: july(5, 0), Total: d("10"), Payment: settlement.Payment{Method: fees.MethodCash}},
		{ID: "outside", At: july(31, 9), Total: d("99"), Payment: settlement.Payment{Method: fees.MethodCash}},
	} {
		require.NoError(t, store.AddSale(ctx, s))
	}

	got, err := store.Sales(ctx, july(5, 0), july(20, 9))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
	assert.True(t, d("30").Equal(got[1].Total))
}

func TestSales_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sale := settlement.Sale{ID: "s1", At: july(10, 9), Total: d("10")}

	require.NoError(t, store.AddSale(ctx, sale))
	assert.ErrorIs(t, store.AddSale(ctx, sale), sqlite.ErrDuplicate)
}

func TestWrites_BumpDataVersion(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	v0, err := store.DataVersion(ctx)
	require.NoError(t, err)

	require.NoError(t, store.AddExpense(ctx, settlement.Expense{ID: "e1", At: july(8, 9), Amount: d("120")}))
	require.NoError(t, store.Reset(ctx))

	v1, err := store.DataVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, v0+2, v1)
}

func TestProfessionals_OrderAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveProfessional(ctx, settlement.Professional{
		ID: "b", Name: "Bia", Employment: settlement.Commissioned, CommissionRate: d("40"),
	}))
	require.NoError(t, store.SaveProfessional(ctx, settlement.Professional{
		ID: "a", Name: "Ana", Employment: settlement.Salaried, FixedSalary: d("2000"), SalaryActive: true, SalarySource: "b",
	}))
	require.NoError(t, store.SaveProfessional(ctx, settlement.Professional{
		ID: "b", Name: "Bia Souza", Employment: settlement.Commissioned, CommissionRate: d("45"),
	}))

	roster, err := store.Professionals(ctx)
	require.NoError(t, err)

	require.Len(t, roster, 2)
	assert.Equal(t, "Bia Souza", roster[0].Name)
	assert.Equal(t, "b", roster[1].SalarySource)
	assert.True(t, d("2000").Equal(roster[1].FixedSalary))
}

func TestProfessionals_RejectSalarySourceLoop(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveProfessional(ctx, settlement.Professional{
		ID: "a", Name: "Ana", Employment: settlement.Commissioned,
	}))
	require.NoError(t, store.SaveProfessional(ctx, settlement.Professional{
		ID: "b", Name: "Bia", Employment: settlement.Salaried, SalarySource: "a",
	}))

	err := store.SaveProfessional(ctx, settlement.Professional{
		ID: "a", Name: "Ana", Employment: settlement.Salaried, SalarySource: "b",
	})
	assert.ErrorIs(t, err, factory.ErrSalarySourceCycle)

	err = store.SaveProfessional(ctx, settlement.Professional{
		ID: "c", Name: "Cris", Employment: settlement.Salaried, SalarySource: "nobody",
	})
	assert.ErrorIs(t, err, factory.ErrUnknownSalarySource)

	roster, _ := store.Professionals(ctx)
	assert.Len(t, roster, 2)
}

func TestVales_Settle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.AddVale(ctx, settlement.Vale{
		ID: "v1", EmployeeID: "a", At: july(12, 9), Total: d("300"),
		Plan: &settlement.InstallmentPlan{Count: 3},
	}))

	v, err := store.SettleVale(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, settlement.ValeSettled, v.Status)
	assert.Equal(t, 3, v.Plan.Paid)

	all, err := store.Vales(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, settlement.ValeSettled, all[0].Status)

	_, err = store.SettleVale(ctx, "missing")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestExpenses_RefuseDerived(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.AddExpense(ctx, settlement.Expense{ID: "x", At: july(8, 9), Amount: d("1"), Source: settlement.SourceSalary})
	assert.ErrorIs(t, err, factory.ErrValidation)
}

func TestStock_PurchaseRefreshesUnitCost(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveStockItem(ctx, settlement.StockItem{ItemID: "shampoo", Name: "Shampoo", UnitCost: d("20")}))
	require.NoError(t, store.AddStockPurchase(ctx, settlement.StockPurchase{
		ID: "p1", At: july(15, 10), ItemID: "shampoo", Quantity: 10, UnitCost: d("22.50"),
	}))

	items, err := store.StockItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Shampoo", items[0].Name)
	assert.True(t, d("22.50").Equal(items[0].UnitCost))

	purchases, err := store.StockPurchases(ctx, july(1, 0), july(31, 0))
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.True(t, d("225").Equal(purchases[0].Cost()))
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.CyclePolicy(ctx)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)

	schedule := fees.Schedule{CreditFeeType: fees.CreditTiered, DebitFee: d("1.99")}
	schedule.AddTier(fees.Tier{Installments: 6, Fee: d("12")})
	require.NoError(t, store.SeedDefaults(ctx, cycle.BiMonthlyDays{DayOne: 20, DayTwo: 5}, schedule))

	p, err := store.CyclePolicy(ctx)
	require.NoError(t, err)
	assert.Equal(t, cycle.BiMonthlyDays{DayOne: 20, DayTwo: 5}, p)

	got, err := store.FeeSchedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, fees.BearerSalon, got.FeeBearer)
	require.Len(t, got.Tiers, 1)

	// Seeding again keeps what is stored
	require.NoError(t, store.SeedDefaults(ctx, cycle.SingleMonthlyDay{Day: 1}, schedule))
	p, _ = store.CyclePolicy(ctx)
	assert.Equal(t, cycle.KindBiMonthlyDays, p.Kind())

	assert.ErrorIs(t, store.SetCyclePolicy(ctx, cycle.NthBusinessDay{N: 0}), cycle.ErrInvalidCycleConfig)
	assert.ErrorIs(t, store.SetFeeSchedule(ctx, fees.Schedule{}), factory.ErrValidation)
}

func TestStore_DrivesEngine(t *testing.T) {
	// GIVEN: the end to end salon in SQLite
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.SeedDefaults(ctx, cycle.SingleMonthlyDay{Day: 5}, fees.Schedule{CreditFeeType: fees.CreditFixed}))
	require.NoError(t, store.SaveProfessional(ctx, settlement.Professional{
		ID: "w", Name: "Wanda", Employment: settlement.Commissioned, CommissionRate: d("45"),
	}))
	require.NoError(t, store.AddSale(ctx, settlement.Sale{
		ID: "s1", At: july(10, 11), Total: d("100"),
		Items: []settlement.LineItem{{ItemID: "cut", WorkerID: "w", Type: settlement.ItemService, Quantity: 1, FinalPrice: d("100")}},
		Payment: settlement.Payment{Method: fees.MethodCash, Installments: 1},
	}))

	svc, err := engine.New(engine.FromStore(store), engine.Options{
		Now:      func() time.Time { return july(10, 15) },
		Location: time.UTC,
	})
	require.NoError(t, err)

	// WHEN
	r, err := svc.SettlementReport(ctx, 0)

	// THEN
	require.NoError(t, err)
	w, ok := r.Worker("w")
	require.True(t, ok)
	assert.True(t, d("45").Equal(w.Net))
	assert.True(t, d("45").Equal(r.Costs.Commissions))
}
