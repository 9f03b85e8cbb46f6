package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/memory"
)

func TestStore_SalesWindowIsInclusiveAndSorted(t *testing.T) {
	ctx := context.Background()
	s := memory.New(cycle.SingleMonthlyDay{Day: 5}, fees.Schedule{})
	day := func(d int) time.Time { return time.Date(2024, time.July, d, 12, 0, 0, 0, time.UTC) }

	for _, sale := range []settlement.Sale{
		{ID: "c", At: day(20)},
		{ID: "a", At: day(5)},
		{ID: "b", At: day(10)},
		{ID: "z", At: day(30)},
	} {
		require.NoError(t, s.AddSale(ctx, sale))
	}

	got, err := s.Sales(ctx, day(5), day(20))
	require.NoError(t, err)

	ids := []string{}
	for _, sale := range got {
		ids = append(ids, sale.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestStore_WritesBumpVersion(t *testing.T) {
	ctx := context.Background()
	s := memory.New(cycle.SingleMonthlyDay{Day: 5}, fees.Schedule{})

	v0, _ := s.DataVersion(ctx)
	require.NoError(t, s.SaveProfessional(ctx, settlement.Professional{ID: "w", Name: "Wanda"}))
	require.NoError(t, s.SaveProfessional(ctx, settlement.Professional{ID: "w", Name: "Wanda B."}))
	v1, _ := s.DataVersion(ctx)

	assert.Equal(t, v0+2, v1)
	roster, _ := s.Professionals(ctx)
	require.Len(t, roster, 1)
	assert.Equal(t, "Wanda B.", roster[0].Name)
}

func TestStore_FeeScheduleIsCopied(t *testing.T) {
	ctx := context.Background()
	s := memory.New(cycle.SingleMonthlyDay{Day: 5}, fees.Schedule{
		Tiers: []fees.Tier{{Installments: 1, Fee: decimal.RequireFromString("4.99")}},
	})

	got, err := s.FeeSchedule(ctx)
	require.NoError(t, err)
	got.Tiers[0].Fee = decimal.Zero

	again, _ := s.FeeSchedule(ctx)
	assert.Equal(t, "4.99", again.Tiers[0].Fee.String())
}
