package api_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/settlement-engine/api"
	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/engine"
	"github.com/warp/settlement-engine/store/sqlite"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newScheduler(t *testing.T, clock *fakeClock) (*api.CycleScheduler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SeedDefaults(context.Background(), cycle.SingleMonthlyDay{Day: 5}, defaultFees()))

	svc, err := engine.New(engine.FromStore(store), engine.Options{Now: clock.Now, Location: time.UTC})
	require.NoError(t, err)
	return api.NewCycleScheduler(svc, nil), store
}

func TestCycleScheduler_DetectsNewCycle(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: refNow}
	sched, _ := newScheduler(t, clock)

	// GIVEN: the first check only records the July cycle
	assert.False(t, sched.RunNow(ctx))
	clock.Set(refNow.Add(48 * time.Hour))
	assert.False(t, sched.RunNow(ctx), "same cycle")

	// WHEN: the clock crosses the 5 August boundary
	clock.Set(time.Date(2024, time.August, 5, 0, 0, 1, 0, time.UTC))

	// THEN
	assert.True(t, sched.RunNow(ctx))
	assert.False(t, sched.RunNow(ctx))
}

func TestCycleScheduler_PolicyChangeCountsAsBoundary(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: refNow}
	sched, store := newScheduler(t, clock)
	require.False(t, sched.RunNow(ctx))

	require.NoError(t, store.SetCyclePolicy(ctx, cycle.BiMonthlyDays{DayOne: 8, DayTwo: 22}))

	assert.True(t, sched.RunNow(ctx))
}

func TestCycleScheduler_MissingPolicyIsSkipped(t *testing.T) {
	ctx := context.Background()
	sched, store := newScheduler(t, &fakeClock{now: refNow})
	require.NoError(t, store.Reset(ctx))

	assert.False(t, sched.RunNow(ctx))
}

func TestCycleScheduler_StartStop(t *testing.T) {
	sched, _ := newScheduler(t, &fakeClock{now: refNow})
	sched.CheckInterval = 5 * time.Millisecond

	sched.Start()
	time.Sleep(20 * time.Millisecond)
	sched.Stop()
	sched.Stop()

	assert.False(t, sched.GetNextRunTime().IsZero())

	sched.Enabled = false
	sched.Start()
	sched.Stop()
}
