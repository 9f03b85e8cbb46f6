/*
scheduler.go - Cycle boundary scheduler

PURPOSE:
  Watches for the moment a new payment cycle opens. When the current cycle
  start moves, cached reports are invalidated and the report for the cycle
  that just closed is built once so the first payout query is warm.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Remembers the start of the last observed cycle; a policy change also
    moves it, which is treated the same way
  - Failures are logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewCycleScheduler(svc, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - engine/service.go: CycleWindow, Invalidate, SettlementReport
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/settlement-engine/engine"
	"github.com/warp/settlement-engine/logging"
)

// CycleScheduler invalidates and pre-builds reports at cycle boundaries.
type CycleScheduler struct {
	Engine        *engine.Service
	CheckInterval time.Duration
	Enabled       bool

	log *logging.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastStart time.Time
	lastCheck time.Time
}

// NewCycleScheduler creates a new scheduler.
func NewCycleScheduler(svc *engine.Service, log *logging.Logger) *CycleScheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &CycleScheduler{
		Engine:        svc,
		CheckInterval: time.Minute,
		Enabled:       true,
		log:           log.Component("scheduler"),
	}
}

// Start begins the scheduler.
func (cs *CycleScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.log.Info().Msg("disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.stop = make(chan struct{})
	cs.wg.Add(1)

	go cs.run(cs.ticker, cs.stop)

	cs.log.Info().Dur("interval", cs.CheckInterval).Msg("started")
}

// Stop stops the scheduler and waits for an in-flight check.
func (cs *CycleScheduler) Stop() {
	cs.mu.Lock()
	if cs.ticker == nil {
		cs.mu.Unlock()
		return
	}
	cs.ticker.Stop()
	close(cs.stop)
	cs.ticker = nil
	cs.mu.Unlock()

	cs.wg.Wait()
	cs.log.Info().Msg("stopped")
}

func (cs *CycleScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer cs.wg.Done()

	// Run immediately on start
	cs.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			cs.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one boundary check. It reports whether a new cycle was
// detected. The first check only records the current cycle.
func (cs *CycleScheduler) RunNow(ctx context.Context) bool {
	c, err := cs.Engine.CycleWindow(ctx, 0)
	if err != nil {
		cs.log.Warn().Err(err).Msg("resolving current cycle")
		return false
	}

	cs.mu.Lock()
	previous := cs.lastStart
	cs.lastStart = c.Start
	cs.lastCheck = time.Now()
	cs.mu.Unlock()

	if previous.IsZero() || previous.Equal(c.Start) {
		return false
	}

	cs.log.Info().
		Time("previous_start", previous).
		Str("cycle", c.String()).
		Msg("new cycle opened")

	if err := cs.Engine.Invalidate(ctx); err != nil {
		cs.log.Warn().Err(err).Msg("cache invalidation failed")
	}
	r, err := cs.Engine.SettlementReport(ctx, -1)
	if err != nil {
		cs.log.Error().Err(err).Msg("building closed cycle report")
		return true
	}
	cs.log.Info().
		Str("cycle", r.Cycle.String()).
		Int("workers", len(r.Workers)).
		Str("net_profit", r.NetProfit.StringFixed(2)).
		Msg("closed cycle report ready")
	return true
}

// GetNextRunTime returns when the next scheduled check will occur.
func (cs *CycleScheduler) GetNextRunTime() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.lastCheck.IsZero() {
		return time.Now().Add(cs.CheckInterval)
	}
	return cs.lastCheck.Add(cs.CheckInterval)
}
