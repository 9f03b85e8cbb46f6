package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/logging"
	"github.com/warp/settlement-engine/settlement"
)

// Options configures a Service. Zero values are usable.
type Options struct {
	Cache    *Cache
	Logger   *logging.Logger
	Now      func() time.Time
	Location *time.Location
}

// Service resolves cycles and builds settlement reports on demand.
type Service struct {
	providers Providers
	cache     *Cache
	log       *logging.Logger
	now       func() time.Time
	loc       *time.Location
	builds    singleflight.Group
}

// New validates the providers and builds a service.
func New(p Providers, opts Options) (*Service, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	s := &Service{
		providers: p,
		cache:     opts.Cache,
		log:       opts.Logger,
		now:       opts.Now,
		loc:       opts.Location,
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	if s.cache != nil && s.cache.log == nil {
		s.cache.log = s.log
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s, nil
}

// Now is the reference instant used for offset 0.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Policy returns the active cycle policy.
func (s *Service) Policy(ctx context.Context) (cycle.Policy, error) {
	p, err := s.providers.Cycle.CyclePolicy(ctx)
	if err != nil {
		return nil, &LoadError{Snapshot: "cycle policy", Err: err}
	}
	return p, nil
}

// CycleWindow resolves the cycle at offset from now. Any offset is allowed.
func (s *Service) CycleWindow(ctx context.Context, offset int) (cycle.Cycle, error) {
	p, err := s.Policy(ctx)
	if err != nil {
		return cycle.Cycle{}, err
	}
	return cycle.Resolve(p, offset, s.Now())
}

// SettlementReport builds the report for the cycle at offset (0 = current,
// negative = past).
func (s *Service) SettlementReport(ctx context.Context, offset int) (settlement.Report, error) {
	if offset > 0 {
		return settlement.Report{}, ErrFutureCycle
	}
	p, err := s.Policy(ctx)
	if err != nil {
		return settlement.Report{}, err
	}
	c, err := cycle.Resolve(p, offset, s.Now())
	if err != nil {
		return settlement.Report{}, err
	}
	return s.report(ctx, p, c, offset)
}

// BrowseHistory returns past reports with worker activity, most recent first.
func (s *Service) BrowseHistory(ctx context.Context, maxOffsets int) ([]settlement.Report, error) {
	p, err := s.Policy(ctx)
	if err != nil {
		return nil, err
	}
	return settlement.BrowseHistory(p, s.Now(), maxOffsets, func(c cycle.Cycle, offset int) (settlement.Report, error) {
		return s.report(ctx, p, c, offset)
	})
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// =============================================================================
// REPORT BUILD
// =============================================================================

func (s *Service) report(ctx context.Context, p cycle.Policy, c cycle.Cycle, offset int) (settlement.Report, error) {
	version, cacheable, err := s.dataVersion(ctx)
	if err != nil {
		return settlement.Report{}, err
	}
	parts := []string{
		p.Key(),
		strconv.Itoa(offset),
		c.Start.Format("20060102T150405Z0700"),
		strconv.FormatInt(version, 10),
	}

	// The shared build outlives any single caller; each caller still gives up
	// on its own context below.
	flight := context.WithoutCancel(ctx)
	ch := s.builds.DoChan(strings.Join(parts, ":"), func() (any, error) {
		build := func(ctx context.Context) (settlement.Report, error) {
			return s.build(ctx, p, c, offset)
		}
		if !cacheable {
			return build(flight)
		}
		return s.cache.Report(flight, parts, build)
	})

	select {
	case <-ctx.Done():
		return settlement.Report{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return settlement.Report{}, res.Err
		}
		return res.Val.(settlement.Report), nil
	}
}

func (s *Service) dataVersion(ctx context.Context) (int64, bool, error) {
	if s.providers.Version == nil {
		return 0, false, nil
	}
	v, err := s.providers.Version.DataVersion(ctx)
	if err != nil {
		return 0, false, &LoadError{Snapshot: "data version", Err: err}
	}
	return v, true, nil
}

// snapshot is everything loaded for one build.
type snapshot struct {
	sales     []settlement.Sale
	vales     []settlement.Vale
	expenses  []settlement.Expense
	roster    []settlement.Professional
	fees      fees.Schedule
	stock     []settlement.StockItem
	purchases []settlement.StockPurchase
}

func (s *Service) load(ctx context.Context, c cycle.Cycle) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.sales, err = s.providers.Sales.Sales(ctx, c.Start, c.End)
		return wrapLoad("sales", err)
	})
	g.Go(func() (err error) {
		snap.vales, err = s.providers.Advances.Vales(ctx)
		return wrapLoad("vales", err)
	})
	g.Go(func() (err error) {
		snap.expenses, err = s.providers.Expenses.Expenses(ctx, c.Start, c.End)
		return wrapLoad("expenses", err)
	})
	g.Go(func() (err error) {
		snap.roster, err = s.providers.Roster.Professionals(ctx)
		return wrapLoad("roster", err)
	})
	g.Go(func() (err error) {
		snap.fees, err = s.providers.Fees.FeeSchedule(ctx)
		return wrapLoad("fee schedule", err)
	})
	if s.providers.Stock != nil {
		g.Go(func() (err error) {
			snap.stock, err = s.providers.Stock.StockItems(ctx)
			return wrapLoad("stock items", err)
		})
		g.Go(func() (err error) {
			snap.purchases, err = s.providers.Stock.StockPurchases(ctx, c.Start, c.End)
			return wrapLoad("stock purchases", err)
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Service) build(ctx context.Context, p cycle.Policy, c cycle.Cycle, offset int) (settlement.Report, error) {
	snap, err := s.load(ctx, c)
	if err != nil {
		return settlement.Report{}, err
	}

	derived := settlement.DeriveExpenses(settlement.DeriveInput{
		Cycle:     c,
		Policy:    p,
		Roster:    snap.roster,
		Sales:     snap.sales,
		Purchases: snap.purchases,
	})

	r := settlement.Aggregate(settlement.Input{
		Offset:   offset,
		Cycle:    c,
		Policy:   p,
		Sales:    snap.sales,
		Vales:    snap.vales,
		Expenses: settlement.MergeExpenses(snap.expenses, derived),
		Roster:   snap.roster,
		Fees:     snap.fees,
		Stock:    snap.stock,
	})

	for _, o := range r.Omissions {
		s.log.Warn().
			Str("kind", string(o.Kind)).
			Str("record_type", o.RecordType).
			Str("record_id", o.RecordID).
			Str("worker_id", o.WorkerID).
			Str("cycle", c.String()).
			Msg(o.Detail)
	}
	s.log.Debug().
		Int("offset", offset).
		Str("cycle", c.String()).
		Int("sales", r.SalesCount).
		Int("workers", len(r.Workers)).
		Msg("settlement report built")
	return r, nil
}

func wrapLoad(what string, err error) error {
	if err == nil {
		return nil
	}
	return &LoadError{Snapshot: what, Err: err}
}
