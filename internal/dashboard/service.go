package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrotrace/agrotrace/internal/ecart"
	"github.com/agrotrace/agrotrace/internal/lookup"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

// API is the subset of the upstream client the dashboard consumes.
type API interface {
	DashboardData(ctx context.Context, q upstream.Query) (upstream.DashboardData, error)
	EcartDetails(ctx context.Context, q upstream.Query) ([]upstream.EcartDetail, error)
	EcartDetailsGrouped(ctx context.Context, q upstream.Query) ([]upstream.EcartGroup, error)
	DestinationChart(ctx context.Context, q upstream.Query) ([]upstream.ChartSeries, error)
	DestinationByVarietyChart(ctx context.Context, q upstream.Query) ([]upstream.ChartSeries, error)
	PeriodicTrends(ctx context.Context, q upstream.Query) ([]upstream.TrendPoint, error)
	DataGroupedByVarietyGroup(ctx context.Context, q upstream.Query) ([]upstream.GroupedTotals, error)
	VenteEcarts(ctx context.Context) ([]upstream.VenteEcart, error)
}

// DefaultBoardIdleTTL is how long a board survives without any request
// from its session before the evictor reclaims it.
const DefaultBoardIdleTTL = 2 * time.Hour

// ServiceConfig tunes the dashboard pipeline.
type ServiceConfig struct {
	DebounceWindow time.Duration
	FetchTimeout   time.Duration
	BoardIdleTTL   time.Duration
}

// Service owns the dashboard pipelines, one Board per session.
type Service struct {
	logger  *slog.Logger
	api     API
	lookups *lookup.Service
	cfg     ServiceConfig
	now     func() time.Time

	mu     sync.Mutex
	boards map[string]*Board
}

// NewService wires the upstream API and lookup layer.
func NewService(logger *slog.Logger, api API, lookups *lookup.Service, cfg ServiceConfig) *Service {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.BoardIdleTTL <= 0 {
		cfg.BoardIdleTTL = DefaultBoardIdleTTL
	}
	return &Service{
		logger:  logger,
		api:     api,
		lookups: lookups,
		cfg:     cfg,
		now:     time.Now,
		boards:  make(map[string]*Board),
	}
}

// Board returns the session's dashboard, creating and initialising it on
// first access. Access also refreshes the idle clock and re-attempts a
// failed lookup initialisation.
func (s *Service) Board(sessionID, tenant string) *Board {
	s.mu.Lock()
	if board, ok := s.boards[sessionID]; ok {
		board.lastAccess = s.now()
		s.mu.Unlock()
		board.retryInit()
		return board
	}
	board := &Board{svc: s, tenant: tenant, state: NewState(), lastAccess: s.now(), initActive: true}
	board.debounce = NewDebouncer(s.cfg.DebounceWindow, board.runCycle)
	s.boards[sessionID] = board
	s.mu.Unlock()
	go board.initialize()
	return board
}

// DropBoard tears a session's dashboard down (logout).
func (s *Service) DropBoard(sessionID string) {
	s.mu.Lock()
	board, ok := s.boards[sessionID]
	delete(s.boards, sessionID)
	s.mu.Unlock()
	if ok {
		board.Close()
	}
}

// EvictIdle closes boards whose session has gone quiet past the idle TTL
// and returns how many were reclaimed. Sessions that expire or browsers
// that just close never log out, so their boards are recovered here.
func (s *Service) EvictIdle() int {
	cutoff := s.now().Add(-s.cfg.BoardIdleTTL)
	s.mu.Lock()
	var evicted []*Board
	for sessionID, board := range s.boards {
		if board.lastAccess.Before(cutoff) {
			evicted = append(evicted, board)
			delete(s.boards, sessionID)
		}
	}
	s.mu.Unlock()
	for _, board := range evicted {
		board.Close()
	}
	return len(evicted)
}

// StartEvictor sweeps idle boards on a fixed interval until ctx ends.
func (s *Service) StartEvictor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.logger.Info("evicted idle dashboards", slog.Int("count", n))
			}
		}
	}
}

// Lookups exposes the lookup service for handlers and report emitters.
func (s *Service) Lookups() *lookup.Service {
	return s.lookups
}

// Board is one session's filter-driven dashboard pipeline.
type Board struct {
	svc      *Service
	tenant   string
	state    *State
	debounce *Debouncer

	// lastAccess is guarded by svc.mu.
	lastAccess time.Time

	initMu     sync.Mutex
	initActive bool
	initFailed bool
}

func (b *Board) ctx() (context.Context, context.CancelFunc) {
	ctx := upstream.WithTenant(context.Background(), b.tenant)
	return context.WithTimeout(ctx, b.svc.cfg.FetchTimeout)
}

// initialize loads the reference collections and the campaign default date
// range, then runs the first fetch cycle. Until it completes, debounced
// triggers no-op.
func (b *Board) initialize() {
	ctx, cancel := b.ctx()
	defer cancel()

	snap, err := b.svc.lookups.Load(ctx)
	if err != nil {
		b.svc.logger.Error("dashboard init: load lookups", slog.Any("error", err))
		// Leave the guard up: without the campaign date range a fetch
		// cycle would run over an empty window. The next request for
		// this board retries the load.
		b.setInitResult(true)
		b.state.FailInit(err)
		return
	}

	filters := FilterSnapshot{
		StartDate: snap.Campagne.StartDate,
		EndDate:   snap.Campagne.EndDate,
	}
	b.state.FinishInit(filters)
	b.setInitResult(false)
	b.runCycle(filters)
}

func (b *Board) setInitResult(failed bool) {
	b.initMu.Lock()
	b.initActive = false
	b.initFailed = failed
	b.initMu.Unlock()
}

// retryInit re-runs a failed initialisation at most once at a time.
func (b *Board) retryInit() {
	b.initMu.Lock()
	retry := b.initFailed && !b.initActive
	if retry {
		b.initActive = true
		b.initFailed = false
	}
	b.initMu.Unlock()
	if retry {
		go b.initialize()
	}
}

// View projects current state for rendering.
func (b *Board) View() View {
	return b.state.View()
}

// Filters returns the raw snapshot.
func (b *Board) Filters() FilterSnapshot {
	return b.state.Filters()
}

// Datasets returns the currently held primary datasets.
func (b *Board) Datasets() Datasets {
	return b.state.Datasets()
}

// Grouped returns the grouped-by-variety-group totals.
func (b *Board) Grouped() []upstream.GroupedTotals {
	return b.state.Grouped()
}

// Trend returns the current trend dataset.
func (b *Board) Trend() []TrendRecord {
	return b.state.Trend()
}

// UpdateFilters applies a raw edit synchronously and schedules one
// debounced fetch cycle for it.
func (b *Board) UpdateFilters(edit FilterEdit) FilterSnapshot {
	lookups, _ := b.svc.lookups.Snapshot()
	next := b.state.Filters().Apply(edit, lookups)
	b.state.SetFilters(next)
	if !b.state.Initializing() {
		b.debounce.Trigger(next)
	}
	return next
}

// SetTrend stores the metric/bucket selection and refreshes the trend
// dataset immediately; the trend effect is independent of the primary one.
func (b *Board) SetTrend(spec TrendSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	b.state.SetTrendSpec(spec)
	if !b.state.Initializing() {
		go b.runTrend(b.state.Filters(), spec)
	}
	return nil
}

// ToggleSort updates one table's sort config.
func (b *Board) ToggleSort(table, key string) SortConfig {
	return b.state.ToggleSort(table, key)
}

// Close cancels pending debounced work.
func (b *Board) Close() {
	b.debounce.Close()
}

// runCycle is the debounced entry point: one accepted snapshot change runs
// the primary batch plus the two independent effects.
func (b *Board) runCycle(snap FilterSnapshot) {
	if b.state.Initializing() {
		return
	}
	go b.runPrimary(snap)
	go b.runTrend(snap, b.state.TrendSpec())
	go b.runGrouped(snap)
}

// runPrimary issues the fixed read batch concurrently, stages the results,
// and applies them together under the generation guard. A failed batch
// surfaces one error and marks the displayed data stale instead of applying
// a torn cross-section.
func (b *Board) runPrimary(snap FilterSnapshot) {
	gen := b.state.BeginPrimary()
	ctx, cancel := b.ctx()
	defer cancel()

	query := snap.Query()
	var staged Datasets

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := b.svc.api.DashboardData(gctx, query)
		if err != nil {
			return err
		}
		staged.Totals = totals
		return nil
	})
	g.Go(func() error {
		rows, err := b.svc.api.EcartDetails(gctx, query)
		if err != nil {
			return err
		}
		staged.EcartDetails = rows
		return nil
	})
	g.Go(func() error {
		rows, err := b.svc.api.EcartDetailsGrouped(gctx, query)
		if err != nil {
			return err
		}
		staged.EcartGroups = rows
		return nil
	})
	g.Go(func() error {
		// Segmented chart only makes sense with a destination selected;
		// otherwise the dataset resolves to an explicit empty shape.
		if snap.DestinationID == nil {
			staged.DestinationChart = []upstream.ChartSeries{}
			return nil
		}
		series, err := b.svc.api.DestinationChart(gctx, query)
		if err != nil {
			return err
		}
		staged.DestinationChart = series
		return nil
	})
	g.Go(func() error {
		if snap.VergerID == nil {
			staged.VarietyChart = []upstream.ChartSeries{}
			return nil
		}
		series, err := b.svc.api.DestinationByVarietyChart(gctx, query)
		if err != nil {
			return err
		}
		staged.VarietyChart = series
		return nil
	})
	g.Go(func() error {
		records, err := b.svc.api.VenteEcarts(gctx)
		if err != nil {
			return err
		}
		staged.VenteEcarts = records
		return nil
	})

	if err := g.Wait(); err != nil {
		b.svc.logger.Warn("dashboard fetch cycle failed", slog.Uint64("generation", gen), slog.Any("error", err))
		b.state.ApplyPrimary(gen, Datasets{}, err)
		return
	}

	lookups, _ := b.svc.lookups.Snapshot()
	staged.AggregatedSales = ecart.Aggregate(staged.VenteEcarts, snap.StartDate, snap.EndDate, lookups)

	if !b.state.ApplyPrimary(gen, staged, nil) {
		b.svc.logger.Debug("discarded stale fetch cycle", slog.Uint64("generation", gen))
	}
}

// runTrend fetches the periodic trend series and applies it under the
// trend generation guard.
func (b *Board) runTrend(snap FilterSnapshot, spec TrendSpec) {
	gen := b.state.BeginTrend()
	ctx, cancel := b.ctx()
	defer cancel()

	records, err := FetchTrend(ctx, b.svc.api, snap, spec)
	if err != nil {
		b.svc.logger.Warn("trend fetch failed", slog.Any("error", err))
		b.state.ApplyTrend(gen, nil, err)
		return
	}
	b.state.ApplyTrend(gen, records, nil)
}

// FetchTrend reads the periodic trend series for one filter snapshot. The
// combined metric issues three parallel requests and merges them by period
// label, zero-filling metrics missing from a period. The batch report job
// calls this directly on its own snapshot copies.
func FetchTrend(ctx context.Context, api API, snap FilterSnapshot, spec TrendSpec) ([]TrendRecord, error) {
	query := snap.Query()
	query.TimePeriod = spec.Bucket

	if spec.Metric != MetricCombined {
		query.ChartType = spec.Metric
		points, err := api.PeriodicTrends(ctx, query)
		if err != nil {
			return nil, err
		}
		return singleTrend(spec.Metric, points), nil
	}

	var reception, export, ecartSeries []upstream.TrendPoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := query
		q.ChartType = MetricReception
		points, err := api.PeriodicTrends(gctx, q)
		reception = points
		return err
	})
	g.Go(func() error {
		q := query
		q.ChartType = MetricExport
		points, err := api.PeriodicTrends(gctx, q)
		export = points
		return err
	})
	g.Go(func() error {
		q := query
		q.ChartType = MetricEcart
		points, err := api.PeriodicTrends(gctx, q)
		ecartSeries = points
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeTrends(reception, export, ecartSeries), nil
}

// runGrouped fetches the totals-by-variety-group variant used by one report.
func (b *Board) runGrouped(snap FilterSnapshot) {
	gen := b.state.BeginGrouped()
	ctx, cancel := b.ctx()
	defer cancel()

	rows, err := b.svc.api.DataGroupedByVarietyGroup(ctx, snap.Query())
	if err != nil {
		b.svc.logger.Warn("grouped totals fetch failed", slog.Any("error", err))
	}
	b.state.ApplyGrouped(gen, rows, err)
}
