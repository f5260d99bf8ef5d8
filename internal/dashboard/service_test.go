package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrace/agrotrace/internal/lookup"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

type mockAPI struct {
	mu sync.Mutex

	dataCalls        int
	detailCalls      int
	groupCalls       int
	destChartCalls   int
	varChartCalls    int
	trendCalls       int
	trendChartTypes  []string
	groupedCalls     int
	venteCalls       int
	lastQuery        upstream.Query

	detailErr error
	venteRows []upstream.VenteEcart
}

func (m *mockAPI) DashboardData(ctx context.Context, q upstream.Query) (upstream.DashboardData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataCalls++
	m.lastQuery = q
	return upstream.DashboardData{ReceptionWeight: 1000}, nil
}

func (m *mockAPI) EcartDetails(ctx context.Context, q upstream.Query) ([]upstream.EcartDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailCalls++
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return []upstream.EcartDetail{{VergerID: 1, VergerName: "Atlas", Weight: 12}}, nil
}

func (m *mockAPI) EcartDetailsGrouped(ctx context.Context, q upstream.Query) ([]upstream.EcartGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupCalls++
	return []upstream.EcartGroup{{VergerID: 1, GrpVarID: 10, Weight: 12}}, nil
}

func (m *mockAPI) DestinationChart(ctx context.Context, q upstream.Query) ([]upstream.ChartSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destChartCalls++
	return []upstream.ChartSeries{{Name: "Export UE"}}, nil
}

func (m *mockAPI) DestinationByVarietyChart(ctx context.Context, q upstream.Query) ([]upstream.ChartSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.varChartCalls++
	return []upstream.ChartSeries{{Name: "Golden"}}, nil
}

func (m *mockAPI) PeriodicTrends(ctx context.Context, q upstream.Query) ([]upstream.TrendPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trendCalls++
	m.trendChartTypes = append(m.trendChartTypes, q.ChartType)
	return []upstream.TrendPoint{{Period: "S36", Value: 10}}, nil
}

func (m *mockAPI) DataGroupedByVarietyGroup(ctx context.Context, q upstream.Query) ([]upstream.GroupedTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupedCalls++
	return []upstream.GroupedTotals{{GrpVarID: 10, GrpVarName: "Pommes", ReceptionWeight: 500}}, nil
}

func (m *mockAPI) VenteEcarts(ctx context.Context) ([]upstream.VenteEcart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.venteCalls++
	return m.venteRows, nil
}

func (m *mockAPI) snapshotCalls() (data, trend int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dataCalls, m.trendCalls
}

func newTestService(t *testing.T, api API, window time.Duration) *Service {
	t.Helper()
	return newTestServiceWithSource(t, api, window, staticSource{})
}

func newTestServiceWithSource(t *testing.T, api API, window time.Duration, source lookup.Source) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lookups := lookup.NewService(source, lookup.NewCache(client, time.Minute))
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return NewService(logger, api, lookups, ServiceConfig{DebounceWindow: window, FetchTimeout: 5 * time.Second})
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func waitSettled(t *testing.T, board *Board) {
	t.Helper()
	require.Eventually(t, func() bool {
		view := board.View()
		return !view.Loading
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBoardInitialisesWithCampaignDates(t *testing.T) {
	api := &mockAPI{}
	svc := newTestService(t, api, 10*time.Millisecond)

	board := svc.Board("sess-1", "ferme_nord")
	waitSettled(t, board)

	view := board.View()
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), view.Filters.StartDate)
	assert.Equal(t, 1000.0, view.Data.Totals.ReceptionWeight)
	assert.Empty(t, view.Error)
}

func TestBoardOmitsSegmentedChartsWithoutTheirFilters(t *testing.T) {
	api := &mockAPI{}
	svc := newTestService(t, api, 10*time.Millisecond)

	board := svc.Board("sess-1", "ferme_nord")
	waitSettled(t, board)

	view := board.View()
	assert.NotNil(t, view.Data.DestinationChart)
	assert.Empty(t, view.Data.DestinationChart)
	assert.Empty(t, view.Data.VarietyChart)

	api.mu.Lock()
	destCalls, varCalls := api.destChartCalls, api.varChartCalls
	api.mu.Unlock()
	assert.Zero(t, destCalls)
	assert.Zero(t, varCalls)
}

func TestBoardFetchesSegmentedChartsWhenFiltered(t *testing.T) {
	api := &mockAPI{}
	svc := newTestService(t, api, 10*time.Millisecond)
	board := svc.Board("sess-1", "ferme_nord")
	waitSettled(t, board)

	board.UpdateFilters(FilterEdit{DestinationID: id(7), VergerID: id(1)})
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.destChartCalls > 0 && api.varChartCalls > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		view := board.View()
		return len(view.Data.DestinationChart) == 1 && len(view.Data.VarietyChart) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRapidEditsCollapseToOneFetchCycle(t *testing.T) {
	api := &mockAPI{}
	svc := newTestService(t, api, 80*time.Millisecond)
	board := svc.Board("sess-1", "ferme_nord")
	waitSettled(t, board)

	api.mu.Lock()
	baseline := api.dataCalls
	api.mu.Unlock()

	board.UpdateFilters(FilterEdit{VergerID: id(1)})
	board.UpdateFilters(FilterEdit{GrpVarID: id(10)})
	board.UpdateFilters(FilterEdit{GrpVarID: id(20)})

	time.Sleep(300 * time.Millisecond)

	api.mu.Lock()
	calls := api.dataCalls
	lastQuery := api.lastQuery
	api.mu.Unlock()

	assert.Equal(t, baseline+1, calls, "three edits inside the window trigger one cycle")
	require.NotNil(t, lastQuery.GrpVarID)
	assert.Equal(t, int64(20), *lastQuery.GrpVarID, "the cycle uses the last edit's values")
}

func TestBoardSurfacesBatchFailureAsStale(t *testing.T) {
	api := &mockAPI{detailErr: &upstream.StatusError{Status: 502}}
	svc := newTestService(t, api, 10*time.Millisecond)
	board := svc.Board("sess-1", "ferme_nord")

	require.Eventually(t, func() bool {
		view := board.View()
		return view.Error != ""
	}, 2*time.Second, 10*time.Millisecond)

	view := board.View()
	assert.True(t, view.Stale)
	assert.Equal(t, "HTTP error! status: 502", view.Error)
}

func TestCombinedTrendIssuesThreeRequests(t *testing.T) {
	api := &mockAPI{}
	svc := newTestService(t, api, 10*time.Millisecond)
	board := svc.Board("sess-1", "ferme_nord")
	waitSettled(t, board)

	require.NoError(t, board.SetTrend(TrendSpec{Metric: MetricCombined, Bucket: BucketWeekly}))

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		types := map[string]bool{}
		for _, ct := range api.trendChartTypes {
			types[ct] = true
		}
		return types[MetricReception] && types[MetricExport] && types[MetricEcart]
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		trend := board.Trend()
		return len(trend) == 1 && trend[0].Reception == 10 && trend[0].Export == 10 && trend[0].Ecart == 10
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSetTrendRejectsUnknownMetric(t *testing.T) {
	api := &mockAPI{}
	svc := newTestService(t, api, 10*time.Millisecond)
	board := svc.Board("sess-1", "ferme_nord")
	waitSettled(t, board)

	assert.Error(t, board.SetTrend(TrendSpec{Metric: "yield", Bucket: BucketDaily}))
}

// flakySource fails the campaign date lookup until told otherwise.
type flakySource struct {
	staticSource
	mu   sync.Mutex
	fail bool
}

func (f *flakySource) CampagneDates(ctx context.Context) (upstream.CampagneDates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return upstream.CampagneDates{}, errors.New("lookup backend down")
	}
	return f.staticSource.CampagneDates(ctx)
}

func (f *flakySource) recover() {
	f.mu.Lock()
	f.fail = false
	f.mu.Unlock()
}

func TestFailedInitKeepsFilterEditsInert(t *testing.T) {
	api := &mockAPI{}
	source := &flakySource{fail: true}
	svc := newTestServiceWithSource(t, api, 10*time.Millisecond, source)
	board := svc.Board("sess-1", "ferme_nord")

	require.Eventually(t, func() bool {
		return board.View().Error != ""
	}, 2*time.Second, 10*time.Millisecond)

	board.UpdateFilters(FilterEdit{VergerID: id(1)})
	time.Sleep(150 * time.Millisecond)

	api.mu.Lock()
	dataCalls, trendCalls := api.dataCalls, api.trendCalls
	api.mu.Unlock()
	assert.Zero(t, dataCalls, "no fetch cycle may run without the campaign date range")
	assert.Zero(t, trendCalls)
	assert.True(t, board.View().Loading, "the initialisation guard stays up")
}

func TestFailedInitRetriesOnNextAccess(t *testing.T) {
	api := &mockAPI{}
	source := &flakySource{fail: true}
	svc := newTestServiceWithSource(t, api, 10*time.Millisecond, source)
	board := svc.Board("sess-1", "ferme_nord")

	require.Eventually(t, func() bool {
		return board.View().Error != ""
	}, 2*time.Second, 10*time.Millisecond)

	source.recover()
	again := svc.Board("sess-1", "ferme_nord")
	require.Same(t, board, again)
	waitSettled(t, again)

	view := again.View()
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), view.Filters.StartDate)
	assert.Empty(t, view.Error)

	api.mu.Lock()
	lastQuery := api.lastQuery
	api.mu.Unlock()
	assert.False(t, lastQuery.StartDate.IsZero(), "the first cycle runs with the campaign window")
	assert.False(t, lastQuery.EndDate.IsZero())
}

func TestIdleBoardsAreEvicted(t *testing.T) {
	api := &mockAPI{}
	svc := newTestService(t, api, 10*time.Millisecond)
	current := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	svc.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return current
	}

	stale := svc.Board("sess-old", "ferme_nord")
	waitSettled(t, stale)

	clockMu.Lock()
	current = current.Add(DefaultBoardIdleTTL + time.Minute)
	clockMu.Unlock()
	fresh := svc.Board("sess-new", "ferme_nord")
	waitSettled(t, fresh)

	assert.Equal(t, 1, svc.EvictIdle(), "only the quiet board is reclaimed")
	assert.Same(t, fresh, svc.Board("sess-new", "ferme_nord"))
	assert.NotSame(t, stale, svc.Board("sess-old", "ferme_nord"), "a reclaimed session gets a new board")
}

func TestAggregatedSalesComputedFromVenteEcarts(t *testing.T) {
	api := &mockAPI{venteRows: []upstream.VenteEcart{{
		Date:      time.Date(2025, 10, 4, 10, 0, 0, 0, time.UTC),
		TypeEcart: "VE",
		UnitPrice: 2.5,
		Details:   []upstream.VenteEcartDetail{{VergerID: 1, GrpVarID: 10, Weight: 10}},
	}}}
	svc := newTestService(t, api, 10*time.Millisecond)
	board := svc.Board("sess-1", "ferme_nord")
	waitSettled(t, board)

	view := board.View()
	require.Len(t, view.Data.AggregatedSales, 1)
	assert.Equal(t, 10.0, view.Data.AggregatedSales[0].WeightTotal)
	assert.Equal(t, 25.0, view.Data.AggregatedSales[0].AmountTotal)
	assert.Equal(t, "Atlas", view.Data.AggregatedSales[0].VergerName)
}
