package dashboard

import (
	"sync"

	"github.com/agrotrace/agrotrace/internal/ecart"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

// Datasets are the named results of one primary fetch cycle. A cycle
// replaces them wholesale; partial merges never happen.
type Datasets struct {
	Totals           upstream.DashboardData `json:"totals"`
	EcartDetails     []upstream.EcartDetail `json:"ecartDetails"`
	EcartGroups      []upstream.EcartGroup  `json:"ecartGroups"`
	DestinationChart []upstream.ChartSeries `json:"destinationChart"`
	VarietyChart     []upstream.ChartSeries `json:"varietyChart"`
	VenteEcarts      []upstream.VenteEcart  `json:"venteEcarts"`
	AggregatedSales  []ecart.AggregatedRow  `json:"aggregatedSales"`
}

// View is the read projection handed to the HTTP layer.
type View struct {
	Filters   FilterSnapshot  `json:"filters"`
	TrendSpec TrendSpec       `json:"trendSpec"`
	Loading   bool            `json:"loading"`
	Stale     bool            `json:"stale"`
	Error     string          `json:"error,omitempty"`
	Data      Datasets        `json:"data"`
	Trend     []TrendRecord   `json:"trend"`
	TrendErr  string          `json:"trendError,omitempty"`
	Grouped   []upstream.GroupedTotals `json:"grouped"`
	GroupedErr string         `json:"groupedError,omitempty"`
	Sorts     map[string]SortConfig `json:"sorts"`
}

// State holds one dashboard's datasets behind a generation guard: every
// fetch cycle takes the next generation and results apply only while no
// newer generation has applied, so a late response can never overwrite a
// newer one.
type State struct {
	mu sync.Mutex

	initializing bool
	filters      FilterSnapshot
	trendSpec    TrendSpec

	primaryGen     uint64
	primaryApplied uint64
	loading        bool
	stale          bool
	errMsg         string
	data           Datasets

	trendGen     uint64
	trendApplied uint64
	trend        []TrendRecord
	trendErr     string

	groupedGen     uint64
	groupedApplied uint64
	grouped        []upstream.GroupedTotals
	groupedErr     string

	sorts map[string]SortConfig
}

// NewState returns a State in its pre-initialisation phase: snapshot
// triggers no-op until the lookup/date-range load completes.
func NewState() *State {
	return &State{
		initializing: true,
		trendSpec:    DefaultTrendSpec(),
		sorts:        make(map[string]SortConfig),
	}
}

// FinishInit records the server-supplied default date range and lifts the
// initialisation guard.
func (s *State) FinishInit(filters FilterSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
	s.initializing = false
}

// FailInit surfaces a failed lookup load without lifting the guard, so
// filter edits stay inert until a retry succeeds.
func (s *State) FailInit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = err.Error()
}

// Initializing reports whether the initial lookup load is still outstanding.
func (s *State) Initializing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializing
}

// Filters returns the current raw snapshot.
func (s *State) Filters() FilterSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters
}

// SetFilters stores an edited snapshot synchronously; the debounced fetch
// follows separately.
func (s *State) SetFilters(filters FilterSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
}

// TrendSpec returns the current trend selection.
func (s *State) TrendSpec() TrendSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trendSpec
}

// SetTrendSpec stores the trend selection.
func (s *State) SetTrendSpec(spec TrendSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trendSpec = spec
}

// ToggleSort flips or resets the sort config of one table.
func (s *State) ToggleSort(table, key string) SortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.sorts[table].Toggle(key)
	s.sorts[table] = next
	return next
}

// BeginPrimary opens a primary fetch cycle and returns its generation.
func (s *State) BeginPrimary() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primaryGen++
	s.loading = true
	return s.primaryGen
}

// ApplyPrimary applies one cycle's results. Results older than the newest
// applied generation are discarded. On error the previous datasets stay
// visible but are marked stale.
func (s *State) ApplyPrimary(gen uint64, data Datasets, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.primaryApplied {
		return false
	}
	s.primaryApplied = gen
	if gen == s.primaryGen {
		s.loading = false
	}
	if err != nil {
		s.stale = true
		s.errMsg = err.Error()
		return true
	}
	s.data = data
	s.stale = false
	s.errMsg = ""
	return true
}

// BeginTrend opens a trend fetch cycle.
func (s *State) BeginTrend() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trendGen++
	return s.trendGen
}

// ApplyTrend applies one trend cycle under the same out-of-order guard.
func (s *State) ApplyTrend(gen uint64, records []TrendRecord, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.trendApplied {
		return false
	}
	s.trendApplied = gen
	if err != nil {
		s.trendErr = err.Error()
		return true
	}
	s.trend = records
	s.trendErr = ""
	return true
}

// Trend returns the current trend dataset.
func (s *State) Trend() []TrendRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trend
}

// BeginGrouped opens a grouped-totals fetch cycle.
func (s *State) BeginGrouped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupedGen++
	return s.groupedGen
}

// ApplyGrouped applies one grouped-totals cycle.
func (s *State) ApplyGrouped(gen uint64, rows []upstream.GroupedTotals, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.groupedApplied {
		return false
	}
	s.groupedApplied = gen
	if err != nil {
		s.groupedErr = err.Error()
		return true
	}
	s.grouped = rows
	s.groupedErr = ""
	return true
}

// Datasets returns a copy of the current primary datasets.
func (s *State) Datasets() Datasets {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Grouped returns the grouped-totals dataset.
func (s *State) Grouped() []upstream.GroupedTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grouped
}

// View projects the full state for rendering. Table sorting is applied on
// copies; the held datasets keep their fetch order.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		Filters:    s.filters,
		TrendSpec:  s.trendSpec,
		Loading:    s.loading || s.initializing,
		Stale:      s.stale,
		Error:      s.errMsg,
		Data:       s.data,
		Trend:      s.trend,
		TrendErr:   s.trendErr,
		Grouped:    s.grouped,
		GroupedErr: s.groupedErr,
		Sorts:      make(map[string]SortConfig, len(s.sorts)),
	}
	for table, cfg := range s.sorts {
		view.Sorts[table] = cfg
	}

	if cfg, ok := s.sorts["ecartDetails"]; ok {
		rows := make([]upstream.EcartDetail, len(s.data.EcartDetails))
		copy(rows, s.data.EcartDetails)
		SortEcartDetails(rows, cfg)
		view.Data.EcartDetails = rows
	}
	if cfg, ok := s.sorts["aggregatedSales"]; ok {
		rows := make([]ecart.AggregatedRow, len(s.data.AggregatedSales))
		copy(rows, s.data.AggregatedSales)
		SortAggregated(rows, cfg)
		view.Data.AggregatedSales = rows
	}
	return view
}
