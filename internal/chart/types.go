package chart

// Series is one named value sequence of a grouped bar chart.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
	// UnitSuffix is appended to value-axis ticks; empty means the
	// default weight unit, NoUnit suppresses it.
	UnitSuffix string
}

// BarOpts customises the grouped bar renderer.
type BarOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	UnitSuffix  string
}

// Defaults for the dashboard charts. Values are kilogram weights, so the
// value axis carries the kg unit unless a caller opts out.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 24.0
	DefaultTicks   = 6
	DefaultUnit    = "kg"
	NoUnit         = "-"

	// maxPeriodLabels caps the period labels drawn on the x axis; weekly
	// buckets over a full campaign would otherwise overlap.
	maxPeriodLabels = 13
)

// seriesPalette colours series lacking an explicit colour.
var seriesPalette = []string{"#15803d", "#b45309", "#b91c1c", "#1d4ed8"}
