package export

import (
	"html/template"

	"github.com/agrotrace/agrotrace/internal/chart"
	"github.com/agrotrace/agrotrace/internal/dashboard"
)

// SVGCharts renders trend datasets with the in-process SVG renderers.
// Single-metric specs render as a line, the combined spec as grouped bars.
type SVGCharts struct {
	Width  int
	Height int
}

func (s SVGCharts) Render(records []dashboard.TrendRecord, spec dashboard.TrendSpec) (template.HTML, error) {
	labels := make([]string, 0, len(records))
	for _, rec := range records {
		labels = append(labels, rec.Period)
	}

	if spec.Metric == dashboard.MetricCombined {
		groups := []chart.Series{
			{Label: "Réception", Values: make([]float64, 0, len(records))},
			{Label: "Export", Values: make([]float64, 0, len(records))},
			{Label: "Écart", Values: make([]float64, 0, len(records))},
		}
		for _, rec := range records {
			groups[0].Values = append(groups[0].Values, rec.Reception)
			groups[1].Values = append(groups[1].Values, rec.Export)
			groups[2].Values = append(groups[2].Values, rec.Ecart)
		}
		return chart.Bars(s.Width, s.Height, groups, labels, chart.BarOpts{
			Title:       "Tendance",
			Description: "Réception, export et écart par période",
		})
	}

	values := make([]float64, 0, len(records))
	for _, rec := range records {
		values = append(values, metricValue(rec, spec.Metric))
	}
	return chart.Line(s.Width, s.Height, values, labels, chart.LineOpts{
		Title:       metricLabel(spec.Metric),
		Description: "Poids par période",
		ShowDots:    true,
	})
}
