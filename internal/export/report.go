package export

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/agrotrace/agrotrace/internal/dashboard"
	"github.com/agrotrace/agrotrace/internal/ecart"
	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

// Meta is the title block every report starts with: report name,
// generation timestamp, filter period and the active single-value filters.
type Meta struct {
	Title       string
	GeneratedAt time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Filters     []FilterLine
}

// FilterLine is one resolved active filter shown under the title.
type FilterLine struct {
	Label string
	Value string
}

const dateDisplayLayout = "02/01/2006"

// EcartDetailsHTML builds the discrepancy detail report, rows grouped by
// orchard then variety then discrepancy type, with a grand-total row.
func EcartDetailsHTML(meta Meta, rows []upstream.EcartDetail) (string, error) {
	if len(rows) == 0 {
		return "", shared.ErrNoData
	}

	sorted := make([]upstream.EcartDetail, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].VergerName != sorted[j].VergerName {
			return sorted[i].VergerName < sorted[j].VergerName
		}
		if sorted[i].VarieteName != sorted[j].VarieteName {
			return sorted[i].VarieteName < sorted[j].VarieteName
		}
		return sorted[i].TypeEcart < sorted[j].TypeEcart
	})

	var b strings.Builder
	openDocument(&b, meta)
	b.WriteString("<table><thead><tr><th>Verger</th><th>Variété</th><th>Type d'écart</th><th class=\"num\">Poids (kg)</th><th class=\"num\">Nombre</th></tr></thead><tbody>")

	var totalWeight float64
	var totalCount int64
	lastVerger := ""
	for _, row := range sorted {
		verger := row.VergerName
		if verger == lastVerger {
			verger = ""
		} else {
			lastVerger = row.VergerName
		}
		b.WriteString("<tr><td>")
		b.WriteString(escape(verger))
		b.WriteString("</td><td>")
		b.WriteString(escape(row.VarieteName))
		b.WriteString("</td><td>")
		b.WriteString(escape(row.TypeEcart))
		b.WriteString("</td><td class=\"num\">")
		b.WriteString(escape(FormatWeight(row.Weight)))
		b.WriteString("</td><td class=\"num\">")
		b.WriteString(escape(FormatCount(row.Count)))
		b.WriteString("</td></tr>")
		totalWeight += row.Weight
		totalCount += row.Count
	}
	b.WriteString("</tbody><tfoot><tr><th colspan=\"3\">Total général</th><th class=\"num\">")
	b.WriteString(escape(FormatWeight(totalWeight)))
	b.WriteString("</th><th class=\"num\">")
	b.WriteString(escape(FormatCount(totalCount)))
	b.WriteString("</th></tr></tfoot></table>")
	closeDocument(&b)
	return b.String(), nil
}

// AggregatedSalesHTML builds the sale-vs-écart report with a grand-total row.
func AggregatedSalesHTML(meta Meta, rows []ecart.AggregatedRow) (string, error) {
	if len(rows) == 0 {
		return "", shared.ErrNoData
	}

	var b strings.Builder
	openDocument(&b, meta)
	b.WriteString("<table><thead><tr><th>Verger</th><th>Groupe variétal</th><th>Type d'écart</th><th class=\"num\">Poids (kg)</th><th class=\"num\">Montant</th></tr></thead><tbody>")

	var totalWeight, totalAmount float64
	for _, row := range rows {
		b.WriteString("<tr><td>")
		b.WriteString(escape(row.VergerName))
		b.WriteString("</td><td>")
		b.WriteString(escape(row.GrpVarName))
		b.WriteString("</td><td>")
		b.WriteString(escape(row.TypeEcartName))
		b.WriteString("</td><td class=\"num\">")
		b.WriteString(escape(FormatWeight(row.WeightTotal)))
		b.WriteString("</td><td class=\"num\">")
		b.WriteString(escape(FormatAmount(row.AmountTotal)))
		b.WriteString("</td></tr>")
		totalWeight += row.WeightTotal
		totalAmount += row.AmountTotal
	}
	b.WriteString("</tbody><tfoot><tr><th colspan=\"3\">Total général</th><th class=\"num\">")
	b.WriteString(escape(FormatWeight(totalWeight)))
	b.WriteString("</th><th class=\"num\">")
	b.WriteString(escape(FormatAmount(totalAmount)))
	b.WriteString("</th></tr></tfoot></table>")
	closeDocument(&b)
	return b.String(), nil
}

// GroupedTotalsHTML builds the totals-by-variety-group report.
func GroupedTotalsHTML(meta Meta, rows []upstream.GroupedTotals) (string, error) {
	if len(rows) == 0 {
		return "", shared.ErrNoData
	}

	var b strings.Builder
	openDocument(&b, meta)
	b.WriteString("<table><thead><tr><th>Groupe variétal</th><th class=\"num\">Réception (kg)</th><th class=\"num\">Export (kg)</th><th class=\"num\">Écart (kg)</th></tr></thead><tbody>")

	var reception, exported, discrepancy float64
	for _, row := range rows {
		b.WriteString("<tr><td>")
		b.WriteString(escape(row.GrpVarName))
		b.WriteString("</td><td class=\"num\">")
		b.WriteString(escape(FormatWeight(row.ReceptionWeight)))
		b.WriteString("</td><td class=\"num\">")
		b.WriteString(escape(FormatWeight(row.ExportWeight)))
		b.WriteString("</td><td class=\"num\">")
		b.WriteString(escape(FormatWeight(row.EcartWeight)))
		b.WriteString("</td></tr>")
		reception += row.ReceptionWeight
		exported += row.ExportWeight
		discrepancy += row.EcartWeight
	}
	b.WriteString("</tbody><tfoot><tr><th>Total général</th><th class=\"num\">")
	b.WriteString(escape(FormatWeight(reception)))
	b.WriteString("</th><th class=\"num\">")
	b.WriteString(escape(FormatWeight(exported)))
	b.WriteString("</th><th class=\"num\">")
	b.WriteString(escape(FormatWeight(discrepancy)))
	b.WriteString("</th></tr></tfoot></table>")
	closeDocument(&b)
	return b.String(), nil
}

// ChartRenderer turns a trend dataset into an embeddable chart fragment.
type ChartRenderer interface {
	Render(records []dashboard.TrendRecord, spec dashboard.TrendSpec) (template.HTML, error)
}

// TrendHTML builds the chart-plus-table trend report. A renderer failure
// does not fail the report: the chart region is replaced with a note and
// the table is still emitted.
func TrendHTML(meta Meta, records []dashboard.TrendRecord, spec dashboard.TrendSpec, renderer ChartRenderer) (string, error) {
	if len(records) == 0 {
		return "", shared.ErrNoData
	}

	var b strings.Builder
	openDocument(&b, meta)

	if renderer != nil {
		chart, err := renderer.Render(records, spec)
		if err != nil {
			b.WriteString("<p class=\"note\">Le graphique n'a pas pu être généré.</p>")
		} else {
			b.WriteString("<div class=\"chart\">")
			b.WriteString(string(chart))
			b.WriteString("</div>")
		}
	}

	combined := spec.Metric == dashboard.MetricCombined
	if combined {
		b.WriteString("<table><thead><tr><th>Période</th><th class=\"num\">Réception (kg)</th><th class=\"num\">Export (kg)</th><th class=\"num\">Écart (kg)</th></tr></thead><tbody>")
	} else {
		b.WriteString(fmt.Sprintf("<table><thead><tr><th>Période</th><th class=\"num\">%s (kg)</th></tr></thead><tbody>", escape(metricLabel(spec.Metric))))
	}

	var reception, exported, discrepancy float64
	for _, rec := range records {
		b.WriteString("<tr><td>")
		b.WriteString(escape(rec.Period))
		b.WriteString("</td>")
		if combined {
			b.WriteString("<td class=\"num\">" + escape(FormatWeight(rec.Reception)) + "</td>")
			b.WriteString("<td class=\"num\">" + escape(FormatWeight(rec.Export)) + "</td>")
			b.WriteString("<td class=\"num\">" + escape(FormatWeight(rec.Ecart)) + "</td>")
		} else {
			b.WriteString("<td class=\"num\">" + escape(FormatWeight(metricValue(rec, spec.Metric))) + "</td>")
		}
		b.WriteString("</tr>")
		reception += rec.Reception
		exported += rec.Export
		discrepancy += rec.Ecart
	}
	if combined {
		b.WriteString("</tbody><tfoot><tr><th>Total général</th><th class=\"num\">")
		b.WriteString(escape(FormatWeight(reception)))
		b.WriteString("</th><th class=\"num\">")
		b.WriteString(escape(FormatWeight(exported)))
		b.WriteString("</th><th class=\"num\">")
		b.WriteString(escape(FormatWeight(discrepancy)))
		b.WriteString("</th></tr></tfoot></table>")
	} else {
		total := reception + exported + discrepancy
		b.WriteString("</tbody><tfoot><tr><th>Total général</th><th class=\"num\">")
		b.WriteString(escape(FormatWeight(total)))
		b.WriteString("</th></tr></tfoot></table>")
	}
	closeDocument(&b)
	return b.String(), nil
}

func metricLabel(metric string) string {
	switch metric {
	case dashboard.MetricExport:
		return "Export"
	case dashboard.MetricEcart:
		return "Écart"
	default:
		return "Réception"
	}
}

func metricValue(rec dashboard.TrendRecord, metric string) float64 {
	switch metric {
	case dashboard.MetricExport:
		return rec.Export
	case dashboard.MetricEcart:
		return rec.Ecart
	default:
		return rec.Reception
	}
}

func openDocument(b *strings.Builder, meta Meta) {
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;color:#1f2937;}h1{font-size:20px;margin-bottom:4px;}")
	b.WriteString(".meta{font-size:12px;color:#475569;margin-bottom:16px;}.meta span{margin-right:16px;}")
	b.WriteString("table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #d1d5db;padding:6px;text-align:left;font-size:12px;}")
	b.WriteString("th{background:#f0fdf4;}td.num,th.num{text-align:right;}tfoot th{background:#dcfce7;}")
	b.WriteString(".chart{margin-bottom:16px;}.note{font-size:12px;color:#b91c1c;}")
	b.WriteString("</style></head><body>")
	b.WriteString("<h1>")
	b.WriteString(escape(meta.Title))
	b.WriteString("</h1><div class=\"meta\">")
	b.WriteString(fmt.Sprintf("<span>Généré le %s</span>", escape(meta.GeneratedAt.Format("02/01/2006 15:04"))))
	if !meta.PeriodStart.IsZero() || !meta.PeriodEnd.IsZero() {
		b.WriteString(fmt.Sprintf("<span>Période: du %s au %s</span>",
			escape(meta.PeriodStart.Format(dateDisplayLayout)),
			escape(meta.PeriodEnd.Format(dateDisplayLayout))))
	}
	for _, filter := range meta.Filters {
		b.WriteString(fmt.Sprintf("<span>%s: %s</span>", escape(filter.Label), escape(filter.Value)))
	}
	b.WriteString("</div>")
}

func closeDocument(b *strings.Builder) {
	b.WriteString("</body></html>")
}

func escape(v string) string {
	return template.HTMLEscapeString(v)
}
