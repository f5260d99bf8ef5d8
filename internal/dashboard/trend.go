package dashboard

import (
	"fmt"

	"github.com/agrotrace/agrotrace/internal/upstream"
)

// Metric types accepted by the periodic trend effect.
const (
	MetricReception = "reception"
	MetricExport    = "export"
	MetricEcart     = "ecart"
	MetricCombined  = "combined"
)

// Time buckets accepted by the periodic trend endpoint.
const (
	BucketDaily    = "daily"
	BucketWeekly   = "weekly"
	BucketBiWeekly = "biweekly"
	BucketMonthly  = "monthly"
)

// TrendSpec selects the metric and bucket granularity of the trend series.
type TrendSpec struct {
	Metric string `json:"metric" validate:"required,oneof=reception export ecart combined"`
	Bucket string `json:"bucket" validate:"required,oneof=daily weekly biweekly monthly"`
}

// DefaultTrendSpec is applied until the user picks something else.
func DefaultTrendSpec() TrendSpec {
	return TrendSpec{Metric: MetricReception, Bucket: BucketWeekly}
}

// Validate rejects unknown metrics and buckets.
func (t TrendSpec) Validate() error {
	switch t.Metric {
	case MetricReception, MetricExport, MetricEcart, MetricCombined:
	default:
		return fmt.Errorf("dashboard: unknown trend metric %q", t.Metric)
	}
	switch t.Bucket {
	case BucketDaily, BucketWeekly, BucketBiWeekly, BucketMonthly:
	default:
		return fmt.Errorf("dashboard: unknown trend bucket %q", t.Bucket)
	}
	return nil
}

// TrendRecord is one period of the trend dataset. For a single-metric spec
// only that metric's field carries data; for the combined spec all three
// are populated, zero-filled where a source series misses the period.
type TrendRecord struct {
	Period    string  `json:"period"`
	Reception float64 `json:"reception"`
	Export    float64 `json:"export"`
	Ecart     float64 `json:"ecart"`
}

// mergeTrends joins the three base series by period label. Period order
// follows first appearance across the series.
func mergeTrends(reception, export, ecart []upstream.TrendPoint) []TrendRecord {
	index := make(map[string]*TrendRecord)
	order := make([]string, 0, len(reception))

	record := func(period string) *TrendRecord {
		if rec, ok := index[period]; ok {
			return rec
		}
		rec := &TrendRecord{Period: period}
		index[period] = rec
		order = append(order, period)
		return rec
	}

	for _, point := range reception {
		record(point.Period).Reception = point.Value
	}
	for _, point := range export {
		record(point.Period).Export = point.Value
	}
	for _, point := range ecart {
		record(point.Period).Ecart = point.Value
	}

	out := make([]TrendRecord, 0, len(order))
	for _, period := range order {
		out = append(out, *index[period])
	}
	return out
}

// singleTrend lifts one base series into trend records.
func singleTrend(metric string, points []upstream.TrendPoint) []TrendRecord {
	out := make([]TrendRecord, 0, len(points))
	for _, point := range points {
		rec := TrendRecord{Period: point.Period}
		switch metric {
		case MetricReception:
			rec.Reception = point.Value
		case MetricExport:
			rec.Export = point.Value
		case MetricEcart:
			rec.Ecart = point.Value
		}
		out = append(out, rec)
	}
	return out
}
