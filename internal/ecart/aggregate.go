package ecart

import (
	"math"
	"sort"
	"time"

	"github.com/agrotrace/agrotrace/internal/upstream"
)

// Resolver resolves display names for aggregation keys. The lookup snapshot
// satisfies it; names fall back to the raw identifier when unresolved.
type Resolver interface {
	VergerName(id int64) string
	GrpVarName(id int64) string
	TypeEcartName(code string) string
}

// AggregatedRow is one sale-vs-écart accumulation keyed by
// (orchard, variety group, discrepancy type).
type AggregatedRow struct {
	VergerID      int64   `json:"vergerId"`
	GrpVarID      int64   `json:"grpVarId"`
	TypeEcart     string  `json:"typeEcart"`
	VergerName    string  `json:"vergerName"`
	GrpVarName    string  `json:"grpVarName"`
	TypeEcartName string  `json:"typeEcartName"`
	WeightTotal   float64 `json:"weightTotal"`
	AmountTotal   float64 `json:"amountTotal"`
}

type rowKey struct {
	vergerID  int64
	grpVarID  int64
	typeEcart string
}

// Aggregate groups sale-with-discrepancy records by orchard, variety group
// and discrepancy type over the inclusive date window. The end date is
// treated as end-of-day so same-day records are included. Weights sum as-is;
// amounts sum weight times the record's unit price. The result is sorted
// ascending by resolved orchard name.
func Aggregate(records []upstream.VenteEcart, start, end time.Time, resolver Resolver) []AggregatedRow {
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), end.Location())

	rows := make(map[rowKey]*AggregatedRow)
	order := make([]rowKey, 0)

	for _, record := range records {
		if record.Date.Before(start) || record.Date.After(endOfDay) {
			continue
		}
		price := sanitize(record.UnitPrice)
		for _, detail := range record.Details {
			key := rowKey{vergerID: detail.VergerID, grpVarID: detail.GrpVarID, typeEcart: record.TypeEcart}
			row, ok := rows[key]
			if !ok {
				row = &AggregatedRow{
					VergerID:      detail.VergerID,
					GrpVarID:      detail.GrpVarID,
					TypeEcart:     record.TypeEcart,
					VergerName:    resolver.VergerName(detail.VergerID),
					GrpVarName:    resolver.GrpVarName(detail.GrpVarID),
					TypeEcartName: resolver.TypeEcartName(record.TypeEcart),
				}
				rows[key] = row
				order = append(order, key)
			}
			weight := sanitize(detail.Weight)
			row.WeightTotal += weight
			row.AmountTotal += weight * price
		}
	}

	out := make([]AggregatedRow, 0, len(order))
	for _, key := range order {
		out = append(out, *rows[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VergerName < out[j].VergerName
	})
	return out
}

// sanitize maps NaN and infinities to zero so one malformed record cannot
// poison a running total.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
