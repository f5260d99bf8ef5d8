package dashboard

import (
	"sort"

	"github.com/agrotrace/agrotrace/internal/ecart"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

// SortConfig is the sort state of one table; each table keeps its own.
type SortConfig struct {
	Key        string `json:"key"`
	Descending bool   `json:"descending"`
}

// Toggle returns the config after clicking a column header: the same key
// flips direction, a new key resets to ascending.
func (c SortConfig) Toggle(key string) SortConfig {
	if c.Key == key {
		return SortConfig{Key: key, Descending: !c.Descending}
	}
	return SortConfig{Key: key}
}

// SortAggregated orders aggregated sale rows per the config. Unknown keys
// leave the slice untouched.
func SortAggregated(rows []ecart.AggregatedRow, cfg SortConfig) {
	less := aggregatedLess(cfg.Key)
	if less == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if cfg.Descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func aggregatedLess(key string) func(a, b ecart.AggregatedRow) bool {
	switch key {
	case "verger":
		return func(a, b ecart.AggregatedRow) bool { return a.VergerName < b.VergerName }
	case "grpVar":
		return func(a, b ecart.AggregatedRow) bool { return a.GrpVarName < b.GrpVarName }
	case "typeEcart":
		return func(a, b ecart.AggregatedRow) bool { return a.TypeEcartName < b.TypeEcartName }
	case "weight":
		return func(a, b ecart.AggregatedRow) bool { return a.WeightTotal < b.WeightTotal }
	case "amount":
		return func(a, b ecart.AggregatedRow) bool { return a.AmountTotal < b.AmountTotal }
	default:
		return nil
	}
}

// SortEcartDetails orders discrepancy detail rows per the config.
func SortEcartDetails(rows []upstream.EcartDetail, cfg SortConfig) {
	less := ecartDetailLess(cfg.Key)
	if less == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if cfg.Descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func ecartDetailLess(key string) func(a, b upstream.EcartDetail) bool {
	switch key {
	case "verger":
		return func(a, b upstream.EcartDetail) bool { return a.VergerName < b.VergerName }
	case "variete":
		return func(a, b upstream.EcartDetail) bool { return a.VarieteName < b.VarieteName }
	case "typeEcart":
		return func(a, b upstream.EcartDetail) bool { return a.TypeEcart < b.TypeEcart }
	case "weight":
		return func(a, b upstream.EcartDetail) bool { return a.Weight < b.Weight }
	case "count":
		return func(a, b upstream.EcartDetail) bool { return a.Count < b.Count }
	default:
		return nil
	}
}
