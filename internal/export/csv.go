package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/agrotrace/agrotrace/internal/dashboard"
	"github.com/agrotrace/agrotrace/internal/ecart"
	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

// CSV variants are machine-readable: plain dot-decimal numbers, no
// grouping separators.

// WriteEcartDetailsCSV serialises the discrepancy detail rows.
func WriteEcartDetailsCSV(w io.Writer, rows []upstream.EcartDetail) error {
	if len(rows) == 0 {
		return shared.ErrNoData
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Verger", "Variete", "TypeEcart", "Poids", "Nombre"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.VergerName,
			row.VarieteName,
			row.TypeEcart,
			formatFloat(row.Weight),
			strconv.FormatInt(row.Count, 10),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteAggregatedSalesCSV serialises the sale-vs-écart rows.
func WriteAggregatedSalesCSV(w io.Writer, rows []ecart.AggregatedRow) error {
	if len(rows) == 0 {
		return shared.ErrNoData
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Verger", "GroupeVarietal", "TypeEcart", "Poids", "Montant"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.VergerName,
			row.GrpVarName,
			row.TypeEcartName,
			formatFloat(row.WeightTotal),
			formatFloat(row.AmountTotal),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteGroupedTotalsCSV serialises the totals-by-variety-group rows.
func WriteGroupedTotalsCSV(w io.Writer, rows []upstream.GroupedTotals) error {
	if len(rows) == 0 {
		return shared.ErrNoData
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"GroupeVarietal", "Reception", "Export", "Ecart"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.GrpVarName,
			formatFloat(row.ReceptionWeight),
			formatFloat(row.ExportWeight),
			formatFloat(row.EcartWeight),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTrendCSV serialises trend records, all three metric columns.
func WriteTrendCSV(w io.Writer, records []dashboard.TrendRecord) error {
	if len(records) == 0 {
		return shared.ErrNoData
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Periode", "Reception", "Export", "Ecart"}); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writer.Write([]string{
			rec.Period,
			formatFloat(rec.Reception),
			formatFloat(rec.Export),
			formatFloat(rec.Ecart),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
