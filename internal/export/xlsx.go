package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/agrotrace/agrotrace/internal/ecart"
	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

const sheetName = "Sheet1"

// WriteEcartDetailsXLSX emits the discrepancy detail rows as a workbook.
func WriteEcartDetailsXLSX(w io.Writer, title string, rows []upstream.EcartDetail) error {
	if len(rows) == 0 {
		return shared.ErrNoData
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	writeHeader(f, title, []string{"Verger", "Variété", "Type d'écart", "Poids (kg)", "Nombre"})
	var totalWeight float64
	var totalCount int64
	for i, row := range rows {
		line := i + 3
		setRow(f, line, row.VergerName, row.VarieteName, row.TypeEcart, row.Weight, row.Count)
		totalWeight += row.Weight
		totalCount += row.Count
	}
	setRow(f, len(rows)+3, "Total général", "", "", totalWeight, totalCount)
	return f.Write(w)
}

// WriteAggregatedSalesXLSX emits the sale-vs-écart rows as a workbook.
func WriteAggregatedSalesXLSX(w io.Writer, title string, rows []ecart.AggregatedRow) error {
	if len(rows) == 0 {
		return shared.ErrNoData
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	writeHeader(f, title, []string{"Verger", "Groupe variétal", "Type d'écart", "Poids (kg)", "Montant"})
	var totalWeight, totalAmount float64
	for i, row := range rows {
		line := i + 3
		setRow(f, line, row.VergerName, row.GrpVarName, row.TypeEcartName, row.WeightTotal, row.AmountTotal)
		totalWeight += row.WeightTotal
		totalAmount += row.AmountTotal
	}
	setRow(f, len(rows)+3, "Total général", "", "", totalWeight, totalAmount)
	return f.Write(w)
}

// WriteGroupedTotalsXLSX emits the totals-by-variety-group rows as a workbook.
func WriteGroupedTotalsXLSX(w io.Writer, title string, rows []upstream.GroupedTotals) error {
	if len(rows) == 0 {
		return shared.ErrNoData
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	writeHeader(f, title, []string{"Groupe variétal", "Réception (kg)", "Export (kg)", "Écart (kg)"})
	var reception, exported, discrepancy float64
	for i, row := range rows {
		line := i + 3
		_ = f.SetCellValue(sheetName, cell("A", line), row.GrpVarName)
		_ = f.SetCellValue(sheetName, cell("B", line), row.ReceptionWeight)
		_ = f.SetCellValue(sheetName, cell("C", line), row.ExportWeight)
		_ = f.SetCellValue(sheetName, cell("D", line), row.EcartWeight)
		reception += row.ReceptionWeight
		exported += row.ExportWeight
		discrepancy += row.EcartWeight
	}
	line := len(rows) + 3
	_ = f.SetCellValue(sheetName, cell("A", line), "Total général")
	_ = f.SetCellValue(sheetName, cell("B", line), reception)
	_ = f.SetCellValue(sheetName, cell("C", line), exported)
	_ = f.SetCellValue(sheetName, cell("D", line), discrepancy)
	return f.Write(w)
}

func writeHeader(f *excelize.File, title string, columns []string) {
	_ = f.SetCellValue(sheetName, "A1", title)
	for i, column := range columns {
		_ = f.SetCellValue(sheetName, cell(string(rune('A'+i)), 2), column)
	}
}

func setRow(f *excelize.File, line int, a, b, c string, weight float64, last interface{}) {
	_ = f.SetCellValue(sheetName, cell("A", line), a)
	_ = f.SetCellValue(sheetName, cell("B", line), b)
	_ = f.SetCellValue(sheetName, cell("C", line), c)
	_ = f.SetCellValue(sheetName, cell("D", line), weight)
	_ = f.SetCellValue(sheetName, cell("E", line), last)
}

func cell(column string, line int) string {
	return fmt.Sprintf("%s%d", column, line)
}
