package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/agrotrace/agrotrace/internal/dashboard"
	"github.com/agrotrace/agrotrace/internal/ecart"
	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/internal/upstream"
	"github.com/xuri/excelize/v2"
)

func testMeta() Meta {
	return Meta{
		Title:       "Détails des écarts",
		GeneratedAt: time.Date(2026, 8, 31, 15, 4, 0, 0, time.UTC),
		PeriodStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Filters:     []FilterLine{{Label: "Verger", Value: "Atlas"}},
	}
}

func TestEcartDetailsHTMLEmpty(t *testing.T) {
	if _, err := EcartDetailsHTML(testMeta(), nil); !errors.Is(err, shared.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestEcartDetailsHTML(t *testing.T) {
	rows := []upstream.EcartDetail{
		{VergerName: "Atlas", VarieteName: "Nour", TypeEcart: "Triage", Weight: 120.5, Count: 3},
		{VergerName: "Atlas", VarieteName: "Nadorcott", TypeEcart: "Triage", Weight: 80, Count: 2},
		{VergerName: "Brahim", VarieteName: "Nour", TypeEcart: "Freinte", Weight: 50, Count: 1},
	}
	html, err := EcartDetailsHTML(testMeta(), rows)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if !strings.Contains(html, "Détails des écarts") {
		t.Fatalf("expected title in document")
	}
	if !strings.Contains(html, "Total général") {
		t.Fatalf("expected grand total row")
	}
	if !strings.Contains(html, "Période: du 01/08/2026 au 31/08/2026") {
		t.Fatalf("expected period line, got %s", html)
	}
	if strings.Count(html, ">Atlas<") != 1 {
		t.Fatalf("expected the orchard name once per group")
	}
}

func TestAggregatedSalesHTMLTotals(t *testing.T) {
	rows := []ecart.AggregatedRow{
		{VergerName: "Atlas", GrpVarName: "Clémentine", TypeEcartName: "Triage", WeightTotal: 10, AmountTotal: 25},
		{VergerName: "Brahim", GrpVarName: "Orange", TypeEcartName: "Triage", WeightTotal: 5, AmountTotal: 12.5},
	}
	html, err := AggregatedSalesHTML(testMeta(), rows)
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if !strings.Contains(html, FormatWeight(15)) {
		t.Fatalf("expected summed weight in footer")
	}
	if !strings.Contains(html, FormatAmount(37.5)) {
		t.Fatalf("expected summed amount in footer")
	}
}

type failingRenderer struct{}

func (failingRenderer) Render([]dashboard.TrendRecord, dashboard.TrendSpec) (template.HTML, error) {
	return "", errors.New("renderer down")
}

func TestTrendHTMLRendererFailureKeepsTable(t *testing.T) {
	records := []dashboard.TrendRecord{{Period: "S36", Reception: 100}}
	html, err := TrendHTML(testMeta(), records, dashboard.DefaultTrendSpec(), failingRenderer{})
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if !strings.Contains(html, "n'a pas pu être généré") {
		t.Fatalf("expected renderer failure note")
	}
	if !strings.Contains(html, "S36") {
		t.Fatalf("expected table rows despite renderer failure")
	}
}

func TestTrendHTMLCombinedChart(t *testing.T) {
	records := []dashboard.TrendRecord{
		{Period: "S36", Reception: 100, Export: 60, Ecart: 8},
		{Period: "S37", Reception: 120, Export: 70, Ecart: 9},
	}
	spec := dashboard.TrendSpec{Metric: dashboard.MetricCombined, Bucket: dashboard.BucketWeekly}
	html, err := TrendHTML(testMeta(), records, spec, SVGCharts{})
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	if !strings.Contains(html, "<svg") {
		t.Fatalf("expected embedded svg chart")
	}
	if !strings.Contains(html, "Export (kg)") {
		t.Fatalf("expected combined table columns")
	}
}

func TestWriteEcartDetailsCSV(t *testing.T) {
	rows := []upstream.EcartDetail{
		{VergerName: "Atlas", VarieteName: "Nour", TypeEcart: "Triage", Weight: 120.5, Count: 3},
	}
	buf := &bytes.Buffer{}
	if err := WriteEcartDetailsCSV(buf, rows); err != nil {
		t.Fatalf("csv error: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("csv read error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(records))
	}
	if records[1][3] != "120.50" {
		t.Fatalf("expected dot-decimal weight, got %q", records[1][3])
	}
}

func TestWriteTrendCSVEmpty(t *testing.T) {
	if err := WriteTrendCSV(&bytes.Buffer{}, nil); !errors.Is(err, shared.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestWriteAggregatedSalesXLSX(t *testing.T) {
	rows := []ecart.AggregatedRow{
		{VergerName: "Atlas", GrpVarName: "Clémentine", TypeEcartName: "Triage", WeightTotal: 10, AmountTotal: 25},
	}
	buf := &bytes.Buffer{}
	if err := WriteAggregatedSalesXLSX(buf, "Ventes écart", rows); err != nil {
		t.Fatalf("xlsx error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("xlsx open error: %v", err)
	}
	defer func() { _ = f.Close() }()
	value, err := f.GetCellValue("Sheet1", "A3")
	if err != nil {
		t.Fatalf("cell read error: %v", err)
	}
	if value != "Atlas" {
		t.Fatalf("expected orchard name in first data row, got %q", value)
	}
	total, err := f.GetCellValue("Sheet1", "A4")
	if err != nil {
		t.Fatalf("cell read error: %v", err)
	}
	if total != "Total général" {
		t.Fatalf("expected grand total row, got %q", total)
	}
}

func TestSlugifyAndFileName(t *testing.T) {
	if got := Slugify("Détails des écarts"); got != "details-des-ecarts" {
		t.Fatalf("unexpected slug %q", got)
	}
	at := time.Date(2026, 8, 31, 15, 4, 0, 0, time.UTC)
	if got := FileName("Détails des écarts", "pdf", at); got != "details-des-ecarts-2026-08-31-1504.pdf" {
		t.Fatalf("unexpected file name %q", got)
	}
}
