package chart

import (
	"strings"
	"testing"
)

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []float64{1200, 1540, 980}, []string{"S36", "S37", "S38"}, LineOpts{
		Title:       "Réception",
		Description: "Weekly reception weight",
		ShowDots:    true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if !strings.Contains(output, "<path") {
		t.Fatalf("expected path element in svg")
	}
	if !strings.Contains(output, "aria-labelledby") {
		t.Fatalf("expected accessibility attributes")
	}
}

func TestLineRejectsMismatchedLabels(t *testing.T) {
	if _, err := Line(400, 200, []float64{1, 2, 3}, []string{"S36"}, LineOpts{}); err == nil {
		t.Fatalf("expected error for mismatched labels")
	}
}

func TestLineTicksCarryWeightUnit(t *testing.T) {
	html, err := Line(400, 200, []float64{100, 200}, []string{"S36", "S37"}, LineOpts{})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	if !strings.Contains(string(html), " kg</text>") {
		t.Fatalf("expected kg suffix on value ticks")
	}

	html, err = Line(400, 200, []float64{100, 200}, []string{"S36", "S37"}, LineOpts{UnitSuffix: NoUnit})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	if strings.Contains(string(html), " kg</text>") {
		t.Fatalf("NoUnit must suppress the suffix")
	}
}

func TestLineThinsCrowdedPeriodLabels(t *testing.T) {
	series := make([]float64, 52)
	labels := make([]string, 52)
	for i := range series {
		series[i] = float64(100 + i)
		labels[i] = "S" + string(rune('A'+i%26))
	}
	html, err := Line(720, 260, series, labels, LineOpts{})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	drawn := strings.Count(string(html), "text-anchor=\"middle\"")
	if drawn > maxPeriodLabels+1 {
		t.Fatalf("expected at most %d period labels, got %d", maxPeriodLabels+1, drawn)
	}
	if drawn < 2 {
		t.Fatalf("expected first and last labels to survive thinning, got %d", drawn)
	}
}

func TestLineFlatSeries(t *testing.T) {
	html, err := Line(400, 200, []float64{500, 500, 500}, []string{"S1", "S2", "S3"}, LineOpts{})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	if !strings.Contains(string(html), "<path") {
		t.Fatalf("expected path even for flat series")
	}
}
