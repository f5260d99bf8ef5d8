package chart

import (
	"strings"
	"testing"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []Series{
		{Label: "Réception", Values: []float64{500, 600}},
		{Label: "Export", Values: []float64{300, 320}},
		{Label: "Écart", Values: []float64{40, 55}},
	}, []string{"S36", "S37"}, BarOpts{
		Title:       "Trend",
		Description: "Weekly weight comparison",
	})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if !strings.Contains(output, "<rect") {
		t.Fatalf("expected rect bars in svg")
	}
	if !strings.Contains(output, "Réception") {
		t.Fatalf("expected legend label")
	}
}

func TestBarsRejectsMismatchedSeries(t *testing.T) {
	_, err := Bars(420, 220, []Series{
		{Label: "Réception", Values: []float64{500}},
	}, []string{"S36", "S37"}, BarOpts{})
	if err == nil {
		t.Fatalf("expected error for series shorter than labels")
	}
}

func TestBarsThinCrowdedPeriodLabelsButKeepAllBars(t *testing.T) {
	values := make([]float64, 40)
	labels := make([]string, 40)
	for i := range values {
		values[i] = float64(10 * i)
		labels[i] = "P" + string(rune('0'+i%10))
	}
	html, err := Bars(720, 260, []Series{{Label: "Réception", Values: values}}, labels, BarOpts{})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if got := strings.Count(output, "<rect"); got != 40+1 {
		t.Fatalf("every period keeps its bar (plus one legend swatch), got %d rects", got)
	}
	if drawn := strings.Count(output, "text-anchor=\"middle\""); drawn > maxPeriodLabels+1 {
		t.Fatalf("expected at most %d period labels, got %d", maxPeriodLabels+1, drawn)
	}
	if !strings.Contains(output, " kg</text>") {
		t.Fatalf("expected kg suffix on value ticks")
	}
}

func TestBarsDefaultPalette(t *testing.T) {
	html, err := Bars(0, 0, []Series{
		{Label: "Réception", Values: []float64{10}},
		{Label: "Export", Values: []float64{5}},
	}, []string{"S36"}, BarOpts{})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.Contains(output, seriesPalette[0]) || !strings.Contains(output, seriesPalette[1]) {
		t.Fatalf("expected default palette colors in output")
	}
}
