package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	widths := LayoutRow(80, 3)
	if len(widths) != 3 {
		t.Fatalf("len = %d, want 3", len(widths))
	}
	sum := 0
	for _, w := range widths {
		sum += w
	}
	if sum != 80 || widths[0] != 27 || widths[2] != 26 {
		t.Errorf("LayoutRow(80, 3) = %v", widths)
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow with n=0 should be nil")
	}
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("test setup error: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("joined height = %d, want %d", len(lines), tallLines)
	}

	// Padding below the short card must still carry background styling.
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes: %q", i, lines[i])
		}
	}

	width := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != width {
			t.Errorf("line %d width = %d, want %d", i, w, width)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Median", Value: "£125,000"},
		{Label: "Chance", Value: "73%", Color: theme.Active.Good},
		{Label: "P10", Value: "£80,000", Note: "pessimistic"},
	}, 90)
	if w := lipgloss.Width(row); w != 90 {
		t.Errorf("MetricCardRow width = %d, want 90", w)
	}
	if !strings.Contains(row, "pessimistic") {
		t.Error("note missing from metric card")
	}
}

func TestBarChartHeightAndLabels(t *testing.T) {
	values := []float64{5, 20, 50, 20, 5}
	labels := []string{"a", "b", "c", "d", "e"}
	chart := BarChart(values, labels, nil, 60, 10)
	lines := strings.Split(chart, "\n")
	// chart rows + x-axis + labels
	if len(lines) < 5 {
		t.Fatalf("BarChart produced %d lines", len(lines))
	}
	if !strings.Contains(lines[len(lines)-1], "c") {
		t.Errorf("label row = %q", lines[len(lines)-1])
	}
	if got := BarChart(nil, nil, nil, 60, 10); got != "" {
		t.Error("empty chart should render nothing")
	}
	// Too small falls back to a sparkline.
	if got := BarChart(values, nil, nil, 10, 2); strings.Count(got, "\n") != 0 {
		t.Errorf("small chart should be a single-line sparkline, got %q", got)
	}
}

func TestFanChartRows(t *testing.T) {
	bands := []FanBand{
		{Label: "0y", P10: 100, P25: 100, P50: 100, P75: 100, P90: 100},
		{Label: "10y", P10: 200, P25: 300, P50: 400, P75: 500, P90: 600},
		{Label: "20y", P10: 300, P25: 500, P50: 700, P75: 900, P90: 1200},
	}
	out := FanChart(bands, 40, 800)
	lines := strings.Split(out, "\n")
	if len(lines) != len(bands) {
		t.Fatalf("FanChart rows = %d, want %d", len(lines), len(bands))
	}
	for i, line := range lines {
		if !strings.Contains(line, "┃") {
			t.Errorf("row %d has no median marker", i)
		}
		if w := lipgloss.Width(line); w != 40 {
			t.Errorf("row %d width = %d, want 40", i, w)
		}
	}
	if FanChart(nil, 40, 0) != "" {
		t.Error("empty fan chart should render nothing")
	}
}

func TestTabVisualWidth(t *testing.T) {
	for _, tab := range Tabs {
		active := TabVisualWidth(tab, true)
		inactive := TabVisualWidth(tab, false)
		if active != len(tab.Name)+2 {
			t.Errorf("%s active width = %d, want %d", tab.Name, active, len(tab.Name)+2)
		}
		if inactive != len(tab.Name)+4 {
			t.Errorf("%s inactive width = %d, want %d", tab.Name, inactive, len(tab.Name)+4)
		}
	}
	if TabIdxByKey('f') != 2 || TabIdxByKey('z') != -1 {
		t.Error("TabIdxByKey mismatch")
	}
}

func TestColorForHitRate(t *testing.T) {
	th := theme.Active
	tests := []struct {
		pct  int
		want lipgloss.Color
	}{
		{90, th.Good},
		{75, th.Good},
		{74, th.Warn},
		{50, th.Warn},
		{49, th.Bad},
	}
	for _, tt := range tests {
		if got := ColorForHitRate(tt.pct); got != tt.want {
			t.Errorf("ColorForHitRate(%d) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}
