package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline scaled between the series minimum
// and maximum.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(sparkBlocks)-1))
		buf.WriteRune(sparkBlocks[max(0, min(idx, len(sparkBlocks)-1))])
	}

	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// BarChart renders a vertical bar chart with a y-axis. colors, when it has
// one entry per value, colours each bar; otherwise bars use the accent.
func BarChart(values []float64, labels []string, colors []lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active
	if width < 15 || height < 3 {
		return Sparkline(values, t.Accent)
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Y-axis: nice tick step, at most one tick per two rows.
	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, numIntervals)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	n := len(values)
	gap := 1
	if n == 1 {
		gap = 0
	}
	barW := max(min((chartW-(n-1)*gap)/n, 8), 1)
	axisLen := n*barW + (n-1)*gap

	eighths := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blankStyle := lipgloss.NewStyle().Background(t.Surface)

	barStyles := make([]lipgloss.Style, n)
	for i := range values {
		c := t.Accent
		if len(colors) == n && colors[i] != "" {
			c = colors[i]
		}
		barStyles[i] = lipgloss.NewStyle().Foreground(c).Background(t.Surface)
	}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))
		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blankStyle.Render(strings.Repeat(" ", gap)))
			}
			switch {
			case v >= rowTop:
				b.WriteString(barStyles[i].Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				idx = max(1, min(idx, 8))
				b.WriteString(barStyles[i].Render(strings.Repeat(string(eighths[idx]), barW)))
			default:
				b.WriteString(blankStyle.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(blankStyle.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(placeLabels(labels, barW, gap, axisLen)))
	}
	return b.String()
}

// placeLabels lays out x-axis labels under their bars, skipping any that
// would overlap the previous one.
func placeLabels(labels []string, barW, gap, axisLen int) string {
	buf := []rune(strings.Repeat(" ", axisLen))
	lastEnd := -1
	for i, lbl := range labels {
		pos := i * (barW + gap)
		runes := []rune(lbl)
		if pos <= lastEnd || pos+len(runes) > axisLen {
			continue
		}
		copy(buf[pos:], runes)
		lastEnd = pos + len(runes)
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	switch {
	case v >= 1e6:
		return trimZero(fmt.Sprintf("%.1f", v/1e6)) + "M"
	case v >= 1e3:
		return trimZero(fmt.Sprintf("%.1f", v/1e3)) + "k"
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// FanBand is one row of a fan chart.
type FanBand struct {
	Label                   string
	P10, P25, P50, P75, P90 float64
}

// FanChart draws one row per band against a shared horizontal scale: the
// P10-P90 range, the P25-P75 core and the median marker. target, when
// positive and in range, is drawn as a vertical rule.
func FanChart(bands []FanBand, width int, target float64) string {
	if len(bands) == 0 || width < 10 {
		return ""
	}
	t := theme.Active

	labelW := 0
	lo, hi := bands[0].P10, bands[0].P90
	for _, b := range bands {
		labelW = max(labelW, lipgloss.Width(b.Label))
		lo = min(lo, b.P10)
		hi = max(hi, b.P90)
	}
	if target > hi {
		hi = target
	}
	if hi <= lo {
		hi = lo + 1
	}
	plotW := max(width-labelW-1, 5)
	pos := func(v float64) int {
		p := int((v - lo) / (hi - lo) * float64(plotW-1))
		return max(0, min(p, plotW-1))
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	outer := lipgloss.NewStyle().Foreground(t.BandOuter).Background(t.Surface)
	inner := lipgloss.NewStyle().Foreground(t.BandInner).Background(t.Surface)
	median := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	targetStyle := lipgloss.NewStyle().Foreground(t.Good).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	targetCol := -1
	if target > 0 {
		targetCol = pos(target)
	}

	var out strings.Builder
	for i, b := range bands {
		out.WriteString(labelStyle.Render(fmt.Sprintf("%*s ", labelW, b.Label)))
		p10, p25, p50, p75, p90 := pos(b.P10), pos(b.P25), pos(b.P50), pos(b.P75), pos(b.P90)
		for col := range plotW {
			switch {
			case col == p50:
				out.WriteString(median.Render("┃"))
			case col >= p25 && col <= p75:
				out.WriteString(inner.Render("▓"))
			case col >= p10 && col <= p90:
				out.WriteString(outer.Render("░"))
			case col == targetCol:
				out.WriteString(targetStyle.Render("┊"))
			default:
				out.WriteString(blank.Render(" "))
			}
		}
		if i < len(bands)-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}
