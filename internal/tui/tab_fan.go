package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/tui/components"
	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

func (a App) renderFanTab(cw, h int) string {
	t := theme.Active
	bands := a.outcome.Result.FanChart
	if len(bands) == 0 {
		dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
		return components.ContentCard("Growth over time", dim.Render("No yearly bands for this run."), cw)
	}

	innerW := components.CardInnerWidth(cw)
	rows := fanRows(bands, max(h-8, 3))

	fb := make([]components.FanBand, len(rows))
	for i, b := range rows {
		fb[i] = components.FanBand{
			Label: fmt.Sprintf("y%d", b.Year),
			P10:   b.P10, P25: b.P25, P50: b.P50, P75: b.P75, P90: b.P90,
		}
	}
	chart := components.FanChart(fb, innerW, a.outcome.Params.TargetValue)

	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	legend := dim.Render("░ P10-P90  ▓ P25-P75  ┃ median")
	if a.outcome.Params.HasTarget() {
		legend += dim.Render("  ┊ target")
	}

	medians := make([]float64, len(bands))
	for i, b := range bands {
		medians[i] = b.P50
	}
	last := bands[len(bands)-1]
	trend := components.Sparkline(medians, t.AccentBright) +
		dim.Render(fmt.Sprintf("  %s → %s", cli.FormatCompactMoney(bands[0].P50), cli.FormatCompactMoney(last.P50)))

	var b strings.Builder
	b.WriteString(components.ContentCard("Growth over time", chart+"\n"+legend, cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Median path", trend, cw))
	return b.String()
}

// fanRows picks at most limit bands, always keeping the first and last year.
func fanRows(bands []montecarlo.Band, limit int) []montecarlo.Band {
	if len(bands) <= limit || limit < 2 {
		return bands
	}
	step := (len(bands) - 1 + limit - 2) / (limit - 1)
	var out []montecarlo.Band
	for i := 0; i < len(bands)-1; i += step {
		out = append(out, bands[i])
	}
	return append(out, bands[len(bands)-1])
}
