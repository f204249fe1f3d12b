package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/pipeline"
	"github.com/theirongolddev/nestegg/internal/tui/components"
	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

func (a App) renderHistoryTab(cw, h int) string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	switch {
	case a.history == nil:
		return components.ContentCard("Run history", dim.Render("History is off (--no-store)."), cw)
	case a.runsErr != nil:
		bad := lipgloss.NewStyle().Foreground(t.Bad).Background(t.Surface)
		return components.ContentCard("Run history", bad.Render(a.runsErr.Error()), cw)
	case len(a.runs) == 0:
		return components.ContentCard("Run history", dim.Render("No stored runs yet."), cw)
	}

	stats := pipeline.AggregateRuns(a.runs, time.Time{}, time.Time{})
	avgHit := "n/a"
	if stats.AvgHitRate != nil {
		avgHit = fmt.Sprintf("%.0f%%", *stats.AvgHitRate)
	}
	summary := components.MetricCardRow([]components.Metric{
		{Label: "Runs", Value: cli.FormatNumber(int64(stats.Runs)), Note: cli.FormatNumber(int64(stats.TotalTrials)) + " trials"},
		{Label: "Best median", Value: cli.FormatMoney(stats.BestP50)},
		{Label: "Avg chance", Value: avgHit},
	}, cw)

	listW := cw * 3 / 5
	if a.isCompactLayout() {
		listW = cw
	}
	listH := max(h-lipgloss.Height(summary)-3, 3)

	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n")
	list := components.ContentCard("Run history", a.renderRunList(components.CardInnerWidth(listW), listH), listW)
	if a.isCompactLayout() {
		b.WriteString(list)
		return b.String()
	}
	detailW := cw - listW
	b.WriteString(components.CardRow([]string{
		list,
		components.ContentCard("Selected run", a.renderRunDetail(), detailW),
	}))
	return b.String()
}

func (a App) renderRunList(innerW, rows int) string {
	t := theme.Active
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)
	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	// Keep the cursor in view.
	offset := 0
	if a.runsCursor >= rows {
		offset = a.runsCursor - rows + 1
	}
	end := min(offset+rows, len(a.runs))

	var b strings.Builder
	b.WriteString(headStyle.Render(truncStr(fmt.Sprintf("%-15s %-12s %12s %6s", "When", "Profile", "Median", "Hit"), innerW)))
	for i := offset; i < end; i++ {
		r := a.runs[i]
		line := fmt.Sprintf("%-15s %-12s %12s %6s",
			truncStr(humanize.Time(r.CreatedAt), 15),
			truncStr(r.Profile, 12),
			cli.FormatCompactMoney(r.Summary.P50),
			cli.FormatHitRate(r.Summary.HitRate))
		line = truncStr(line, innerW)
		b.WriteString("\n")
		if i == a.runsCursor {
			b.WriteString(selStyle.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
	}
	return b.String()
}

func (a App) renderRunDetail() string {
	t := theme.Active
	if a.runsCursor < 0 || a.runsCursor >= len(a.runs) {
		return ""
	}
	r := a.runs[a.runsCursor]

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	target := "none"
	if r.Params.TargetValue > 0 {
		target = cli.FormatMoney(r.Params.TargetValue)
	}
	rows := []struct{ label, value string }{
		{"Run", id},
		{"Created", r.CreatedAt.Local().Format("2006-01-02 15:04")},
		{"Seed", fmt.Sprintf("%d", r.Seed)},
		{"Horizon", fmt.Sprintf("%d years", r.Params.HorizonYears)},
		{"Monthly", cli.FormatMoney(r.Params.MonthlyContribution)},
		{"Target", target},
		{"P10 / P90", cli.FormatCompactMoney(r.Summary.P10) + " / " + cli.FormatCompactMoney(r.Summary.P90)},
		{"Took", cli.FormatDuration(r.DurationMs)},
	}

	var b strings.Builder
	for i, row := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", row.label)))
		b.WriteString(spaceStyle.Render(" "))
		b.WriteString(valueStyle.Render(row.value))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	if len(r.Bands) > 1 {
		medians := make([]float64, len(r.Bands))
		for i, bd := range r.Bands {
			medians[i] = bd.P50
		}
		b.WriteString("\n\n")
		b.WriteString(components.Sparkline(medians, t.Accent))
	}
	return b.String()
}
