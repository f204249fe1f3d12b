package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/tui/components"
	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

func (a App) renderDistributionTab(cw, h int) string {
	t := theme.Active
	res := a.outcome.Result
	hasTarget := a.outcome.Params.HasTarget()

	values := make([]float64, len(res.Histogram))
	labels := make([]string, len(res.Histogram))
	colors := make([]lipgloss.Color, len(res.Histogram))
	for i, bk := range res.Histogram {
		values[i] = float64(bk.Count)
		labels[i] = cli.FormatCompactMoney(bk.Lower)
		switch {
		case !hasTarget:
			colors[i] = t.Accent
		case bk.AboveTarget:
			colors[i] = t.Good
		default:
			colors[i] = t.Warn
		}
	}

	innerW := components.CardInnerWidth(cw)
	chartH := max(h-8, 6)
	chart := components.BarChart(values, labels, colors, innerW, chartH)

	title := fmt.Sprintf("Final balances · %s trials", cli.FormatNumber(int64(a.outcome.Params.Trials)))
	if hasTarget {
		title += " · target " + cli.FormatMoney(a.outcome.Params.TargetValue)
	}

	var b strings.Builder
	b.WriteString(components.ContentCard(title, chart, cw))
	b.WriteString("\n")

	s := res.Summary
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Lowest", Value: cli.FormatMoney(s.Min)},
		{Label: "Mean", Value: cli.FormatMoney(s.Mean)},
		{Label: "Highest", Value: cli.FormatMoney(s.Max)},
	}, cw))
	return b.String()
}
