package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/tui/components"
	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	out := a.outcome
	res := out.Result
	rep := out.Report

	hit := components.Metric{Label: "Chance of target", Value: "n/a", Note: "no target set", Color: t.TextDim}
	if res.HitRate != nil {
		hit.Value = fmt.Sprintf("%d%%", res.HitRate.Percent)
		hit.Note = "of " + cli.FormatMoney(out.Params.TargetValue)
		hit.Color = components.ColorForHitRate(res.HitRate.Percent)
	}

	metrics := []components.Metric{
		{Label: "Median", Value: cli.FormatMoney(res.P50), Note: fmt.Sprintf("after %d years", out.Params.HorizonYears), Color: t.AccentBright},
		{Label: "Pessimistic (P10)", Value: cli.FormatMoney(res.P10), Note: "1 in 10 end lower"},
		{Label: "Optimistic (P90)", Value: cli.FormatMoney(res.P90), Note: "1 in 10 end higher"},
		hit,
	}

	var b strings.Builder
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(metrics[:2], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(metrics[2:], cw))
	} else {
		b.WriteString(components.MetricCardRow(metrics, cw))
	}
	b.WriteString("\n")

	half := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Outlook", a.renderAdvice(components.CardInnerWidth(half[0])), half[0]),
		components.ContentCard("Inputs", a.renderInputs(), half[1]),
	}))

	if res.HitRate != nil && rep.ShortfallRisk != nil {
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Risk", a.renderRisk(components.CardInnerWidth(cw)), cw))
	}
	return b.String()
}

func (a App) renderAdvice(innerW int) string {
	t := theme.Active
	rep := a.outcome.Report

	var color lipgloss.Color
	switch rep.Advice {
	case montecarlo.AdviceOnTrack:
		color = t.Good
	case montecarlo.AdviceWithinReach:
		color = t.Warn
	case montecarlo.AdviceLow:
		color = t.Bad
	default:
		color = t.TextMuted
	}
	title, body := cli.AdviceText(rep)
	titleStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	bodyStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Width(innerW)
	return titleStyle.Render(title) + "\n" + bodyStyle.Render(body)
}

func (a App) renderInputs() string {
	t := theme.Active
	out := a.outcome
	p := out.Params

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	rows := []struct{ label, value string }{
		{"Starting balance", cli.FormatMoney(p.StartingBalance)},
		{"Monthly", fmt.Sprintf("%s, +%s a year", cli.FormatMoney(p.MonthlyContribution), cli.FormatPercent(p.ContributionGrowthRate))},
		{"Profile", fmt.Sprintf("%s (%s ± %s)", out.Profile.Name, cli.FormatPercent(out.Profile.Mean), cli.FormatPercent(out.Profile.Vol))},
		{"Costs", fmt.Sprintf("%s inflation, %s fee", cli.FormatPercent(out.Record.Inflation), cli.FormatPercent(out.Record.Fee))},
		{"Real return", cli.FormatPercent(p.AnnualMeanReturn)},
		{"Paid in", cli.FormatMoney(out.Report.TotalContributions)},
	}

	var b strings.Builder
	for i, r := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", r.label)))
		b.WriteString(spaceStyle.Render(" "))
		b.WriteString(valueStyle.Render(r.value))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (a App) renderRisk(innerW int) string {
	rep := a.outcome.Report
	res := a.outcome.Result

	labelW := 18
	barW := max(innerW-labelW-7, 10)

	lines := []string{
		components.HitRateBar("Reach target", res.HitRate.Percent, labelW, barW),
		components.HitRateBar("Fall short", *rep.ShortfallRisk, labelW, barW),
		components.HitRateBar("Below half target", int(math.Round(*rep.SevereShortfallRisk)), labelW, barW),
	}
	return strings.Join(lines, "\n")
}
