package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/pipeline"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a projection and print the outcome",
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	out, err := runSimulation(cmd)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(out.View())
	}

	p := out.Params
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PROJECTION  %dy  %s", p.HorizonYears, out.Profile.Name)))
	fmt.Println()

	fmt.Print(renderInputs(out))
	fmt.Println()
	fmt.Print(renderOutcomes(out))
	fmt.Println()
	renderAdvice(out.Report)
	fmt.Println()
	renderHistogram(out.Result.Histogram)
	printRunFooter(out)
	return nil
}

func renderInputs(out *pipeline.Outcome) string {
	p := out.Params
	return cli.RenderTable(cli.Table{
		Title:   "Inputs",
		Headers: []string{"Input", "Value"},
		Rows: [][]string{
			{"Starting balance", cli.FormatMoney(p.StartingBalance)},
			{"Monthly contribution", cli.FormatMoney(p.MonthlyContribution)},
			{"Contribution growth", cli.FormatPercent(p.ContributionGrowthRate) + "/yr"},
			{"Horizon", fmt.Sprintf("%d years", p.HorizonYears)},
			{"---"},
			{"Profile", fmt.Sprintf("%s (%s return, %s vol)", out.Profile.Name,
				cli.FormatPercent(out.Profile.Mean), cli.FormatPercent(out.Profile.Vol))},
			{"Inflation + fees", fmt.Sprintf("%s + %s", cli.FormatPercent(out.Record.Inflation), cli.FormatPercent(out.Record.Fee))},
			{"Real return", cli.FormatPercent(p.AnnualMeanReturn)},
			{"Assumptions", string(out.Origin)},
			{"---"},
			{"Trials", cli.FormatNumber(int64(p.Trials))},
			{"Seed", fmt.Sprintf("%d", out.Record.Seed)},
		},
	})
}

func renderOutcomes(out *pipeline.Outcome) string {
	r := out.Result
	rep := out.Report
	rows := [][]string{
		{"Pessimistic (P10)", cli.FormatMoney(r.P10)},
		{"Median (P50)", cli.FormatMoney(r.P50)},
		{"Optimistic (P90)", cli.FormatMoney(r.P90)},
		{"---"},
		{"Mean", cli.FormatMoney(r.Summary.Mean)},
		{"Range", fmt.Sprintf("%s to %s", cli.FormatMoney(r.Summary.Min), cli.FormatMoney(r.Summary.Max))},
		{"---"},
		{"Contributions (est)", cli.FormatMoney(rep.TotalContributions)},
		{"Median growth", cli.FormatDelta(r.P50, rep.TotalContributions)},
	}
	if out.Params.HasTarget() {
		var pct *int
		if r.HitRate != nil {
			pct = &r.HitRate.Percent
		}
		rows = append(rows,
			[]string{"---"},
			[]string{"Target", cli.FormatMoney(out.Params.TargetValue)},
			[]string{"Chance of reaching", cli.FormatHitRate(pct)},
			[]string{"Shortfall risk", cli.FormatHitRate(rep.ShortfallRisk)},
			[]string{"Below half of target", cli.FormatRisk(rep.SevereShortfallRisk)},
		)
	}
	return cli.RenderTable(cli.Table{
		Title:   "Outcomes",
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	})
}

func renderAdvice(rep montecarlo.Report) {
	title, body := cli.AdviceText(rep)
	fmt.Printf("  %s\n", cli.AdviceStyle(rep.Advice, title))
	fmt.Printf("  %s\n", cli.Muted(body))
}

func renderHistogram(buckets []montecarlo.Bucket) {
	if len(buckets) == 0 {
		return
	}
	maxCount := 0
	labels := make([]string, len(buckets))
	labelWidth := 0
	for i, b := range buckets {
		maxCount = max(maxCount, b.Count)
		labels[i] = fmt.Sprintf("%s-%s", cli.FormatCompactMoney(b.Lower), cli.FormatCompactMoney(b.Upper))
		labelWidth = max(labelWidth, utf8.RuneCountInString(labels[i]))
	}

	fmt.Println("  Final balance distribution")
	for i, b := range buckets {
		label := labels[i] + strings.Repeat(" ", labelWidth-utf8.RuneCountInString(labels[i]))
		fmt.Println(cli.RenderHorizontalBar(label, float64(b.Count), float64(maxCount), 36, b.AboveTarget))
	}
}

func printRunFooter(out *pipeline.Outcome) {
	fmt.Println()
	msg := fmt.Sprintf("  %s trials in %s", cli.FormatNumber(int64(out.Params.Trials)), cli.FormatDuration(out.Record.DurationMs))
	if out.Stored {
		msg += fmt.Sprintf("  run %s", out.Record.ID)
	}
	fmt.Println(cli.Muted(msg))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
