package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
)

var fanCmd = &cobra.Command{
	Use:   "fan",
	Short: "Year-by-year percentile bands",
	RunE:  runFan,
}

func init() {
	rootCmd.AddCommand(fanCmd)
}

func runFan(cmd *cobra.Command, _ []string) error {
	out, err := runSimulation(cmd)
	if err != nil {
		return err
	}
	bands := out.Result.FanChart
	if flagJSON {
		return printJSON(bands)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FAN CHART  %dy  %s", out.Params.HorizonYears, out.Profile.Name)))
	fmt.Println()

	rows := make([][]string, 0, len(bands))
	for _, b := range bands {
		rows = append(rows, []string{
			fmt.Sprintf("%d", b.Year),
			cli.FormatMoney(b.P10),
			cli.FormatMoney(b.P25),
			cli.FormatMoney(b.P50),
			cli.FormatMoney(b.P75),
			cli.FormatMoney(b.P90),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Year", "P10", "P25", "P50", "P75", "P90"},
		Rows:    rows,
	}))

	fmt.Println()
	renderFanRows(bands, 48)
	fmt.Println()
	fmt.Printf("  Median path  %s\n", cli.RenderSparkline(medianPath(bands)))
	printRunFooter(out)
	return nil
}

// renderFanRows draws every band against a shared scale.
func renderFanRows(bands []montecarlo.Band, width int) {
	if len(bands) == 0 {
		return
	}
	lo, hi := bands[0].P10, bands[0].P90
	for _, b := range bands {
		lo = min(lo, b.P10)
		hi = max(hi, b.P90)
	}
	for _, b := range bands {
		row := cli.RenderFanRow(cli.Band{P10: b.P10, P25: b.P25, P50: b.P50, P75: b.P75, P90: b.P90}, lo, hi, width)
		fmt.Printf("  %s %s %s\n", cli.Muted(fmt.Sprintf("%2dy", b.Year)), row, cli.Muted(cli.FormatCompactMoney(b.P50)))
	}
	fmt.Printf("      %s\n", cli.Muted(fmt.Sprintf("%s .. %s", cli.FormatCompactMoney(lo), cli.FormatCompactMoney(hi))))
}

func medianPath(bands []montecarlo.Band) []float64 {
	out := make([]float64, len(bands))
	for i, b := range bands {
		out[i] = b.P50
	}
	return out
}
