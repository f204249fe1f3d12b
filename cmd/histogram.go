package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
)

var flagBuckets int

var histogramCmd = &cobra.Command{
	Use:   "histogram",
	Short: "Distribution of final balances",
	RunE:  runHistogram,
}

func init() {
	histogramCmd.Flags().IntVarP(&flagBuckets, "buckets", "b", 0, fmt.Sprintf("Number of buckets (1-%d)", montecarlo.MaxBuckets))
	rootCmd.AddCommand(histogramCmd)
}

func runHistogram(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("buckets") {
		if flagBuckets < 1 || flagBuckets > montecarlo.MaxBuckets {
			return fmt.Errorf("buckets must be between 1 and %d, got %d", montecarlo.MaxBuckets, flagBuckets)
		}
		appConfig.Simulation.Buckets = flagBuckets
	}

	out, err := runSimulation(cmd)
	if err != nil {
		return err
	}
	buckets := out.Result.Histogram
	if flagJSON {
		return printJSON(buckets)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DISTRIBUTION  %s trials", cli.FormatNumber(int64(out.Params.Trials)))))
	fmt.Println()

	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		share := float64(b.Count) / float64(out.Params.Trials)
		mark := ""
		if b.AboveTarget {
			mark = "yes"
		}
		rows = append(rows, []string{
			cli.FormatMoney(b.Lower),
			cli.FormatMoney(b.Upper),
			cli.FormatNumber(int64(b.Count)),
			cli.FormatPercent(share),
			mark,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"From", "To", "Trials", "Share", "At target"},
		Rows:    rows,
	}))
	fmt.Println()
	renderHistogram(buckets)
	printRunFooter(out)
	return nil
}
