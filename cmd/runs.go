package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/pipeline"
	"github.com/theirongolddev/nestegg/internal/store"
)

var (
	flagRunsLimit   int
	flagRunsDays    int
	flagRunsProfile string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Stored run history",
	RunE:  runRunsList,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored run with its fan chart",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	for _, c := range []*cobra.Command{runsCmd, runsListCmd} {
		c.Flags().IntVarP(&flagRunsLimit, "limit", "l", 20, "Maximum runs to list, 0 for all")
		c.Flags().IntVarP(&flagRunsDays, "days", "d", 0, "Only runs from the last N days")
		c.Flags().StringVar(&flagRunsProfile, "filter-profile", "", "Only runs whose profile matches (substring)")
	}
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func openHistory() (*store.Store, error) {
	s, err := store.Open(store.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return s, nil
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), flagRunsLimit)
	if err != nil {
		return err
	}
	var since time.Time
	if flagRunsDays > 0 {
		since = time.Now().AddDate(0, 0, -flagRunsDays)
	}
	runs = pipeline.FilterByProfile(pipeline.FilterByTime(runs, since, time.Time{}), flagRunsProfile)

	if flagJSON {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("\n  No stored runs yet.")
		fmt.Println("  Run `nestegg` to record one.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("RUN HISTORY"))
	fmt.Println()

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			humanize.Time(r.CreatedAt),
			r.Profile,
			fmt.Sprintf("%dy", r.Params.HorizonYears),
			cli.FormatNumber(int64(r.Params.Trials)),
			cli.FormatMoney(r.Summary.P50),
			cli.FormatHitRate(r.Summary.HitRate),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Run", "When", "Profile", "Years", "Trials", "Median", "Hit rate"},
		Rows:    rows,
	}))

	stats := pipeline.AggregateRuns(runs, since, time.Time{})
	fmt.Println()
	avgHit := "n/a"
	if stats.AvgHitRate != nil {
		avgHit = fmt.Sprintf("%.0f%%", *stats.AvgHitRate)
	}
	fmt.Printf("  Median trend  %s  best %s, latest %s, avg hit rate %s\n",
		cli.RenderSparkline(stats.P50Trend), cli.FormatMoney(stats.BestP50), cli.FormatMoney(stats.LatestP50), avgHit)

	profiles := pipeline.AggregateProfiles(runs)
	if len(profiles) > 1 {
		fmt.Println()
		prow := make([][]string, 0, len(profiles))
		for _, p := range profiles {
			hit := "n/a"
			if p.AvgHitRate != nil {
				hit = fmt.Sprintf("%.0f%%", *p.AvgHitRate)
			}
			prow = append(prow, []string{
				p.Profile,
				cli.FormatNumber(int64(p.Runs)),
				fmt.Sprintf("%.0f%%", p.SharePercent),
				cli.FormatMoney(p.AvgP50),
				hit,
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By profile",
			Headers: []string{"Profile", "Runs", "Share", "Avg median", "Avg hit rate"},
			Rows:    prow,
		}))
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := resolveRunID(cmd.Context(), s, args[0])
	if err != nil {
		return err
	}
	r, err := s.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(r)
	}

	p := r.Params
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("RUN %s", shortID(r.ID))))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Created", fmt.Sprintf("%s (%s)", r.CreatedAt.Local().Format("2006-01-02 15:04"), humanize.Time(r.CreatedAt))},
			{"Profile", r.Profile},
			{"Seed", fmt.Sprintf("%d", r.Seed)},
			{"---"},
			{"Starting balance", cli.FormatMoney(p.StartingBalance)},
			{"Monthly contribution", cli.FormatMoney(p.MonthlyContribution)},
			{"Contribution growth", cli.FormatPercent(p.ContributionGrowthRate) + "/yr"},
			{"Horizon", fmt.Sprintf("%d years", p.HorizonYears)},
			{"Real return", cli.FormatPercent(p.AnnualMeanReturn)},
			{"Volatility", cli.FormatPercent(p.AnnualVolatility)},
			{"Trials", cli.FormatNumber(int64(p.Trials))},
			{"---"},
			{"P10", cli.FormatMoney(r.Summary.P10)},
			{"Median", cli.FormatMoney(r.Summary.P50)},
			{"P90", cli.FormatMoney(r.Summary.P90)},
			{"Hit rate", cli.FormatHitRate(r.Summary.HitRate)},
			{"Duration", cli.FormatDuration(r.DurationMs)},
		},
	}))
	if len(r.Bands) > 0 {
		fmt.Println()
		renderFanRows(r.Bands, 48)
	}
	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := resolveRunID(cmd.Context(), s, args[0])
	if err != nil {
		return err
	}
	if err := s.DeleteRun(cmd.Context(), id); err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Printf("  Deleted run %s\n", id)
	}
	return nil
}

// resolveRunID accepts a full run ID or the unique prefix shown by `runs list`.
func resolveRunID(ctx context.Context, s *store.Store, id string) (string, error) {
	if _, err := s.GetRun(ctx, id); err == nil {
		return id, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return "", err
	}
	var match string
	for _, r := range runs {
		if !strings.HasPrefix(r.ID, id) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("run id %q is ambiguous", id)
		}
		match = r.ID
	}
	if match == "" {
		return "", fmt.Errorf("no run with id %q", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
