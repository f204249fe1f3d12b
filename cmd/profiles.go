package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/assumptions"
	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/config"
)

var flagRefresh bool

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List risk profiles and their real returns",
	RunE:  runProfiles,
}

func init() {
	profilesCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "Fetch the assumptions document even if the cache is fresh")
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s := openStore()
	if s != nil {
		defer s.Close()
	}
	provider, release := newProvider(ctx, s)
	defer release()

	load := provider.Load
	if flagRefresh {
		load = provider.Refresh
	}
	set, err := load(ctx)
	if err != nil {
		return err
	}

	sim := appConfig.Simulation
	inflation := sim.InflationPercent / 100
	if set.Inflation != nil {
		inflation = *set.Inflation
	}
	fee := sim.FeePercent / 100
	if set.Fee != nil {
		fee = *set.Fee
	}
	if cmd.Flags().Changed("inflation") {
		inflation = flagInflation / 100
	}
	if cmd.Flags().Changed("fee") {
		fee = flagFee / 100
	}

	names := config.ProfileNames(set.Profiles)
	if flagJSON {
		type profileJSON struct {
			config.RiskProfile
			RealReturn float64 `json:"real_return"`
		}
		list := make([]profileJSON, 0, len(names))
		for _, name := range names {
			p := set.Profiles[name]
			list = append(list, profileJSON{RiskProfile: p, RealReturn: assumptions.RealReturn(p.Mean, inflation, fee)})
		}
		return printJSON(map[string]any{
			"origin":    set.Origin,
			"inflation": inflation,
			"fee":       fee,
			"profiles":  list,
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("RISK PROFILES"))
	fmt.Println()

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p := set.Profiles[name]
		label := name
		if name == config.NormalizeProfileName(sim.Profile) {
			label += " *"
		}
		rows = append(rows, []string{
			label,
			cli.FormatPercent(p.Mean),
			cli.FormatPercent(p.Vol),
			cli.FormatPercent(assumptions.RealReturn(p.Mean, inflation, fee)),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Profile", "Return", "Volatility", "Real return"},
		Rows:    rows,
	}))

	fmt.Println()
	source := string(set.Origin)
	if !set.FetchedAt.IsZero() {
		source += ", fetched " + humanize.Time(set.FetchedAt)
	}
	fmt.Println(cli.Muted(fmt.Sprintf("  Inflation %s, fees %s. Source: %s",
		cli.FormatPercent(inflation), cli.FormatPercent(fee), source)))
	if set.Warning != nil {
		fmt.Println(cli.Warn(set.Warning.Error()))
	}
	return nil
}
