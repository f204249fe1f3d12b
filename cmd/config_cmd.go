package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/config"
	"github.com/theirongolddev/nestegg/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appConfig

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  History:     %s\n", store.DefaultPath())
	fmt.Println()

	sim := cfg.Simulation
	fmt.Println("  [Simulation]")
	fmt.Printf("    Starting balance: %s\n", cli.FormatMoney(sim.StartingBalance))
	fmt.Printf("    Monthly:          %s (+%.1f%% a year)\n", cli.FormatMoney(sim.MonthlyContribution), sim.GrowthPercent)
	fmt.Printf("    Horizon:          %d years\n", sim.HorizonYears)
	fmt.Printf("    Profile:          %s\n", sim.Profile)
	fmt.Printf("    Inflation / fee:  %.1f%% / %.2f%%\n", sim.InflationPercent, sim.FeePercent)
	if sim.Target > 0 {
		fmt.Printf("    Target:           %s\n", cli.FormatMoney(sim.Target))
	} else {
		fmt.Println("    Target:           not set")
	}
	fmt.Printf("    Trials:           %s\n", cli.FormatNumber(int64(sim.Trials)))
	fmt.Printf("    Buckets:          %d\n", sim.Buckets)
	if sim.Workers > 0 {
		fmt.Printf("    Workers:          %d\n", sim.Workers)
	}
	fmt.Printf("    Currency:         %s\n", sim.Currency)
	if sim.BaselineFile != "" {
		fmt.Printf("    Baseline file:    %s\n", sim.BaselineFile)
	}
	fmt.Println()

	as := cfg.Assumptions
	fmt.Println("  [Assumptions]")
	switch {
	case as.File != "":
		fmt.Printf("    Source:    file %s\n", as.File)
	case as.URL != "":
		fmt.Printf("    Source:    %s\n", as.URL)
	default:
		fmt.Println("    Source:    built-in profiles")
	}
	fmt.Printf("    Cache:     %s, TTL %s\n", as.Backend, as.TTL())
	if as.Backend == "redis" {
		fmt.Printf("    Redis:     %s\n", as.RedisAddr)
	}
	fmt.Printf("    Refresh:   %s (daemon)\n", as.RefreshCron)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:        %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Max concurrent: %d\n", cfg.Daemon.MaxConcurrent)
	fmt.Printf("    Logging:        %s, %s\n", cfg.Daemon.LogFormat, cfg.Daemon.LogLevel)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	if len(cfg.Profiles) > 0 {
		fmt.Println("  [Profiles]")
		merged := config.MergeProfiles(config.DefaultProfiles, cfg.Profiles)
		names := make([]string, 0, len(cfg.Profiles))
		for raw := range cfg.Profiles {
			names = append(names, config.NormalizeProfileName(raw))
		}
		sort.Strings(names)
		for _, name := range names {
			p := merged[name]
			fmt.Printf("    %-10s %s ± %s\n", name, cli.FormatPercent(p.Mean), cli.FormatPercent(p.Vol))
		}
		fmt.Println()
	}

	fmt.Println("  Run `nestegg setup` to reconfigure.")
	return nil
}
