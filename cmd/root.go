// Package cmd implements the nestegg CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/assumptions"
	"github.com/theirongolddev/nestegg/internal/cli"
	"github.com/theirongolddev/nestegg/internal/config"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/pipeline"
	"github.com/theirongolddev/nestegg/internal/store"
)

// CLI trial bounds. The engine accepts fewer, but below this the
// percentiles are too noisy to print.
const (
	minCLITrials = 100
	maxCLITrials = montecarlo.MaxTrials
)

var (
	flagStart     float64
	flagMonthly   float64
	flagGrowth    float64
	flagYears     int
	flagProfile   string
	flagReturn    float64
	flagVol       float64
	flagInflation float64
	flagFee       float64
	flagTarget    float64
	flagTrials    int
	flagSeed      uint64
	flagWorkers   int
	flagNoStore   bool
	flagQuiet     bool
	flagJSON      bool
	flagBaseline  string

	appConfig config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nestegg",
	Short: "Monte Carlo savings projections",
	Long:  "Project where regular saving could take you: percentiles, the chance of hitting a target, and how wide the range gets over time.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadSettings()
	},
	RunE:         runSimulate,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.Float64Var(&flagStart, "start", 0, "Starting balance")
	pf.Float64VarP(&flagMonthly, "monthly", "m", 0, "Monthly contribution")
	pf.Float64Var(&flagGrowth, "growth", 0, "Yearly contribution growth in percent")
	pf.IntVarP(&flagYears, "years", "y", 0, "Horizon in years (1-40)")
	pf.StringVarP(&flagProfile, "profile", "p", "", "Risk profile (cautious, balanced, growth)")
	pf.Float64Var(&flagReturn, "return", 0, "Custom nominal yearly return in percent")
	pf.Float64Var(&flagVol, "vol", 0, "Custom yearly volatility in percent")
	pf.Float64Var(&flagInflation, "inflation", 0, "Inflation in percent (overrides assumptions)")
	pf.Float64Var(&flagFee, "fee", 0, "Yearly fees in percent (overrides assumptions)")
	pf.Float64VarP(&flagTarget, "target", "t", 0, "Target value, 0 for none")
	pf.IntVarP(&flagTrials, "trials", "n", 0, "Number of trials (100-10000)")
	pf.Uint64Var(&flagSeed, "seed", 0, "Random seed for a reproducible run")
	pf.IntVar(&flagWorkers, "workers", 0, "Worker goroutines, 0 for one per CPU")
	pf.BoolVar(&flagNoStore, "no-store", false, "Don't record the run in history")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	pf.StringVar(&flagBaseline, "baseline", "", "Exported budget JSON to take start and monthly from")
}

// loadSettings reads .env, the config file and NESTEGG_* variables.
func loadSettings() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cli.SetCurrency(cfg.Simulation.Currency); err != nil {
		return err
	}
	appConfig = cfg
	return nil
}

// buildRequest layers config defaults, the baseline file and explicit flags.
func buildRequest(cmd *cobra.Command) (pipeline.Request, error) {
	sim := appConfig.Simulation
	req := pipeline.Request{
		StartingBalance:        sim.StartingBalance,
		MonthlyContribution:    sim.MonthlyContribution,
		ContributionGrowthRate: sim.GrowthPercent / 100,
		HorizonYears:           sim.HorizonYears,
		Trials:                 sim.Trials,
		TargetValue:            sim.Target,
		Profile:                sim.Profile,
		DefaultInflation:       sim.InflationPercent / 100,
		DefaultFee:             sim.FeePercent / 100,
		Workers:                sim.Workers,
		Buckets:                sim.Buckets,
		FanChart:               true,
	}

	flags := cmd.Flags()
	baseline := sim.BaselineFile
	if flags.Changed("baseline") {
		baseline = flagBaseline
	}
	if baseline != "" {
		b, err := config.DetectBaseline(baseline)
		if err != nil {
			return req, err
		}
		req.StartingBalance = b.StartingBalance
		req.MonthlyContribution = b.MonthlyContribution
	}

	if flags.Changed("start") {
		req.StartingBalance = flagStart
	}
	if flags.Changed("monthly") {
		req.MonthlyContribution = flagMonthly
	}
	if flags.Changed("growth") {
		req.ContributionGrowthRate = flagGrowth / 100
	}
	if flags.Changed("years") {
		req.HorizonYears = flagYears
	}
	if flags.Changed("profile") {
		req.Profile = flagProfile
	}
	if flags.Changed("return") {
		v := flagReturn / 100
		req.CustomMean = &v
	}
	if flags.Changed("vol") {
		v := flagVol / 100
		req.CustomVol = &v
	}
	if flags.Changed("inflation") {
		v := flagInflation / 100
		req.Inflation = &v
	}
	if flags.Changed("fee") {
		v := flagFee / 100
		req.Fee = &v
	}
	if flags.Changed("target") {
		req.TargetValue = flagTarget
	}
	if flags.Changed("trials") {
		req.Trials = flagTrials
	}
	if flags.Changed("seed") {
		seed := flagSeed
		req.Seed = &seed
	}
	if flags.Changed("workers") {
		req.Workers = flagWorkers
	}

	if req.HorizonYears < 1 || req.HorizonYears > montecarlo.MaxHorizonYears {
		return req, fmt.Errorf("years must be between 1 and %d, got %d", montecarlo.MaxHorizonYears, req.HorizonYears)
	}
	if clamped := clampTrials(req.Trials); clamped != req.Trials {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Trials clamped to %s\n", cli.FormatNumber(int64(clamped)))
		}
		req.Trials = clamped
	}
	return req, nil
}

func clampTrials(n int) int {
	return min(max(n, minCLITrials), maxCLITrials)
}

// openStore opens the run history database unless --no-store is set.
// A store that fails to open is reported and skipped.
func openStore() *store.Store {
	if flagNoStore {
		return nil
	}
	s, err := store.Open(store.DefaultPath())
	if err != nil {
		if !flagQuiet {
			fmt.Fprintln(os.Stderr, cli.Warn(fmt.Sprintf("History unavailable: %v", err)))
		}
		return nil
	}
	return s
}

// newProvider builds the assumptions provider with the configured cache
// backend. The returned func releases the backend.
func newProvider(ctx context.Context, s *store.Store) (*assumptions.Provider, func()) {
	cfg := appConfig
	noop := func() {}

	switch cfg.Assumptions.Backend {
	case "redis":
		rc := assumptions.NewRedisCache(cfg.Assumptions.RedisAddr)
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			if !flagQuiet {
				fmt.Fprintln(os.Stderr, cli.Warn(fmt.Sprintf("Redis unavailable, assumptions not cached: %v", err)))
			}
			return assumptions.FromConfig(cfg, nil), noop
		}
		return assumptions.FromConfig(cfg, rc), func() { _ = rc.Close() }
	case "none":
		return assumptions.FromConfig(cfg, nil), noop
	}

	if s == nil {
		return assumptions.FromConfig(cfg, assumptions.NewMemoryCache()), noop
	}
	return assumptions.FromConfig(cfg, s), noop
}

// runSimulation is the shared path used by every command that simulates.
func runSimulation(cmd *cobra.Command) (*pipeline.Outcome, error) {
	req, err := buildRequest(cmd)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := openStore()
	var saver pipeline.RunSaver
	if s != nil {
		defer s.Close()
		saver = s
	}
	provider, release := newProvider(ctx, s)
	defer release()

	runner := pipeline.NewRunner(provider, saver)
	runner.Progress = progressPrinter()

	out, err := runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if !flagQuiet {
		for _, w := range out.Warnings {
			fmt.Fprintln(os.Stderr, cli.Warn(w.Error()))
		}
	}
	return out, nil
}

// progressPrinter rewrites a single stderr line as trials complete.
func progressPrinter() pipeline.ProgressFunc {
	if flagQuiet || flagJSON {
		return nil
	}
	var mu sync.Mutex
	return func(done, total int) {
		step := max(total/20, 1)
		if done%step != 0 && done != total {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(os.Stderr, "\r  Simulating [%d/%d]", done, total)
		if done == total {
			fmt.Fprintf(os.Stderr, "\r%s\r", "                              ")
		}
	}
}
