package cmd

import (
	"math"
	"testing"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/config"
)

func TestClampTrials(t *testing.T) {
	tests := map[int]int{
		0:       minCLITrials,
		50:      minCLITrials,
		500:     500,
		10000:   10000,
		250_000: maxCLITrials,
	}
	for in, want := range tests {
		if got := clampTrials(in); got != want {
			t.Errorf("clampTrials(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBuildRequestLayersFlagsOverConfig(t *testing.T) {
	appConfig = config.DefaultConfig()

	// Flags are package globals; this is the only test that parses them.
	c := &cobra.Command{Use: "test"}
	c.Flags().AddFlagSet(rootCmd.PersistentFlags())
	if err := c.ParseFlags([]string{"--years", "5", "--trials", "50", "--inflation", "1", "--return", "7", "-q"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	req, err := buildRequest(c)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.StartingBalance != 2500 || req.MonthlyContribution != 350 {
		t.Errorf("config defaults lost: start=%v monthly=%v", req.StartingBalance, req.MonthlyContribution)
	}
	if req.HorizonYears != 5 {
		t.Errorf("HorizonYears = %d, want 5", req.HorizonYears)
	}
	if req.Trials != minCLITrials {
		t.Errorf("Trials = %d, want clamped to %d", req.Trials, minCLITrials)
	}
	if req.Inflation == nil || *req.Inflation != 0.01 {
		t.Errorf("Inflation = %v, want 0.01", req.Inflation)
	}
	if req.CustomMean == nil || *req.CustomMean != 0.07 {
		t.Errorf("CustomMean = %v, want 0.07", req.CustomMean)
	}
	if req.Fee != nil || req.Seed != nil {
		t.Errorf("unset flags leaked: fee=%v seed=%v", req.Fee, req.Seed)
	}
	if math.Abs(req.DefaultFee-0.006) > 1e-12 {
		t.Errorf("DefaultFee = %v, want 0.006", req.DefaultFee)
	}

	if err := c.ParseFlags([]string{"--years", "41"}); err != nil {
		t.Fatal(err)
	}
	if _, err := buildRequest(c); err == nil {
		t.Error("expected an error for 41 years")
	}
}
