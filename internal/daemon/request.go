package daemon

import (
	"fmt"
	"strconv"

	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/pipeline"
)

// SimulateRequest is the body of POST /v1/simulate. Omitted fields take the
// daemon's configured defaults. Rates are percentages, as on the command line.
type SimulateRequest struct {
	Start     *float64 `json:"start"`
	Monthly   *float64 `json:"monthly"`
	Growth    *float64 `json:"growth"`
	Years     *int     `json:"years"`
	Trials    *int     `json:"trials"`
	Target    *float64 `json:"target"`
	Profile   *string  `json:"profile"`
	Return    *float64 `json:"return"`
	Vol       *float64 `json:"vol"`
	Inflation *float64 `json:"inflation"`
	Fee       *float64 `json:"fee"`
	Seed      *uint64  `json:"seed"`
	Buckets   *int     `json:"buckets"`
	FanChart  *bool    `json:"fan_chart"`
}

// apply layers the body over defaults. Years and trials are range-checked
// here so a bad request never reaches the engine's worker pool.
func (b SimulateRequest) apply(defaults pipeline.Request) (pipeline.Request, error) {
	req := defaults
	req.Seed = nil

	if b.Start != nil {
		req.StartingBalance = *b.Start
	}
	if b.Monthly != nil {
		req.MonthlyContribution = *b.Monthly
	}
	if b.Growth != nil {
		req.ContributionGrowthRate = *b.Growth / 100
	}
	if b.Years != nil {
		req.HorizonYears = *b.Years
	}
	if b.Trials != nil {
		req.Trials = *b.Trials
	}
	if b.Target != nil {
		req.TargetValue = *b.Target
	}
	if b.Profile != nil {
		req.Profile = *b.Profile
	}
	req.CustomMean = percent(b.Return)
	req.CustomVol = percent(b.Vol)
	req.Inflation = percent(b.Inflation)
	req.Fee = percent(b.Fee)
	if b.Seed != nil {
		seed := *b.Seed
		req.Seed = &seed
	}
	if b.Buckets != nil {
		req.Buckets = *b.Buckets
	}
	if b.FanChart != nil {
		req.FanChart = *b.FanChart
	}

	if req.HorizonYears < 1 || req.HorizonYears > montecarlo.MaxHorizonYears {
		return req, fmt.Errorf("years must be between 1 and %d, got %d", montecarlo.MaxHorizonYears, req.HorizonYears)
	}
	if req.Trials < 1 || req.Trials > montecarlo.MaxTrials {
		return req, fmt.Errorf("trials must be between 1 and %d, got %d", montecarlo.MaxTrials, req.Trials)
	}
	return req, nil
}

func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v / 100
	return &f
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxHistoryLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxHistoryLimit)
	}
	return n, nil
}
