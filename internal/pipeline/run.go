// Package pipeline ties assumptions, the simulation engine, reporting and
// run history together.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/nestegg/internal/assumptions"
	"github.com/theirongolddev/nestegg/internal/config"
	"github.com/theirongolddev/nestegg/internal/model"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
)

// CustomProfileName labels runs that use an explicit return/volatility pair.
const CustomProfileName = "custom"

// Defaults for a custom profile when only one side of the pair is given.
const (
	defaultCustomMean = 0.06
	defaultCustomVol  = 0.10
)

// RunSaver persists completed runs. *store.Store satisfies it.
type RunSaver interface {
	SaveRun(ctx context.Context, r model.RunRecord) error
}

// ProgressFunc is called as trials complete.
// current is the number of trials done so far, total is the trial count.
type ProgressFunc = montecarlo.ProgressFunc

// Request is one simulation as asked for by a caller. Rates are fractions.
type Request struct {
	StartingBalance        float64
	MonthlyContribution    float64
	ContributionGrowthRate float64
	HorizonYears           int
	Trials                 int
	TargetValue            float64

	Profile    string
	CustomMean *float64
	CustomVol  *float64

	// Inflation and Fee override the assumptions when set. Otherwise the
	// published value is used, then the defaults.
	Inflation        *float64
	Fee              *float64
	DefaultInflation float64
	DefaultFee       float64

	Seed     *uint64 // nil draws a fresh seed
	Workers  int
	Buckets  int
	FanChart bool
}

// Outcome is everything produced by one Run.
type Outcome struct {
	Record   model.RunRecord
	Params   montecarlo.Params
	Profile  config.RiskProfile
	Result   *montecarlo.Result
	Report   montecarlo.Report
	Origin   assumptions.Origin
	Stored   bool
	Warnings []error
}

// Runner executes requests against an assumptions source and an optional store.
type Runner struct {
	Assumptions *assumptions.Provider
	Store       RunSaver // nil skips persistence
	Progress    ProgressFunc
	Now         func() time.Time
	NewID       func() string
}

// NewRunner returns a Runner with clock and ID defaults.
func NewRunner(provider *assumptions.Provider, saver RunSaver) *Runner {
	return &Runner{
		Assumptions: provider,
		Store:       saver,
		Now:         time.Now,
		NewID:       func() string { return uuid.NewString() },
	}
}

// Run resolves the profile, simulates, builds the report and stores the run.
// A storage failure is reported in Outcome.Warnings rather than as an error.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	set, err := r.loadAssumptions(ctx)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Origin: set.Origin}
	if set.Warning != nil {
		out.Warnings = append(out.Warnings, fmt.Errorf("assumptions: %w", set.Warning))
	}

	profile, err := resolveProfile(set, req)
	if err != nil {
		return nil, err
	}
	out.Profile = profile

	inflation := pick(req.Inflation, set.Inflation, req.DefaultInflation)
	fee := pick(req.Fee, set.Fee, req.DefaultFee)

	params := montecarlo.Params{
		StartingBalance:        req.StartingBalance,
		MonthlyContribution:    req.MonthlyContribution,
		ContributionGrowthRate: req.ContributionGrowthRate,
		HorizonYears:           req.HorizonYears,
		AnnualMeanReturn:       assumptions.RealReturn(profile.Mean, inflation, fee),
		AnnualVolatility:       profile.Vol,
		Trials:                 req.Trials,
		TargetValue:            req.TargetValue,
	}
	out.Params = params

	var seed uint64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		seed, err = NewSeed()
		if err != nil {
			return nil, err
		}
	}

	now := r.now()
	started := time.Now()
	result, err := montecarlo.Simulate(ctx, params, montecarlo.Options{
		Seed:     seed,
		Workers:  req.Workers,
		FanChart: req.FanChart,
		Buckets:  req.Buckets,
		Progress: r.Progress,
	})
	if err != nil {
		return nil, err
	}
	out.Result = result
	out.Report = montecarlo.BuildReport(params, result)

	out.Record = model.RunRecord{
		ID:         r.newID(),
		CreatedAt:  now,
		Profile:    profile.Name,
		Inflation:  inflation,
		Fee:        fee,
		Seed:       seed,
		Params:     params,
		Summary:    model.SummaryFromResult(result),
		Bands:      result.FanChart,
		DurationMs: time.Since(started).Milliseconds(),
	}

	if r.Store != nil {
		if err := r.Store.SaveRun(ctx, out.Record); err != nil {
			out.Warnings = append(out.Warnings, fmt.Errorf("saving run: %w", err))
		} else {
			out.Stored = true
		}
	}
	return out, nil
}

func (r *Runner) loadAssumptions(ctx context.Context) (*assumptions.Set, error) {
	provider := r.Assumptions
	if provider == nil {
		provider = assumptions.New(assumptions.Options{})
	}
	set, err := provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading assumptions: %w", err)
	}
	return set, nil
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

// resolveProfile prefers an explicit mean/vol pair over the named table entry.
func resolveProfile(set *assumptions.Set, req Request) (config.RiskProfile, error) {
	if req.CustomMean != nil || req.CustomVol != nil || config.NormalizeProfileName(req.Profile) == CustomProfileName {
		p := config.RiskProfile{Name: CustomProfileName, Mean: defaultCustomMean, Vol: defaultCustomVol}
		if req.CustomMean != nil {
			p.Mean = *req.CustomMean
		}
		if req.CustomVol != nil {
			p.Vol = *req.CustomVol
		}
		return p, nil
	}
	return set.Resolve(req.Profile)
}

func pick(override, published *float64, fallback float64) float64 {
	if override != nil {
		return *override
	}
	if published != nil {
		return *published
	}
	return fallback
}
