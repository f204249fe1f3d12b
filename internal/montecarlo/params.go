// Package montecarlo simulates savings balances as a random walk and reduces
// the trials to percentile outcomes, a target hit rate, a histogram and a
// per-year fan chart.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
)

// Engine bounds. Callers usually clamp tighter (see cmd for the CLI limits).
const (
	MaxHorizonYears = 40
	MaxTrials       = 10_000
	MonthsPerYear   = 12

	// Rate ceilings keep a 40-year horizon well inside float64 range.
	MaxAnnualMeanReturn       = 1.0
	MaxAnnualVolatility       = 1.0
	MaxContributionGrowthRate = 1.0
)

// ErrInvalidParams is wrapped by every ParamError.
var ErrInvalidParams = errors.New("montecarlo: invalid parameters")

// ParamError describes a single rejected field.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("montecarlo: invalid %s: %s", e.Field, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParams }

// Params is the immutable input to one simulation run.
// Rates are fractions: 0.06 means 6% per year.
type Params struct {
	StartingBalance        float64 `json:"starting_balance"`
	MonthlyContribution    float64 `json:"monthly_contribution"`
	ContributionGrowthRate float64 `json:"contribution_growth_rate"`
	HorizonYears           int     `json:"horizon_years"`
	AnnualMeanReturn       float64 `json:"annual_mean_return"`
	AnnualVolatility       float64 `json:"annual_volatility"`
	Trials                 int     `json:"trials"`
	TargetValue            float64 `json:"target_value"`
}

// Months returns the number of simulated months.
func (p Params) Months() int {
	return p.HorizonYears * MonthsPerYear
}

// MonthlyMean converts the annual mean return linearly.
func (p Params) MonthlyMean() float64 {
	return p.AnnualMeanReturn / MonthsPerYear
}

// MonthlyVolatility scales the annual volatility by the square root of time.
func (p Params) MonthlyVolatility() float64 {
	return p.AnnualVolatility / math.Sqrt(MonthsPerYear)
}

// MonthlyGrowth prorates the annual contribution growth rate without compounding.
func (p Params) MonthlyGrowth() float64 {
	return p.ContributionGrowthRate / MonthsPerYear
}

// HasTarget reports whether a hit rate can be computed.
func (p Params) HasTarget() bool {
	return p.TargetValue > 0
}

// Validate rejects non-finite, negative-where-disallowed and out-of-bound values.
// It returns the first problem found as a *ParamError.
func (p Params) Validate() error {
	money := []struct {
		name string
		v    float64
	}{
		{"starting_balance", p.StartingBalance},
		{"monthly_contribution", p.MonthlyContribution},
		{"target_value", p.TargetValue},
		{"annual_volatility", p.AnnualVolatility},
	}
	for _, m := range money {
		if !isFinite(m.v) {
			return &ParamError{Field: m.name, Reason: "must be a finite number"}
		}
		if m.v < 0 {
			return &ParamError{Field: m.name, Reason: "must not be negative"}
		}
	}

	if !isFinite(p.ContributionGrowthRate) {
		return &ParamError{Field: "contribution_growth_rate", Reason: "must be a finite number"}
	}
	if p.MonthlyGrowth() <= -1 {
		return &ParamError{Field: "contribution_growth_rate", Reason: "must be greater than -1200%"}
	}
	if p.ContributionGrowthRate > MaxContributionGrowthRate {
		return &ParamError{Field: "contribution_growth_rate", Reason: "must be at most 100%"}
	}
	if !isFinite(p.AnnualMeanReturn) {
		return &ParamError{Field: "annual_mean_return", Reason: "must be a finite number"}
	}
	if p.MonthlyMean() <= -1 {
		return &ParamError{Field: "annual_mean_return", Reason: "must be greater than -1200%"}
	}
	if p.AnnualMeanReturn > MaxAnnualMeanReturn {
		return &ParamError{Field: "annual_mean_return", Reason: "must be at most 100%"}
	}
	if p.AnnualVolatility > MaxAnnualVolatility {
		return &ParamError{Field: "annual_volatility", Reason: "must be at most 100%"}
	}

	if p.HorizonYears <= 0 || p.HorizonYears > MaxHorizonYears {
		return &ParamError{
			Field:  "horizon_years",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxHorizonYears, p.HorizonYears),
		}
	}
	if p.Trials <= 0 || p.Trials > MaxTrials {
		return &ParamError{
			Field:  "trials",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxTrials, p.Trials),
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
