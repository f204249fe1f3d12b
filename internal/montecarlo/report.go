package montecarlo

import "math"

// Advice classifies the chance of reaching the target.
type Advice string

const (
	AdviceOnTrack     Advice = "on-track"
	AdviceWithinReach Advice = "within-reach"
	AdviceLow         Advice = "low"
	AdviceNone        Advice = "n/a"
)

// Hit-rate thresholds for the advice tiers.
const (
	onTrackThreshold     = 75
	withinReachThreshold = 50
)

// Report is the plain-language summary derived from a result.
type Report struct {
	TotalContributions float64 `json:"total_contributions"`
	MedianGrowth       float64 `json:"median_growth"`
	// Shortfall fields are nil when no target is set. The severe risk keeps
	// one decimal place.
	ShortfallRisk       *int     `json:"shortfall_risk"`
	SevereShortfallRisk *float64 `json:"severe_shortfall_risk"`
	Advice              Advice   `json:"advice"`
	ExtraMonthly        float64  `json:"extra_monthly"`
}

// EstimateContributions approximates the money paid in over the horizon,
// treating contribution growth as a straight line from the start to the end.
func EstimateContributions(p Params) float64 {
	years := float64(p.HorizonYears)
	return p.StartingBalance +
		p.MonthlyContribution*MonthsPerYear*years*(1+p.ContributionGrowthRate/2*years)
}

// AdviceFor maps a hit rate to an advice tier.
func AdviceFor(hr *HitRate) Advice {
	switch {
	case hr == nil:
		return AdviceNone
	case hr.Percent >= onTrackThreshold:
		return AdviceOnTrack
	case hr.Percent >= withinReachThreshold:
		return AdviceWithinReach
	default:
		return AdviceLow
	}
}

// ExtraMonthly is the whole-unit monthly top-up that would close the gap
// between the median outcome and the target, ignoring returns.
func ExtraMonthly(p Params, p50 float64) float64 {
	if !p.HasTarget() || p.HorizonYears <= 0 {
		return 0
	}
	gap := max(0, p.TargetValue-p50)
	return math.Ceil(gap / float64(p.Months()))
}

// BuildReport derives the report for a completed run.
func BuildReport(p Params, r *Result) Report {
	contributions := EstimateContributions(p)
	rep := Report{
		TotalContributions: contributions,
		MedianGrowth:       r.P50 - contributions,
		Advice:             AdviceFor(r.HitRate),
		ExtraMonthly:       ExtraMonthly(p, r.P50),
	}
	if p.HasTarget() {
		shortfall := ShareBelow(r.FinalBalances, p.TargetValue)
		severe := ShareBelowTenths(r.FinalBalances, p.TargetValue*0.5)
		rep.ShortfallRisk = &shortfall
		rep.SevereShortfallRisk = &severe
	}
	return rep
}
