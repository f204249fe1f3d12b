// Package model defines the persisted run records shared by the store, the
// daemon and the dashboard.
package model

import (
	"time"

	"github.com/theirongolddev/nestegg/internal/montecarlo"
)

// RunSummary holds the reduced statistics kept for a stored run.
type RunSummary struct {
	P10     float64 `json:"p10"`
	P50     float64 `json:"p50"`
	P90     float64 `json:"p90"`
	HitRate *int    `json:"hit_rate"` // nil when no target was set
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
}

// RunRecord is one completed simulation as stored in run history.
type RunRecord struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Profile    string            `json:"profile"`
	Inflation  float64           `json:"inflation"`
	Fee        float64           `json:"fee"`
	Seed       uint64            `json:"seed"`
	Params     montecarlo.Params `json:"params"`
	Summary    RunSummary        `json:"summary"`
	Bands      []montecarlo.Band `json:"bands,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// SummaryFromResult extracts the persisted statistics from a result.
func SummaryFromResult(r *montecarlo.Result) RunSummary {
	s := RunSummary{
		P10:  r.P10,
		P50:  r.P50,
		P90:  r.P90,
		Min:  r.Summary.Min,
		Max:  r.Summary.Max,
		Mean: r.Summary.Mean,
	}
	if r.HitRate != nil {
		pct := r.HitRate.Percent
		s.HitRate = &pct
	}
	return s
}
