package pipeline

import (
	"time"

	"github.com/theirongolddev/nestegg/internal/assumptions"
	"github.com/theirongolddev/nestegg/internal/config"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
)

// OutcomeView is the JSON shape of an Outcome shared by `--json` and the
// daemon. Final balances are left out; the histogram summarises them.
type OutcomeView struct {
	RunID      string              `json:"run_id,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	Seed       uint64              `json:"seed"`
	Profile    config.RiskProfile  `json:"profile"`
	Inflation  float64             `json:"inflation"`
	Fee        float64             `json:"fee"`
	Origin     assumptions.Origin  `json:"assumptions_origin"`
	Params     montecarlo.Params   `json:"params"`
	P10        float64             `json:"p10"`
	P50        float64             `json:"p50"`
	P90        float64             `json:"p90"`
	HitRate    *montecarlo.HitRate `json:"hit_rate"`
	Summary    montecarlo.Summary  `json:"summary"`
	Histogram  []montecarlo.Bucket `json:"histogram"`
	FanChart   []montecarlo.Band   `json:"fan_chart,omitempty"`
	Report     montecarlo.Report   `json:"report"`
	DurationMs int64               `json:"duration_ms"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// View flattens the outcome for JSON output. RunID is empty when the run was
// not stored.
func (o *Outcome) View() OutcomeView {
	v := OutcomeView{
		CreatedAt:  o.Record.CreatedAt,
		Seed:       o.Record.Seed,
		Profile:    o.Profile,
		Inflation:  o.Record.Inflation,
		Fee:        o.Record.Fee,
		Origin:     o.Origin,
		Params:     o.Params,
		P10:        o.Result.P10,
		P50:        o.Result.P50,
		P90:        o.Result.P90,
		HitRate:    o.Result.HitRate,
		Summary:    o.Result.Summary,
		Histogram:  o.Result.Histogram,
		FanChart:   o.Result.FanChart,
		Report:     o.Report,
		DurationMs: o.Record.DurationMs,
	}
	if o.Stored {
		v.RunID = o.Record.ID
	}
	for _, w := range o.Warnings {
		v.Warnings = append(v.Warnings, w.Error())
	}
	return v
}
