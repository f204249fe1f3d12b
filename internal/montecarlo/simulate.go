package montecarlo

import (
	"context"
	"fmt"
)

// ErrOverflow is returned when a trial balance leaves the float64 range.
var ErrOverflow = fmt.Errorf("%w: simulated balance overflowed", ErrInvalidParams)

// Options tunes a Simulate call. The zero value runs with seed 0, GOMAXPROCS
// workers, the default histogram and no fan chart.
type Options struct {
	Seed     uint64
	Workers  int
	FanChart bool
	Buckets  int
	Progress ProgressFunc
}

// Result is the reduced outcome of a run.
type Result struct {
	FinalBalances []float64 `json:"final_balances"`
	P10           float64   `json:"p10"`
	P50           float64   `json:"p50"`
	P90           float64   `json:"p90"`
	HitRate       *HitRate  `json:"hit_rate"`
	Summary       Summary   `json:"summary"`
	Histogram     []Bucket  `json:"histogram"`
	FanChart      []Band    `json:"fan_chart,omitempty"`
}

// Simulate validates p, runs the trials and reduces them. Invalid parameters
// are rejected before any trial runs.
func Simulate(ctx context.Context, p Params, opts Options) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if opts.Buckets < 0 || opts.Buckets > MaxBuckets {
		return nil, &ParamError{
			Field:  "buckets",
			Reason: fmt.Sprintf("must be 0 (default) or between 1 and %d, got %d", MaxBuckets, opts.Buckets),
		}
	}

	batch, err := RunBatch(ctx, p, BatchOptions{
		Seed:            opts.Seed,
		Workers:         opts.Workers,
		RetainHistories: opts.FanChart,
		Progress:        opts.Progress,
	})
	if err != nil {
		return nil, fmt.Errorf("running trials: %w", err)
	}

	sorted := SortBalances(batch.Finals)
	if n := len(sorted); n > 0 && (!isFinite(sorted[0]) || !isFinite(sorted[n-1])) {
		return nil, ErrOverflow
	}
	r := &Result{
		FinalBalances: sorted,
		P10:           Percentile(sorted, 0.10),
		P50:           Percentile(sorted, 0.50),
		P90:           Percentile(sorted, 0.90),
		HitRate:       ComputeHitRate(sorted, p.TargetValue),
		Summary:       Summarize(sorted),
		Histogram:     Histogram(sorted, opts.Buckets, p.TargetValue),
	}
	if opts.FanChart {
		r.FanChart = FanChart(batch.Histories, p.HorizonYears)
	}
	return r, nil
}
