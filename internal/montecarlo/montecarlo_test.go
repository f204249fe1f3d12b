package montecarlo

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
)

func baseParams() Params {
	return Params{
		StartingBalance:        2500,
		MonthlyContribution:    350,
		ContributionGrowthRate: 0.02,
		HorizonYears:           20,
		AnnualMeanReturn:       0.06,
		AnnualVolatility:       0,
		Trials:                 500,
		TargetValue:            100000,
	}
}

// directRecurrence recomputes the zero-volatility balance independently.
func directRecurrence(p Params) float64 {
	balance := p.StartingBalance
	contribution := p.MonthlyContribution
	for range p.HorizonYears * 12 {
		balance = (balance + contribution) * (1 + p.AnnualMeanReturn/12)
		contribution *= 1 + p.ContributionGrowthRate/12
	}
	return balance
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func TestConcreteScenarioIsDeterministic(t *testing.T) {
	p := baseParams()
	want := directRecurrence(p)

	r, err := Simulate(context.Background(), p, Options{Seed: 42})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(r.FinalBalances) != p.Trials {
		t.Fatalf("len(FinalBalances) = %d, want %d", len(r.FinalBalances), p.Trials)
	}
	for i, v := range r.FinalBalances {
		if !almostEqual(v, want) {
			t.Fatalf("FinalBalances[%d] = %v, want %v", i, v, want)
		}
	}
	if !almostEqual(DeterministicBalance(p), want) {
		t.Errorf("DeterministicBalance = %v, want %v", DeterministicBalance(p), want)
	}

	wantHit := 0
	if want >= p.TargetValue {
		wantHit = 100
	}
	if r.HitRate == nil || r.HitRate.Percent != wantHit {
		t.Errorf("HitRate = %+v, want %d%%", r.HitRate, wantHit)
	}
	if len(r.Histogram) != 1 || r.Histogram[0].Count != p.Trials {
		t.Errorf("Histogram = %+v, want single bucket of %d", r.Histogram, p.Trials)
	}
}

func TestZeroTargetHitRateNotApplicable(t *testing.T) {
	p := baseParams()
	p.TargetValue = 0
	p.AnnualVolatility = 0.1
	r, err := Simulate(context.Background(), p, Options{Seed: 1})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if r.HitRate != nil {
		t.Errorf("HitRate = %+v, want nil", r.HitRate)
	}
	rep := BuildReport(p, r)
	if rep.Advice != AdviceNone || rep.ShortfallRisk != nil || rep.ExtraMonthly != 0 {
		t.Errorf("report = %+v, want no target-derived fields", rep)
	}
}

func TestPercentileOrderingAndExtremes(t *testing.T) {
	p := baseParams()
	p.AnnualVolatility = 0.14
	p.AnnualMeanReturn = 0.08
	p.Trials = 2000
	r, err := Simulate(context.Background(), p, Options{Seed: 7})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !slices.IsSorted(r.FinalBalances) {
		t.Fatal("FinalBalances not sorted")
	}
	if !(r.P10 <= r.P50 && r.P50 <= r.P90) {
		t.Errorf("P10=%v P50=%v P90=%v not ordered", r.P10, r.P50, r.P90)
	}
	if got := Percentile(r.FinalBalances, 0); got != r.FinalBalances[0] {
		t.Errorf("Percentile(0) = %v, want min %v", got, r.FinalBalances[0])
	}
	last := r.FinalBalances[len(r.FinalBalances)-1]
	if got := Percentile(r.FinalBalances, 1); got != last {
		t.Errorf("Percentile(1) = %v, want max %v", got, last)
	}
	if r.Summary.Min != r.FinalBalances[0] || r.Summary.Max != last {
		t.Errorf("Summary = %+v, want min/max of balances", r.Summary)
	}
}

func TestScaleSanity(t *testing.T) {
	p := baseParams()
	p.AnnualVolatility = 0.10
	p.Trials = 5000
	r, err := Simulate(context.Background(), p, Options{Seed: 99})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	det := DeterministicBalance(p)
	// The median of a lognormal-ish outcome sits near, and slightly below,
	// the deterministic mean path.
	if r.P50 < det*0.8 || r.P50 > det*1.1 {
		t.Errorf("P50 = %v, want within [0.8, 1.1] of deterministic %v", r.P50, det)
	}
}

func TestHitRateAtDeterministicTarget(t *testing.T) {
	p := baseParams()
	p.AnnualVolatility = 0
	p.TargetValue = DeterministicBalance(p)
	r, err := Simulate(context.Background(), p, Options{Seed: 3, Workers: 4})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if r.HitRate == nil || r.HitRate.Percent != 100 {
		t.Errorf("HitRate = %+v, want 100%%", r.HitRate)
	}
	rep := BuildReport(p, r)
	if rep.ShortfallRisk == nil || *rep.ShortfallRisk != 0 {
		t.Errorf("ShortfallRisk = %v, want 0", rep.ShortfallRisk)
	}
}

// seedMeans runs the same params under each seed and returns the sorted
// per-run mean final balances.
func seedMeans(t *testing.T, p Params, seeds int) []float64 {
	t.Helper()
	means := make([]float64, 0, seeds)
	for s := range seeds {
		r, err := Simulate(context.Background(), p, Options{Seed: uint64(1000 + s)})
		if err != nil {
			t.Fatalf("Simulate(seed %d): %v", 1000+s, err)
		}
		means = append(means, r.Summary.Mean)
	}
	return SortBalances(means)
}

func TestScaleSanityDoublingTrials(t *testing.T) {
	p := baseParams()
	p.HorizonYears = 10
	p.AnnualVolatility = 0.14
	p.AnnualMeanReturn = 0.08

	const seeds = 80
	p.Trials = 200
	small := seedMeans(t, p, seeds)
	p.Trials = 400
	large := seedMeans(t, p, seeds)

	avg := func(v []float64) float64 {
		var sum float64
		for _, x := range v {
			sum += x
		}
		return sum / float64(len(v))
	}
	if a, b := avg(small), avg(large); math.Abs(a-b) > 0.02*b {
		t.Errorf("mean at N = %v, at 2N = %v, want within 2%%", a, b)
	}

	spread := func(v []float64) float64 { return Percentile(v, 0.9) - Percentile(v, 0.1) }
	if s, l := spread(small), spread(large); l >= s {
		t.Errorf("P10-P90 spread of means at 2N = %v, want narrower than %v at N", l, s)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	v := []float64{10, 20, 30, 40}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{1, 40},
		{0.5, 25},
		{1.0 / 3, 20},
		{0.1, 13},
		{-1, 10},
		{2, 40},
	}
	for _, tt := range tests {
		if got := Percentile(v, tt.p); !almostEqual(got, tt.want) {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("Percentile(nil) = %v, want 0", got)
	}
	if got := Percentile([]float64{5}, 0.9); got != 5 {
		t.Errorf("Percentile(single) = %v, want 5", got)
	}
}

func TestHitRateBoundary(t *testing.T) {
	values := []float64{50, 100, 100, 150}
	hr := ComputeHitRate(values, 100)
	if hr == nil || hr.Count != 3 || hr.Percent != 75 {
		t.Errorf("ComputeHitRate = %+v, want 3 hits / 75%%", hr)
	}
	hr = ComputeHitRate([]float64{1, 2, 3}, 2)
	if hr == nil || hr.Percent != 67 {
		t.Errorf("ComputeHitRate rounding = %+v, want 67%%", hr)
	}
	if ComputeHitRate(values, 0) != nil {
		t.Error("ComputeHitRate(target 0) should be nil")
	}
}

func TestHistogramCoverage(t *testing.T) {
	sorted := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	for _, buckets := range []int{1, 3, 4, 12, 64} {
		h := Histogram(sorted, buckets, 5)
		if len(h) != buckets {
			t.Errorf("buckets=%d: len = %d", buckets, len(h))
		}
		total := 0
		for _, b := range h {
			total += b.Count
		}
		if total != len(sorted) {
			t.Errorf("buckets=%d: counts sum to %d, want %d", buckets, total, len(sorted))
		}
		if h[len(h)-1].Count == 0 {
			t.Errorf("buckets=%d: max value not in last bucket", buckets)
		}
		if h[len(h)-1].Upper != 10 {
			t.Errorf("buckets=%d: last upper = %v, want 10", buckets, h[len(h)-1].Upper)
		}
	}

	h := Histogram(sorted, 2, 5)
	if h[0].AboveTarget || !h[1].AboveTarget {
		t.Errorf("AboveTarget = %v,%v, want false,true", h[0].AboveTarget, h[1].AboveTarget)
	}
	if h[0].Count != 5 || h[1].Count != 6 {
		t.Errorf("counts = %d,%d, want 5,6", h[0].Count, h[1].Count)
	}
}

func TestHistogramDegenerate(t *testing.T) {
	h := Histogram([]float64{7, 7, 7}, 12, 5)
	if len(h) != 1 || h[0].Count != 3 || !h[0].AboveTarget {
		t.Errorf("Histogram = %+v, want one above-target bucket of 3", h)
	}
	if Histogram(nil, 12, 0) != nil {
		t.Error("Histogram(nil) should be nil")
	}
}

func TestFanChart(t *testing.T) {
	p := baseParams()
	p.AnnualVolatility = 0.1
	p.Trials = 300
	p.HorizonYears = 5
	r, err := Simulate(context.Background(), p, Options{Seed: 3, FanChart: true})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(r.FanChart) != p.HorizonYears+1 {
		t.Fatalf("len(FanChart) = %d, want %d", len(r.FanChart), p.HorizonYears+1)
	}
	first := r.FanChart[0]
	if first.P10 != p.StartingBalance || first.P90 != p.StartingBalance {
		t.Errorf("year 0 band = %+v, want all %v", first, p.StartingBalance)
	}
	for _, b := range r.FanChart {
		if !(b.P10 <= b.P25 && b.P25 <= b.P50 && b.P50 <= b.P75 && b.P75 <= b.P90) {
			t.Errorf("year %d band not ordered: %+v", b.Year, b)
		}
	}
	lastBand := r.FanChart[len(r.FanChart)-1]
	if !almostEqual(lastBand.P50, r.P50) {
		t.Errorf("final band P50 = %v, want result P50 %v", lastBand.P50, r.P50)
	}
}

func TestFanChartClampsIndex(t *testing.T) {
	histories := [][]float64{{1, 2, 3}, {1, 4, 5}}
	bands := FanChart(histories, 2)
	if len(bands) != 3 {
		t.Fatalf("len = %d, want 3", len(bands))
	}
	if bands[2].P90 > 5 || bands[2].P10 < 3 {
		t.Errorf("clamped band = %+v, want values from last index", bands[2])
	}
}

func TestSeedReproducibleAcrossWorkers(t *testing.T) {
	p := baseParams()
	p.AnnualVolatility = 0.12
	p.Trials = 1000

	var ref *Result
	for _, workers := range []int{1, 2, 3, 8} {
		r, err := Simulate(context.Background(), p, Options{Seed: 2024, Workers: workers, FanChart: true})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if ref == nil {
			ref = r
			continue
		}
		if !slices.Equal(r.FinalBalances, ref.FinalBalances) {
			t.Errorf("workers=%d: balances differ from workers=1", workers)
		}
		if !slices.Equal(r.FanChart, ref.FanChart) {
			t.Errorf("workers=%d: fan chart differs from workers=1", workers)
		}
	}

	other, err := Simulate(context.Background(), p, Options{Seed: 2025})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if slices.Equal(other.FinalBalances, ref.FinalBalances) {
		t.Error("different seeds produced identical balances")
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := baseParams()
	p.AnnualVolatility = 0.1
	r, err := Simulate(ctx, p, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if r != nil {
		t.Error("expected no partial result")
	}
}

func TestSimulateCancelMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := baseParams()
	p.AnnualVolatility = 0.1
	p.Trials = MaxTrials
	_, err := Simulate(ctx, p, Options{
		Workers: 2,
		Progress: func(done, _ int) {
			if done == 10 {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestProgressReportsEveryTrial(t *testing.T) {
	p := baseParams()
	p.Trials = 50
	calls := 0
	_, err := Simulate(context.Background(), p, Options{
		Workers: 1,
		Progress: func(done, total int) {
			calls++
			if total != 50 {
				t.Errorf("total = %d, want 50", total)
			}
		},
	})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if calls != 50 {
		t.Errorf("progress calls = %d, want 50", calls)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Params)
		field string
	}{
		{"negative start", func(p *Params) { p.StartingBalance = -1 }, "starting_balance"},
		{"nan monthly", func(p *Params) { p.MonthlyContribution = math.NaN() }, "monthly_contribution"},
		{"negative target", func(p *Params) { p.TargetValue = -5 }, "target_value"},
		{"negative vol", func(p *Params) { p.AnnualVolatility = -0.1 }, "annual_volatility"},
		{"inf mean", func(p *Params) { p.AnnualMeanReturn = math.Inf(1) }, "annual_mean_return"},
		{"zero years", func(p *Params) { p.HorizonYears = 0 }, "horizon_years"},
		{"too many years", func(p *Params) { p.HorizonYears = 41 }, "horizon_years"},
		{"zero trials", func(p *Params) { p.Trials = 0 }, "trials"},
		{"too many trials", func(p *Params) { p.Trials = MaxTrials + 1 }, "trials"},
		{"growth collapse", func(p *Params) { p.ContributionGrowthRate = -12 }, "contribution_growth_rate"},
		{"growth too high", func(p *Params) { p.ContributionGrowthRate = 1.5 }, "contribution_growth_rate"},
		{"mean collapse", func(p *Params) { p.AnnualMeanReturn = -12 }, "annual_mean_return"},
		{"mean too high", func(p *Params) { p.AnnualMeanReturn = 50 }, "annual_mean_return"},
		{"vol too high", func(p *Params) { p.AnnualVolatility = 1.01 }, "annual_volatility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mut(&p)
			_, err := Simulate(context.Background(), p, Options{})
			if !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("err = %v, want ErrInvalidParams", err)
			}
			var pe *ParamError
			if !errors.As(err, &pe) || pe.Field != tt.field {
				t.Errorf("field = %v, want %s", pe, tt.field)
			}
		})
	}

	p := baseParams()
	p.ContributionGrowthRate = -0.05
	p.AnnualMeanReturn = -0.02
	if err := p.Validate(); err != nil {
		t.Errorf("negative rates rejected: %v", err)
	}

	p = baseParams()
	p.AnnualMeanReturn = MaxAnnualMeanReturn
	p.AnnualVolatility = MaxAnnualVolatility
	p.ContributionGrowthRate = MaxContributionGrowthRate
	if err := p.Validate(); err != nil {
		t.Errorf("ceiling rates rejected: %v", err)
	}
}

func TestSimulateRejectsOverflow(t *testing.T) {
	p := baseParams()
	p.StartingBalance = 1e307
	p.AnnualMeanReturn = MaxAnnualMeanReturn
	p.HorizonYears = MaxHorizonYears
	p.Trials = 20
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r, err := Simulate(context.Background(), p, Options{Seed: 1})
	if !errors.Is(err, ErrOverflow) || !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrOverflow wrapping ErrInvalidParams", err)
	}
	if r != nil {
		t.Errorf("result = %+v, want nil", r)
	}
}

func TestRateCeilingsStayFinite(t *testing.T) {
	p := baseParams()
	p.AnnualMeanReturn = MaxAnnualMeanReturn
	p.AnnualVolatility = MaxAnnualVolatility
	p.ContributionGrowthRate = MaxContributionGrowthRate
	p.HorizonYears = MaxHorizonYears
	p.Trials = 200
	r, err := Simulate(context.Background(), p, Options{Seed: 5})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for _, v := range []float64{r.P10, r.P50, r.P90, r.Summary.Mean} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite outcome: P10=%v P50=%v P90=%v mean=%v", r.P10, r.P50, r.P90, r.Summary.Mean)
		}
	}
	if !(r.P10 <= r.P50 && r.P50 <= r.P90) {
		t.Errorf("P10=%v P50=%v P90=%v not ordered", r.P10, r.P50, r.P90)
	}
}

func TestSimulateRejectsBadBuckets(t *testing.T) {
	_, err := Simulate(context.Background(), baseParams(), Options{Buckets: MaxBuckets + 1})
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("err = %v, want ErrInvalidParams", err)
	}
	if err != nil && !strings.Contains(err.Error(), "0 (default)") {
		t.Errorf("err = %q, want it to mention the default", err)
	}
	if _, err := Simulate(context.Background(), baseParams(), Options{Buckets: 0}); err != nil {
		t.Errorf("Buckets 0 rejected: %v", err)
	}
}

type scriptedSource struct {
	values []float64
	pos    int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

func TestNormalRejectsZero(t *testing.T) {
	src := &scriptedSource{values: []float64{0, 0, 0.5, 0, 0.25}}
	n := NewNormal(src)
	got := n.Next()
	want := math.Sqrt(-2*math.Log(0.5)) * math.Cos(2*math.Pi*0.25)
	if !almostEqual(got, want) {
		t.Errorf("Next = %v, want %v", got, want)
	}
	if src.pos != 5 {
		t.Errorf("consumed %d samples, want 5", src.pos)
	}
}

func TestNormalMoments(t *testing.T) {
	n := NewNormal(NewSource(11))
	const samples = 200_000
	var sum, sumSq float64
	for range samples {
		z := n.Next()
		if math.IsNaN(z) || math.IsInf(z, 0) {
			t.Fatalf("non-finite deviate %v", z)
		}
		sum += z
		sumSq += z * z
	}
	mean := sum / samples
	variance := sumSq/samples - mean*mean
	if math.Abs(mean) > 0.01 {
		t.Errorf("mean = %v, want ~0", mean)
	}
	if math.Abs(variance-1) > 0.02 {
		t.Errorf("variance = %v, want ~1", variance)
	}
}

func TestSimulatePathHistory(t *testing.T) {
	p := baseParams()
	p.HorizonYears = 2
	in := p.pathInput()
	history := make([]float64, in.Months+1)
	final := SimulatePath(in, nil, history)
	if history[0] != p.StartingBalance {
		t.Errorf("history[0] = %v, want %v", history[0], p.StartingBalance)
	}
	if history[in.Months] != final {
		t.Errorf("history[last] = %v, want final %v", history[in.Months], final)
	}
	if !almostEqual(history[1], (2500+350)*1.005) {
		t.Errorf("history[1] = %v, want %v", history[1], (2500+350)*1.005)
	}
}

func TestBuildReport(t *testing.T) {
	p := baseParams()
	r := &Result{
		FinalBalances: []float64{40000, 60000, 90000, 110000},
		P50:           75000,
		HitRate:       ComputeHitRate([]float64{40000, 60000, 90000, 110000}, 100000),
	}
	rep := BuildReport(p, r)

	wantContrib := 2500 + 350*12*20*(1+0.02/2*20)
	if !almostEqual(rep.TotalContributions, wantContrib) {
		t.Errorf("TotalContributions = %v, want %v", rep.TotalContributions, wantContrib)
	}
	if !almostEqual(rep.MedianGrowth, 75000-wantContrib) {
		t.Errorf("MedianGrowth = %v", rep.MedianGrowth)
	}
	if rep.ShortfallRisk == nil || *rep.ShortfallRisk != 75 {
		t.Errorf("ShortfallRisk = %v, want 75", rep.ShortfallRisk)
	}
	if rep.SevereShortfallRisk == nil || *rep.SevereShortfallRisk != 25.0 {
		t.Errorf("SevereShortfallRisk = %v, want 25", rep.SevereShortfallRisk)
	}
	if got := ShareBelowTenths([]float64{1, 2, 3}, 2); got != 33.3 {
		t.Errorf("ShareBelowTenths = %v, want 33.3", got)
	}
	if got := ShareBelow([]float64{1, 2, 3}, 2); got != 33 {
		t.Errorf("ShareBelow = %v, want 33", got)
	}
	if rep.Advice != AdviceLow {
		t.Errorf("Advice = %v, want %v", rep.Advice, AdviceLow)
	}
	if rep.ExtraMonthly != math.Ceil(25000.0/240) {
		t.Errorf("ExtraMonthly = %v, want %v", rep.ExtraMonthly, math.Ceil(25000.0/240))
	}
}

func TestAdviceFor(t *testing.T) {
	tests := []struct {
		percent int
		want    Advice
	}{
		{100, AdviceOnTrack},
		{75, AdviceOnTrack},
		{74, AdviceWithinReach},
		{50, AdviceWithinReach},
		{49, AdviceLow},
		{0, AdviceLow},
	}
	for _, tt := range tests {
		if got := AdviceFor(&HitRate{Percent: tt.percent}); got != tt.want {
			t.Errorf("AdviceFor(%d) = %v, want %v", tt.percent, got, tt.want)
		}
	}
	if AdviceFor(nil) != AdviceNone {
		t.Error("AdviceFor(nil) should be n/a")
	}
}

func FuzzPercentile(f *testing.F) {
	f.Add(3.0, 1.0, 2.0, 0.5)
	f.Add(-1.0, 0.0, 10.0, 0.9)
	f.Fuzz(func(t *testing.T, a, b, c, p float64) {
		for _, v := range []float64{a, b, c, p} {
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 1e12 {
				return
			}
		}
		sorted := SortBalances([]float64{a, b, c})
		got := Percentile(sorted, p)
		slack := 1e-9 * math.Max(1, math.Abs(sorted[2]-sorted[0]))
		if got < sorted[0]-slack || got > sorted[2]+slack {
			t.Errorf("Percentile(%v, %v) = %v outside range", sorted, p, got)
		}
	})
}

func BenchmarkSimulate(b *testing.B) {
	p := baseParams()
	p.AnnualVolatility = 0.1
	p.Trials = 1000
	b.ResetTimer()
	for range b.N {
		if _, err := Simulate(context.Background(), p, Options{Seed: 1}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSimulateWithFan(b *testing.B) {
	p := baseParams()
	p.AnnualVolatility = 0.1
	p.Trials = 1000
	b.ResetTimer()
	for range b.N {
		if _, err := Simulate(context.Background(), p, Options{Seed: 1, FanChart: true}); err != nil {
			b.Fatal(err)
		}
	}
}
