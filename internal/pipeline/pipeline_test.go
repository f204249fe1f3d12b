package pipeline

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/nestegg/internal/assumptions"
	"github.com/theirongolddev/nestegg/internal/model"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/store"
)

func ptr[T any](v T) *T { return &v }

func baseRequest() Request {
	return Request{
		StartingBalance:        2500,
		MonthlyContribution:    350,
		ContributionGrowthRate: 0.02,
		HorizonYears:           20,
		Trials:                 500,
		TargetValue:            100000,
		Profile:                "balanced",
		DefaultInflation:       0.025,
		DefaultFee:             0.006,
		Seed:                   ptr(uint64(7)),
		FanChart:               true,
	}
}

type failingSaver struct{}

func (failingSaver) SaveRun(context.Context, model.RunRecord) error {
	return errors.New("disk full")
}

func TestRunPersists(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "nestegg.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	runner := NewRunner(assumptions.New(assumptions.Options{}), s)
	runner.NewID = func() string { return "fixed-id" }
	out, err := runner.Run(ctx, baseRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Stored || len(out.Warnings) != 0 {
		t.Fatalf("Stored=%v Warnings=%v", out.Stored, out.Warnings)
	}

	wantMean := 0.06 - 0.025 - 0.006
	if math.Abs(out.Params.AnnualMeanReturn-wantMean) > 1e-12 {
		t.Errorf("AnnualMeanReturn = %v, want %v", out.Params.AnnualMeanReturn, wantMean)
	}
	if out.Params.AnnualVolatility != 0.10 {
		t.Errorf("AnnualVolatility = %v, want 0.10", out.Params.AnnualVolatility)
	}
	if out.Origin != assumptions.OriginBuiltin {
		t.Errorf("Origin = %s, want builtin", out.Origin)
	}

	got, err := s.GetRun(ctx, "fixed-id")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Seed != 7 || got.Profile != "balanced" {
		t.Errorf("stored seed=%d profile=%s", got.Seed, got.Profile)
	}
	if len(got.Bands) != 21 {
		t.Errorf("stored %d bands, want 21", len(got.Bands))
	}
	if got.Summary.P50 != out.Result.P50 {
		t.Errorf("stored P50 = %v, want %v", got.Summary.P50, out.Result.P50)
	}
}

func TestRunSameSeedSameResult(t *testing.T) {
	runner := NewRunner(nil, nil)
	a, err := runner.Run(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	req := baseRequest()
	req.Workers = 1
	b, err := runner.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Result.P50 != b.Result.P50 || a.Result.P10 != b.Result.P10 {
		t.Errorf("same seed differs: %v/%v vs %v/%v", a.Result.P10, a.Result.P50, b.Result.P10, b.Result.P50)
	}
	if a.Record.ID == b.Record.ID {
		t.Error("run IDs should be unique")
	}
}

func TestRunStoreFailureIsWarning(t *testing.T) {
	runner := NewRunner(nil, failingSaver{})
	out, err := runner.Run(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Stored || len(out.Warnings) != 1 {
		t.Errorf("Stored=%v Warnings=%v, want one warning", out.Stored, out.Warnings)
	}
}

func TestRunCustomProfileAndOverrides(t *testing.T) {
	req := baseRequest()
	req.Profile = ""
	req.CustomMean = ptr(0.05)
	req.Inflation = ptr(0.0)
	req.Fee = ptr(0.01)

	out, err := NewRunner(nil, nil).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Profile.Name != CustomProfileName || out.Profile.Vol != defaultCustomVol {
		t.Errorf("profile = %+v, want custom with default vol", out.Profile)
	}
	if math.Abs(out.Params.AnnualMeanReturn-0.04) > 1e-12 {
		t.Errorf("AnnualMeanReturn = %v, want 0.04", out.Params.AnnualMeanReturn)
	}
	if out.Record.Inflation != 0 || out.Record.Fee != 0.01 {
		t.Errorf("record inflation=%v fee=%v", out.Record.Inflation, out.Record.Fee)
	}
}

func TestRunErrors(t *testing.T) {
	req := baseRequest()
	req.Profile = "yolo"
	if _, err := NewRunner(nil, nil).Run(context.Background(), req); !errors.Is(err, assumptions.ErrUnknownProfile) {
		t.Errorf("err = %v, want ErrUnknownProfile", err)
	}

	req = baseRequest()
	req.HorizonYears = 0
	if _, err := NewRunner(nil, nil).Run(context.Background(), req); !errors.Is(err, montecarlo.ErrInvalidParams) {
		t.Errorf("err = %v, want ErrInvalidParams", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRunner(nil, nil).Run(ctx, baseRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunRandomSeed(t *testing.T) {
	req := baseRequest()
	req.Seed = nil
	req.Trials = 50
	out, err := NewRunner(nil, nil).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A zero seed is possible but vanishingly unlikely.
	if out.Record.Seed == 0 {
		t.Error("expected a random non-zero seed")
	}
}

func runAt(id, profile string, at time.Time, p50 float64, hit *int) model.RunRecord {
	return model.RunRecord{
		ID:        id,
		CreatedAt: at,
		Profile:   profile,
		Params:    montecarlo.Params{Trials: 100},
		Summary:   model.RunSummary{P50: p50, HitRate: hit},
	}
}

func TestAggregateRuns(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []model.RunRecord{
		runAt("c", "growth", base.Add(2*time.Hour), 120, ptr(80)),
		runAt("a", "balanced", base, 100, ptr(60)),
		runAt("b", "balanced", base.Add(time.Hour), 90, nil),
		runAt("old", "balanced", base.Add(-48*time.Hour), 500, nil),
	}

	stats := AggregateRuns(runs, base, time.Time{})
	if stats.Runs != 3 || stats.TotalTrials != 300 {
		t.Errorf("Runs=%d TotalTrials=%d, want 3/300", stats.Runs, stats.TotalTrials)
	}
	if stats.BestP50 != 120 || stats.LatestP50 != 120 {
		t.Errorf("BestP50=%v LatestP50=%v, want 120/120", stats.BestP50, stats.LatestP50)
	}
	want := []float64{100, 90, 120}
	for i, v := range want {
		if stats.P50Trend[i] != v {
			t.Fatalf("P50Trend = %v, want %v", stats.P50Trend, want)
		}
	}
	if stats.AvgHitRate == nil || *stats.AvgHitRate != 70 {
		t.Errorf("AvgHitRate = %v, want 70", stats.AvgHitRate)
	}
	if !stats.First.Equal(base) {
		t.Errorf("First = %v, want %v", stats.First, base)
	}

	if empty := AggregateRuns(nil, time.Time{}, time.Time{}); empty.Runs != 0 || empty.AvgHitRate != nil {
		t.Errorf("empty = %+v", empty)
	}

	profiles := AggregateProfiles(runs)
	if len(profiles) != 2 || profiles[0].Profile != "balanced" || profiles[0].Runs != 3 {
		t.Fatalf("AggregateProfiles = %+v", profiles)
	}
	if profiles[0].SharePercent != 75 {
		t.Errorf("balanced share = %v, want 75", profiles[0].SharePercent)
	}

	if got := FilterByProfile(runs, "GROW"); len(got) != 1 || got[0].ID != "c" {
		t.Errorf("FilterByProfile = %v", got)
	}
}
