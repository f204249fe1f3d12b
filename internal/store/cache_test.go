package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/nestegg/internal/model"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "nestegg.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id string, created time.Time, hit *int) model.RunRecord {
	return model.RunRecord{
		ID:        id,
		CreatedAt: created,
		Profile:   "balanced",
		Inflation: 0.025,
		Fee:       0.006,
		Seed:      1<<63 + 5,
		Params: montecarlo.Params{
			StartingBalance:        2500,
			MonthlyContribution:    350,
			ContributionGrowthRate: 0.02,
			HorizonYears:           2,
			AnnualMeanReturn:       0.029,
			AnnualVolatility:       0.10,
			Trials:                 500,
			TargetValue:            100000,
		},
		Summary: model.RunSummary{P10: 1, P50: 2, P90: 3, HitRate: hit, Min: 0.5, Max: 4, Mean: 2.1},
		Bands: []montecarlo.Band{
			{Year: 0, P10: 2500, P25: 2500, P50: 2500, P75: 2500, P90: 2500},
			{Year: 1, P10: 6000, P25: 6500, P50: 7000, P75: 7400, P90: 8000},
		},
		DurationMs: 12,
	}
}

func TestRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	hit := 42
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	want := sampleRun("run-1", created, &hit)
	if err := s.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Seed != want.Seed {
		t.Errorf("Seed = %d, want %d", got.Seed, want.Seed)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if got.Params != want.Params {
		t.Errorf("Params = %+v, want %+v", got.Params, want.Params)
	}
	if got.Summary.HitRate == nil || *got.Summary.HitRate != 42 {
		t.Errorf("HitRate = %v, want 42", got.Summary.HitRate)
	}
	if len(got.Bands) != 2 || got.Bands[1] != want.Bands[1] {
		t.Errorf("Bands = %+v, want %+v", got.Bands, want.Bands)
	}
}

func TestNullHitRate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SaveRun(ctx, sampleRun("no-target", time.Now(), nil)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetRun(ctx, "no-target")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Summary.HitRate != nil {
		t.Errorf("HitRate = %v, want nil", *got.Summary.HitRate)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		// Sub-second offsets exercise the fixed-width timestamp ordering.
		created := base.Add(time.Duration(i) * 100 * time.Millisecond)
		if err := s.SaveRun(ctx, sampleRun(id, created, nil)); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("ListRuns(2) ids = %v, want [c b]", runIDs(runs))
	}
	if len(runs[0].Bands) != 0 {
		t.Error("ListRuns should not load bands")
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) = %d runs, want 3", len(all))
	}

	n, err := s.RunCount(ctx)
	if err != nil || n != 3 {
		t.Errorf("RunCount = %d, %v; want 3", n, err)
	}
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SaveRun(ctx, sampleRun("gone", time.Now(), nil)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.DeleteRun(ctx, "gone"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := s.GetRun(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun after delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteRun(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteRun err = %v, want ErrNotFound", err)
	}

	var bands int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM run_bands WHERE run_id = 'gone'").Scan(&bands); err != nil {
		t.Fatal(err)
	}
	if bands != 0 {
		t.Errorf("%d orphaned bands after delete", bands)
	}
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, _, ok, err := s.GetDocument(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("GetDocument(missing) ok=%v err=%v", ok, err)
	}

	fetched := time.Date(2026, 5, 2, 3, 4, 5, 0, time.UTC)
	if err := s.PutDocument(ctx, "k", []byte(`{"inflation":0.03}`), fetched); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	body, at, ok, err := s.GetDocument(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("GetDocument ok=%v err=%v", ok, err)
	}
	if string(body) != `{"inflation":0.03}` || !at.Equal(fetched) {
		t.Errorf("GetDocument = %q at %v", body, at)
	}
}

func runIDs(runs []model.RunRecord) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
