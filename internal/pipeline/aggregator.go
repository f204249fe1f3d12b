package pipeline

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/nestegg/internal/model"
)

// AggregateRuns computes history statistics for runs created within
// [since, until). A zero bound is open.
func AggregateRuns(runs []model.RunRecord, since, until time.Time) model.HistoryStats {
	filtered := FilterByTime(runs, since, until)
	slices.SortStableFunc(filtered, func(a, b model.RunRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	var stats model.HistoryStats
	if len(filtered) == 0 {
		return stats
	}

	var hitSum float64
	var hitRuns int
	for i, r := range filtered {
		stats.Runs++
		stats.TotalTrials += r.Params.Trials
		stats.P50Trend = append(stats.P50Trend, r.Summary.P50)
		if i == 0 || r.Summary.P50 > stats.BestP50 {
			stats.BestP50 = r.Summary.P50
		}
		if r.Summary.HitRate != nil {
			hitSum += float64(*r.Summary.HitRate)
			hitRuns++
		}
	}

	stats.First = filtered[0].CreatedAt
	stats.Last = filtered[len(filtered)-1].CreatedAt
	stats.LatestP50 = filtered[len(filtered)-1].Summary.P50
	if hitRuns > 0 {
		avg := hitSum / float64(hitRuns)
		stats.AvgHitRate = &avg
	}
	return stats
}

// AggregateProfiles groups runs by profile, most used first.
func AggregateProfiles(runs []model.RunRecord) []model.ProfileStats {
	type acc struct {
		runs    int
		p50     float64
		hitSum  float64
		hitRuns int
	}
	byProfile := make(map[string]*acc)
	for _, r := range runs {
		a, ok := byProfile[r.Profile]
		if !ok {
			a = &acc{}
			byProfile[r.Profile] = a
		}
		a.runs++
		a.p50 += r.Summary.P50
		if r.Summary.HitRate != nil {
			a.hitSum += float64(*r.Summary.HitRate)
			a.hitRuns++
		}
	}

	out := make([]model.ProfileStats, 0, len(byProfile))
	for name, a := range byProfile {
		ps := model.ProfileStats{
			Profile:      name,
			Runs:         a.runs,
			AvgP50:       a.p50 / float64(a.runs),
			SharePercent: 100 * float64(a.runs) / float64(len(runs)),
		}
		if a.hitRuns > 0 {
			avg := a.hitSum / float64(a.hitRuns)
			ps.AvgHitRate = &avg
		}
		out = append(out, ps)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Runs != out[j].Runs {
			return out[i].Runs > out[j].Runs
		}
		return out[i].Profile < out[j].Profile
	})
	return out
}

// FilterByTime returns runs created within [since, until).
func FilterByTime(runs []model.RunRecord, since, until time.Time) []model.RunRecord {
	var out []model.RunRecord
	for _, r := range runs {
		if !since.IsZero() && r.CreatedAt.Before(since) {
			continue
		}
		if !until.IsZero() && !r.CreatedAt.Before(until) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByProfile returns runs whose profile contains the filter, ignoring case.
func FilterByProfile(runs []model.RunRecord, profile string) []model.RunRecord {
	if profile == "" {
		return runs
	}
	var out []model.RunRecord
	for _, r := range runs {
		if strings.Contains(strings.ToLower(r.Profile), strings.ToLower(profile)) {
			out = append(out, r)
		}
	}
	return out
}
