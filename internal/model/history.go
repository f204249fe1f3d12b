package model

import "time"

// HistoryStats summarises a set of stored runs.
type HistoryStats struct {
	Runs        int
	TotalTrials int
	First       time.Time
	Last        time.Time
	// AvgHitRate covers only runs that had a target.
	AvgHitRate *float64
	BestP50    float64
	LatestP50  float64
	P50Trend   []float64 // oldest first
}

// ProfileStats holds per-profile aggregates across stored runs.
type ProfileStats struct {
	Profile      string
	Runs         int
	AvgP50       float64
	AvgHitRate   *float64
	SharePercent float64
}
