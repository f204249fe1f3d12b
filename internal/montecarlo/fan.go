package montecarlo

import "slices"

// Band is the spread of balances at the end of one year.
type Band struct {
	Year int     `json:"year"`
	P10  float64 `json:"p10"`
	P25  float64 `json:"p25"`
	P50  float64 `json:"p50"`
	P75  float64 `json:"p75"`
	P90  float64 `json:"p90"`
}

// FanChart computes one band per year 0..years from retained histories.
// Year y reads month index min(y*12, last). Histories must all share a length.
func FanChart(histories [][]float64, years int) []Band {
	if len(histories) == 0 {
		return nil
	}
	last := len(histories[0]) - 1
	column := make([]float64, len(histories))

	bands := make([]Band, 0, years+1)
	for y := 0; y <= years; y++ {
		idx := min(y*MonthsPerYear, last)
		for i, h := range histories {
			column[i] = h[idx]
		}
		slices.Sort(column)
		bands = append(bands, Band{
			Year: y,
			P10:  Percentile(column, 0.10),
			P25:  Percentile(column, 0.25),
			P50:  Percentile(column, 0.50),
			P75:  Percentile(column, 0.75),
			P90:  Percentile(column, 0.90),
		})
	}
	return bands
}
