package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Baseline is the starting balance and monthly contribution detected from an
// exported budgeting-app state file.
type Baseline struct {
	StartingBalance     float64
	MonthlyContribution float64
}

type exportedState struct {
	Savings  float64            `json:"savings"`
	Income   float64            `json:"income"`
	Expenses map[string]float64 `json:"expenses"`
	Assets   struct {
		CashSavings float64 `json:"cashSavings"`
		CashISA     float64 `json:"cashISA"`
	} `json:"assets"`
}

// DetectBaseline reads an exported state JSON file. The starting balance is
// the recorded savings, falling back to cash savings plus cash ISA when that
// is not positive. The monthly contribution is income minus total expenses,
// floored at zero.
func DetectBaseline(path string) (Baseline, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied export file
	if err != nil {
		return Baseline{}, fmt.Errorf("reading baseline: %w", err)
	}

	var raw exportedState
	if err := json.Unmarshal(data, &raw); err != nil {
		return Baseline{}, fmt.Errorf("parsing baseline: %w", err)
	}

	var b Baseline
	if raw.Savings > 0 {
		b.StartingBalance = raw.Savings
	} else {
		b.StartingBalance = raw.Assets.CashSavings + raw.Assets.CashISA
	}

	var expenses float64
	for _, v := range raw.Expenses {
		expenses += v
	}
	b.MonthlyContribution = math.Max(0, raw.Income-expenses)
	return b, nil
}
