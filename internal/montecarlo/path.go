package montecarlo

// PathInput holds the monthly-unit inputs of one trial.
type PathInput struct {
	StartingBalance     float64
	MonthlyContribution float64
	MonthlyMean         float64
	MonthlyVolatility   float64
	MonthlyGrowth       float64
	Months              int
}

// pathInput converts annual parameters to monthly units.
func (p Params) pathInput() PathInput {
	return PathInput{
		StartingBalance:     p.StartingBalance,
		MonthlyContribution: p.MonthlyContribution,
		MonthlyMean:         p.MonthlyMean(),
		MonthlyVolatility:   p.MonthlyVolatility(),
		MonthlyGrowth:       p.MonthlyGrowth(),
		Months:              p.Months(),
	}
}

// SimulatePath advances one balance month by month and returns the final value.
// When history is non-nil it must have length in.Months+1; history[0] receives
// the starting balance and history[m] the balance after month m.
//
// Each month the contribution is added before the return is applied, so the
// contribution earns that month's return. The contribution then grows by the
// monthly growth rate.
func SimulatePath(in PathInput, normal *Normal, history []float64) float64 {
	balance := in.StartingBalance
	contribution := in.MonthlyContribution
	if history != nil {
		history[0] = balance
	}

	for m := 1; m <= in.Months; m++ {
		monthlyReturn := in.MonthlyMean
		if in.MonthlyVolatility != 0 {
			monthlyReturn += normal.Next() * in.MonthlyVolatility
		}
		balance = (balance + contribution) * (1 + monthlyReturn)
		contribution *= 1 + in.MonthlyGrowth
		if history != nil {
			history[m] = balance
		}
	}
	return balance
}

// DeterministicBalance is the zero-volatility outcome of the same recurrence.
func DeterministicBalance(p Params) float64 {
	in := p.pathInput()
	in.MonthlyVolatility = 0
	return SimulatePath(in, nil, nil)
}
