package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/text/currency"

	"github.com/theirongolddev/nestegg/internal/config"
	"github.com/theirongolddev/nestegg/internal/montecarlo"
	"github.com/theirongolddev/nestegg/internal/pipeline"
	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

// Trial bounds offered by the forms.
const (
	minFormTrials = 100
	maxFormTrials = montecarlo.MaxTrials
)

// FormValues holds the editable inputs as text for huh fields. Rates are
// percentages, as typed.
type FormValues struct {
	Start    string
	Monthly  string
	Growth   string
	Years    string
	Target   string
	Trials   string
	Profile  string
	Currency string
	Theme    string
}

// ValuesFromConfig seeds the setup form from the saved defaults.
func ValuesFromConfig(cfg config.Config) FormValues {
	sim := cfg.Simulation
	return FormValues{
		Start:    formatAmount(sim.StartingBalance),
		Monthly:  formatAmount(sim.MonthlyContribution),
		Growth:   formatAmount(sim.GrowthPercent),
		Years:    strconv.Itoa(sim.HorizonYears),
		Target:   formatAmount(sim.Target),
		Trials:   strconv.Itoa(sim.Trials),
		Profile:  config.NormalizeProfileName(sim.Profile),
		Currency: sim.Currency,
		Theme:    cfg.Appearance.Theme,
	}
}

// ValuesFromRequest seeds the parameter form from a request.
func ValuesFromRequest(req pipeline.Request) FormValues {
	profile := config.NormalizeProfileName(req.Profile)
	if req.CustomMean != nil || req.CustomVol != nil {
		profile = pipeline.CustomProfileName
	}
	if profile == "" {
		profile = config.DefaultProfileName
	}
	return FormValues{
		Start:   formatAmount(req.StartingBalance),
		Monthly: formatAmount(req.MonthlyContribution),
		Growth:  formatAmount(req.ContributionGrowthRate * 100),
		Years:   strconv.Itoa(req.HorizonYears),
		Target:  formatAmount(req.TargetValue),
		Trials:  strconv.Itoa(req.Trials),
		Profile: profile,
	}
}

// ApplyRequest writes the simulation inputs into req. Choosing a named
// profile drops any custom return/volatility pair.
func (v FormValues) ApplyRequest(req *pipeline.Request) error {
	in, err := v.parse()
	if err != nil {
		return err
	}
	req.StartingBalance = in.start
	req.MonthlyContribution = in.monthly
	req.ContributionGrowthRate = in.growth / 100
	req.HorizonYears = in.years
	req.TargetValue = in.target
	req.Trials = in.trials
	if v.Profile != pipeline.CustomProfileName {
		req.Profile = v.Profile
		req.CustomMean = nil
		req.CustomVol = nil
	}
	return nil
}

// ApplyConfig writes the setup answers into cfg.
func (v FormValues) ApplyConfig(cfg *config.Config) error {
	in, err := v.parse()
	if err != nil {
		return err
	}
	sim := &cfg.Simulation
	sim.StartingBalance = in.start
	sim.MonthlyContribution = in.monthly
	sim.GrowthPercent = in.growth
	sim.HorizonYears = in.years
	sim.Target = in.target
	sim.Trials = in.trials
	if v.Profile != "" && v.Profile != pipeline.CustomProfileName {
		sim.Profile = v.Profile
	}
	if code := strings.TrimSpace(v.Currency); code != "" {
		if err := validateCurrency(code); err != nil {
			return fmt.Errorf("currency: %w", err)
		}
		sim.Currency = strings.ToUpper(code)
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}
	return nil
}

type parsedValues struct {
	start, monthly, growth, target float64
	years, trials                  int
}

func (v FormValues) parse() (parsedValues, error) {
	var (
		in  parsedValues
		err error
	)
	if in.start, err = parseAmount(v.Start); err != nil {
		return in, fmt.Errorf("starting balance: %w", err)
	}
	if in.monthly, err = parseAmount(v.Monthly); err != nil {
		return in, fmt.Errorf("monthly contribution: %w", err)
	}
	if in.growth, err = parseAmount(v.Growth); err != nil {
		return in, fmt.Errorf("contribution growth: %w", err)
	}
	if in.years, err = parseBounded(v.Years, 1, montecarlo.MaxHorizonYears); err != nil {
		return in, fmt.Errorf("years: %w", err)
	}
	if in.target, err = parseAmount(v.Target); err != nil {
		return in, fmt.Errorf("target: %w", err)
	}
	if in.trials, err = parseBounded(v.Trials, minFormTrials, maxFormTrials); err != nil {
		return in, fmt.Errorf("trials: %w", err)
	}
	return in, nil
}

// parseAmount accepts a non-negative number with optional grouping commas
// and currency symbol. Blank is zero.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "£$€¥")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return v, nil
}

func parseBounded(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("must be between %d and %d", lo, hi)
	}
	return n, nil
}

func validateAmount(s string) error {
	_, err := parseAmount(s)
	return err
}

func validateBounded(lo, hi int) func(string) error {
	return func(s string) error {
		_, err := parseBounded(s, lo, hi)
		return err
	}
}

func validateCurrency(s string) error {
	if _, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(s))); err != nil {
		return fmt.Errorf("%q is not an ISO 4217 code", s)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func inputFields(v *FormValues) []huh.Field {
	return []huh.Field{
		huh.NewInput().
			Title("Starting balance").
			Value(&v.Start).
			Validate(validateAmount),
		huh.NewInput().
			Title("Monthly contribution").
			Value(&v.Monthly).
			Validate(validateAmount),
		huh.NewInput().
			Title("Contribution growth (% per year)").
			Value(&v.Growth).
			Validate(validateAmount),
		huh.NewInput().
			Title("Years").
			Description(fmt.Sprintf("1 to %d", montecarlo.MaxHorizonYears)).
			Value(&v.Years).
			Validate(validateBounded(1, montecarlo.MaxHorizonYears)),
		huh.NewInput().
			Title("Target").
			Description("0 for no target").
			Value(&v.Target).
			Validate(validateAmount),
		huh.NewInput().
			Title("Trials").
			Description(fmt.Sprintf("%d to %d", minFormTrials, maxFormTrials)).
			Value(&v.Trials).
			Validate(validateBounded(minFormTrials, maxFormTrials)),
	}
}

func profileSelect(v *FormValues, profiles []string) huh.Field {
	options := huh.NewOptions(profiles...)
	if v.Profile == pipeline.CustomProfileName {
		options = append(options, huh.NewOption("custom (from flags)", pipeline.CustomProfileName))
	}
	return huh.NewSelect[string]().
		Title("Risk profile").
		Options(options...).
		Value(&v.Profile)
}

// NewParamsForm builds the dashboard's parameter form.
func NewParamsForm(v *FormValues, profiles []string) *huh.Form {
	fields := append(inputFields(v), profileSelect(v, profiles))
	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeBase16()).
		WithShowHelp(true)
}

// NewSetupForm builds the first-run setup form, which also asks for the
// display currency and theme.
func NewSetupForm(v *FormValues, profiles []string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(inputFields(v)...).
			Title("Default projection"),
		huh.NewGroup(
			profileSelect(v, profiles),
			huh.NewInput().
				Title("Currency").
				Description("ISO code, e.g. GBP, USD, EUR").
				Value(&v.Currency).
				Validate(validateCurrency),
			huh.NewSelect[string]().
				Title("Theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&v.Theme),
		).Title("Preferences"),
	).WithTheme(huh.ThemeBase16()).WithShowHelp(true)
}
