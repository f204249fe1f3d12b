package config

import (
	"slices"
	"strings"
)

// RiskProfile is an annual expected return and volatility pair, as fractions.
type RiskProfile struct {
	Name string  `json:"name" yaml:"name"`
	Mean float64 `json:"mean" yaml:"mean"`
	Vol  float64 `json:"vol"  yaml:"vol"`
}

// ProfileOverride lets the config file replace or add a profile.
// Percentages, like every other rate in the config file.
type ProfileOverride struct {
	MeanPercent *float64 `toml:"mean_percent,omitempty"`
	VolPercent  *float64 `toml:"vol_percent,omitempty"`
}

// DefaultProfileName is used when no profile is requested.
const DefaultProfileName = "balanced"

// DefaultProfiles are the built-in risk profiles.
var DefaultProfiles = map[string]RiskProfile{
	"cautious": {Name: "cautious", Mean: 0.045, Vol: 0.06},
	"balanced": {Name: "balanced", Mean: 0.06, Vol: 0.10},
	"growth":   {Name: "growth", Mean: 0.08, Vol: 0.14},
}

var profileAliases = map[string]string{
	"conservative": "cautious",
	"low":          "cautious",
	"moderate":     "balanced",
	"medium":       "balanced",
	"aggressive":   "growth",
	"high":         "growth",
}

// NormalizeProfileName lower-cases and trims a profile name and resolves
// common aliases. e.g., " Aggressive " -> "growth"
func NormalizeProfileName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := profileAliases[name]; ok {
		return canonical
	}
	return name
}

// MergeProfiles returns base with the config overrides applied. An override
// for an unknown name adds a profile; missing fields inherit from the base
// entry, or from balanced when there is none.
func MergeProfiles(base map[string]RiskProfile, overrides map[string]ProfileOverride) map[string]RiskProfile {
	out := make(map[string]RiskProfile, len(base)+len(overrides))
	for name, p := range base {
		out[name] = p
	}
	for raw, o := range overrides {
		name := NormalizeProfileName(raw)
		p, ok := out[name]
		if !ok {
			p = DefaultProfiles[DefaultProfileName]
			p.Name = name
		}
		if o.MeanPercent != nil {
			p.Mean = *o.MeanPercent / 100
		}
		if o.VolPercent != nil {
			p.Vol = *o.VolPercent / 100
		}
		out[name] = p
	}
	return out
}

// ProfileNames returns the profile names sorted by ascending volatility,
// then by name.
func ProfileNames(profiles map[string]RiskProfile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		pa, pb := profiles[a], profiles[b]
		switch {
		case pa.Vol < pb.Vol:
			return -1
		case pa.Vol > pb.Vol:
			return 1
		}
		return strings.Compare(a, b)
	})
	return names
}
