package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides maps NESTEGG_* variables onto config fields. Unset variables
// leave the file value untouched.
type envOverrides struct {
	StartingBalance     *float64 `env:"NESTEGG_START"`
	MonthlyContribution *float64 `env:"NESTEGG_MONTHLY"`
	GrowthPercent       *float64 `env:"NESTEGG_GROWTH"`
	HorizonYears        *int     `env:"NESTEGG_YEARS"`
	Profile             *string  `env:"NESTEGG_PROFILE"`
	InflationPercent    *float64 `env:"NESTEGG_INFLATION"`
	FeePercent          *float64 `env:"NESTEGG_FEE"`
	Target              *float64 `env:"NESTEGG_TARGET"`
	Trials              *int     `env:"NESTEGG_TRIALS"`
	Currency            *string  `env:"NESTEGG_CURRENCY"`

	AssumptionsURL *string `env:"NESTEGG_ASSUMPTIONS_URL"`
	CacheTTL       *string `env:"NESTEGG_CACHE_TTL"`
	CacheBackend   *string `env:"NESTEGG_CACHE_BACKEND"`
	RedisAddr      *string `env:"NESTEGG_REDIS_ADDR"`

	DaemonAddr *string `env:"NESTEGG_DAEMON_ADDR"`
	LogLevel   *string `env:"NESTEGG_LOG_LEVEL"`
}

// ApplyEnv overlays NESTEGG_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	set(&cfg.Simulation.StartingBalance, o.StartingBalance)
	set(&cfg.Simulation.MonthlyContribution, o.MonthlyContribution)
	set(&cfg.Simulation.GrowthPercent, o.GrowthPercent)
	set(&cfg.Simulation.HorizonYears, o.HorizonYears)
	set(&cfg.Simulation.Profile, o.Profile)
	set(&cfg.Simulation.InflationPercent, o.InflationPercent)
	set(&cfg.Simulation.FeePercent, o.FeePercent)
	set(&cfg.Simulation.Target, o.Target)
	set(&cfg.Simulation.Trials, o.Trials)
	set(&cfg.Simulation.Currency, o.Currency)

	set(&cfg.Assumptions.URL, o.AssumptionsURL)
	set(&cfg.Assumptions.CacheTTL, o.CacheTTL)
	set(&cfg.Assumptions.Backend, o.CacheBackend)
	set(&cfg.Assumptions.RedisAddr, o.RedisAddr)

	set(&cfg.Daemon.Addr, o.DaemonAddr)
	set(&cfg.Daemon.LogLevel, o.LogLevel)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
