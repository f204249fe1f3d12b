// Package config loads nestegg settings from the TOML config file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/xhit/go-str2duration/v2"
)

// Config holds all nestegg configuration.
type Config struct {
	Simulation  SimulationConfig           `toml:"simulation"`
	Assumptions AssumptionsConfig          `toml:"assumptions"`
	Daemon      DaemonConfig               `toml:"daemon"`
	Appearance  AppearanceConfig           `toml:"appearance"`
	Profiles    map[string]ProfileOverride `toml:"profiles,omitempty"`
}

// SimulationConfig holds the default inputs for a run. Rates are percentages.
type SimulationConfig struct {
	StartingBalance     float64 `toml:"starting_balance"`
	MonthlyContribution float64 `toml:"monthly_contribution"`
	GrowthPercent       float64 `toml:"growth_percent"`
	HorizonYears        int     `toml:"horizon_years"`
	Profile             string  `toml:"profile"`
	InflationPercent    float64 `toml:"inflation_percent"`
	FeePercent          float64 `toml:"fee_percent"`
	Target              float64 `toml:"target"`
	Trials              int     `toml:"trials"`
	Buckets             int     `toml:"buckets"`
	Workers             int     `toml:"workers,omitempty"`
	Currency            string  `toml:"currency"`
	BaselineFile        string  `toml:"baseline_file,omitempty"`
}

// AssumptionsConfig controls where risk-profile tables come from.
type AssumptionsConfig struct {
	URL         string `toml:"url,omitempty"`
	File        string `toml:"file,omitempty"`
	CacheTTL    string `toml:"cache_ttl"`
	Backend     string `toml:"backend"`
	RedisAddr   string `toml:"redis_addr,omitempty"`
	RefreshCron string `toml:"refresh_cron"`
}

// DaemonConfig holds the local HTTP API settings.
type DaemonConfig struct {
	Addr          string `toml:"addr"`
	MaxConcurrent int    `toml:"max_concurrent"`
	LogFormat     string `toml:"log_format"`
	LogLevel      string `toml:"log_level"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultCacheTTL applies when cache_ttl is empty or unparsable.
const DefaultCacheTTL = 168 * time.Hour

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Simulation: SimulationConfig{
			StartingBalance:     2500,
			MonthlyContribution: 350,
			GrowthPercent:       2,
			HorizonYears:        20,
			Profile:             "balanced",
			InflationPercent:    2.5,
			FeePercent:          0.6,
			Target:              100000,
			Trials:              500,
			Buckets:             12,
			Currency:            "GBP",
		},
		Assumptions: AssumptionsConfig{
			CacheTTL:    "7d",
			Backend:     "sqlite",
			RefreshCron: "0 0 */6 * * *",
		},
		Daemon: DaemonConfig{
			Addr:          "127.0.0.1:8787",
			MaxConcurrent: 2,
			LogFormat:     "text",
			LogLevel:      "info",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nestegg")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nestegg")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// NESTEGG_* environment variables are applied on top.
func Load() (Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile reads a specific config file without environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config file
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to path with owner-only permissions.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // caller-chosen path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// TTL parses the assumptions cache TTL. Day and week units ("7d", "1w")
// are accepted alongside Go durations.
func (c AssumptionsConfig) TTL() time.Duration {
	if c.CacheTTL == "" {
		return DefaultCacheTTL
	}
	d, err := str2duration.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return DefaultCacheTTL
	}
	return d
}
