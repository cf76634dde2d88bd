package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds service-level configuration loaded from environment or file
type Config struct {
	Env         string `mapstructure:"env"`
	Port        string `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	LogLevel    string `mapstructure:"log_level"`

	Sim SimulationParams `mapstructure:"sim"`
}

// SimulationParams is the single value object carrying every tunable constant
// of the projection and simulation engines. Components receive it explicitly;
// there is no ambient global state, which keeps runs reproducible.
type SimulationParams struct {
	Trials int    `mapstructure:"trials" json:"trials"`
	Seed   uint64 `mapstructure:"seed" json:"seed"`

	// Historical volatility
	LookbackWeeks      int     `mapstructure:"lookback_weeks" json:"lookback_weeks"`
	MinGamesForPlayer  int     `mapstructure:"min_games_for_player" json:"min_games_for_player"`
	LowSampleInflation float64 `mapstructure:"low_sample_inflation" json:"low_sample_inflation"`

	// Volatility constraints
	MinStd float64 `mapstructure:"min_std" json:"min_std"`
	MaxStd float64 `mapstructure:"max_std" json:"max_std"`

	// Lognormal constraints
	MinSigmaLog float64 `mapstructure:"min_sigma_log" json:"min_sigma_log"`
	MaxSigmaLog float64 `mapstructure:"max_sigma_log" json:"max_sigma_log"`

	// Percentile ladder
	Percentiles       []float64 `mapstructure:"percentiles" json:"percentiles"`
	FloorPercentile   float64   `mapstructure:"floor_percentile" json:"floor_percentile"`
	CeilingPercentile float64   `mapstructure:"ceiling_percentile" json:"ceiling_percentile"`

	// Matchup adjustment bounds
	MatchupVolMin float64 `mapstructure:"matchup_vol_min" json:"matchup_vol_min"`
	MatchupVolMax float64 `mapstructure:"matchup_vol_max" json:"matchup_vol_max"`

	// Game environment noise
	TotalSD      float64 `mapstructure:"total_sd" json:"total_sd"`
	SpreadSD     float64 `mapstructure:"spread_sd" json:"spread_sd"`
	AlphaMatchup float64 `mapstructure:"alpha_matchup" json:"alpha_matchup"`

	// Correlation thresholds
	UseCorrelations bool    `mapstructure:"use_correlations" json:"use_correlations"`
	FavoriteSpread  float64 `mapstructure:"favorite_spread" json:"favorite_spread"`

	// Field generation
	SalaryCap int `mapstructure:"salary_cap" json:"salary_cap"`

	Workers int `mapstructure:"workers" json:"workers"`
}

// DefaultSimulationParams returns the engine defaults
func DefaultSimulationParams() SimulationParams {
	return SimulationParams{
		Trials:             10000,
		Seed:               42,
		LookbackWeeks:      8,
		MinGamesForPlayer:  4,
		LowSampleInflation: 1.2,
		MinStd:             3.0,
		MaxStd:             20.0,
		MinSigmaLog:        0.2,
		MaxSigmaLog:        1.5,
		Percentiles:        []float64{10, 15, 25, 50, 75, 85, 90, 95},
		FloorPercentile:    15,
		CeilingPercentile:  85,
		MatchupVolMin:      0.8,
		MatchupVolMax:      1.3,
		TotalSD:            7.0,
		SpreadSD:           4.0,
		AlphaMatchup:       0.05,
		UseCorrelations:    true,
		FavoriteSpread:     7.0,
		SalaryCap:          50000,
		Workers:            0, // 0 = runtime.NumCPU
	}
}

// Validate fails fast on configuration that would corrupt a run
func (p SimulationParams) Validate() error {
	if p.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", p.Trials)
	}
	if p.LookbackWeeks <= 0 {
		return fmt.Errorf("lookback_weeks must be positive, got %d", p.LookbackWeeks)
	}
	if p.MinGamesForPlayer < 2 {
		return fmt.Errorf("min_games_for_player must be at least 2, got %d", p.MinGamesForPlayer)
	}
	if p.LowSampleInflation <= 1.0 {
		return fmt.Errorf("low_sample_inflation must exceed 1.0, got %.3f", p.LowSampleInflation)
	}
	if p.MinStd <= 0 || p.MaxStd <= p.MinStd {
		return fmt.Errorf("std bounds must satisfy 0 < min < max, got [%.2f, %.2f]", p.MinStd, p.MaxStd)
	}
	if p.MinSigmaLog <= 0 || p.MaxSigmaLog <= p.MinSigmaLog {
		return fmt.Errorf("sigma_log bounds must satisfy 0 < min < max, got [%.2f, %.2f]", p.MinSigmaLog, p.MaxSigmaLog)
	}
	if len(p.Percentiles) == 0 {
		return fmt.Errorf("percentile list is empty")
	}
	prev := 0.0
	for _, pct := range p.Percentiles {
		if pct <= 0 || pct >= 100 {
			return fmt.Errorf("percentile %.1f outside (0, 100)", pct)
		}
		if pct <= prev {
			return fmt.Errorf("percentiles must be strictly increasing, %.1f follows %.1f", pct, prev)
		}
		prev = pct
	}
	if !containsPct(p.Percentiles, p.FloorPercentile) {
		return fmt.Errorf("floor percentile %.1f not in percentile list", p.FloorPercentile)
	}
	if !containsPct(p.Percentiles, p.CeilingPercentile) {
		return fmt.Errorf("ceiling percentile %.1f not in percentile list", p.CeilingPercentile)
	}
	if p.FloorPercentile >= p.CeilingPercentile {
		return fmt.Errorf("floor percentile %.1f must be below ceiling percentile %.1f", p.FloorPercentile, p.CeilingPercentile)
	}
	if p.MatchupVolMin <= 0 || p.MatchupVolMax <= p.MatchupVolMin {
		return fmt.Errorf("matchup multiplier bounds must satisfy 0 < min < max, got [%.2f, %.2f]", p.MatchupVolMin, p.MatchupVolMax)
	}
	if p.TotalSD <= 0 || p.SpreadSD <= 0 {
		return fmt.Errorf("environment noise scales must be positive, got total_sd=%.2f spread_sd=%.2f", p.TotalSD, p.SpreadSD)
	}
	if p.AlphaMatchup < 0 {
		return fmt.Errorf("alpha_matchup must be non-negative, got %.3f", p.AlphaMatchup)
	}
	if p.SalaryCap <= 0 {
		return fmt.Errorf("salary cap must be positive, got %d", p.SalaryCap)
	}
	if p.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", p.Workers)
	}
	return nil
}

func containsPct(list []float64, pct float64) bool {
	for _, v := range list {
		if v == pct {
			return true
		}
	}
	return false
}

// LoadConfig reads configuration from environment variables and an optional
// config file, layered over engine defaults
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("env", "development")
	v.SetDefault("port", "8082")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("log_level", "info")

	defaults := DefaultSimulationParams()
	v.SetDefault("sim.trials", defaults.Trials)
	v.SetDefault("sim.seed", defaults.Seed)
	v.SetDefault("sim.lookback_weeks", defaults.LookbackWeeks)
	v.SetDefault("sim.min_games_for_player", defaults.MinGamesForPlayer)
	v.SetDefault("sim.low_sample_inflation", defaults.LowSampleInflation)
	v.SetDefault("sim.min_std", defaults.MinStd)
	v.SetDefault("sim.max_std", defaults.MaxStd)
	v.SetDefault("sim.min_sigma_log", defaults.MinSigmaLog)
	v.SetDefault("sim.max_sigma_log", defaults.MaxSigmaLog)
	v.SetDefault("sim.percentiles", defaults.Percentiles)
	v.SetDefault("sim.floor_percentile", defaults.FloorPercentile)
	v.SetDefault("sim.ceiling_percentile", defaults.CeilingPercentile)
	v.SetDefault("sim.matchup_vol_min", defaults.MatchupVolMin)
	v.SetDefault("sim.matchup_vol_max", defaults.MatchupVolMax)
	v.SetDefault("sim.total_sd", defaults.TotalSD)
	v.SetDefault("sim.spread_sd", defaults.SpreadSD)
	v.SetDefault("sim.alpha_matchup", defaults.AlphaMatchup)
	v.SetDefault("sim.use_correlations", defaults.UseCorrelations)
	v.SetDefault("sim.favorite_spread", defaults.FavoriteSpread)
	v.SetDefault("sim.salary_cap", defaults.SalaryCap)
	v.SetDefault("sim.workers", defaults.Workers)

	v.SetConfigName("roo-sim")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/roo-sim")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ROO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Sim.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation parameters: %w", err)
	}

	return &cfg, nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev" || c.Env == ""
}
