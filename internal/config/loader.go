// Package config provides configuration management for the boatrace-edge application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "BOATRACE_EDGE"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration, tolerating a missing file.
// Every model parameter falls back to its documented default.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// ReloadFromEnv reloads the configuration when BOATRACE_EDGE_CONFIG_PATH is set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// setDefaults registers model defaults. Registering a key also makes it
// visible to AutomaticEnv, so every default can be overridden from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "boatrace-edge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("scoring.exhibition_weight", 0.40)
	v.SetDefault("scoring.start_timing_weight", 0.35)
	v.SetDefault("scoring.tilt_weight", 0.25)
	v.SetDefault("scoring.start_timing_lane_emphasis", "inner")

	v.SetDefault("prediction.min_settled_races", 10)
	v.SetDefault("prediction.prior_stay_probability", 0.9)
	v.SetDefault("prediction.prior_strength", 10.0)

	v.SetDefault("integration.min_weight", 0.25)
	v.SetDefault("integration.max_weight", 0.75)
	v.SetDefault("integration.exhibition_variance_ref", 0.01)
	v.SetDefault("integration.start_timing_variance_ref", 0.0025)
	v.SetDefault("integration.instability_penalty", 0.3)

	v.SetDefault("outcome.sharpness", 4.0)
	v.SetDefault("outcome.place_discount", 0.85)
	v.SetDefault("outcome.lane_coupling_strength", 0.3)
	v.SetDefault("outcome.drift_tolerance", 1e-6)

	v.SetDefault("betting.bankroll", 100000.0)
	v.SetDefault("betting.min_expected_value", 0.05)
	v.SetDefault("betting.kelly_multiplier", 0.25)
	v.SetDefault("betting.max_bet_fraction", 0.20)
	v.SetDefault("betting.max_race_exposure_fraction", 0.30)
	v.SetDefault("betting.max_bets_per_race", 5)
	v.SetDefault("betting.stake_unit", 0.0)

	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.odds_deadline_lead_seconds", 60)
	v.SetDefault("pipeline.schedule", "*/5 * * * *")
	v.SetDefault("pipeline.lookahead_minutes", 30)

	v.SetDefault("odds_feed.url", "http://localhost:8081")
	v.SetDefault("odds_feed.timeout_seconds", 10)
	v.SetDefault("odds_feed.max_retries", 3)
	v.SetDefault("odds_feed.rate_limit", 5.0)
	v.SetDefault("odds_feed.cache_ttl_seconds", 30)
	v.SetDefault("odds_feed.max_odds_age_seconds", 300)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.client_id", "boatrace-edge")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
