// Package config provides configuration management for the boatrace-edge application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Scoring     ScoringConfig     `mapstructure:"scoring" validate:"required"`
	Prediction  PredictionConfig  `mapstructure:"prediction" validate:"required"`
	Integration IntegrationConfig `mapstructure:"integration" validate:"required"`
	Outcome     OutcomeConfig     `mapstructure:"outcome" validate:"required"`
	Betting     BettingConfig     `mapstructure:"betting" validate:"required"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" validate:"required"`
	OddsFeed    OddsFeedConfig    `mapstructure:"odds_feed" validate:"required"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ScoringConfig weights the race-day sub-scores
type ScoringConfig struct {
	ExhibitionWeight  float64 `mapstructure:"exhibition_weight" validate:"gte=0,lte=1"`
	StartTimingWeight float64 `mapstructure:"start_timing_weight" validate:"gte=0,lte=1"`
	TiltWeight        float64 `mapstructure:"tilt_weight" validate:"gte=0,lte=1"`
	// StartTimingLaneEmphasis selects which lanes weigh start timing most: "inner" or "outer".
	StartTimingLaneEmphasis string `mapstructure:"start_timing_lane_emphasis" validate:"required,laneemphasis"`
}

// PredictionConfig configures the entry-position predictor
type PredictionConfig struct {
	MinSettledRaces      int     `mapstructure:"min_settled_races" validate:"required,gt=0"`
	PriorStayProbability float64 `mapstructure:"prior_stay_probability" validate:"required,gt=0,lte=1"`
	PriorStrength        float64 `mapstructure:"prior_strength" validate:"required,gt=0"`
}

// IntegrationConfig configures the dynamic integration weight
type IntegrationConfig struct {
	MinWeight              float64 `mapstructure:"min_weight" validate:"gte=0,lte=1"`
	MaxWeight              float64 `mapstructure:"max_weight" validate:"gte=0,lte=1"`
	ExhibitionVarianceRef  float64 `mapstructure:"exhibition_variance_ref" validate:"required,gt=0"`
	StartTimingVarianceRef float64 `mapstructure:"start_timing_variance_ref" validate:"required,gt=0"`
	InstabilityPenalty     float64 `mapstructure:"instability_penalty" validate:"gte=0,lte=1"`
}

// OutcomeConfig configures the hierarchical outcome model
type OutcomeConfig struct {
	Sharpness            float64 `mapstructure:"sharpness" validate:"required,gt=0"`
	PlaceDiscount        float64 `mapstructure:"place_discount" validate:"required,gt=0,lte=1"`
	LaneCouplingStrength float64 `mapstructure:"lane_coupling_strength" validate:"gte=0"`
	DriftTolerance       float64 `mapstructure:"drift_tolerance" validate:"required,gt=0"`
}

// BettingConfig represents Kelly sizing and exposure limits
type BettingConfig struct {
	Bankroll                float64 `mapstructure:"bankroll" validate:"required,gt=0"`
	MinExpectedValue        float64 `mapstructure:"min_expected_value" validate:"gte=0"`
	KellyMultiplier         float64 `mapstructure:"kelly_multiplier" validate:"required,gt=0,lte=1"`
	MaxBetFraction          float64 `mapstructure:"max_bet_fraction" validate:"required,gt=0,lte=1"`
	MaxRaceExposureFraction float64 `mapstructure:"max_race_exposure_fraction" validate:"required,gt=0,lte=1"`
	MaxBetsPerRace          int     `mapstructure:"max_bets_per_race" validate:"required,gt=0,lte=120"`
	StakeUnit               float64 `mapstructure:"stake_unit" validate:"gte=0"`
}

// PipelineConfig controls batch evaluation and scheduling
type PipelineConfig struct {
	Concurrency             int    `mapstructure:"concurrency" validate:"required,gt=0"`
	OddsDeadlineLeadSeconds int    `mapstructure:"odds_deadline_lead_seconds" validate:"gte=0"`
	Schedule                string `mapstructure:"schedule" validate:"required"`
	LookaheadMinutes        int    `mapstructure:"lookahead_minutes" validate:"required,gt=0"`
}

// OddsFeedConfig represents the market odds provider configuration
type OddsFeedConfig struct {
	URL               string  `mapstructure:"url" validate:"required,url"`
	StreamURL         string  `mapstructure:"stream_url"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CacheTTLSeconds   int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	MaxOddsAgeSeconds int     `mapstructure:"max_odds_age_seconds" validate:"required,gt=0"`
}

// KafkaConfig represents decision publishing configuration
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic    string   `mapstructure:"topic" validate:"required_if=Enabled true"`
	ClientID string   `mapstructure:"client_id"`
}

// MetricsConfig represents metrics and health server configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// OddsDeadlineLead returns how long before the race deadline odds must be in hand
func (c *Config) OddsDeadlineLead() time.Duration {
	return time.Duration(c.Pipeline.OddsDeadlineLeadSeconds) * time.Second
}
