// Package config provides configuration management for the boatrace-edge application.
package config

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-playground/validator/v10"
)

const (
	validConfigPath              = "testdata/valid_config.yaml"
	expansionConfigPath          = "testdata/expansion_config.yaml"
	expansionConfigMissingPath   = "testdata/expansion_config_missing.yaml"
	nonexistentConfigPath        = "testdata/nonexistent_config.yaml"
	expectedNoErrorLoadingConfig = "expected no error loading config, got %v"
	expectedNoErrorMsg           = "expected no error, got %v"
	appName                      = "boatrace-edge"
	developmentEnv               = "development"
	localhostHost                = "localhost"
	postgresPort                 = 5432
	postgresPrefix               = "postgres://"
	testAppName                  = "test-app"
	testDBPassword               = "TEST_DB_PASSWORD"
	testMissingVar               = "TEST_MISSING_VAR"
	expandedSecretValue          = "expanded_secret_value"
)

func loadValid(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}
	return cfg
}

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg := loadValid(t)

	if cfg.App.Name != appName {
		t.Errorf("expected app name '%s', got '%s'", appName, cfg.App.Name)
	}
	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}
	if cfg.Database.Host != localhostHost {
		t.Errorf("expected database host '%s', got '%s'", localhostHost, cfg.Database.Host)
	}
	if cfg.Database.Port != postgresPort {
		t.Errorf("expected database port %d, got %d", postgresPort, cfg.Database.Port)
	}
	if cfg.Prediction.MinSettledRaces != 10 {
		t.Errorf("expected min_settled_races 10, got %d", cfg.Prediction.MinSettledRaces)
	}
	if cfg.Betting.KellyMultiplier != 0.25 {
		t.Errorf("expected kelly_multiplier 0.25, got %v", cfg.Betting.KellyMultiplier)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("expected one kafka broker, got %v", cfg.Kafka.Brokers)
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadWithDefaultsMissingFile tests that model defaults apply without a file
func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.Scoring.StartTimingLaneEmphasis != "inner" {
		t.Errorf("expected default lane emphasis 'inner', got '%s'", cfg.Scoring.StartTimingLaneEmphasis)
	}
	if cfg.Betting.MinExpectedValue != 0.05 {
		t.Errorf("expected default min_expected_value 0.05, got %v", cfg.Betting.MinExpectedValue)
	}
	if cfg.Betting.MaxBetFraction != 0.20 {
		t.Errorf("expected default max_bet_fraction 0.20, got %v", cfg.Betting.MaxBetFraction)
	}
	if cfg.Outcome.DriftTolerance != 1e-6 {
		t.Errorf("expected default drift_tolerance 1e-6, got %v", cfg.Outcome.DriftTolerance)
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("BOATRACE_EDGE_APP_NAME", testAppName)
	t.Setenv("BOATRACE_EDGE_SCORING_START_TIMING_LANE_EMPHASIS", "outer")

	cfg := loadValid(t)

	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}
	if cfg.Scoring.StartTimingLaneEmphasis != "outer" {
		t.Errorf("expected lane emphasis 'outer' from environment, got '%s'", cfg.Scoring.StartTimingLaneEmphasis)
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg := loadValid(t)
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

// TestRegisterRulesReportsErrors tests that a bad rule is not silently dropped
func TestRegisterRulesReportsErrors(t *testing.T) {
	if err := registerRules(validator.New(), customRules); err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	bad := []customRule{{"environment", validateEnvironment}, {"", validateLogLevel}}
	err := registerRules(validator.New(), bad)
	if err == nil {
		t.Fatal("expected an error for an empty tag")
	}
	if !strings.Contains(err.Error(), `register ""`) {
		t.Errorf("expected the failing tag in the error, got %v", err)
	}

	if err := registerRules(validator.New(), []customRule{{"loglevel", nil}}); err == nil {
		t.Fatal("expected an error for a nil rule")
	}
}

// TestValidateFailures tests field and cross-field validation failures
func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.App.Environment = "invalid" },
			wantMsg: "development, staging, production",
		},
		{
			name:    "invalid lane emphasis",
			mutate:  func(c *Config) { c.Scoring.StartTimingLaneEmphasis = "middle" },
			wantMsg: "inner, outer",
		},
		{
			name: "weights do not sum to one",
			mutate: func(c *Config) {
				c.Scoring.TiltWeight = 0.5
			},
			wantMsg: "scoring weights must sum to 1",
		},
		{
			name: "min weight above max weight",
			mutate: func(c *Config) {
				c.Integration.MinWeight = 0.9
				c.Integration.MaxWeight = 0.5
			},
			wantMsg: "min_weight cannot exceed max_weight",
		},
		{
			name:    "bet fraction above race exposure",
			mutate:  func(c *Config) { c.Betting.MaxBetFraction = 0.5 },
			wantMsg: "max_bet_fraction cannot exceed",
		},
		{
			name:    "bad schedule",
			mutate:  func(c *Config) { c.Pipeline.Schedule = "every five minutes" },
			wantMsg: "invalid pipeline schedule",
		},
		{
			name: "kafka enabled without topic",
			mutate: func(c *Config) {
				c.Kafka.Enabled = true
				c.Kafka.Topic = ""
			},
			wantMsg: "Topic",
		},
		{
			name: "production without ssl",
			mutate: func(c *Config) {
				c.App.Environment = "production"
			},
			wantMsg: "SSL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

// TestValidateEnvironmentTestCredential tests production credential checks
func TestValidateEnvironmentTestCredential(t *testing.T) {
	cfg := loadValid(t)
	cfg.App.Environment = "production"
	cfg.Database.SSLMode = "require"
	cfg.OddsFeed.APIKey = "YOUR_API_KEY"

	if err := ValidateEnvironment(cfg); err == nil {
		t.Fatal("expected error for test credential in production")
	}

	cfg.OddsFeed.APIKey = "a8f3e1c2"
	if err := ValidateEnvironment(cfg); err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
}

// TestGetDatabaseDSN tests DSN generation
func TestGetDatabaseDSN(t *testing.T) {
	cfg := loadValid(t)

	dsn := cfg.GetDatabaseDSN()
	if !strings.HasPrefix(dsn, postgresPrefix) {
		t.Errorf("expected DSN to start with '%s', got '%s'", postgresPrefix, dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("expected DSN to carry sslmode, got '%s'", dsn)
	}
}

// TestEnvironmentChecks tests the environment helper functions
func TestEnvironmentChecks(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: developmentEnv}}
	if !cfg.IsDevelopment() || cfg.IsProduction() || cfg.IsStaging() {
		t.Error("expected only IsDevelopment() to return true")
	}

	cfg.App.Environment = "production"
	if !cfg.IsProduction() || cfg.IsDevelopment() {
		t.Error("expected only IsProduction() to return true")
	}

	cfg.App.Environment = "staging"
	if !cfg.IsStaging() {
		t.Error("expected IsStaging() to return true")
	}
}

// TestOddsDeadlineLead tests the deadline lead conversion
func TestOddsDeadlineLead(t *testing.T) {
	cfg := loadValid(t)
	if got := cfg.OddsDeadlineLead().Seconds(); got != 60 {
		t.Errorf("expected 60s lead, got %vs", got)
	}
}

// TestLoadConfigEnvironmentVariableExpansion tests environment variable expansion in config file
func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	t.Setenv(testDBPassword, expandedSecretValue)

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config with expansion, got %v", err)
	}

	if cfg.Database.Password != expandedSecretValue {
		t.Errorf("expected password '%s' from environment expansion, got '%s'", expandedSecretValue, cfg.Database.Password)
	}
}

// TestLoadConfigMissingEnvironmentVariable tests that unset variables expand to empty
func TestLoadConfigMissingEnvironmentVariable(t *testing.T) {
	t.Setenv(testMissingVar, "")

	cfg, err := Load(expansionConfigMissingPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if cfg.Database.Password != "" {
		t.Errorf("expected empty password, got %q", cfg.Database.Password)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for empty password")
	}
}

// TestParseSecretData tests decoding of secret payloads
func TestParseSecretData(t *testing.T) {
	secrets, err := parseSecretData(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"database_password":"s3cret","odds_feed_api_key":"k-123"}`),
	})
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	cfg := loadValid(t)
	overlaySecretsOnConfig(cfg, secrets)
	if cfg.Database.Password != "s3cret" {
		t.Errorf("expected overlaid password, got '%s'", cfg.Database.Password)
	}
	if cfg.OddsFeed.APIKey != "k-123" {
		t.Errorf("expected overlaid api key, got '%s'", cfg.OddsFeed.APIKey)
	}

	if _, err := parseSecretData(&secretsmanager.GetSecretValueOutput{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
