package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment variable override.
const EnvPrefix = "VALVE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides named VALVE_SECTION_FIELD (for example
// VALVE_VALIDATION_ROW_START). Environment variables take precedence over
// the file. An empty path or a missing file yields the defaults plus the
// overrides.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := loadOrDefault(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func loadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Validation overrides
	if val := getenv("VALIDATION_INPUTS"); val != "" {
		cfg.Validation.Inputs = splitList(val)
	}
	if val := getenv("VALIDATION_ROW_START"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Validation.RowStart = i
		}
	}
	if val := getenv("VALIDATION_PARALLELISM"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Validation.Parallelism = i
		}
	}
	if val := getenv("VALIDATION_DISTINCT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Validation.Distinct = b
		}
	}
	if val := getenv("VALIDATION_DISTINCT_DIR"); val != "" {
		cfg.Validation.DistinctDir = val
	}
	if val := getenv("VALIDATION_FAIL_ON"); val != "" {
		cfg.Validation.FailOn = strings.ToUpper(val)
	}

	// Output overrides
	if val := getenv("OUTPUT_PATH"); val != "" {
		cfg.Output.Path = val
	}
	if val := getenv("OUTPUT_FORMAT"); val != "" {
		cfg.Output.Format = val
	}
	if val := getenv("OUTPUT_MIN_LEVEL"); val != "" {
		cfg.Output.MinLevel = strings.ToUpper(val)
	}

	// Store overrides
	if val := getenv("STORE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Store.Enabled = b
		}
	}
	if val := getenv("STORE_DRIVER"); val != "" {
		cfg.Store.Driver = val
	}
	if val := getenv("STORE_PATH"); val != "" {
		cfg.Store.Path = val
	}
	if val := getenv("STORE_MAX_RUNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Store.MaxRuns = i
		}
	}
	if val := getenv("STORE_MAX_AGE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Store.MaxAge = d
		}
	}

	// Watch overrides
	if val := getenv("WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Watch.Debounce = d
		}
	}

	// Schedule overrides
	if val := getenv("SCHEDULE_CRON"); val != "" {
		cfg.Schedule.Cron = val
	}

	// Source overrides
	if val := getenv("SOURCE_GIT_REPOSITORY"); val != "" {
		cfg.Source.Git.Repository = val
	}
	if val := getenv("SOURCE_GIT_BRANCH"); val != "" {
		cfg.Source.Git.Branch = val
	}
	if val := getenv("SOURCE_GIT_TOKEN"); val != "" {
		cfg.Source.Git.Auth.Token = val
	}

	// Telemetry overrides
	if val := getenv("TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := getenv("TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := getenv("TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := getenv("TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := getenv("TELEMETRY_METRICS_TEXTFILE_PATH"); val != "" {
		cfg.Telemetry.Metrics.TextfilePath = val
	}
	if val := getenv("TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := getenv("TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := getenv("TELEMETRY_HEALTH_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Health.Enabled = b
		}
	}
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

// splitList splits a comma separated list, dropping blank items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
