package config

import "time"

// Default values for configuration fields.
const (
	// Validation defaults
	DefaultRowStart    = 2
	DefaultParallelism = 1
	DefaultFailOn      = "ERROR"

	// Output defaults
	DefaultOutputFormat   = "text"
	DefaultOutputMinLevel = "INFO"

	// Store defaults
	DefaultStoreDriver      = "sqlite"
	DefaultStorePath        = "valve.db"
	DefaultStoreBusyTimeout = 5 * time.Second

	// Watch defaults
	DefaultWatchDebounce = 500 * time.Millisecond

	// Schedule defaults
	DefaultScheduleCron       = "@hourly"
	DefaultScheduleRunOnStart = true

	// Source defaults
	DefaultGitBranch  = "main"
	DefaultGitTimeout = 30 * time.Second

	// Secrets defaults
	DefaultSecretEnvPrefix = "VALVE_SECRET_"

	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "text"
	DefaultMetricsPath   = "/metrics"

	// Tracing defaults
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "otlp"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "valve"
	DefaultOTLPTimeout        = 10 * time.Second

	// Health defaults
	DefaultLivenessPath  = "/health"
	DefaultReadinessPath = "/ready"
)

// DefaultWatchExtensions are the file extensions watch mode reacts to.
var DefaultWatchExtensions = []string{".csv", ".tsv"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) {
	// Validation defaults
	if cfg.Validation.RowStart == 0 {
		cfg.Validation.RowStart = DefaultRowStart
	}
	if cfg.Validation.Parallelism == 0 {
		cfg.Validation.Parallelism = DefaultParallelism
	}
	if cfg.Validation.FailOn == "" {
		cfg.Validation.FailOn = DefaultFailOn
	}

	// Output defaults
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}
	if cfg.Output.MinLevel == "" {
		cfg.Output.MinLevel = DefaultOutputMinLevel
	}

	// Store defaults
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.BusyTimeout == 0 {
		cfg.Store.BusyTimeout = DefaultStoreBusyTimeout
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = append([]string(nil), DefaultWatchExtensions...)
	}

	// Schedule defaults
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}
	if cfg.Schedule.RunOnStart == nil {
		v := DefaultScheduleRunOnStart
		cfg.Schedule.RunOnStart = &v
	}

	// Source defaults
	if cfg.Source.Git.Branch == "" {
		cfg.Source.Git.Branch = DefaultGitBranch
	}
	if cfg.Source.Git.Timeout == 0 {
		cfg.Source.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Source.Git.Auth.Type == "" {
		cfg.Source.Git.Auth.Type = "none"
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretEnvPrefix
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	applyTracingDefaults(&cfg.Telemetry.Tracing)
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
}

func applyTracingDefaults(tc *TracingConfig) {
	if tc.Sampler == "" {
		tc.Sampler = DefaultTracingSampler
	}
	if tc.SampleRatio == 0 && tc.Sampler != "ratio" {
		tc.SampleRatio = DefaultTracingSampleRatio
	}
	if tc.Exporter == "" {
		tc.Exporter = DefaultTracingExporter
	}
	if tc.Endpoint == "" {
		tc.Endpoint = DefaultTracingEndpoint
	}
	if tc.ServiceName == "" {
		tc.ServiceName = DefaultTracingServiceName
	}
	if tc.OTLP.Timeout == 0 {
		tc.OTLP.Timeout = DefaultOTLPTimeout
	}
}
