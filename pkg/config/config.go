package config

import "time"

// Config is the root configuration for valve. The zero value plus
// ApplyDefaults is a usable configuration.
type Config struct {
	// Validation controls how input tables are loaded and validated.
	Validation ValidationConfig `yaml:"validation"`

	// Output controls where and how violations are written.
	Output OutputConfig `yaml:"output"`

	// Store controls the run history database.
	Store StoreConfig `yaml:"store"`

	// Watch controls re-validation when input files change.
	Watch WatchConfig `yaml:"watch"`

	// Schedule controls periodic validation.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Source fetches the input tables from a remote before each run.
	Source SourceConfig `yaml:"source"`

	// Secrets resolves ${secret:name} references in credentials.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ValidationConfig contains the settings of a validation run.
type ValidationConfig struct {
	// Inputs are the files and directories to load. Directories are
	// expanded to the .csv and .tsv files they contain.
	Inputs []string `yaml:"inputs"`

	// RowStart is the row number of the first data row.
	// Default: 2
	RowStart int `yaml:"row_start" validate:"gte=1"`

	// Parallelism bounds concurrent file loads and table validations.
	// Default: 1
	Parallelism int `yaml:"parallelism" validate:"gte=1,lte=64"`

	// Distinct enables distinct-message mode.
	// Default: false
	Distinct bool `yaml:"distinct"`

	// DistinctDir is where <table>_distinct files are written.
	// Required when Distinct is set.
	DistinctDir string `yaml:"distinct_dir" validate:"required_if=Distinct true"`

	// FailOn is the lowest level that makes a run fail.
	// Options: "ERROR", "WARN", "INFO"
	// Default: "ERROR"
	FailOn string `yaml:"fail_on" validate:"oneof=ERROR WARN INFO"`
}

// OutputConfig controls violation output.
type OutputConfig struct {
	// Path is the file violations are written to. The format follows the
	// extension: .json, .tsv, anything else is comma separated. Empty
	// means standard output.
	Path string `yaml:"path"`

	// Format is the standard output format.
	// Options: "text", "json", "csv", "tsv"
	// Default: "text"
	Format string `yaml:"format" validate:"oneof=text json csv tsv"`

	// MinLevel hides violations below this level.
	// Options: "ERROR", "WARN", "INFO"
	// Default: "INFO"
	MinLevel string `yaml:"min_level" validate:"oneof=ERROR WARN INFO"`
}

// StoreConfig controls the SQLite run history.
type StoreConfig struct {
	// Enabled turns run recording on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver" validate:"oneof=sqlite sqlite3"`

	// Path is the database file.
	// Default: "valve.db"
	Path string `yaml:"path" validate:"required_if=Enabled true"`

	// BusyTimeout is how long a write waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout" validate:"gte=0"`

	// MaxRuns is how many runs are kept. Zero keeps all.
	// Default: 0
	MaxRuns int `yaml:"max_runs" validate:"gte=0"`

	// MaxAge removes runs older than this when a run is recorded. Zero
	// keeps runs regardless of age.
	// Default: 0
	MaxAge time.Duration `yaml:"max_age" validate:"gte=0"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before a run.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`

	// Extensions lists the file extensions that trigger a run.
	// Default: [".csv", ".tsv"]
	Extensions []string `yaml:"extensions"`
}

// ScheduleConfig controls scheduled validation.
type ScheduleConfig struct {
	// Cron is a standard five field cron expression, or a descriptor such
	// as "@hourly".
	// Default: "@hourly"
	Cron string `yaml:"cron"`

	// RunOnStart runs once immediately before waiting for the schedule.
	// Default: true
	RunOnStart *bool `yaml:"run_on_start"`
}

// SourceConfig selects where input tables come from. Without a Git
// repository the inputs are read from the local filesystem.
type SourceConfig struct {
	Git GitSourceConfig `yaml:"git"`
}

// GitSourceConfig checks out input tables from a Git repository. Relative
// validation inputs are resolved inside Path of the checkout.
type GitSourceConfig struct {
	// Repository URL (HTTPS, SSH or a local path). Empty disables the
	// Git source.
	// Example: "https://github.com/company/ontology.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository that holds the tables.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: "<temp dir>/valve-source"
	LocalPath string `yaml:"local_path"`

	// Depth limits the clone history. Zero clones everything.
	Depth int `yaml:"depth" validate:"gte=0"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "none", "token" (HTTPS) or "ssh".
	// Default: "none"
	Type string `yaml:"type" validate:"omitempty,oneof=none token ssh"`

	// Token for HTTPS authentication. Required when Type is "token".
	Token string `yaml:"token" validate:"required_if=Type token"`

	// SSHKeyPath is the private key file. Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path" validate:"required_if=Type ssh"`

	// SSHKeyPassphrase decrypts an encrypted SSH key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// SecretsConfig configures where ${secret:name} references are looked up.
type SecretsConfig struct {
	// EnvPrefix prefixes the environment variable of each secret.
	// Default: "VALVE_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret. Empty disables file lookup.
	Dir string `yaml:"dir"`
}

// Enabled reports whether tables are fetched from Git.
func (c GitSourceConfig) Enabled() bool {
	return c.Repository != ""
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format" validate:"oneof=json text console"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactValues replaces cell values in log attributes.
	// Default: false
	RedactValues bool `yaml:"redact_values"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress serves /metrics in watch and schedule mode. Empty
	// disables the endpoint.
	ListenAddress string `yaml:"listen_address" validate:"omitempty,hostname_port"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path" validate:"startswith=/"`

	// TextfilePath is a file the metrics are written to after each run,
	// in the node exporter textfile format.
	TextfilePath string `yaml:"textfile_path"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Each run is
// a trace with spans for loading, configuration and every table.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler" validate:"oneof=always never ratio"`

	// SampleRatio is the fraction of runs to sample when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter" validate:"oneof=otlp"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`

	// ServiceName is the service name in traces.
	// Default: "valve"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// HealthConfig contains health endpoint configuration. The endpoints are
// served next to metrics in watch and schedule mode.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path" validate:"startswith=/"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path" validate:"startswith=/"`

	// MaxRunAge fails readiness when the last successful run is older.
	// Zero disables the check.
	// Default: 0
	MaxRunAge time.Duration `yaml:"max_run_age" validate:"gte=0"`
}
