package config

// Config is the root configuration for a distbuilder pipeline.
// Stage ordering in the file is the execution order; the runner never reorders.
type Config struct {
	// ProjectRoot anchors all relative paths in the file. Defaults to the
	// directory containing the config file.
	ProjectRoot string `yaml:"project_root,omitempty"`

	// LogDir receives one timestamped directory per run with stage logs and
	// the run report.
	LogDir string `yaml:"log_dir,omitempty"`

	// HistoryDB is the SQLite file recording past runs. Empty disables history.
	HistoryDB string `yaml:"history_db,omitempty"`

	// EnvFiles are dotenv files loaded before the pipeline starts. Existing
	// process environment always wins.
	EnvFiles []string `yaml:"env_files,omitempty"`

	Retry   RetryConfig   `yaml:"retry,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Events  EventsConfig  `yaml:"events,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty"`

	Stages []StageConfig `yaml:"stages"`
}

// StageConfig declares one unit of work in the pipeline.
type StageConfig struct {
	Name string `yaml:"name"`

	// Dir is the working directory for all commands, relative to ProjectRoot.
	Dir string `yaml:"dir,omitempty"`

	// Commands are shell invocations run in order; the first non-zero exit
	// aborts the attempt.
	Commands []string `yaml:"commands"`

	// Env overrides merged over the inherited environment (override wins).
	Env map[string]string `yaml:"env,omitempty"`

	// MaxAttempts >= 1. Defaults to 1 (no retry).
	MaxAttempts int `yaml:"max_attempts,omitempty"`

	// RetryDelay is the base delay between attempts ("5s", "500ms"...).
	RetryDelay string `yaml:"retry_delay,omitempty"`

	// CleanupOnRetry lists paths (relative to ProjectRoot) removed between a
	// failed attempt and the next one.
	CleanupOnRetry []string `yaml:"cleanup_on_retry,omitempty"`

	Prepare  *PrepareConfig  `yaml:"prepare,omitempty"`
	Artifact *ArtifactConfig `yaml:"artifact,omitempty"`
}

// PrepareConfig declares a prerequisite environment for a stage.
// Setup runs once, without retry, only when the marker is absent.
type PrepareConfig struct {
	// Marker is a path (relative to ProjectRoot) whose existence signals the
	// environment is already prepared.
	Marker string `yaml:"marker"`

	// Commands create the environment. Failures are fatal.
	Commands []string `yaml:"commands"`

	// Dir is the working directory for setup commands, relative to ProjectRoot.
	Dir string `yaml:"dir,omitempty"`
}

// ArtifactConfig declares a post-stage artifact search and normalization step.
type ArtifactConfig struct {
	// SearchRoot is the directory tree to search, relative to ProjectRoot.
	SearchRoot string `yaml:"search_root"`

	// MatchName is a glob matched against entry base names (filepath.Match).
	MatchName string `yaml:"match_name"`

	// Exclude lists path substrings; any hit disqualifies the entry and its
	// subtree. Exclusion takes precedence over matching.
	Exclude []string `yaml:"exclude,omitempty"`

	// Destination receives a full copy of the matched entry's containing
	// directory, relative to ProjectRoot. Pre-existing content is replaced.
	Destination string `yaml:"destination,omitempty"`

	// Required escalates "no match found" from a warning to a stage failure.
	Required bool `yaml:"required,omitempty"`
}

// RetryConfig tunes backoff behavior shared by all retrying stages.
type RetryConfig struct {
	// Backoff is one of fixed|linear|exponential. Default fixed.
	Backoff string `yaml:"backoff,omitempty"`

	// MaxDelay caps backoff growth ("30s"...).
	MaxDelay string `yaml:"max_delay,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint in watch mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// EventsConfig enables publishing stage events to NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig tunes the continuous rebuild loop.
type WatchConfig struct {
	// Paths watched for changes, relative to ProjectRoot.
	Paths []string `yaml:"paths,omitempty"`

	// Debounce coalesces bursts of filesystem events ("2s"...).
	Debounce string `yaml:"debounce,omitempty"`

	// Interval triggers scheduled rebuilds regardless of changes. Empty or
	// "0s" disables the schedule.
	Interval string `yaml:"interval,omitempty"`
}
