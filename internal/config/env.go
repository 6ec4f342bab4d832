package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/distbuilder/internal/logfields"
)

// Environment variable overrides. These win over file values so operators can
// redirect state paths without editing the pipeline definition. Env files are
// loaded first, so a DISTBUILDER_* entry in .env behaves like one from the
// shell.
const (
	EnvLogDir        = "DISTBUILDER_LOG_DIR"
	EnvHistoryDB     = "DISTBUILDER_HISTORY_DB"
	EnvNATSURL       = "DISTBUILDER_NATS_URL"
	EnvMetricsListen = "DISTBUILDER_METRICS_LISTEN"
)

func applyEnvOverrides(c *Config) {
	if v := os.Getenv(EnvLogDir); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv(EnvHistoryDB); v != "" {
		c.HistoryDB = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Events.NATSURL = v
	}
	if v := os.Getenv(EnvMetricsListen); v != "" {
		c.Metrics.Listen = v
	}
}

// loadEnvFiles loads dotenv files listed in the config (missing files
// skipped). Existing process environment variables are never overwritten, so
// CI-provided signing credentials always win over .env. Files are loaded in
// reverse declared order: godotenv keeps the first value seen, so a later
// file in the list (.env.local) overrides an earlier one (.env).
func loadEnvFiles(c *Config) {
	for i := len(c.EnvFiles) - 1; i >= 0; i-- {
		path := c.Resolve(c.EnvFiles[i])
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(path), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(path))
	}
}
