package config

import "time"

const (
	defaultLogDir      = ".distbuilder/runs"
	defaultHistoryDB   = ".distbuilder/history.db"
	defaultRetryDelay  = "5s"
	defaultMaxDelay    = "30s"
	defaultMetricsAddr = ":9180"
	defaultSubject     = "distbuilder.events"
	defaultDebounce    = "2s"
)

// applyDefaults fills zero values after unmarshal. Stage ordering is untouched.
func applyDefaults(c *Config) {
	if c.LogDir == "" {
		c.LogDir = defaultLogDir
	}
	if c.HistoryDB == "" {
		c.HistoryDB = defaultHistoryDB
	}
	if len(c.EnvFiles) == 0 {
		c.EnvFiles = []string{".env", ".env.local"}
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = string(RetryBackoffFixed)
	}
	if c.Retry.MaxDelay == "" {
		c.Retry.MaxDelay = defaultMaxDelay
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = defaultMetricsAddr
	}
	if c.Events.Subject == "" {
		c.Events.Subject = defaultSubject
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = defaultDebounce
	}
	for i := range c.Stages {
		st := &c.Stages[i]
		if st.MaxAttempts == 0 {
			st.MaxAttempts = 1
		}
		if st.RetryDelay == "" {
			st.RetryDelay = defaultRetryDelay
		}
	}
}

// Duration accessors. Load validates formats, so parse failures fall back to
// the documented defaults rather than erroring twice.

func (s *StageConfig) RetryDelayDuration() time.Duration {
	return parseDurationOr(s.RetryDelay, 5*time.Second)
}

func (r *RetryConfig) MaxDelayDuration() time.Duration {
	return parseDurationOr(r.MaxDelay, 30*time.Second)
}

func (w *WatchConfig) DebounceDuration() time.Duration {
	return parseDurationOr(w.Debounce, 2*time.Second)
}

func (w *WatchConfig) IntervalDuration() time.Duration {
	return parseDurationOr(w.Interval, 0)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
