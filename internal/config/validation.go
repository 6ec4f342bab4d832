package config

import (
	"fmt"
	"time"
)

// Validate enforces structural invariants before any stage runs.
// Stage names must be unique so results, logs, and history rows are
// unambiguously attributable.
func (c *Config) Validate() error {
	if len(c.Stages) == 0 {
		return fmt.Errorf("no stages declared")
	}
	if NormalizeRetryBackoff(c.Retry.Backoff) == "" {
		return fmt.Errorf("invalid retry.backoff: %q", c.Retry.Backoff)
	}
	if _, err := time.ParseDuration(c.Retry.MaxDelay); err != nil {
		return fmt.Errorf("invalid retry.max_delay: %q: %w", c.Retry.MaxDelay, err)
	}

	seen := make(map[string]struct{}, len(c.Stages))
	for i, st := range c.Stages {
		if st.Name == "" {
			return fmt.Errorf("stage %d: name is required", i)
		}
		if _, dup := seen[st.Name]; dup {
			return fmt.Errorf("stage %q: duplicate name", st.Name)
		}
		seen[st.Name] = struct{}{}

		if len(st.Commands) == 0 {
			return fmt.Errorf("stage %q: at least one command is required", st.Name)
		}
		if st.MaxAttempts < 1 {
			return fmt.Errorf("stage %q: max_attempts must be >= 1", st.Name)
		}
		if _, err := time.ParseDuration(st.RetryDelay); err != nil {
			return fmt.Errorf("stage %q: invalid retry_delay %q: %w", st.Name, st.RetryDelay, err)
		}
		if st.Prepare != nil {
			if st.Prepare.Marker == "" {
				return fmt.Errorf("stage %q: prepare.marker is required", st.Name)
			}
			if len(st.Prepare.Commands) == 0 {
				return fmt.Errorf("stage %q: prepare.commands is required", st.Name)
			}
		}
		if st.Artifact != nil {
			if st.Artifact.SearchRoot == "" {
				return fmt.Errorf("stage %q: artifact.search_root is required", st.Name)
			}
			if st.Artifact.MatchName == "" {
				return fmt.Errorf("stage %q: artifact.match_name is required", st.Name)
			}
		}
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("invalid watch.debounce: %q: %w", c.Watch.Debounce, err)
		}
	}
	if c.Watch.Interval != "" {
		if _, err := time.ParseDuration(c.Watch.Interval); err != nil {
			return fmt.Errorf("invalid watch.interval: %q: %w", c.Watch.Interval, err)
		}
	}
	return nil
}
