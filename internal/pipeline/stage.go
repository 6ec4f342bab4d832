// Package pipeline executes an ordered sequence of build stages, retrying
// transient failures per stage and halting on the first unrecoverable one.
package pipeline

import (
	"time"

	"git.home.luguber.info/inful/distbuilder/internal/artifact"
	"git.home.luguber.info/inful/distbuilder/internal/envprep"
)

// Stage is a discrete, named unit of work: an ordered command list with its
// own working directory, environment overrides, and retry policy. Stage
// values are never mutated during execution; retries reuse the identical
// definition.
type Stage struct {
	Name string

	// Commands run in order via the shell; the first non-zero exit aborts the
	// remaining commands of that attempt.
	Commands []string

	// Dir is the working directory for every command.
	Dir string

	// Env overrides merged over the inherited environment (override wins).
	Env map[string]string

	// MaxAttempts >= 1.
	MaxAttempts int

	// RetryDelay is the base pause between attempts.
	RetryDelay time.Duration

	// CleanupOnRetry paths are removed (best effort) between a failed attempt
	// and the next one, never before the first or after the last.
	CleanupOnRetry []string

	// Prerequisite, when set, is ensured before the first attempt only.
	Prerequisite *envprep.Prerequisite

	// Artifact, when set, is located and normalized after the stage succeeds.
	Artifact *artifact.Rule
}
