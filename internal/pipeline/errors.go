package pipeline

import "fmt"

// FailureKind enumerates structured stage failure categories.
type FailureKind string

const (
	// FailureTransient is a non-zero exit that may succeed on retry. The
	// executor does not inspect causes: retry is deliberately blind.
	FailureTransient FailureKind = "transient"

	// FailureFatal is retry exhaustion or a failure in a non-retryable step
	// (environment preparation, artifact normalization).
	FailureFatal FailureKind = "fatal"

	// FailureArtifact is a required artifact rule matching nothing.
	FailureArtifact FailureKind = "artifact_not_found"

	// FailureCancelled is an external interrupt, distinct from the stage's
	// own logic failing.
	FailureCancelled FailureKind = "cancelled"
)

// StageError is a structured error carrying category, the failing stage, the
// attempts consumed, and the last observed exit code.
type StageError struct {
	Kind     FailureKind
	Stage    string
	Attempts int
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s (attempts %d, exit %d): %v", e.Kind, e.Stage, e.Attempts, e.ExitCode, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
