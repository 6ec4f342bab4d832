package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// StageResult is the immutable outcome of one stage execution.
type StageResult struct {
	Stage     string
	Attempts  int
	Succeeded bool
	Cancelled bool
	ExitCode  int
	Duration  time.Duration
}

// RunStatus enumerates the lifecycle of a pipeline run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool { return s == StatusSucceeded || s == StatusFailed }

// PipelineRun aggregates the results of one invocation. The caller owns it
// between NewRun and RunPrepared (to stamp the revision or read the ID);
// during execution it is mutated exclusively by the pipeline, and it must be
// treated as read-only once the status is terminal.
type PipelineRun struct {
	ID       string
	Status   RunStatus
	Stages   []Stage
	Results  []StageResult
	Started  time.Time
	Finished time.Time

	// Err is the first unrecoverable failure (a *StageError), nil on success.
	Err error

	// Revision is an optional VCS stamp recorded by the caller.
	Revision string
}

// NewRun creates a pending run for the given stages.
func NewRun(stages []Stage) *PipelineRun {
	return &PipelineRun{
		ID:     uuid.NewString(),
		Status: StatusPending,
		Stages: stages,
	}
}

func (r *PipelineRun) start() {
	if r.Status != StatusPending {
		return
	}
	r.Status = StatusRunning
	r.Started = time.Now()
}

// finish performs the single terminal transition; later calls are ignored so
// no result mutation can follow it.
func (r *PipelineRun) finish(status RunStatus, err error) {
	if r.Status.Terminal() {
		return
	}
	r.Status = status
	r.Err = err
	r.Finished = time.Now()
}

// Duration is the wall-clock span of the run.
func (r *PipelineRun) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// FailedStage returns the name of the stage that ended the run, if any.
func (r *PipelineRun) FailedStage() string {
	for _, res := range r.Results {
		if !res.Succeeded {
			return res.Stage
		}
	}
	return ""
}
