package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/distbuilder/internal/artifact"
	"git.home.luguber.info/inful/distbuilder/internal/command"
	"git.home.luguber.info/inful/distbuilder/internal/envprep"
	"git.home.luguber.info/inful/distbuilder/internal/logfields"
	"git.home.luguber.info/inful/distbuilder/internal/metrics"
	"git.home.luguber.info/inful/distbuilder/internal/retry"
)

// Pipeline runs stages strictly in declared order, one at a time. It is the
// sole authority on halting: components below it surface errors but never
// terminate the run themselves.
type Pipeline struct {
	Executor *Executor
	Reporter Reporter
	Metrics  metrics.Recorder
}

// New assembles a pipeline with the given reporter, backoff policy, log sink,
// and metrics recorder. Any of them may be nil.
func New(rep Reporter, policy retry.Policy, logs LogSink, rec metrics.Recorder) *Pipeline {
	if rep == nil {
		rep = NoopReporter{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Pipeline{
		Executor: &Executor{Reporter: rep, Policy: policy, Logs: logs},
		Reporter: rep,
		Metrics:  rec,
	}
}

// Run executes the stages and returns the aggregated run. The run reaches a
// terminal status exactly once; no stage starts after that transition.
func (p *Pipeline) Run(ctx context.Context, stages []Stage) *PipelineRun {
	return p.RunPrepared(ctx, NewRun(stages))
}

// RunPrepared executes a run created with NewRun. Callers that need the run
// ID before any stage starts (event correlation, revision stamping) prepare
// the run themselves and hand it over here.
func (p *Pipeline) RunPrepared(ctx context.Context, run *PipelineRun) *PipelineRun {
	run.start()

	for _, st := range run.Stages {
		if err := p.prepare(ctx, st); err != nil {
			cancelled := ctx.Err() != nil
			res := StageResult{Stage: st.Name, Succeeded: false, Cancelled: cancelled, ExitCode: -1}
			run.Results = append(run.Results, res)
			p.emit(Event{Kind: EventStageFailed, Stage: st.Name, ExitCode: -1})
			kind := FailureFatal
			if cancelled {
				kind = FailureCancelled
			}
			p.record(st.Name, res)
			p.fail(run, &StageError{Kind: kind, Stage: st.Name, ExitCode: -1, Err: err})
			return run
		}

		res := p.Executor.Execute(ctx, st)

		var artifactKind FailureKind
		var artifactErr error
		if res.Succeeded && st.Artifact != nil {
			artifactKind, artifactErr = p.applyArtifact(st)
			if artifactErr != nil {
				res.Succeeded = false
				res.ExitCode = -1
				p.emit(Event{Kind: EventStageFailed, Stage: st.Name, Attempt: res.Attempts, ExitCode: -1})
			}
		}

		run.Results = append(run.Results, res)
		p.record(st.Name, res)

		if !res.Succeeded {
			se := &StageError{Stage: st.Name, Attempts: res.Attempts, ExitCode: res.ExitCode}
			switch {
			case artifactErr != nil:
				se.Kind = artifactKind
				se.Err = artifactErr
			case res.Cancelled:
				se.Kind = FailureCancelled
				se.Err = ctx.Err()
			default:
				se.Kind = FailureFatal
				se.Err = fmt.Errorf("all %d attempts failed", res.Attempts)
			}
			p.fail(run, se)
			return run
		}
	}

	run.finish(StatusSucceeded, nil)
	p.emit(Event{Kind: EventPipelineSucceeded})
	p.Metrics.IncRunOutcome(string(StatusSucceeded))
	p.Metrics.ObserveRunDuration(run.Duration())
	return run
}

// prepare ensures the stage's prerequisite environment before its first
// attempt. Preparation is non-retryable.
func (p *Pipeline) prepare(ctx context.Context, st Stage) error {
	if st.Prerequisite == nil {
		return nil
	}
	prep := &envprep.Preparer{Env: command.MergedEnv(st.Env)}
	if w := p.prepareWriter(st.Name); w != nil {
		defer func() { _ = w.Close() }()
		prep.Output = w
	}
	return prep.Ensure(ctx, st.Prerequisite)
}

// prepareWriter reuses the stage log sink with attempt 0 for setup output.
func (p *Pipeline) prepareWriter(stage string) io.WriteCloser {
	if p.Executor == nil || p.Executor.Logs == nil {
		return nil
	}
	w, err := p.Executor.Logs.StageWriter(stage, 0)
	if err != nil {
		return nil
	}
	return w
}

// applyArtifact runs the stage's artifact rule. A no-match on an optional
// rule is logged and tolerated; everything else fails the stage.
func (p *Pipeline) applyArtifact(st Stage) (FailureKind, error) {
	match, err := artifact.Apply(*st.Artifact)
	if err == nil {
		slog.Info("Artifact located", logfields.Stage(st.Name), logfields.Path(match))
		return "", nil
	}
	if errors.Is(err, artifact.ErrNotFound) {
		if !st.Artifact.Required {
			slog.Warn("Artifact not found, continuing", logfields.Stage(st.Name), logfields.Error(err))
			return "", nil
		}
		return FailureArtifact, err
	}
	return FailureFatal, err
}

func (p *Pipeline) fail(run *PipelineRun, se *StageError) {
	run.finish(StatusFailed, se)
	p.emit(Event{Kind: EventPipelineFailed, Stage: se.Stage})
	p.Metrics.IncRunOutcome(string(StatusFailed))
	p.Metrics.ObserveRunDuration(run.Duration())
}

// record forwards one stage result to the metrics recorder.
func (p *Pipeline) record(stage string, res StageResult) {
	p.Metrics.ObserveStageDuration(stage, res.Duration)
	for i := 1; i < res.Attempts; i++ {
		p.Metrics.IncStageRetry(stage)
	}
	switch {
	case res.Succeeded:
		p.Metrics.IncStageResult(stage, metrics.ResultSuccess)
	case res.Cancelled:
		p.Metrics.IncStageResult(stage, metrics.ResultCancelled)
	default:
		p.Metrics.IncStageResult(stage, metrics.ResultFailed)
	}
}

func (p *Pipeline) emit(ev Event) {
	if p.Reporter != nil {
		p.Reporter.Emit(ev)
	}
}
