package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/distbuilder/internal/command"
	"git.home.luguber.info/inful/distbuilder/internal/logfields"
	"git.home.luguber.info/inful/distbuilder/internal/retry"
)

// LogSink provides a per-attempt writer for stage command output. A nil sink
// discards output.
type LogSink interface {
	StageWriter(stage string, attempt int) (io.WriteCloser, error)
}

// attemptState is the explicit retry state machine:
// attempting -> (succeeded | retrying -> attempting | exhausted | cancelled).
type attemptState int

const (
	stateAttempting attemptState = iota
	stateRetrying
	stateSucceeded
	stateExhausted
	stateCancelled
)

// nextState decides the transition after one attempt. Kept free of side
// effects so attempt counting is testable in isolation.
func nextState(failed, cancelled bool, attempt, maxAttempts int) attemptState {
	switch {
	case cancelled:
		return stateCancelled
	case !failed:
		return stateSucceeded
	case attempt < maxAttempts:
		return stateRetrying
	default:
		return stateExhausted
	}
}

// Executor runs a single stage to completion, applying the stage's retry
// policy. It emits reporter events at every attempt boundary.
type Executor struct {
	Reporter Reporter
	Policy   retry.Policy  // supplies backoff mode and cap; stage delay is the base
	Sleeper  retry.Sleeper // nil uses retry.DefaultSleeper
	Logs     LogSink
}

// Execute runs stage.Commands up to stage.MaxAttempts times. The command
// list and merged environment are computed once and reused unchanged across
// attempts. Cleanup paths are removed between a failed attempt and the next,
// never before the first attempt and never after the final one.
func (e *Executor) Execute(ctx context.Context, stage Stage) StageResult {
	env := command.MergedEnv(stage.Env)
	policy := retry.NewPolicy(e.Policy.Mode, stage.RetryDelay, e.Policy.Max)
	sleeper := e.Sleeper
	if sleeper == nil {
		sleeper = retry.DefaultSleeper
	}

	e.emit(Event{Kind: EventStageStarted, Stage: stage.Name})
	start := time.Now()

	attempt := 0
	state := stateAttempting
	var exitCode int
	var cancelled bool

	for {
		switch state {
		case stateAttempting:
			attempt++
			exitCode, cancelled = e.runAttempt(ctx, stage, env, attempt)
			failed := exitCode != 0 || cancelled
			state = nextState(failed, cancelled, attempt, stage.MaxAttempts)
			if state == stateRetrying || state == stateExhausted {
				e.emit(Event{Kind: EventAttemptFailed, Stage: stage.Name, Attempt: attempt, MaxAttempts: stage.MaxAttempts, ExitCode: exitCode})
			}

		case stateRetrying:
			e.cleanup(stage)
			sleeper.Sleep(ctx, policy.Delay(attempt))
			if ctx.Err() != nil {
				// Interrupted mid-pause: no further attempt starts.
				state = stateCancelled
			} else {
				state = stateAttempting
			}

		case stateSucceeded:
			e.emit(Event{Kind: EventStageSucceeded, Stage: stage.Name, Attempt: attempt})
			return StageResult{
				Stage:     stage.Name,
				Attempts:  attempt,
				Succeeded: true,
				Duration:  time.Since(start),
			}

		case stateExhausted, stateCancelled:
			e.emit(Event{Kind: EventStageFailed, Stage: stage.Name, Attempt: attempt, ExitCode: exitCode})
			return StageResult{
				Stage:     stage.Name,
				Attempts:  attempt,
				Succeeded: false,
				Cancelled: state == stateCancelled,
				ExitCode:  exitCode,
				Duration:  time.Since(start),
			}
		}
	}
}

// runAttempt runs the stage's commands in order, aborting at the first
// failure. Returns the last exit code and whether the attempt was cancelled.
func (e *Executor) runAttempt(ctx context.Context, stage Stage, env []string, attempt int) (int, bool) {
	if ctx.Err() != nil {
		return -1, true
	}

	out := e.attemptWriter(stage.Name, attempt)
	if out != nil {
		defer func() { _ = out.Close() }()
	}

	for _, line := range stage.Commands {
		slog.Debug("Running command", logfields.Stage(stage.Name), logfields.Attempt(attempt), logfields.Command(line))
		inv := command.Invocation{Line: line, Dir: stage.Dir, Env: env}
		if out != nil {
			inv.Output = out
		}
		res, err := command.Run(ctx, inv)
		if err != nil {
			return res.ExitCode, res.Cancelled
		}
	}
	return 0, false
}

// cleanup removes the stage's cleanup paths best effort; failures are logged
// and never escalated.
func (e *Executor) cleanup(stage Stage) {
	for _, p := range stage.CleanupOnRetry {
		if err := os.RemoveAll(p); err != nil {
			slog.Warn("Cleanup before retry failed", logfields.Stage(stage.Name), logfields.Path(p), logfields.Error(err))
		}
	}
}

func (e *Executor) attemptWriter(stage string, attempt int) io.WriteCloser {
	if e.Logs == nil {
		return nil
	}
	w, err := e.Logs.StageWriter(stage, attempt)
	if err != nil {
		slog.Warn("Failed to open stage log", logfields.Stage(stage), logfields.Error(err))
		return nil
	}
	return w
}

func (e *Executor) emit(ev Event) {
	if e.Reporter != nil {
		e.Reporter.Emit(ev)
	}
}
