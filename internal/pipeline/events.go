package pipeline

import (
	"log/slog"

	"git.home.luguber.info/inful/distbuilder/internal/logfields"
)

// EventKind names the progress events emitted during a run.
type EventKind string

const (
	EventStageStarted      EventKind = "StageStarted"
	EventAttemptFailed     EventKind = "AttemptFailed"
	EventStageSucceeded    EventKind = "StageSucceeded"
	EventStageFailed       EventKind = "StageFailed"
	EventPipelineSucceeded EventKind = "PipelineSucceeded"
	EventPipelineFailed    EventKind = "PipelineFailed"
)

// Event is one progress notification. Fields are populated as relevant to
// the kind: Attempt/MaxAttempts for AttemptFailed, ExitCode for StageFailed,
// Stage for everything stage-scoped and for PipelineFailed.
type Event struct {
	Kind        EventKind
	Stage       string
	Attempt     int
	MaxAttempts int
	ExitCode    int
}

// Reporter consumes progress events. Implementations are purely
// observational: they must never influence control flow, and a no-op
// reporter yields an identical PipelineRun outcome.
type Reporter interface {
	Emit(Event)
}

// NoopReporter discards all events.
type NoopReporter struct{}

func (NoopReporter) Emit(Event) {}

// SlogReporter logs events through the default structured logger.
type SlogReporter struct{}

func (SlogReporter) Emit(ev Event) {
	switch ev.Kind {
	case EventStageStarted:
		slog.Info("Stage started", logfields.Stage(ev.Stage))
	case EventAttemptFailed:
		slog.Warn("Stage attempt failed",
			logfields.Stage(ev.Stage),
			logfields.Attempt(ev.Attempt),
			logfields.MaxAttempts(ev.MaxAttempts),
			logfields.ExitCode(ev.ExitCode))
	case EventStageSucceeded:
		slog.Info("Stage succeeded", logfields.Stage(ev.Stage), logfields.Attempt(ev.Attempt))
	case EventStageFailed:
		slog.Error("Stage failed",
			logfields.Stage(ev.Stage),
			logfields.Attempt(ev.Attempt),
			logfields.ExitCode(ev.ExitCode))
	case EventPipelineSucceeded:
		slog.Info("Pipeline succeeded")
	case EventPipelineFailed:
		slog.Error("Pipeline failed", logfields.Stage(ev.Stage))
	}
}

// MultiReporter fans events out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Emit(ev Event) {
	for _, r := range m {
		if r != nil {
			r.Emit(ev)
		}
	}
}
