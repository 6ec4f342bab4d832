package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/distbuilder/internal/config"
	"git.home.luguber.info/inful/distbuilder/internal/gitinfo"
	"git.home.luguber.info/inful/distbuilder/internal/history"
	"git.home.luguber.info/inful/distbuilder/internal/logfields"
	"git.home.luguber.info/inful/distbuilder/internal/metrics"
	"git.home.luguber.info/inful/distbuilder/internal/natsreport"
	"git.home.luguber.info/inful/distbuilder/internal/pipeline"
	"git.home.luguber.info/inful/distbuilder/internal/report"
	"git.home.luguber.info/inful/distbuilder/internal/workspace"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	KeepRuns int `name:"keep-runs" help:"Prune run log directories beyond this count (0 keeps all)" default:"20"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run, err := RunPipeline(ctx, cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	if run.Err != nil {
		return run.Err
	}
	if b.KeepRuns > 0 {
		pruneRuns(cfg, b.KeepRuns)
	}
	return nil
}

// RunPipeline executes one full pipeline run: stage execution, run logs,
// report files, and history recording. The returned run is always terminal;
// err is reserved for setup failures before any stage could start.
func RunPipeline(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (*pipeline.PipelineRun, error) {
	stages := AssembleStages(cfg)
	run := pipeline.NewRun(stages)
	run.Revision = revision(cfg.ProjectRoot)

	ws := workspace.NewManager(cfg.Resolve(cfg.LogDir))
	if err := ws.Create(); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	slog.Info("Starting build pipeline",
		logfields.RunID(run.ID),
		"stages", len(stages),
		logfields.Path(ws.Path()))

	reporter, closeReporter := buildReporter(cfg, run.ID)
	defer closeReporter()

	p := pipeline.New(reporter, BackoffPolicy(cfg), ws, rec)
	p.RunPrepared(ctx, run)

	writeReports(ws, run)
	recordHistory(ctx, cfg, run)

	logOutcome(run)
	return run, nil
}

// buildReporter composes the log reporter with the optional NATS publisher,
// bound to the run so published events carry its ID. The close func is a
// no-op when events are disabled.
func buildReporter(cfg *config.Config, runID string) (pipeline.Reporter, func()) {
	base := pipeline.SlogReporter{}
	if cfg.Events.NATSURL == "" {
		return base, func() {}
	}
	nr, err := natsreport.New(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		slog.Warn("event publishing disabled", logfields.Error(err))
		return base, func() {}
	}
	nr.BindRun(runID)
	return pipeline.MultiReporter{base, nr}, func() {
		if err := nr.Close(); err != nil {
			slog.Warn("close event publisher", logfields.Error(err))
		}
	}
}

func revision(projectRoot string) string {
	rev, err := gitinfo.Resolve(projectRoot)
	if err != nil {
		slog.Debug("no VCS revision available", logfields.Error(err))
		return ""
	}
	return rev.String()
}

func writeReports(ws *workspace.Manager, run *pipeline.PipelineRun) {
	summary := report.FromRun(run)
	if err := ws.WriteFile("report.md", []byte(summary.Markdown())); err != nil {
		slog.Warn("write run report", logfields.Error(err))
		return
	}
	html, err := summary.HTML()
	if err != nil {
		slog.Warn("render run report", logfields.Error(err))
		return
	}
	if err := ws.WriteFile("report.html", html); err != nil {
		slog.Warn("write run report", logfields.Error(err))
	}
}

func recordHistory(ctx context.Context, cfg *config.Config, run *pipeline.PipelineRun) {
	if cfg.HistoryDB == "" {
		return
	}
	store, err := history.Open(cfg.Resolve(cfg.HistoryDB))
	if err != nil {
		slog.Warn("open history database", logfields.Error(err))
		return
	}
	defer store.Close()
	// History is recorded even for interrupted runs; use a fresh context so
	// cancellation does not lose the record.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := store.Record(ctx, run); err != nil {
		slog.Warn("record run history", logfields.Error(err))
	}
}

func pruneRuns(cfg *config.Config, keep int) {
	ws := workspace.NewManager(cfg.Resolve(cfg.LogDir))
	if err := ws.Prune(keep); err != nil {
		slog.Warn("prune run directories", logfields.Error(err))
	}
}

func logOutcome(run *pipeline.PipelineRun) {
	if run.Status == pipeline.StatusSucceeded {
		slog.Info("Build succeeded",
			logfields.RunID(run.ID),
			logfields.DurationMS(float64(run.Duration().Milliseconds())),
			logfields.Revision(run.Revision))
		return
	}
	slog.Error("Build failed",
		logfields.RunID(run.ID),
		logfields.Stage(run.FailedStage()),
		logfields.DurationMS(float64(run.Duration().Milliseconds())),
		logfields.Error(run.Err))
}

// ExitCode maps a command error to the process exit status. Stage failures
// surface the failing command's own exit code when it is usable.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *pipeline.StageError
	if errors.As(err, &se) && se.ExitCode > 0 {
		return se.ExitCode
	}
	return 1
}
