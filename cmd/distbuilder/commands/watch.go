package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/distbuilder/internal/config"
	"git.home.luguber.info/inful/distbuilder/internal/logfields"
	"git.home.luguber.info/inful/distbuilder/internal/metrics"
	"git.home.luguber.info/inful/distbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command: continuous rebuilds on change,
// with an optional metrics endpoint and interval schedule.
type WatchCmd struct {
	Immediate bool `help:"Run one build immediately before watching"`
}

func (wc *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Watch.Paths) == 0 {
		return fmt.Errorf("watch mode requires watch.paths in %s", root.Config)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec, stopMetrics := startMetrics(cfg)
	defer stopMetrics()

	trigger := func(ctx context.Context, reason string) {
		slog.Info("Triggering build", "reason", reason)
		if _, err := RunPipeline(ctx, cfg, rec); err != nil {
			slog.Error("Build setup failed", logfields.Error(err))
		}
	}

	if wc.Immediate {
		trigger(ctx, "startup")
	}

	paths := make([]string, 0, len(cfg.Watch.Paths))
	for _, p := range cfg.Watch.Paths {
		paths = append(paths, cfg.Resolve(p))
	}
	w, err := watch.New(watch.Config{
		Paths:    paths,
		Debounce: cfg.Watch.DebounceDuration(),
		Interval: cfg.Watch.IntervalDuration(),
	}, trigger)
	if err != nil {
		return err
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("Watch stopped")
		return nil
	}
	return err
}

// startMetrics serves the Prometheus endpoint when enabled. The returned
// recorder is a no-op otherwise.
func startMetrics(cfg *config.Config) (metrics.Recorder, func()) {
	if !cfg.Metrics.Enabled {
		return metrics.NoopRecorder{}, func() {}
	}

	rec := metrics.NewPrometheusRecorder(prom.NewRegistry())
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}

	go func() {
		slog.Info("Metrics endpoint listening", "addr", cfg.Metrics.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics endpoint failed", logfields.Error(err))
		}
	}()

	return rec, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics endpoint shutdown", logfields.Error(err))
		}
	}
}
