// Package watch re-runs the build pipeline when watched source paths change.
// Bursts of filesystem events are coalesced into a single build and builds
// never overlap: triggers arriving mid-build queue at most one follow-up.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
)

// Trigger runs one build. It is invoked sequentially from the watch loop.
type Trigger func(ctx context.Context, reason string)

// Config controls what is watched and how bursts are coalesced.
type Config struct {
	// Paths are the roots to watch, recursively.
	Paths []string
	// Debounce is the quiet window after the last event before a build starts.
	Debounce time.Duration
	// Interval optionally schedules periodic builds independent of changes.
	// Zero disables scheduled builds.
	Interval time.Duration
}

// Watcher monitors source paths and invokes the trigger.
type Watcher struct {
	cfg      Config
	trigger  Trigger
	fw       *fsnotify.Watcher
	requests chan string
}

// New creates a watcher for the given paths.
func New(cfg Config, trigger Trigger) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no watch paths configured")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		cfg:      cfg,
		trigger:  trigger,
		fw:       fw,
		requests: make(chan string, 1),
	}
	for _, p := range cfg.Paths {
		if err := w.addRecursive(p); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addRecursive watches dir and every directory beneath it. Dot directories
// and node_modules are skipped; they churn constantly during builds.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", root, err)
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "__pycache__") {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) request(reason string) {
	select {
	case w.requests <- reason:
	default:
		// A build request is already pending; the burst coalesces into it.
	}
}

// Run blocks, dispatching builds until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	var sched gocron.Scheduler
	if w.cfg.Interval > 0 {
		var err error
		sched, err = gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(w.cfg.Interval),
			gocron.NewTask(func() { w.request("scheduled") }),
			gocron.WithName("interval-build"),
		)
		if err != nil {
			return fmt.Errorf("schedule interval build: %w", err)
		}
		sched.Start()
		defer func() { _ = sched.Shutdown() }()
	}

	go w.eventLoop(ctx)

	slog.Info("watching for changes",
		"paths", strings.Join(w.cfg.Paths, ","),
		"debounce", w.cfg.Debounce.String())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reason := <-w.requests:
			if !w.settle(ctx) {
				return ctx.Err()
			}
			w.trigger(ctx, reason)
		}
	}
}

// settle waits out the quiet window, restarting it whenever another request
// lands. Returns false if the context was cancelled while waiting.
func (w *Watcher) settle(ctx context.Context) bool {
	timer := time.NewTimer(w.cfg.Debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-w.requests:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.cfg.Debounce)
		case <-timer.C:
			return true
		}
	}
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories must join the watch set or changes inside
			// them go unseen.
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addRecursive(ev.Name)
				}
			}
			slog.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			w.request("change:" + ev.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Warn("watch error", "error", err)
		}
	}
}
