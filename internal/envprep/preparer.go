// Package envprep ensures a stage's prerequisite environment (an installed
// toolchain, a virtualenv) exists before the stage's first attempt.
package envprep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/distbuilder/internal/command"
	"git.home.luguber.info/inful/distbuilder/internal/logfields"
)

// Prerequisite declares an isolated environment a stage depends on.
type Prerequisite struct {
	// Marker is a filesystem path whose presence means setup already ran.
	Marker string

	// Commands create the environment, run once in order. No retry: retrying
	// over a partially created environment would mask setup misconfiguration.
	Commands []string

	// Dir is the working directory for setup commands.
	Dir string
}

// Preparer runs prerequisite setup with a fixed environment and log sink.
type Preparer struct {
	Env    []string  // environment for setup commands; nil inherits
	Output io.Writer // combined output sink; nil discards
}

// Ensure checks the prerequisite marker and runs setup exactly once if it is
// absent. A present marker makes Ensure a no-op, so calling it repeatedly
// never re-runs setup. Setup failures are always fatal.
func (p *Preparer) Ensure(ctx context.Context, pre *Prerequisite) error {
	if pre == nil {
		return nil
	}
	if _, err := os.Stat(pre.Marker); err == nil {
		slog.Debug("Prerequisite marker present, skipping setup", logfields.Path(pre.Marker))
		return nil
	}

	slog.Info("Preparing prerequisite environment", logfields.Path(pre.Marker))
	for _, line := range pre.Commands {
		res, err := command.Run(ctx, command.Invocation{
			Line:   line,
			Dir:    pre.Dir,
			Env:    p.Env,
			Output: p.Output,
		})
		if err != nil {
			if res.Cancelled {
				return fmt.Errorf("environment setup cancelled: %w", err)
			}
			return fmt.Errorf("environment setup command %q: %w", line, err)
		}
	}
	return nil
}
