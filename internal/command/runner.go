// Package command runs a single shell invocation with a merged environment
// and reports its exit status. Each command is an opaque blocking call; the
// orchestrator only observes the exit code.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Invocation describes one shell command to run.
type Invocation struct {
	Line   string    // passed to `sh -c`
	Dir    string    // working directory (empty = inherit)
	Env    []string  // full environment (see MergedEnv); nil = inherit
	Output io.Writer // receives combined stdout+stderr; nil discards
}

// Result carries the observed exit status of an invocation.
type Result struct {
	ExitCode  int
	Cancelled bool
}

// Run executes the invocation and blocks until it exits or ctx is cancelled.
// Cancellation terminates the process and is reported distinctly from the
// command's own failure.
func Run(ctx context.Context, inv Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", inv.Line)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	if inv.Output != nil {
		cmd.Stdout = inv.Output
		cmd.Stderr = inv.Output
	}
	// Do not wait forever on inherited pipes after the process is killed.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	if err == nil {
		return Result{ExitCode: 0}, nil
	}

	if ctx.Err() != nil {
		return Result{ExitCode: -1, Cancelled: true}, fmt.Errorf("command cancelled: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return Result{ExitCode: code}, fmt.Errorf("command exited with code %d", code)
	}
	// Start failures (missing shell, bad dir) have no exit code.
	return Result{ExitCode: -1}, fmt.Errorf("command failed to start: %w", err)
}

// MergedEnv builds a full environment from the current process environment
// with overrides applied on top (override wins on key collision). The result
// is freshly constructed and sorted so repeated calls for the same overrides
// are identical; callers must never mutate a shared global environment.
func MergedEnv(overrides map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}
