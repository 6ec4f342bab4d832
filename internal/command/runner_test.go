package command

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccessCapturesOutput(t *testing.T) {
	var out bytes.Buffer
	res, err := Run(context.Background(), Invocation{Line: "echo hello", Output: &out})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Cancelled)
	assert.Equal(t, "hello\n", out.String())
}

func TestRunNonZeroExit(t *testing.T) {
	res, err := Run(context.Background(), Invocation{Line: "exit 7"})
	require.Error(t, err)
	assert.Equal(t, 7, res.ExitCode)
	assert.False(t, res.Cancelled)
}

func TestRunHonorsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	res, err := Run(context.Background(), Invocation{Line: "pwd", Dir: dir, Output: &out})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, out.String(), dir)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res, err := Run(ctx, Invocation{Line: "sleep 30"})
	require.Error(t, err)
	assert.True(t, res.Cancelled)
	assert.Less(t, time.Since(start), 10*time.Second, "cancellation must not wait for the command")
}

func TestRunStartFailure(t *testing.T) {
	res, err := Run(context.Background(), Invocation{Line: "true", Dir: "/nonexistent/dir"})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.False(t, res.Cancelled)
}

func TestMergedEnvOverrideWins(t *testing.T) {
	t.Setenv("DISTBUILDER_MERGE_PROBE", "inherited")

	env := MergedEnv(map[string]string{
		"DISTBUILDER_MERGE_PROBE": "override",
		"DISTBUILDER_MERGE_NEW":   "added",
	})

	var probe, added string
	for _, kv := range env {
		if strings.HasPrefix(kv, "DISTBUILDER_MERGE_PROBE=") {
			probe = kv
		}
		if strings.HasPrefix(kv, "DISTBUILDER_MERGE_NEW=") {
			added = kv
		}
	}
	assert.Equal(t, "DISTBUILDER_MERGE_PROBE=override", probe)
	assert.Equal(t, "DISTBUILDER_MERGE_NEW=added", added)

	// Deterministic construction: two calls yield identical slices.
	assert.Equal(t, env, MergedEnv(map[string]string{
		"DISTBUILDER_MERGE_PROBE": "override",
		"DISTBUILDER_MERGE_NEW":   "added",
	}))
}
