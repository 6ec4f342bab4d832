package commands

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/distbuilder/internal/config"
	"git.home.luguber.info/inful/distbuilder/internal/pipeline"
)

func loadInitConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "distbuilder.yaml")
	require.NoError(t, config.Init(path, false))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestAssembleStages_FromInitTemplate(t *testing.T) {
	cfg := loadInitConfig(t)
	stages := AssembleStages(cfg)
	require.Len(t, stages, len(cfg.Stages))

	// Declared order is execution order.
	for i, sc := range cfg.Stages {
		assert.Equal(t, sc.Name, stages[i].Name)
	}

	byName := map[string]int{}
	for i, st := range stages {
		byName[st.Name] = i
	}

	freeze := stages[byName["backend-freeze"]]
	assert.Equal(t, 3, freeze.MaxAttempts)
	assert.Equal(t, 5*time.Second, freeze.RetryDelay)
	require.NotEmpty(t, freeze.CleanupOnRetry)
	for _, p := range freeze.CleanupOnRetry {
		assert.True(t, filepath.IsAbs(p), "cleanup path %q must be anchored", p)
	}
	require.NotNil(t, freeze.Artifact)
	assert.True(t, freeze.Artifact.Required)
	assert.True(t, filepath.IsAbs(freeze.Artifact.SearchRoot))
	assert.True(t, freeze.Artifact.Match("main_entry"))
	assert.False(t, freeze.Artifact.Match("libpython.so"))
	assert.True(t, freeze.Artifact.Exclude("dist/main_entry/_internal/foo"))

	deps := stages[byName["backend-deps"]]
	require.NotNil(t, deps.Prerequisite)
	assert.True(t, filepath.IsAbs(deps.Prerequisite.Marker))
	assert.NotEmpty(t, deps.Prerequisite.Commands)

	pkg := stages[byName["package"]]
	assert.Equal(t, "false", pkg.Env["CSC_IDENTITY_AUTO_DISCOVERY"])
}

func TestAssembleStages_DefaultDirIsProjectRoot(t *testing.T) {
	cfg := loadInitConfig(t)
	for _, st := range AssembleStages(cfg) {
		assert.True(t, filepath.IsAbs(st.Dir), "stage %s dir %q", st.Name, st.Dir)
	}
}

func TestBackoffPolicy_UsesConfiguredCap(t *testing.T) {
	cfg := loadInitConfig(t)
	cfg.Retry.Backoff = "exponential"
	cfg.Retry.MaxDelay = "12s"

	p := BackoffPolicy(cfg)
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 12*time.Second, p.Max)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(assert.AnError))

	se := &pipeline.StageError{Kind: pipeline.FailureFatal, Stage: "backend-freeze", ExitCode: 9}
	assert.Equal(t, 9, ExitCode(se))
	assert.Equal(t, 9, ExitCode(fmt.Errorf("run: %w", se)))

	// Cancellation has exit -1; fall back to a plain failure status.
	cancelled := &pipeline.StageError{Kind: pipeline.FailureCancelled, Stage: "package", ExitCode: -1}
	assert.Equal(t, 1, ExitCode(cancelled))
}
