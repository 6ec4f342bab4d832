package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("freeze", time.Second)
	r.ObserveRunDuration(time.Second)
	r.IncStageResult("freeze", ResultSuccess)
	r.IncRunOutcome("succeeded")
	r.IncStageRetry("freeze")
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncStageResult("freeze", ResultFailed)
	r.IncStageResult("freeze", ResultFailed)
	r.IncStageRetry("freeze")
	r.IncRunOutcome("failed")
	r.ObserveStageDuration("freeze", 2*time.Second)
	r.ObserveRunDuration(5 * time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]bool{}
	for _, f := range families {
		got[f.GetName()] = true
	}
	assert.True(t, got["distbuilder_stage_results_total"])
	assert.True(t, got["distbuilder_stage_retries_total"])
	assert.True(t, got["distbuilder_run_outcomes_total"])
	assert.True(t, got["distbuilder_stage_duration_seconds"])
	assert.True(t, got["distbuilder_run_duration_seconds"])
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObserveStageDuration("x", time.Second)
	r.IncStageResult("x", ResultSuccess)
	r.IncRunOutcome("succeeded")
	r.IncStageRetry("x")
}
