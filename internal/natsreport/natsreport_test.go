package natsreport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/distbuilder/internal/pipeline"
)

func TestEncodeCarriesBoundRunID(t *testing.T) {
	r := &Reporter{subject: "distbuilder.events"}
	r.BindRun("7f3a2c1e")

	payload, err := r.encode(pipeline.Event{
		Kind:        pipeline.EventAttemptFailed,
		Stage:       "backend-freeze",
		Attempt:     2,
		MaxAttempts: 3,
		ExitCode:    1,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "7f3a2c1e", got["run_id"])
	assert.Equal(t, "AttemptFailed", got["kind"])
	assert.Equal(t, "backend-freeze", got["stage"])
	assert.EqualValues(t, 2, got["attempt"])
	assert.EqualValues(t, 3, got["max_attempts"])
	assert.NotEmpty(t, got["timestamp"])
}

func TestEncodeOmitsStageFieldsOnRunEvents(t *testing.T) {
	r := &Reporter{subject: "distbuilder.events"}
	r.BindRun("7f3a2c1e")

	payload, err := r.encode(pipeline.Event{Kind: pipeline.EventPipelineSucceeded})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "7f3a2c1e", got["run_id"])
	assert.NotContains(t, got, "stage")
	assert.NotContains(t, got, "attempt")
}
