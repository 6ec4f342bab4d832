package envprep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingPrereq returns a prerequisite whose setup appends a line to a
// counter file and then creates the marker directory.
func countingPrereq(dir string) (*Prerequisite, string) {
	marker := filepath.Join(dir, "venv")
	counter := filepath.Join(dir, "setup-count")
	return &Prerequisite{
		Marker: marker,
		Commands: []string{
			fmt.Sprintf("echo ran >> %s", counter),
			fmt.Sprintf("mkdir -p %s", marker),
		},
	}, counter
}

func setupRuns(t *testing.T, counter string) int {
	t.Helper()
	data, err := os.ReadFile(counter)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

func TestEnsureRunsSetupOnce(t *testing.T) {
	dir := t.TempDir()
	pre, counter := countingPrereq(dir)
	p := &Preparer{}

	require.NoError(t, p.Ensure(context.Background(), pre))
	assert.DirExists(t, pre.Marker)
	assert.Equal(t, 1, setupRuns(t, counter))

	// Second call: marker exists, zero additional setup commands.
	require.NoError(t, p.Ensure(context.Background(), pre))
	assert.Equal(t, 1, setupRuns(t, counter))
}

func TestEnsureNoopWhenMarkerPreexists(t *testing.T) {
	dir := t.TempDir()
	pre, counter := countingPrereq(dir)
	require.NoError(t, os.MkdirAll(pre.Marker, 0o755))

	require.NoError(t, (&Preparer{}).Ensure(context.Background(), pre))
	assert.Equal(t, 0, setupRuns(t, counter))
}

func TestEnsureSetupFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	pre := &Prerequisite{
		Marker:   filepath.Join(dir, "venv"),
		Commands: []string{"exit 3"},
	}
	err := (&Preparer{}).Ensure(context.Background(), pre)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment setup command")
}

func TestEnsureNilPrerequisite(t *testing.T) {
	require.NoError(t, (&Preparer{}).Ensure(context.Background(), nil))
}
